package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRobustness forwards to sinks implementing RobustnessRecorder.
func (m *MultiSink) RecordRobustness(ev RobustnessEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RobustnessRecorder); ok {
			if err := rec.RecordRobustness(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTaskStatus forwards to sinks implementing TaskRecorder.
func (m *MultiSink) RecordTaskStatus(ev TaskEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TaskRecorder); ok {
			if err := rec.RecordTaskStatus(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordQueueDepth forwards to sinks implementing QueueDepthRecorder.
func (m *MultiSink) RecordQueueDepth(depth int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(QueueDepthRecorder); ok {
			if err := rec.RecordQueueDepth(depth); err != nil {
				return err
			}
		}
	}
	return nil
}
