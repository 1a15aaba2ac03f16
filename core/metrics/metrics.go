package metrics

import "time"

// SolveEvent describes one finished optimization.
type SolveEvent struct {
	TaskID            string
	Backend           string
	Status            string
	Piles             int
	Machines          int
	Zones             int
	SimultaneousPairs int
	ForbiddenPairs    int
	MakespanHours     float64
	ObjectiveHours    float64
	ZoneExcess        int64
	Branches          int64
	Conflicts         int64
	WallTime          time.Duration
	Time              time.Time
}

// MetricsSink records solve outcomes for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// RobustnessEvent summarizes one Monte Carlo evaluation.
type RobustnessEvent struct {
	TaskID                string
	Trials                int
	CompletionProbability float64
	MeanHours             float64
	P90Hours              float64
	Failed                bool
	Duration              time.Duration
	Time                  time.Time
}

// RobustnessRecorder records robustness evaluations.
type RobustnessRecorder interface {
	RecordRobustness(ev RobustnessEvent) error
}

// TaskEvent is a background task status transition.
type TaskEvent struct {
	TaskID string
	Status string
	// Elapsed is the time spent in the previous status.
	Elapsed time.Duration
	Time    time.Time
}

// TaskRecorder records task lifecycle transitions.
type TaskRecorder interface {
	RecordTaskStatus(ev TaskEvent) error
}

// QueueDepthRecorder records the number of tasks waiting for a worker.
type QueueDepthRecorder interface {
	RecordQueueDepth(depth int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error           { return nil }
func (NopSink) RecordRobustness(RobustnessEvent) error { return nil }
func (NopSink) RecordTaskStatus(TaskEvent) error       { return nil }
func (NopSink) RecordQueueDepth(int) error             { return nil }
