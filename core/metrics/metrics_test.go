package metrics

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/alphapile/pilesched/core/factory"
)

type recordSink struct {
	solves int
	tasks  int
	err    error
}

func (r *recordSink) RecordSolve(SolveEvent) error {
	r.solves++
	return r.err
}

func (r *recordSink) RecordTaskStatus(TaskEvent) error {
	r.tasks++
	return nil
}

// solveOnly does not implement the optional recorders.
type solveOnly struct{ n int }

func (s *solveOnly) RecordSolve(SolveEvent) error {
	s.n++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &solveOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordSolve(SolveEvent{Status: "OPTIMAL"}); err != nil {
		t.Fatalf("record solve: %v", err)
	}
	if err := m.RecordTaskStatus(TaskEvent{Status: "completed"}); err != nil {
		t.Fatalf("record task: %v", err)
	}
	if err := m.RecordRobustness(RobustnessEvent{}); err != nil {
		t.Fatalf("record robustness: %v", err)
	}
	if s1.solves != 1 || s2.solves != 1 || s3.n != 1 {
		t.Fatalf("solve not forwarded")
	}
	if s1.tasks != 1 || s2.tasks != 1 {
		t.Fatalf("task status not forwarded")
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordSolve(SolveEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.solves != 0 {
		t.Fatalf("second sink should not be called")
	}
}

func TestNewMetricsSinkDefaultsToNop(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}

func TestMetricsConfigDecode(t *testing.T) {
	_ = RegisterMetricsSink("test-record", func(map[string]any) (MetricsSink, error) {
		return &recordSink{}, nil
	})

	var fromYAML Config
	data := "sinks:\n  - type: test-record\n  - type: test-record\n"
	if err := yaml.Unmarshal([]byte(data), &fromYAML); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	s, err := NewMetricsSink(fromYAML.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m, ok := s.(*MultiSink); !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with two sinks, got %T", s)
	}

	var fromJSON Config
	if err := json.Unmarshal([]byte(`{"sinks":[{"type":"missing"}]}`), &fromJSON); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if _, err := NewMetricsSink(fromJSON.Sinks); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, err := NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}}); err != nil {
		t.Fatalf("single sink: %v", err)
	}
}
