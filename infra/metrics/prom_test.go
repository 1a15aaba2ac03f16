package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphapile/pilesched/core/events"
	"github.com/alphapile/pilesched/core/factory"
	coremetrics "github.com/alphapile/pilesched/core/metrics"
	"github.com/alphapile/pilesched/internal/eventbus"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordSolve(coremetrics.SolveEvent{Backend: "native", Status: "OPTIMAL", MakespanHours: 14, WallTime: time.Millisecond}))
	require.NoError(t, sink.RecordSolve(coremetrics.SolveEvent{Backend: "native", Status: "INFEASIBLE"}))
	require.NoError(t, sink.RecordRobustness(coremetrics.RobustnessEvent{CompletionProbability: 0.5}))
	require.NoError(t, sink.RecordRobustness(coremetrics.RobustnessEvent{Failed: true}))
	require.NoError(t, sink.RecordTaskStatus(coremetrics.TaskEvent{Status: "completed"}))
	require.NoError(t, sink.RecordQueueDepth(3))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.solves.WithLabelValues("OPTIMAL", "native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.solves.WithLabelValues("INFEASIBLE", "native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.robustFail))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.tasks.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.queue))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.makespan))
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordQueueDepth(2))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.queue))
}

func TestFactoryRegistrations(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	_, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "graphite"}})
	assert.Error(t, err)
}

type taskRecorder struct {
	coremetrics.NopSink
	ch chan coremetrics.TaskEvent
}

func (r taskRecorder) RecordTaskStatus(ev coremetrics.TaskEvent) error {
	r.ch <- ev
	return nil
}

func TestEventCollector(t *testing.T) {
	bus := eventbus.New[events.TaskEvent](4)
	rec := taskRecorder{ch: make(chan coremetrics.TaskEvent, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartEventCollector(ctx, bus, rec)
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	bus.Publish(events.TaskEvent{TaskID: "t1", Status: "running", Elapsed: time.Second})
	select {
	case ev := <-rec.ch:
		assert.Equal(t, "t1", ev.TaskID)
		assert.Equal(t, "running", ev.Status)
		assert.Equal(t, time.Second, ev.Elapsed)
	case <-time.After(time.Second):
		t.Fatal("event not recorded")
	}

	cancel()
	require.Eventually(t, func() bool { return bus.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}
