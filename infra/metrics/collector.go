package metrics

import (
	"context"

	"github.com/alphapile/pilesched/core/events"
	coremetrics "github.com/alphapile/pilesched/core/metrics"
	"github.com/alphapile/pilesched/internal/eventbus"
)

// StartEventCollector subscribes to the task bus and records every status
// transition on sinks implementing TaskRecorder. It stops when the context
// is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.TaskEvent], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.TaskRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordTaskStatus(coremetrics.TaskEvent{
					TaskID:  ev.TaskID,
					Status:  ev.Status,
					Elapsed: ev.Elapsed,
					Time:    ev.Time,
				})
			}
		}
	}()
}
