package mqtt

import (
	"context"
	"time"

	"github.com/alphapile/pilesched/core/events"
	"github.com/alphapile/pilesched/core/tasks"
	"github.com/alphapile/pilesched/infra/logger"
	"github.com/alphapile/pilesched/internal/eventbus"
)

// Publisher sends JSON payloads to a topic.
type Publisher interface {
	Topic(suffix string) string
	PublishJSON(topic string, retained bool, v any) error
}

// StatusMessage is the payload published for each task transition.
type StatusMessage struct {
	TaskID        string   `json:"task_id"`
	Status        string   `json:"status"`
	Error         string   `json:"error,omitempty"`
	MakespanHours *float64 `json:"makespan_hours,omitempty"`
	Timestamp     int64    `json:"timestamp"`
}

// StartNotifier publishes every task transition from bus to
// <topic>/<task_id>/status. Terminal states are retained so late
// subscribers see the outcome. It stops when ctx is done or the bus closes.
func StartNotifier(ctx context.Context, bus *eventbus.Bus[events.TaskEvent], pub Publisher) {
	if bus == nil || pub == nil {
		return
	}
	log := logger.New("mqtt_notifier")
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
				msg := StatusMessage{
					TaskID:        ev.TaskID,
					Status:        ev.Status,
					Error:         ev.Error,
					MakespanHours: ev.MakespanHours,
					Timestamp:     ev.Time.UnixMilli(),
				}
				if ev.Time.IsZero() {
					msg.Timestamp = time.Now().UnixMilli()
				}
				if err := pub.PublishJSON(pub.Topic(ev.TaskID+"/status"), tasks.Status(ev.Status).Terminal(), msg); err != nil {
					log.Warnf("task %s status not published: %v", ev.TaskID, err)
				}
			}
		}
	}()
}
