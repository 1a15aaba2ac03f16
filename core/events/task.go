// Package events defines the events emitted on the internal event bus.
//
// TaskEvent is published on every background task status transition and is
// consumed by the metrics collector and the MQTT notifier.
package events

import "time"

// TaskEvent reports a task entering Status.
type TaskEvent struct {
	TaskID string
	Status string
	// Error is set for failed tasks.
	Error string
	// MakespanHours is set for completed tasks with a plan.
	MakespanHours *float64
	// Elapsed is the time spent in the previous status.
	Elapsed time.Duration
	Time    time.Time
}
