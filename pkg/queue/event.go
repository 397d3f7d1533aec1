package queue

import (
	"strings"
	"time"

	"github.com/dmitrymomot/spool/pkg/spool"
)

// EventName routes an Event to its handlers.
type EventName string

// Lifecycle events fired by every worker run.
const (
	EventWorkerStarted  EventName = "worker.started"
	EventWorkerStopping EventName = "worker.stopping"
)

const taskEventPrefix = "task."

// TaskEventName returns the route for tasks of the given type.
func TaskEventName(taskType string) EventName {
	return EventName(taskEventPrefix + taskType)
}

// IsTask reports whether n routes a task rather than a lifecycle event.
func (n EventName) IsTask() bool {
	return strings.HasPrefix(string(n), taskEventPrefix)
}

// Event is what handlers receive. Task fields are empty on lifecycle events.
type Event struct {
	Name        EventName
	Type        string
	ID          string
	ScheduledAt time.Time
	Data        map[string]any

	// Slot and WorkerID identify the worker that fired the event.
	// Slot 1 is the first worker, the conventional home of once-per-start work.
	Slot     int
	WorkerID string
}

// Task rebuilds the spool record an event was dispatched from.
func (e Event) Task() spool.Task {
	return spool.Task{Type: e.Type, ID: e.ID, Data: e.Data, ScheduledAt: e.ScheduledAt}
}

func taskEvent(t spool.Task, slot int, workerID string) Event {
	return Event{
		Name:        TaskEventName(t.Type),
		Type:        t.Type,
		ID:          t.ID,
		ScheduledAt: t.ScheduledAt,
		Data:        t.Data,
		Slot:        slot,
		WorkerID:    workerID,
	}
}
