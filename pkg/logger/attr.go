package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// TaskType records the task routing type under the key "task_type".
func TaskType(t string) slog.Attr {
	return slog.String("task_type", t)
}

// TaskID records the task subject identifier under the key "task_id".
func TaskID(id string) slog.Attr {
	return slog.String("task_id", id)
}

// Record records a spool record name under the key "record".
func Record(name string) slog.Attr {
	return slog.String("record", name)
}

// Slot records a worker slot number under the key "slot".
func Slot(n int) slog.Attr {
	return slog.Int("slot", n)
}

// WorkerID records the worker instance identifier under the key "worker_id".
// If id is nil, it returns an empty Attr.
func WorkerID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("worker_id", id)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Count records a quantity under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
