package queue

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher routes events to registered handlers.
// Registration may happen concurrently with dispatch.
type Dispatcher struct {
	mu       sync.RWMutex
	routes   map[EventName][]Handler
	wildcard []Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[EventName][]Handler)}
}

// On registers h for events named name. Nil handlers are ignored.
func (d *Dispatcher) On(name EventName, h Handler) *Dispatcher {
	if h == nil {
		return d
	}
	d.mu.Lock()
	d.routes[name] = append(d.routes[name], h)
	d.mu.Unlock()
	return d
}

// OnTask registers h for tasks of the given type.
func (d *Dispatcher) OnTask(taskType string, h Handler) *Dispatcher {
	return d.On(TaskEventName(taskType), h)
}

// OnAnyTask registers h for every task event, whatever its type.
func (d *Dispatcher) OnAnyTask(h Handler) *Dispatcher {
	if h == nil {
		return d
	}
	d.mu.Lock()
	d.wildcard = append(d.wildcard, h)
	d.mu.Unlock()
	return d
}

// Handlers returns how many handlers an event named name reaches.
func (d *Dispatcher) Handlers(name EventName) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := len(d.routes[name])
	if name.IsTask() {
		n += len(d.wildcard)
	}
	return n
}

// Dispatch runs the handlers for event synchronously: typed routes first in
// registration order, then wildcards for task events. It stops at the first
// error, which wraps ErrHandlerFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.routes[event.Name])+len(d.wildcard))
	handlers = append(handlers, d.routes[event.Name]...)
	if event.Name.IsTask() {
		handlers = append(handlers, d.wildcard...)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrHandlerFailed, event.Name, err)
		}
	}
	return nil
}
