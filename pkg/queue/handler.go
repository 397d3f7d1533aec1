package queue

import (
	"context"
	"encoding/json"
	"errors"
)

type (
	// Handler reacts to a dispatched event.
	Handler interface {
		Handle(ctx context.Context, event Event) error
	}

	// HandlerFunc adapts a function to Handler.
	HandlerFunc func(ctx context.Context, event Event) error

	// TaskHandlerFunc receives the task payload decoded into T.
	TaskHandlerFunc[T any] func(ctx context.Context, event Event, payload T) error
)

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NewTaskHandler returns a Handler that decodes Event.Data into T before
// calling fn. A task without payload decodes to the zero T.
func NewTaskHandler[T any](fn TaskHandlerFunc[T]) Handler {
	return &taskHandler[T]{handler: fn}
}

type taskHandler[T any] struct {
	handler TaskHandlerFunc[T]
}

func (h *taskHandler[T]) Handle(ctx context.Context, event Event) error {
	var payload T
	if len(event.Data) > 0 {
		raw, err := json.Marshal(event.Data)
		if err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
	}
	return h.handler(ctx, event, payload)
}
