package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// subscription binds a handler to a set of event types. An empty set
// matches every type.
type subscription struct {
	handler EventHandler
	types   []string
}

func (s subscription) matches(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// InMemoryEventEmitter fans each event out synchronously to the handlers
// subscribed to its type.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_fanout")),
	}
}

// RegisterHandler subscribes handler to the given event types, or to all
// events when none are given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{handler: handler, types: types})
	e.logger.Debug("registered event handler",
		slog.String("handler", fmt.Sprintf("%T", handler)),
		slog.Any("event_types", types))
}

// EmitEvent delivers event to every matching handler, even after one
// fails. The failures are joined into the returned error.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	e.mu.RLock()
	subs := slices.Clone(e.subs)
	e.mu.RUnlock()

	var errs []error
	delivered := 0
	for _, sub := range subs {
		if !sub.matches(event.Type) {
			continue
		}
		delivered++
		if err := sub.handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("event handler failed",
				slog.String("handler", fmt.Sprintf("%T", sub.handler)),
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.Type),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if delivered == 0 {
		e.logger.Debug("no handlers subscribed to event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.Type))
	}

	return errors.Join(errs...)
}
