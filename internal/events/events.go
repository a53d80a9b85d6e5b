package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task event types.
const (
	TypeTaskCreated = "task.created"
	TypeTaskUpdated = "task.updated"
	TypeTaskDeleted = "task.deleted"
	TypeTaskShared  = "task.shared"
)

// TaskEvent records one committed change to a task.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	TaskID  uuid.UUID `json:"task_id"`
	ActorID uuid.UUID `json:"actor_id"`

	// Fields lists the attributes written by an update, or carries the
	// share target for task.shared.
	Fields []string `json:"fields,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent creates an event stamped with a fresh ID and the current time.
func NewTaskEvent(eventType string, taskID, actorID uuid.UUID, fields ...string) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Type:       eventType,
		TaskID:     taskID,
		ActorID:    actorID,
		Fields:     fields,
		OccurredAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without knowledge of handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
