package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateTimeLayout is the only accepted wire format for due dates.
const DateTimeLayout = "2006-01-02T15:04:05"

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskStatuses lists the valid statuses in declaration order.
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

// TaskPriority is an optional urgency marker. The zero value means unset.
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// TaskPriorities lists the valid priorities in declaration order.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

// Common validation errors for Task
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrEmptyTaskTitle      = errors.New("title is required")
	ErrEmptyTaskDesc       = errors.New("description is required")
	ErrEmptyTaskCreator    = errors.New("task creator cannot be empty")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTaskPriority = errors.New("invalid task priority")
	ErrDueDateNotInFuture  = NewValidationError("due_date", "Due date must be in the future to be valid", ErrValidation)
)

// Task is a unit of work owned by its creator and visible to every user
// holding a role on it.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     time.Time    `json:"due_date"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority,omitempty"`
	AssignedTo  string       `json:"assigned_to,omitempty"`
	Tags        []string     `json:"tags"`
	CreatedBy   uuid.UUID    `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewTask builds a task owned by createdBy. The due date must be strictly
// after now.
func NewTask(
	createdBy uuid.UUID,
	title, description string,
	dueDate time.Time,
	status TaskStatus,
	priority TaskPriority,
	assignedTo string,
	tags []string,
	now time.Time,
) (*Task, error) {
	if err := ValidateDueDate(dueDate, now); err != nil {
		return nil, err
	}

	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		DueDate:     dueDate.UTC(),
		Status:      status,
		Priority:    priority,
		AssignedTo:  strings.TrimSpace(assignedTo),
		Tags:        NormalizeTags(tags),
		CreatedBy:   createdBy,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data. It does not look at the due
// date, which is only constrained at creation time.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTaskTitle
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyTaskDesc
	}
	if t.CreatedBy == uuid.Nil {
		return ErrEmptyTaskCreator
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return ErrInvalidTaskPriority
	}
	return nil
}

// Clone returns a deep copy so cached snapshots are never shared.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	return &c
}

// Touch refreshes the update timestamp.
func (t *Task) Touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

// ValidateDueDate rejects due dates that are not strictly after now.
func ValidateDueDate(dueDate, now time.Time) error {
	if !dueDate.After(now) {
		return ErrDueDateNotInFuture
	}
	return nil
}

// Valid reports whether s is one of the declared statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Valid reports whether p is one of the declared priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// ParseTaskStatus parses a status case-insensitively. A blank value yields
// the zero status and no error; callers that require a status check for it.
func ParseTaskStatus(value string) (TaskStatus, error) {
	v, err := parseEnum("status", value, TaskStatuses)
	return TaskStatus(v), err
}

// ParseTaskPriority parses a priority case-insensitively. A blank value
// yields the zero priority and no error.
func ParseTaskPriority(value string) (TaskPriority, error) {
	v, err := parseEnum("priority", value, TaskPriorities)
	return TaskPriority(v), err
}

func parseEnum[T ~string](field, value string, allowed []T) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}
	upper := strings.ToUpper(trimmed)
	names := make([]string, len(allowed))
	for i, a := range allowed {
		if string(a) == upper {
			return upper, nil
		}
		names[i] = string(a)
	}
	return "", NewValidationError(
		field,
		fmt.Sprintf("Invalid value '%s' for %s. Allowed values are: %s",
			value, field, strings.Join(names, ", ")),
		ErrInvalidFormat,
	)
}

// ParseDateTime parses a local date-time in DateTimeLayout and interprets
// it as UTC.
func ParseDateTime(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, NewValidationError(
			field,
			fmt.Sprintf("Invalid date format for %s. Expected format: yyyy-MM-ddTHH:mm:ss", field),
			ErrInvalidFormat,
		)
	}
	return t, nil
}

// FormatDateTime renders t in DateTimeLayout.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

// NormalizeTags trims tags, drops blanks and removes exact duplicates while
// keeping first-seen order. Case is preserved. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
