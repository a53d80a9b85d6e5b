package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// TaskFilter narrows a task listing. Empty fields apply no restriction,
// except UserID which always scopes results to tasks the user holds a
// role on. Dimensions are combined with AND; Tags match when a task has
// any of them.
type TaskFilter struct {
	UserID   uuid.UUID
	Status   domain.TaskStatus
	Priority domain.TaskPriority
	Tags     []string
}

// TaskStore defines persistence for tasks, their roles and share grants.
type TaskStore interface {
	// Save inserts the task or updates it when the ID already exists, and
	// replaces its tag set. A zero ID or zero CreatedAt is assigned on insert.
	Save(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// FindByID returns ErrTaskNotFound when no task has the ID.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Delete removes the task; roles, tags and share grants cascade.
	// Returns ErrTaskNotFound when nothing was deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsByID reports whether a task with the ID exists.
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)

	// FindRoleByTaskAndUser returns the user's most privileged role on the
	// task, or nil when the user holds none.
	FindRoleByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) (*domain.TaskRole, error)

	// RoleExists reports whether the exact (task, user, role) grant exists.
	RoleExists(ctx context.Context, taskID, userID uuid.UUID, role domain.RoleType) (bool, error)

	// RoleExistsForUser reports whether the user holds any role on the task.
	RoleExistsForUser(ctx context.Context, taskID, userID uuid.UUID) (bool, error)

	// CreateRole records a grant. Creating a grant that already exists is a no-op.
	CreateRole(ctx context.Context, role *domain.TaskRole) error

	// CreateSharedTask appends a share grant record.
	CreateSharedTask(ctx context.Context, share *domain.SharedTask) error

	// ListSharedTasks returns the share grants of a task, oldest first.
	ListSharedTasks(ctx context.Context, taskID uuid.UUID) ([]domain.SharedTask, error)

	// FindPaged returns one page of tasks matching the filter, newest first.
	FindPaged(ctx context.Context, filter TaskFilter, page domain.PageRequest) (domain.Page[domain.Task], error)

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}
