package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// TaskAccessService is the authorization gate for a single task.
//
// LoadTask and ResolveRole check, in order, that the caller is present
// (ErrUnauthenticated), that the task exists (ErrNotFound) and that the caller
// holds some role on it (ErrForbidden). A missing task is therefore reported
// as not found even to callers who would have no access to it.
type TaskAccessService interface {
	// LoadTask returns the task snapshot after both access checks pass.
	LoadTask(ctx context.Context, user *domain.User, taskID uuid.UUID) (*domain.Task, error)

	// ResolveRole returns the caller's most privileged role on the task.
	ResolveRole(ctx context.Context, user *domain.User, taskID uuid.UUID) (*domain.TaskRole, error)

	// AuthorizeFieldWrite fails with an *AccessError when role may not write field.
	AuthorizeFieldWrite(role domain.RoleType, field domain.TaskField) error

	// AuthorizeDelete fails unless role is CREATOR.
	AuthorizeDelete(role domain.RoleType) error
}

type taskAccessServiceImpl struct {
	tasks  store.TaskStore
	cache  cache.TaskCache
	logger *slog.Logger
}

var _ TaskAccessService = (*taskAccessServiceImpl)(nil)

// NewTaskAccessService creates a new TaskAccessService.
// It returns an error if any of the required dependencies are nil.
func NewTaskAccessService(
	tasks store.TaskStore,
	taskCache cache.TaskCache,
	logger *slog.Logger,
) (TaskAccessService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if taskCache == nil {
		return nil, domain.NewValidationError("taskCache", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskAccessServiceImpl{
		tasks:  tasks,
		cache:  taskCache,
		logger: logger.With(slog.String("component", "task_access_service")),
	}, nil
}

// LoadTask implements TaskAccessService.LoadTask
func (s *taskAccessServiceImpl) LoadTask(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
) (*domain.Task, error) {
	if err := s.checkAccess(ctx, user, taskID); err != nil {
		return nil, err
	}

	task, err := s.cache.Get(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			// deleted between the access check and the read
			return nil, errTaskNotFound(taskID, err)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

// ResolveRole implements TaskAccessService.ResolveRole
func (s *taskAccessServiceImpl) ResolveRole(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
) (*domain.TaskRole, error) {
	if err := s.checkAccess(ctx, user, taskID); err != nil {
		return nil, err
	}

	role, err := s.tasks.FindRoleByTaskAndUser(ctx, taskID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role: %w", err)
	}
	if role == nil {
		return nil, NewServiceError(ErrForbidden, "user has no role on this task", nil)
	}
	return role, nil
}

// AuthorizeFieldWrite implements TaskAccessService.AuthorizeFieldWrite
func (s *taskAccessServiceImpl) AuthorizeFieldWrite(role domain.RoleType, field domain.TaskField) error {
	if !domain.CanPerform(role, field) {
		return &AccessError{Role: role, Field: field}
	}
	return nil
}

// AuthorizeDelete implements TaskAccessService.AuthorizeDelete
func (s *taskAccessServiceImpl) AuthorizeDelete(role domain.RoleType) error {
	if role != domain.RoleCreator {
		return NewServiceError(ErrForbidden, "only creator of task can delete task", nil)
	}
	return nil
}

// checkAccess runs the two ordered checks: existence, then any role.
func (s *taskAccessServiceImpl) checkAccess(ctx context.Context, user *domain.User, taskID uuid.UUID) error {
	if user == nil {
		return errUnauthenticated()
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("task_id", taskID.String()),
		slog.String("user_id", user.ID.String()),
	)

	exists, err := s.tasks.ExistsByID(ctx, taskID)
	if err != nil {
		log.Error("failed to check task existence", slog.String("error", err.Error()))
		return fmt.Errorf("failed to check task existence: %w", err)
	}
	if !exists {
		log.Debug("task not found")
		return errTaskNotFound(taskID, nil)
	}

	hasRole, err := s.tasks.RoleExistsForUser(ctx, taskID, user.ID)
	if err != nil {
		log.Error("failed to check task role", slog.String("error", err.Error()))
		return fmt.Errorf("failed to check task role: %w", err)
	}
	if !hasRole {
		log.Debug("access denied, caller holds no role")
		return errNoAccess()
	}
	return nil
}
