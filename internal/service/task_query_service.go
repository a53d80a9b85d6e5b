package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// ListParams carries the raw list filters as received from the transport.
// Blank values apply no filter.
type ListParams struct {
	Status   string
	Priority string
	Tags     []string
	Page     int
	Size     int // 0 selects the configured default
}

// TaskQueryService provides read access to tasks.
type TaskQueryService interface {
	// GetTask returns a single task the caller holds a role on.
	GetTask(ctx context.Context, user *domain.User, taskID uuid.UUID) (*domain.Task, error)

	// List returns one page of the caller's tasks matching params, newest first.
	List(ctx context.Context, user *domain.User, params ListParams) (domain.Page[domain.Task], error)
}

type taskQueryServiceImpl struct {
	tasks      store.TaskStore
	access     TaskAccessService
	pagination config.PaginationConfig
	logger     *slog.Logger
}

var _ TaskQueryService = (*taskQueryServiceImpl)(nil)

// NewTaskQueryService creates a new TaskQueryService.
func NewTaskQueryService(
	tasks store.TaskStore,
	access TaskAccessService,
	pagination config.PaginationConfig,
	logger *slog.Logger,
) (TaskQueryService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if access == nil {
		return nil, domain.NewValidationError("access", "cannot be nil", domain.ErrValidation)
	}
	if pagination.DefaultSize <= 0 || pagination.MaxSize < pagination.DefaultSize {
		return nil, domain.NewValidationError("pagination",
			"default size must be positive and not above max size", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskQueryServiceImpl{
		tasks:      tasks,
		access:     access,
		pagination: pagination,
		logger:     logger.With(slog.String("component", "task_query_service")),
	}, nil
}

// GetTask implements TaskQueryService.GetTask
func (s *taskQueryServiceImpl) GetTask(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
) (*domain.Task, error) {
	return s.access.LoadTask(ctx, user, taskID)
}

// List implements TaskQueryService.List
func (s *taskQueryServiceImpl) List(
	ctx context.Context,
	user *domain.User,
	params ListParams,
) (domain.Page[domain.Task], error) {
	if user == nil {
		return domain.Page[domain.Task]{}, errUnauthenticated()
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	filter, err := buildTaskFilter(user.ID, params)
	if err != nil {
		return domain.Page[domain.Task]{}, err
	}
	req, err := s.pageRequest(params.Page, params.Size)
	if err != nil {
		return domain.Page[domain.Task]{}, err
	}

	page, err := s.tasks.FindPaged(ctx, filter, req)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return domain.Page[domain.Task]{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	log.Debug("listed tasks",
		slog.String("user_id", user.ID.String()),
		slog.Int("page", req.Page),
		slog.Int("size", req.Size),
		slog.Int("returned", len(page.Content)),
		slog.Int64("total", page.TotalElements))
	return page, nil
}

func buildTaskFilter(userID uuid.UUID, params ListParams) (store.TaskFilter, error) {
	status, err := domain.ParseTaskStatus(params.Status)
	if err != nil {
		return store.TaskFilter{}, err
	}
	priority, err := domain.ParseTaskPriority(params.Priority)
	if err != nil {
		return store.TaskFilter{}, err
	}

	var tags []string
	for _, tag := range params.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return store.TaskFilter{
		UserID:   userID,
		Status:   status,
		Priority: priority,
		Tags:     tags,
	}, nil
}

func (s *taskQueryServiceImpl) pageRequest(page, size int) (domain.PageRequest, error) {
	if page < 0 {
		return domain.PageRequest{}, domain.NewValidationError("page", "page must not be negative", domain.ErrValidation)
	}
	if size < 0 {
		return domain.PageRequest{}, domain.NewValidationError("size", "size must not be negative", domain.ErrValidation)
	}
	if size == 0 {
		size = s.pagination.DefaultSize
	}
	if size > s.pagination.MaxSize {
		size = s.pagination.MaxSize
	}
	return domain.PageRequest{Page: page, Size: size}, nil
}
