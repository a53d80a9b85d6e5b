package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// CreateTaskInput holds the attributes of a new task. AssignedTo is an
// optional e-mail address of a registered user.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	AssignedTo  string
	Tags        []string
}

// UpdateTaskInput is a partial update. A nil field is left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	AssignedTo  *string
	Tags        *[]string
}

// Fields lists the task fields present in the update, in a fixed order.
func (in UpdateTaskInput) Fields() []domain.TaskField {
	var fields []domain.TaskField
	if in.Title != nil {
		fields = append(fields, domain.FieldTitle)
	}
	if in.Description != nil {
		fields = append(fields, domain.FieldDescription)
	}
	if in.DueDate != nil {
		fields = append(fields, domain.FieldDueDate)
	}
	if in.AssignedTo != nil {
		fields = append(fields, domain.FieldAssignee)
	}
	if in.Tags != nil {
		fields = append(fields, domain.FieldTags)
	}
	if in.Status != nil {
		fields = append(fields, domain.FieldStatus)
	}
	if in.Priority != nil {
		fields = append(fields, domain.FieldPriority)
	}
	return fields
}

// ShareTaskInput names the user to share with by e-mail.
type ShareTaskInput struct {
	Email   string
	CanEdit bool
}

// TaskLifecycleService creates, updates, deletes and shares tasks.
type TaskLifecycleService interface {
	// Create persists a new task owned by user, grants the CREATOR role and,
	// when AssignedTo is set, the ASSIGNEE role to that user.
	Create(ctx context.Context, user *domain.User, in CreateTaskInput) (*domain.Task, error)

	// Update applies the fields present in the input after checking every
	// one of them against the caller's role. An assignee e-mail that matches
	// no user is ignored.
	Update(ctx context.Context, user *domain.User, taskID uuid.UUID, in UpdateTaskInput) (*domain.Task, error)

	// Delete removes the task. Only its creator may do so.
	Delete(ctx context.Context, user *domain.User, taskID uuid.UUID) error

	// Share grants the SHARED role to the user with the given e-mail and
	// records the grant.
	Share(ctx context.Context, user *domain.User, taskID uuid.UUID, in ShareTaskInput) error
}

type taskLifecycleServiceImpl struct {
	db      store.TxBeginner
	tasks   store.TaskStore
	users   store.UserStore
	cache   cache.TaskCache
	access  TaskAccessService
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time
}

var _ TaskLifecycleService = (*taskLifecycleServiceImpl)(nil)

// NewTaskLifecycleService creates a new TaskLifecycleService.
// It returns an error if any of the required dependencies are nil. A nil
// emitter discards events.
func NewTaskLifecycleService(
	db store.TxBeginner,
	tasks store.TaskStore,
	users store.UserStore,
	taskCache cache.TaskCache,
	access TaskAccessService,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskLifecycleService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if taskCache == nil {
		return nil, domain.NewValidationError("taskCache", "cannot be nil", domain.ErrValidation)
	}
	if access == nil {
		return nil, domain.NewValidationError("access", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskLifecycleServiceImpl{
		db:      db,
		tasks:   tasks,
		users:   users,
		cache:   taskCache,
		access:  access,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "task_lifecycle_service")),
		now:     time.Now,
	}, nil
}

// Create implements TaskLifecycleService.Create
func (s *taskLifecycleServiceImpl) Create(
	ctx context.Context,
	user *domain.User,
	in CreateTaskInput,
) (*domain.Task, error) {
	if user == nil {
		return nil, errUnauthenticated()
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", user.ID.String()))

	task, err := domain.NewTask(
		user.ID,
		in.Title, in.Description,
		in.DueDate,
		in.Status, in.Priority,
		in.AssignedTo,
		in.Tags,
		s.now(),
	)
	if err != nil {
		log.Debug("rejected new task", slog.String("error", err.Error()))
		return nil, invalidTask(err)
	}

	var saved *domain.Task
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txUsers := s.users.WithTx(tx)

		var err error
		saved, err = txTasks.Save(ctx, task)
		if err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}

		if err := txTasks.CreateRole(ctx, &domain.TaskRole{
			TaskID:   saved.ID,
			UserID:   user.ID,
			RoleType: domain.RoleCreator,
		}); err != nil {
			return fmt.Errorf("failed to grant creator role: %w", err)
		}

		if saved.AssignedTo == "" {
			return nil
		}
		assignee, err := txUsers.GetByEmail(ctx, saved.AssignedTo)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return errUserNotFound(saved.AssignedTo, err)
			}
			return fmt.Errorf("failed to look up assignee: %w", err)
		}
		if err := txTasks.CreateRole(ctx, &domain.TaskRole{
			TaskID:   saved.ID,
			UserID:   assignee.ID,
			RoleType: domain.RoleAssignee,
		}); err != nil {
			return fmt.Errorf("failed to grant assignee role: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.cache.Put(ctx, saved); err != nil {
		log.Warn("failed to cache new task",
			slog.String("task_id", saved.ID.String()),
			slog.String("error", err.Error()))
	}
	s.emit(ctx, events.NewTaskEvent(events.TypeTaskCreated, saved.ID, user.ID))

	log.Info("task created", slog.String("task_id", saved.ID.String()))
	return saved, nil
}

// Update implements TaskLifecycleService.Update
func (s *taskLifecycleServiceImpl) Update(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
	in UpdateTaskInput,
) (*domain.Task, error) {
	role, err := s.access.ResolveRole(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("task_id", taskID.String()),
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(role.RoleType)),
	)

	fields := in.Fields()
	for _, field := range fields {
		if err := s.access.AuthorizeFieldWrite(role.RoleType, field); err != nil {
			log.Debug("field write denied", slog.String("field", string(field)))
			return nil, err
		}
	}

	current, err := s.cache.Get(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, errTaskNotFound(taskID, err)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	task := current.Clone()
	changed := make([]string, 0, len(fields))
	var assignee *domain.User

	for _, field := range fields {
		switch field {
		case domain.FieldTitle:
			task.Title = *in.Title
		case domain.FieldDescription:
			task.Description = *in.Description
		case domain.FieldDueDate:
			task.DueDate = in.DueDate.UTC()
		case domain.FieldAssignee:
			email := strings.TrimSpace(*in.AssignedTo)
			u, err := s.users.GetByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, store.ErrUserNotFound) {
					log.Info("assignee not found, leaving assignment unchanged")
					continue
				}
				return nil, fmt.Errorf("failed to look up assignee: %w", err)
			}
			assignee = u
			task.AssignedTo = email
		case domain.FieldTags:
			task.Tags = domain.NormalizeTags(*in.Tags)
		case domain.FieldStatus:
			task.Status = *in.Status
		case domain.FieldPriority:
			task.Priority = *in.Priority
		}
		changed = append(changed, strings.ToLower(string(field)))
	}

	if err := task.Validate(); err != nil {
		return nil, invalidTask(err)
	}
	task.Touch(s.now())

	var saved *domain.Task
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		var err error
		saved, err = txTasks.Save(ctx, task)
		if err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		if assignee == nil {
			return nil
		}
		if err := txTasks.CreateRole(ctx, &domain.TaskRole{
			TaskID:   saved.ID,
			UserID:   assignee.ID,
			RoleType: domain.RoleAssignee,
		}); err != nil {
			return fmt.Errorf("failed to grant assignee role: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to update task", slog.String("error", err.Error()))
		return nil, err
	}

	s.refreshCache(ctx, log, saved)
	s.emit(ctx, events.NewTaskEvent(events.TypeTaskUpdated, saved.ID, user.ID, changed...))

	log.Info("task updated", slog.Any("fields", changed))
	return saved, nil
}

// Delete implements TaskLifecycleService.Delete
func (s *taskLifecycleServiceImpl) Delete(ctx context.Context, user *domain.User, taskID uuid.UUID) error {
	role, err := s.access.ResolveRole(ctx, user, taskID)
	if err != nil {
		return err
	}
	if err := s.access.AuthorizeDelete(role.RoleType); err != nil {
		return err
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("task_id", taskID.String()),
		slog.String("user_id", user.ID.String()),
	)

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Delete(ctx, taskID)
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return errTaskNotFound(taskID, err)
		}
		log.Error("failed to delete task", slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if err := s.cache.Evict(ctx, taskID); err != nil {
		log.Warn("failed to evict deleted task", slog.String("error", err.Error()))
	}
	s.emit(ctx, events.NewTaskEvent(events.TypeTaskDeleted, taskID, user.ID))

	log.Info("task deleted")
	return nil
}

// Share implements TaskLifecycleService.Share
func (s *taskLifecycleServiceImpl) Share(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
	in ShareTaskInput,
) error {
	if user == nil {
		return errUnauthenticated()
	}
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("task_id", taskID.String()),
		slog.String("user_id", user.ID.String()),
	)

	task, err := s.cache.Get(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return errTaskNotFound(taskID, err)
		}
		return fmt.Errorf("failed to load task: %w", err)
	}

	email := strings.TrimSpace(in.Email)
	target, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return errUserNotFound(email, err)
		}
		return fmt.Errorf("failed to look up share target: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		if err := txTasks.CreateRole(ctx, &domain.TaskRole{
			TaskID:   task.ID,
			UserID:   target.ID,
			RoleType: domain.RoleShared,
		}); err != nil {
			return fmt.Errorf("failed to grant shared role: %w", err)
		}
		if err := txTasks.CreateSharedTask(ctx, &domain.SharedTask{
			TaskID:    task.ID,
			UserID:    target.ID,
			CanEdit:   in.CanEdit,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return fmt.Errorf("failed to record share: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to share task", slog.String("error", err.Error()))
		return err
	}

	s.emit(ctx, events.NewTaskEvent(events.TypeTaskShared, task.ID, user.ID, target.Email))

	log.Info("task shared",
		slog.String("target_user_id", target.ID.String()),
		slog.Bool("can_edit", in.CanEdit))
	return nil
}

// refreshCache evicts the entry and repopulates it with the committed task.
func (s *taskLifecycleServiceImpl) refreshCache(ctx context.Context, log *slog.Logger, task *domain.Task) {
	if err := s.cache.Evict(ctx, task.ID); err != nil {
		log.Warn("failed to evict updated task", slog.String("error", err.Error()))
	}
	if err := s.cache.Put(ctx, task); err != nil {
		log.Warn("failed to cache updated task", slog.String("error", err.Error()))
	}
}

func (s *taskLifecycleServiceImpl) emit(ctx context.Context, event *events.TaskEvent) {
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit task event",
			slog.String("event_type", event.Type),
			slog.String("task_id", event.TaskID.String()),
			slog.String("error", err.Error()))
	}
}

var taskErrorFields = map[error]string{
	domain.ErrEmptyTaskTitle:      "title",
	domain.ErrEmptyTaskDesc:       "description",
	domain.ErrInvalidTaskStatus:   "status",
	domain.ErrInvalidTaskPriority: "priority",
}

// invalidTask turns a task validation failure into a field error.
func invalidTask(err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	for sentinel, field := range taskErrorFields {
		if errors.Is(err, sentinel) {
			return domain.NewValidationError(field, err.Error(), domain.ErrValidation)
		}
	}
	return domain.NewValidationError("", err.Error(), domain.ErrValidation)
}
