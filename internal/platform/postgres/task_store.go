package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const taskColumns = `t.id, t.title, t.description, t.due_date, t.status, t.priority, ` +
	`t.assigned_to, t.created_by, t.created_at, t.updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	sqlDB  *sql.DB // set when db is a pool, so Save can open its own transaction
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sqlDB, _ := db.(*sql.DB)
	return &PostgresTaskStore{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(slog.String("component", "task_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

// Save implements store.TaskStore.Save
func (s *PostgresTaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if s.sqlDB != nil {
		var saved *domain.Task
		err := store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
			var err error
			saved, err = s.WithTx(tx).Save(ctx, task)
			return err
		})
		return saved, err
	}

	log := logger.FromContextOrDefault(ctx, s.logger)

	t := task.Clone()
	now := s.now()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	t.Tags = domain.NormalizeTags(t.Tags)

	if err := t.Validate(); err != nil {
		log.Warn("task validation failed during save",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID.String()))
		return nil, err
	}

	query := `
		INSERT INTO tasks (id, title, description, due_date, status, priority,
			assigned_to, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			due_date = EXCLUDED.due_date,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			assigned_to = EXCLUDED.assigned_to,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.DueDate.UTC(),
		string(t.Status),
		nullString(string(t.Priority)),
		nullString(t.AssignedTo),
		t.CreatedBy,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID.String()))
		return nil, store.NewStoreError("task", "save", "failed to save task", MapError(err))
	}

	if err := s.replaceTags(ctx, t.ID, t.Tags); err != nil {
		log.Error("failed to save task tags",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID.String()))
		return nil, store.NewStoreError("task", "save", "failed to save task tags", MapError(err))
	}

	log.Debug("task saved", slog.String("task_id", t.ID.String()), slog.Int("tags", len(t.Tags)))
	return t, nil
}

func (s *PostgresTaskStore) replaceTags(ctx context.Context, taskID uuid.UUID, tags []string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	values := make([]string, len(tags))
	args := make([]any, 0, len(tags)+1)
	args = append(args, taskID)
	for i, tag := range tags {
		values[i] = fmt.Sprintf("($1, $%d)", i+2)
		args = append(args, tag)
	}
	query := `INSERT INTO task_tags (task_id, tag) VALUES ` + strings.Join(values, ", ")
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// FindByID implements store.TaskStore.FindByID
func (s *PostgresTaskStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, store.NewStoreError("task", "find_by_id", "failed to get task", MapError(err))
	}

	tags, err := s.loadTags(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	task.Tags = tagsOrEmpty(tags[id])

	return task, nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return store.NewStoreError("task", "delete", "failed to delete task", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// ExistsByID implements store.TaskStore.ExistsByID
func (s *PostgresTaskStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.exists(ctx, "exists_by_id",
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id)
}

// roleRankOrder sorts task_roles rows by domain.RoleType.Rank, highest first.
var roleRankOrder = func() string {
	var b strings.Builder
	b.WriteString("CASE role_type")
	for _, role := range domain.Roles() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", role, role.Rank())
	}
	b.WriteString(" ELSE 0 END DESC")
	return b.String()
}()

// FindRoleByTaskAndUser implements store.TaskStore.FindRoleByTaskAndUser
func (s *PostgresTaskStore) FindRoleByTaskAndUser(
	ctx context.Context,
	taskID, userID uuid.UUID,
) (*domain.TaskRole, error) {
	query := `
		SELECT id, task_id, user_id, role_type
		FROM task_roles
		WHERE task_id = $1 AND user_id = $2
		ORDER BY ` + roleRankOrder + `
		LIMIT 1
	`
	var (
		role     domain.TaskRole
		roleType string
	)
	err := s.db.QueryRowContext(ctx, query, taskID, userID).Scan(
		&role.ID, &role.TaskID, &role.UserID, &roleType,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to find task role",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return nil, store.NewStoreError("task_role", "find", "failed to find role", MapError(err))
	}
	role.RoleType = domain.RoleType(roleType)
	return &role, nil
}

// RoleExists implements store.TaskStore.RoleExists
func (s *PostgresTaskStore) RoleExists(
	ctx context.Context,
	taskID, userID uuid.UUID,
	role domain.RoleType,
) (bool, error) {
	return s.exists(ctx, "role_exists", `
		SELECT EXISTS (
			SELECT 1 FROM task_roles WHERE task_id = $1 AND user_id = $2 AND role_type = $3
		)`, taskID, userID, string(role))
}

// RoleExistsForUser implements store.TaskStore.RoleExistsForUser
func (s *PostgresTaskStore) RoleExistsForUser(ctx context.Context, taskID, userID uuid.UUID) (bool, error) {
	return s.exists(ctx, "role_exists_for_user", `
		SELECT EXISTS (
			SELECT 1 FROM task_roles WHERE task_id = $1 AND user_id = $2
		)`, taskID, userID)
}

func (s *PostgresTaskStore) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("existence check failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return false, store.NewStoreError("task", op, "existence check failed", MapError(err))
	}
	return found, nil
}

// CreateRole implements store.TaskStore.CreateRole
func (s *PostgresTaskStore) CreateRole(ctx context.Context, role *domain.TaskRole) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !role.RoleType.Valid() {
		return fmt.Errorf("%w: unknown role type %q", store.ErrInvalidEntity, role.RoleType)
	}

	// Only the exact (task, user, role) triple is ignored on conflict; a
	// second CREATOR for the task still violates unique_task_creator.
	query := `
		INSERT INTO task_roles (task_id, user_id, role_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (task_id, user_id, role_type) DO NOTHING
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, role.TaskID, role.UserID, string(role.RoleType)).Scan(&role.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task role already exists",
				slog.String("task_id", role.TaskID.String()),
				slog.String("user_id", role.UserID.String()),
				slog.String("role", string(role.RoleType)))
			return nil
		}
		log.Error("failed to create task role",
			slog.String("error", err.Error()),
			slog.String("task_id", role.TaskID.String()),
			slog.String("role", string(role.RoleType)))
		return store.NewStoreError("task_role", "create", "failed to create role", MapError(err))
	}

	log.Debug("task role created",
		slog.String("task_id", role.TaskID.String()),
		slog.String("user_id", role.UserID.String()),
		slog.String("role", string(role.RoleType)))
	return nil
}

// CreateSharedTask implements store.TaskStore.CreateSharedTask
func (s *PostgresTaskStore) CreateSharedTask(ctx context.Context, share *domain.SharedTask) error {
	query := `
		INSERT INTO shared_tasks (task_id, user_id, can_edit)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, share.TaskID, share.UserID, share.CanEdit).
		Scan(&share.ID, &share.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create share grant",
			slog.String("error", err.Error()),
			slog.String("task_id", share.TaskID.String()))
		return store.NewStoreError("shared_task", "create", "failed to record share", MapError(err))
	}
	share.CreatedAt = share.CreatedAt.UTC()
	return nil
}

// ListSharedTasks implements store.TaskStore.ListSharedTasks
func (s *PostgresTaskStore) ListSharedTasks(ctx context.Context, taskID uuid.UUID) ([]domain.SharedTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, user_id, can_edit, created_at
		FROM shared_tasks
		WHERE task_id = $1
		ORDER BY id`, taskID)
	if err != nil {
		log.Error("failed to list share grants", slog.String("error", err.Error()))
		return nil, store.NewStoreError("shared_task", "list", "failed to list shares", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	shares := []domain.SharedTask{}
	for rows.Next() {
		var sh domain.SharedTask
		if err := rows.Scan(&sh.ID, &sh.TaskID, &sh.UserID, &sh.CanEdit, &sh.CreatedAt); err != nil {
			return nil, store.NewStoreError("shared_task", "list", "failed to scan share", err)
		}
		sh.CreatedAt = sh.CreatedAt.UTC()
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("shared_task", "list", "failed to iterate shares", err)
	}
	return shares, nil
}

// FindPaged implements store.TaskStore.FindPaged
func (s *PostgresTaskStore) FindPaged(
	ctx context.Context,
	filter store.TaskFilter,
	page domain.PageRequest,
) (domain.Page[domain.Task], error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if filter.UserID == uuid.Nil {
		return domain.Page[domain.Task]{}, fmt.Errorf("%w: task listing requires a user scope", store.ErrInvalidEntity)
	}
	if page.Size <= 0 || page.Page < 0 {
		return domain.Page[domain.Task]{}, fmt.Errorf("%w: invalid page request %+v", store.ErrInvalidEntity, page)
	}

	where, args := buildTaskWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM tasks t WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return domain.Page[domain.Task]{}, store.NewStoreError("task", "find_paged", "failed to count tasks", MapError(err))
	}

	if total == 0 || page.Offset() >= total {
		return domain.NewPage[domain.Task](nil, page, total), nil
	}

	n := len(args)
	listQuery := fmt.Sprintf(`SELECT %s FROM tasks t WHERE %s ORDER BY t.created_at DESC, t.id LIMIT $%d OFFSET $%d`,
		taskColumns, where, n+1, n+2)
	listArgs := append(append([]any{}, args...), page.Size, page.Offset())

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return domain.Page[domain.Task]{}, store.NewStoreError("task", "find_paged", "failed to list tasks", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := make([]domain.Task, 0, page.Size)
	ids := make([]uuid.UUID, 0, page.Size)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return domain.Page[domain.Task]{}, store.NewStoreError("task", "find_paged", "failed to scan task", err)
		}
		tasks = append(tasks, *task)
		ids = append(ids, task.ID)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Task]{}, store.NewStoreError("task", "find_paged", "failed to iterate tasks", err)
	}

	tags, err := s.loadTags(ctx, ids)
	if err != nil {
		return domain.Page[domain.Task]{}, err
	}
	for i := range tasks {
		tasks[i].Tags = tagsOrEmpty(tags[tasks[i].ID])
	}

	log.Debug("tasks listed",
		slog.String("user_id", filter.UserID.String()),
		slog.Int("count", len(tasks)),
		slog.Int64("total", total))
	return domain.NewPage(tasks, page, total), nil
}

// buildTaskWhere turns a filter into a predicate over alias t. Dimensions
// are ANDed; the tag list is an OR via a single IN.
func buildTaskWhere(filter store.TaskFilter) (string, []any) {
	args := []any{filter.UserID}
	clauses := []string{
		`EXISTS (SELECT 1 FROM task_roles r WHERE r.task_id = t.id AND r.user_id = $1)`,
	}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf(`t.status = $%d`, len(args)))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		clauses = append(clauses, fmt.Sprintf(`t.priority = $%d`, len(args)))
	}
	if len(filter.Tags) > 0 {
		placeholders := make([]string, len(filter.Tags))
		for i, tag := range filter.Tags {
			args = append(args, tag)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id = t.id AND tt.tag IN (%s))`,
			strings.Join(placeholders, ", ")))
	}

	return strings.Join(clauses, " AND "), args
}

func (s *PostgresTaskStore) loadTags(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT task_id, tag FROM task_tags WHERE task_id IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY task_id, tag`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to load task tags", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task_tag", "load", "failed to load tags", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	for rows.Next() {
		var (
			id  uuid.UUID
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, store.NewStoreError("task_tag", "load", "failed to scan tag", err)
		}
		out[id] = append(out[id], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task_tag", "load", "failed to iterate tags", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task       domain.Task
		status     string
		priority   sql.NullString
		assignedTo sql.NullString
	)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&status,
		&priority,
		&assignedTo,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority.String)
	task.AssignedTo = assignedTo.String
	task.DueDate = task.DueDate.UTC()
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	task.Tags = []string{}
	return &task, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
