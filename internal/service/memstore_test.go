package service

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// memTaskStore is an in-memory store.TaskStore with the same grant and
// cascade rules as the Postgres tables.
type memTaskStore struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]*domain.Task
	roles  []domain.TaskRole
	shares []domain.SharedTask
	nextID int64
}

var _ store.TaskStore = (*memTaskStore)(nil)

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *memTaskStore) Save(_ context.Context, task *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := task.Clone()
	if saved.ID == uuid.Nil {
		saved.ID = uuid.New()
	}
	s.tasks[saved.ID] = saved
	return saved.Clone(), nil
}

func (s *memTaskStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (s *memTaskStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	s.roles = slices.DeleteFunc(s.roles, func(r domain.TaskRole) bool { return r.TaskID == id })
	s.shares = slices.DeleteFunc(s.shares, func(sh domain.SharedTask) bool { return sh.TaskID == id })
	return nil
}

func (s *memTaskStore) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok, nil
}

func (s *memTaskStore) FindRoleByTaskAndUser(_ context.Context, taskID, userID uuid.UUID) (*domain.TaskRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *domain.TaskRole
	for i := range s.roles {
		r := s.roles[i]
		if r.TaskID != taskID || r.UserID != userID {
			continue
		}
		if best == nil || r.RoleType.Rank() > best.RoleType.Rank() {
			best = &r
		}
	}
	return best, nil
}

func (s *memTaskStore) RoleExists(_ context.Context, taskID, userID uuid.UUID, role domain.RoleType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasRole(taskID, userID, role), nil
}

func (s *memTaskStore) RoleExistsForUser(_ context.Context, taskID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasRole(taskID, userID, ""), nil
}

// hasRole matches any role kind when role is empty.
func (s *memTaskStore) hasRole(taskID, userID uuid.UUID, role domain.RoleType) bool {
	return slices.ContainsFunc(s.roles, func(r domain.TaskRole) bool {
		return r.TaskID == taskID && r.UserID == userID && (role == "" || r.RoleType == role)
	})
}

func (s *memTaskStore) CreateRole(_ context.Context, role *domain.TaskRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasRole(role.TaskID, role.UserID, role.RoleType) {
		return nil
	}
	s.nextID++
	role.ID = s.nextID
	s.roles = append(s.roles, *role)
	return nil
}

func (s *memTaskStore) CreateSharedTask(_ context.Context, share *domain.SharedTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	share.ID = s.nextID
	s.shares = append(s.shares, *share)
	return nil
}

func (s *memTaskStore) ListSharedTasks(_ context.Context, taskID uuid.UUID) ([]domain.SharedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SharedTask
	for _, sh := range s.shares {
		if sh.TaskID == taskID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *memTaskStore) FindPaged(
	_ context.Context,
	filter store.TaskFilter,
	page domain.PageRequest,
) (domain.Page[domain.Task], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Task
	for _, task := range s.tasks {
		if !s.hasRole(task.ID, filter.UserID, "") {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if len(filter.Tags) > 0 && !slices.ContainsFunc(task.Tags, func(tag string) bool {
			return slices.Contains(filter.Tags, tag)
		}) {
			continue
		}
		matched = append(matched, *task.Clone())
	}
	slices.SortFunc(matched, func(a, b domain.Task) int { return b.CreatedAt.Compare(a.CreatedAt) })

	total := int64(len(matched))
	if page.Offset() >= total {
		return domain.NewPage[domain.Task](nil, page, total), nil
	}
	end := min(page.Offset()+int64(page.Size), total)
	return domain.NewPage(matched[page.Offset():end], page, total), nil
}

func (s *memTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

func (s *memTaskStore) rolesFor(taskID, userID uuid.UUID) []domain.RoleType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoleType
	for _, r := range s.roles {
		if r.TaskID == taskID && r.UserID == userID {
			out = append(out, r.RoleType)
		}
	}
	return out
}

// memUserStore is an in-memory store.UserStore keyed by lower-cased email.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

var _ store.UserStore = (*memUserStore)(nil)

func newMemUserStore(users ...*domain.User) *memUserStore {
	s := &memUserStore{users: make(map[string]*domain.User)}
	for _, u := range users {
		s.users[strings.ToLower(u.Email)] = u
	}
	return s
}

func (s *memUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := s.users[key]; ok {
		return store.ErrEmailExists
	}
	s.users[key] = user
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s *memUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username != "" && strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) WithTx(*sql.Tx) store.UserStore { return s }
