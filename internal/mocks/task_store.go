package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore is a mock of store.TaskStore for use with testify/mock
type MockTaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Save is a mock implementation of store.TaskStore.Save. The first return
// value may be a func(*domain.Task) *domain.Task computing the result.
func (m *MockTaskStore) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, task)
	if fn, ok := args.Get(0).(func(*domain.Task) *domain.Task); ok {
		return fn(task), args.Error(1)
	}
	if saved, ok := args.Get(0).(*domain.Task); ok {
		return saved, args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID is a mock implementation of store.TaskStore.FindByID
func (m *MockTaskStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if task, ok := args.Get(0).(*domain.Task); ok {
		return task.Clone(), args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete is a mock implementation of store.TaskStore.Delete
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ExistsByID is a mock implementation of store.TaskStore.ExistsByID
func (m *MockTaskStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// FindRoleByTaskAndUser is a mock implementation of store.TaskStore.FindRoleByTaskAndUser
func (m *MockTaskStore) FindRoleByTaskAndUser(
	ctx context.Context,
	taskID, userID uuid.UUID,
) (*domain.TaskRole, error) {
	args := m.Called(ctx, taskID, userID)
	if role, ok := args.Get(0).(*domain.TaskRole); ok {
		return role, args.Error(1)
	}
	return nil, args.Error(1)
}

// RoleExists is a mock implementation of store.TaskStore.RoleExists
func (m *MockTaskStore) RoleExists(
	ctx context.Context,
	taskID, userID uuid.UUID,
	role domain.RoleType,
) (bool, error) {
	args := m.Called(ctx, taskID, userID, role)
	return args.Bool(0), args.Error(1)
}

// RoleExistsForUser is a mock implementation of store.TaskStore.RoleExistsForUser
func (m *MockTaskStore) RoleExistsForUser(ctx context.Context, taskID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, taskID, userID)
	return args.Bool(0), args.Error(1)
}

// CreateRole is a mock implementation of store.TaskStore.CreateRole
func (m *MockTaskStore) CreateRole(ctx context.Context, role *domain.TaskRole) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

// CreateSharedTask is a mock implementation of store.TaskStore.CreateSharedTask
func (m *MockTaskStore) CreateSharedTask(ctx context.Context, share *domain.SharedTask) error {
	args := m.Called(ctx, share)
	return args.Error(0)
}

// ListSharedTasks is a mock implementation of store.TaskStore.ListSharedTasks
func (m *MockTaskStore) ListSharedTasks(ctx context.Context, taskID uuid.UUID) ([]domain.SharedTask, error) {
	args := m.Called(ctx, taskID)
	if shares, ok := args.Get(0).([]domain.SharedTask); ok {
		return shares, args.Error(1)
	}
	return nil, args.Error(1)
}

// FindPaged is a mock implementation of store.TaskStore.FindPaged
func (m *MockTaskStore) FindPaged(
	ctx context.Context,
	filter store.TaskFilter,
	page domain.PageRequest,
) (domain.Page[domain.Task], error) {
	args := m.Called(ctx, filter, page)
	if result, ok := args.Get(0).(domain.Page[domain.Task]); ok {
		return result, args.Error(1)
	}
	return domain.Page[domain.Task]{}, args.Error(1)
}

// WithTx returns the mock itself so transactional calls share expectations.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
