package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/mock"
)

type mockUserService struct {
	mock.Mock
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserService) Authenticate(
	ctx context.Context,
	email, password string,
) (*domain.User, service.TokenPair, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Get(1).(service.TokenPair), args.Error(2)
}

func (m *mockUserService) Refresh(ctx context.Context, refreshToken string) (service.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(service.TokenPair), args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

type mockTaskQueryService struct {
	mock.Mock
}

var _ service.TaskQueryService = (*mockTaskQueryService)(nil)

func (m *mockTaskQueryService) GetTask(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
) (*domain.Task, error) {
	args := m.Called(ctx, user, taskID)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskQueryService) List(
	ctx context.Context,
	user *domain.User,
	params service.ListParams,
) (domain.Page[domain.Task], error) {
	args := m.Called(ctx, user, params)
	return args.Get(0).(domain.Page[domain.Task]), args.Error(1)
}

type mockTaskLifecycleService struct {
	mock.Mock
}

var _ service.TaskLifecycleService = (*mockTaskLifecycleService)(nil)

func (m *mockTaskLifecycleService) Create(
	ctx context.Context,
	user *domain.User,
	in service.CreateTaskInput,
) (*domain.Task, error) {
	args := m.Called(ctx, user, in)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskLifecycleService) Update(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
	in service.UpdateTaskInput,
) (*domain.Task, error) {
	args := m.Called(ctx, user, taskID, in)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskLifecycleService) Delete(ctx context.Context, user *domain.User, taskID uuid.UUID) error {
	return m.Called(ctx, user, taskID).Error(0)
}

func (m *mockTaskLifecycleService) Share(
	ctx context.Context,
	user *domain.User,
	taskID uuid.UUID,
	in service.ShareTaskInput,
) error {
	return m.Called(ctx, user, taskID, in).Error(0)
}
