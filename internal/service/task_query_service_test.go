package service

import (
	"context"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPagination = config.PaginationConfig{DefaultSize: 10, MaxSize: 100}

func newTestQueryService(t *testing.T, tasks *mocks.MockTaskStore) TaskQueryService {
	t.Helper()
	svc, err := NewTaskQueryService(tasks, newTestAccessService(t, tasks), testPagination, discardLogger())
	require.NoError(t, err)
	return svc
}

func TestNewTaskQueryService_RejectsBadPagination(t *testing.T) {
	tasks := new(mocks.MockTaskStore)
	access := newTestAccessService(t, tasks)

	_, err := NewTaskQueryService(tasks, access, config.PaginationConfig{DefaultSize: 0, MaxSize: 10}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewTaskQueryService(tasks, access, config.PaginationConfig{DefaultSize: 20, MaxSize: 10}, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestList_BuildsScopedFilter(t *testing.T) {
	ctx := context.Background()
	user := testUser("lister@example.com")
	task := testTask(user.ID)

	tests := []struct {
		name       string
		params     ListParams
		wantFilter store.TaskFilter
		wantPage   domain.PageRequest
	}{
		{
			name:       "no filters uses the default size",
			params:     ListParams{},
			wantFilter: store.TaskFilter{UserID: user.ID},
			wantPage:   domain.PageRequest{Page: 0, Size: 10},
		},
		{
			name:   "enums parse case-insensitively",
			params: ListParams{Status: "in_progress", Priority: " High ", Page: 2, Size: 5},
			wantFilter: store.TaskFilter{
				UserID:   user.ID,
				Status:   domain.TaskStatusInProgress,
				Priority: domain.TaskPriorityHigh,
			},
			wantPage: domain.PageRequest{Page: 2, Size: 5},
		},
		{
			name:       "blank tags are dropped and case is kept",
			params:     ListParams{Tags: []string{" Work", "", "  ", "home"}},
			wantFilter: store.TaskFilter{UserID: user.ID, Tags: []string{"Work", "home"}},
			wantPage:   domain.PageRequest{Page: 0, Size: 10},
		},
		{
			name:       "oversized page is clamped",
			params:     ListParams{Size: 500},
			wantFilter: store.TaskFilter{UserID: user.ID},
			wantPage:   domain.PageRequest{Page: 0, Size: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := new(mocks.MockTaskStore)
			svc := newTestQueryService(t, tasks)
			want := domain.NewPage([]domain.Task{*task}, tt.wantPage, 1)
			tasks.On("FindPaged", mock.Anything, tt.wantFilter, tt.wantPage).Return(want, nil)

			got, err := svc.List(ctx, user, tt.params)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			tasks.AssertExpectations(t)
		})
	}
}

func TestList_SingleTaskPage(t *testing.T) {
	user := testUser("lister@example.com")
	tasks := new(mocks.MockTaskStore)
	svc := newTestQueryService(t, tasks)

	req := domain.PageRequest{Page: 0, Size: 10}
	tasks.On("FindPaged", mock.Anything, mock.Anything, req).
		Return(domain.NewPage([]domain.Task{*testTask(user.ID)}, req, 1), nil)

	page, err := svc.List(context.Background(), user, ListParams{Size: 10})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
	assert.Equal(t, 10, page.Size)
	assert.Equal(t, 1, page.TotalPages)
	assert.EqualValues(t, 1, page.TotalElements)
}

func TestList_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	user := testUser("lister@example.com")

	tests := []struct {
		name    string
		user    *domain.User
		params  ListParams
		wantErr error
	}{
		{"nil user", nil, ListParams{}, ErrUnauthenticated},
		{"unknown status", user, ListParams{Status: "DONE"}, domain.ErrInvalidFormat},
		{"unknown priority", user, ListParams{Priority: "urgent"}, domain.ErrInvalidFormat},
		{"negative page", user, ListParams{Page: -1}, domain.ErrValidation},
		{"negative size", user, ListParams{Size: -5}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := new(mocks.MockTaskStore)
			svc := newTestQueryService(t, tasks)

			_, err := svc.List(ctx, tt.user, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
			tasks.AssertNotCalled(t, "FindPaged", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestList_InvalidStatusNamesAllowedValues(t *testing.T) {
	svc := newTestQueryService(t, new(mocks.MockTaskStore))

	_, err := svc.List(context.Background(), testUser("a@example.com"), ListParams{Status: "DONE"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
	assert.Contains(t, ve.Message, "'DONE'")
	assert.Contains(t, ve.Message, "PENDING, IN_PROGRESS, COMPLETED")
}
