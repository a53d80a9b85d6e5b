//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/phrazzld/taskflow-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, tx *sql.Tx, email string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email, "", "Secret1!x")
	require.NoError(t, err)
	user.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	require.NoError(t, postgres.NewPostgresUserStore(tx, nil).Create(context.Background(), user))
	return user
}

func createTestTask(t *testing.T, tx *sql.Tx, creator uuid.UUID, status domain.TaskStatus, tags ...string) *domain.Task {
	t.Helper()
	now := time.Now().UTC()
	task, err := domain.NewTask(creator, "Write report", "Quarterly numbers",
		now.Add(48*time.Hour), status, domain.TaskPriorityHigh, "", tags, now)
	require.NoError(t, err)

	taskStore := postgres.NewPostgresTaskStore(tx, nil)
	saved, err := taskStore.Save(context.Background(), task)
	require.NoError(t, err)
	require.NoError(t, taskStore.CreateRole(context.Background(), &domain.TaskRole{
		TaskID: saved.ID, UserID: creator, RoleType: domain.RoleCreator,
	}))
	return saved
}

func TestUserStoreIntegration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		user := createTestUser(t, tx, "integration-user@example.com")

		got, err := users.GetByEmail(ctx, "INTEGRATION-USER@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		dup, err := domain.NewUser("Integration-User@example.com", "", "Secret1!x")
		require.NoError(t, err)
		dup.HashedPassword = user.HashedPassword
		assert.ErrorIs(t, users.Create(ctx, dup), store.ErrEmailExists)
	})
}

func TestTaskStoreIntegration_RolesAndCascade(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tasks := postgres.NewPostgresTaskStore(tx, nil)
		creator := createTestUser(t, tx, "creator@example.com")
		other := createTestUser(t, tx, "other@example.com")
		task := createTestTask(t, tx, creator.ID, domain.TaskStatusPending, "work", "q1")

		require.NoError(t, tasks.CreateRole(ctx, &domain.TaskRole{
			TaskID: task.ID, UserID: creator.ID, RoleType: domain.RoleCreator,
		}), "repeating a grant is a no-op")
		require.NoError(t, tasks.CreateRole(ctx, &domain.TaskRole{
			TaskID: task.ID, UserID: other.ID, RoleType: domain.RoleShared,
		}))
		require.NoError(t, tasks.CreateRole(ctx, &domain.TaskRole{
			TaskID: task.ID, UserID: other.ID, RoleType: domain.RoleAssignee,
		}))

		role, err := tasks.FindRoleByTaskAndUser(ctx, task.ID, other.ID)
		require.NoError(t, err)
		require.NotNil(t, role)
		assert.Equal(t, domain.RoleAssignee, role.RoleType)

		found, err := tasks.FindByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"q1", "work"}, found.Tags)

		require.NoError(t, tasks.Delete(ctx, task.ID))
		ok, err := tasks.RoleExistsForUser(ctx, task.ID, other.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, tasks.Delete(ctx, task.ID), store.ErrTaskNotFound)
	})
}

func TestTaskStoreIntegration_FindPaged(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tasks := postgres.NewPostgresTaskStore(tx, nil)
		owner := createTestUser(t, tx, "pager@example.com")
		stranger := createTestUser(t, tx, "stranger@example.com")

		createTestTask(t, tx, owner.ID, domain.TaskStatusPending, "home")
		createTestTask(t, tx, owner.ID, domain.TaskStatusCompleted, "work")
		createTestTask(t, tx, owner.ID, domain.TaskStatusPending, "work", "urgent")
		createTestTask(t, tx, stranger.ID, domain.TaskStatusPending, "work")

		page, err := tasks.FindPaged(ctx, store.TaskFilter{UserID: owner.ID},
			domain.PageRequest{Page: 0, Size: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalElements)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Content, 2)

		page, err = tasks.FindPaged(ctx, store.TaskFilter{
			UserID: owner.ID,
			Status: domain.TaskStatusPending,
			Tags:   []string{"work"},
		}, domain.PageRequest{Page: 0, Size: 10})
		require.NoError(t, err)
		require.Len(t, page.Content, 1)
		assert.ElementsMatch(t, []string{"work", "urgent"}, page.Content[0].Tags)

		page, err = tasks.FindPaged(ctx, store.TaskFilter{UserID: owner.ID},
			domain.PageRequest{Page: 5, Size: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Content)
		assert.Equal(t, int64(3), page.TotalElements)
	})
}
