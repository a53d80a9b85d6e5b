package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "username", "hashed_password", "created_at", "updated_at"}

func newUserStoreWithMock(t *testing.T) (*PostgresUserStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresUserStore(db, nil), mock
}

func storedUser() *domain.User {
	return &domain.User{
		ID:             uuid.New(),
		Email:          "alice@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:      storeNow,
		UpdatedAt:      storeNow,
	}
}

func TestUserStore_Create(t *testing.T) {
	s, mock := newUserStoreWithMock(t)
	user := storedUser()
	user.Password = "Secret1!x"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(user.ID, user.Email, nil, user.HashedPassword, user.CreatedAt, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), user))
	assert.Empty(t, user.Password)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_Create_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{usersEmailIndex, store.ErrEmailExists},
		{usersUsernameIndex, store.ErrUsernameExists},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			s, mock := newUserStoreWithMock(t)
			user := storedUser()
			user.Username = "alice"

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
				WillReturnError(newPgError(uniqueViolationCode, tt.constraint))

			err := s.Create(context.Background(), user)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, store.ErrDuplicate)
		})
	}
}

func TestUserStore_Create_RequiresHash(t *testing.T) {
	s, _ := newUserStoreWithMock(t)
	user := storedUser()
	user.HashedPassword = ""

	assert.ErrorIs(t, s.Create(context.Background(), user), domain.ErrEmptyHashedPassword)
}

func TestUserStore_GetByEmail(t *testing.T) {
	s, mock := newUserStoreWithMock(t)
	user := storedUser()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
		WithArgs("ALICE@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(user.ID.String(), user.Email, "alice", user.HashedPassword, storeNow, storeNow))

	got, err := s.GetByEmail(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.Password)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_GetByID_Errors(t *testing.T) {
	s, mock := newUserStoreWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).WithArgs(id).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).WithArgs(id).WillReturnError(errors.New("timeout"))

	_, err := s.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = s.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.False(t, store.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_ExistsChecks(t *testing.T) {
	s, mock := newUserStoreWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(email) = LOWER($1)")).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("LOWER(username) = LOWER($1)")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := s.ExistsByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
