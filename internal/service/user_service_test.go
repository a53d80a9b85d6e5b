package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc    UserService
	users  *mocks.MockUserStore
	jwt    *mocks.MockJWTService
	hasher *mocks.MockPasswordHasher
	sql    sqlmock.Sqlmock
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	db, sqlMock := newSQLMock(t)
	users := new(mocks.MockUserStore)
	jwtService := &mocks.MockJWTService{Token: "access-token", RefreshToken: "refresh-token"}
	hasher := &mocks.MockPasswordHasher{}

	svc, err := NewUserService(db, users, jwtService, hasher, discardLogger())
	require.NoError(t, err)
	svc.(*userServiceImpl).now = func() time.Time { return testNow }

	return &userFixture{svc: svc, users: users, jwt: jwtService, hasher: hasher, sql: sqlMock}
}

func TestNewUserService_NilDependencies(t *testing.T) {
	db, _ := newSQLMock(t)
	users := new(mocks.MockUserStore)
	jwtService := &mocks.MockJWTService{}
	hasher := &mocks.MockPasswordHasher{}

	_, err := NewUserService(nil, users, jwtService, hasher, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewUserService(db, nil, jwtService, hasher, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewUserService(db, users, nil, hasher, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewUserService(db, users, jwtService, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	valid := RegisterInput{Email: "new@example.com", Username: "newbie", Password: "Secret1!x"}

	t.Run("hashes and stores the user", func(t *testing.T) {
		f := newUserFixture(t)
		f.sql.ExpectBegin()
		f.sql.ExpectCommit()
		f.users.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
		f.users.On("ExistsByUsername", mock.Anything, "newbie").Return(false, nil)
		f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.HashedPassword == "hashed:Secret1!x" && u.Password == ""
		})).Return(nil)

		user, err := f.svc.Register(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
		assert.NotEqual(t, uuid.Nil, user.ID)
		f.users.AssertExpectations(t)
	})

	t.Run("username is optional", func(t *testing.T) {
		f := newUserFixture(t)
		f.sql.ExpectBegin()
		f.sql.ExpectCommit()
		f.users.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
		f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.svc.Register(ctx, RegisterInput{Email: "new@example.com", Password: "Secret1!x"})
		require.NoError(t, err)
		f.users.AssertNotCalled(t, "ExistsByUsername", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		f := newUserFixture(t)
		f.sql.ExpectBegin()
		f.sql.ExpectRollback()
		f.users.On("ExistsByEmail", mock.Anything, "new@example.com").Return(true, nil)

		_, err := f.svc.Register(ctx, valid)
		require.ErrorIs(t, err, ErrConflict)
		assert.EqualError(t, err, "user with email already exists")
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		f := newUserFixture(t)
		f.sql.ExpectBegin()
		f.sql.ExpectRollback()
		f.users.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
		f.users.On("ExistsByUsername", mock.Anything, "newbie").Return(true, nil)

		_, err := f.svc.Register(ctx, valid)
		require.ErrorIs(t, err, ErrConflict)
		assert.EqualError(t, err, "user with username already exists")
	})

	t.Run("unique violation from a concurrent insert conflicts", func(t *testing.T) {
		f := newUserFixture(t)
		f.sql.ExpectBegin()
		f.sql.ExpectRollback()
		f.users.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil)
		f.users.On("ExistsByUsername", mock.Anything, mock.Anything).Return(false, nil)
		f.users.On("Create", mock.Anything, mock.Anything).Return(store.ErrEmailExists)

		_, err := f.svc.Register(ctx, valid)
		assert.ErrorIs(t, err, ErrConflict)
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("weak password is a field error", func(t *testing.T) {
		f := newUserFixture(t)

		_, err := f.svc.Register(ctx, RegisterInput{Email: "new@example.com", Password: "password"})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "password", ve.Field)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("invalid email is a field error", func(t *testing.T) {
		f := newUserFixture(t)

		_, err := f.svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "Secret1!x"})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "email", ve.Field)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	user := testUser("login@example.com")

	t.Run("issues a token pair", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

		got, tokens, err := f.svc.Authenticate(ctx, user.Email, "Secret1!x")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "access-token", tokens.AccessToken)
		assert.Equal(t, "refresh-token", tokens.RefreshToken)
		assert.Equal(t, testNow.Add(time.Hour), tokens.ExpiresAt)
		assert.Equal(t, []uuid.UUID{user.ID, user.ID}, f.jwt.IssuedFor())
	})

	t.Run("unknown email and wrong password look the same", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, store.ErrUserNotFound)
		f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

		_, _, errUnknown := f.svc.Authenticate(ctx, "ghost@example.com", "Secret1!x")
		_, _, errWrong := f.svc.Authenticate(ctx, user.Email, "Wrong1!xx")

		assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
		assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.Equal(t, 1, f.hasher.CompareCallCount)
	})

	t.Run("token failure is surfaced", func(t *testing.T) {
		f := newUserFixture(t)
		f.jwt.Err = errors.New("signing failed")
		f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

		_, _, err := f.svc.Authenticate(ctx, user.Email, "Secret1!x")
		assert.ErrorIs(t, err, f.jwt.Err)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	user := testUser("refresh@example.com")

	t.Run("rotates the pair", func(t *testing.T) {
		f := newUserFixture(t)
		f.jwt.Claims = &auth.Claims{UserID: user.ID, TokenType: auth.TokenTypeRefresh}
		f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

		tokens, err := f.svc.Refresh(ctx, "refresh-token")
		require.NoError(t, err)
		assert.Equal(t, "access-token", tokens.AccessToken)
		assert.Equal(t, "refresh-token", tokens.RefreshToken)
	})

	t.Run("invalid token is passed through", func(t *testing.T) {
		f := newUserFixture(t)
		f.jwt.ValidateErr = auth.ErrExpiredRefreshToken

		_, err := f.svc.Refresh(ctx, "stale")
		assert.ErrorIs(t, err, auth.ErrExpiredRefreshToken)
		assert.Empty(t, f.jwt.IssuedFor())
	})

	t.Run("token for a removed user is invalid", func(t *testing.T) {
		f := newUserFixture(t)
		f.jwt.Claims = &auth.Claims{UserID: user.ID, TokenType: auth.TokenTypeRefresh}
		f.users.On("GetByID", mock.Anything, user.ID).Return(nil, store.ErrUserNotFound)

		_, err := f.svc.Refresh(ctx, "refresh-token")
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})
}

func TestGetUser(t *testing.T) {
	f := newUserFixture(t)
	user := testUser("me@example.com")
	missing := uuid.New()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.users.On("GetByID", mock.Anything, missing).Return(nil, store.ErrUserNotFound)

	got, err := f.svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = f.svc.GetUser(context.Background(), missing)
	assert.ErrorIs(t, err, ErrNotFound)
}
