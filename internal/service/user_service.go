package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// RegisterInput holds the fields of a registration request.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// UserService registers and authenticates users and resolves token subjects.
type UserService interface {
	// Register creates a user. Duplicate e-mail or username fails with ErrConflict.
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)

	// Authenticate verifies credentials and issues a token pair. Unknown
	// e-mail and wrong password both fail with ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (*domain.User, TokenPair, error)

	// Refresh exchanges a valid refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)

	// GetUser returns the user with the given ID or ErrNotFound.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type userServiceImpl struct {
	db     store.TxBeginner
	users  store.UserStore
	jwt    auth.JWTService
	hasher auth.PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

var _ UserService = (*userServiceImpl)(nil)

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	db store.TxBeginner,
	users store.UserStore,
	jwtService auth.JWTService,
	hasher auth.PasswordHasher,
	logger *slog.Logger,
) (UserService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if jwtService == nil {
		return nil, domain.NewValidationError("jwtService", "cannot be nil", domain.ErrValidation)
	}
	if hasher == nil {
		return nil, domain.NewValidationError("hasher", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userServiceImpl{
		db:     db,
		users:  users,
		jwt:    jwtService,
		hasher: hasher,
		logger: logger.With(slog.String("component", "user_service")),
		now:    time.Now,
	}, nil
}

// Register implements UserService.Register
func (s *userServiceImpl) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(in.Email, in.Username, in.Password)
	if err != nil {
		return nil, invalidUser(err)
	}

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		log.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txUsers := s.users.WithTx(tx)

		exists, err := txUsers.ExistsByEmail(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return NewServiceError(ErrConflict, "user with email already exists", nil)
		}

		if user.Username != "" {
			exists, err = txUsers.ExistsByUsername(ctx, user.Username)
			if err != nil {
				return fmt.Errorf("failed to check username: %w", err)
			}
			if exists {
				return NewServiceError(ErrConflict, "user with username already exists", nil)
			}
		}

		if err := txUsers.Create(ctx, user); err != nil {
			switch {
			case errors.Is(err, store.ErrEmailExists):
				return NewServiceError(ErrConflict, "user with email already exists", err)
			case errors.Is(err, store.ErrUsernameExists):
				return NewServiceError(ErrConflict, "user with username already exists", err)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.Debug("registration conflict", slog.String("error", err.Error()))
		} else {
			log.Error("failed to register user", slog.String("error", err.Error()))
		}
		return nil, err
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate implements UserService.Authenticate
func (s *userServiceImpl) Authenticate(
	ctx context.Context,
	email, password string,
) (*domain.User, TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	invalid := NewServiceError(ErrInvalidCredentials, "Invalid credentials", nil)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login with unknown email")
			return nil, TokenPair{}, invalid
		}
		log.Error("failed to look up user", slog.String("error", err.Error()))
		return nil, TokenPair{}, fmt.Errorf("failed to authenticate user: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login with wrong password", slog.String("user_id", user.ID.String()))
		return nil, TokenPair{}, invalid
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	log.Info("user authenticated", slog.String("user_id", user.ID.String()))
	return user, tokens, nil
}

// Refresh implements UserService.Refresh
func (s *userServiceImpl) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	// the account may have been removed since the token was issued
	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("refresh token for unknown user", slog.String("user_id", claims.UserID.String()))
			return TokenPair{}, auth.ErrInvalidRefreshToken
		}
		return TokenPair{}, fmt.Errorf("failed to refresh token: %w", err)
	}

	return s.issueTokens(ctx, claims.UserID)
}

// GetUser implements UserService.GetUser
func (s *userServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, NewServiceError(ErrNotFound, "user not found", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userServiceImpl) issueTokens(ctx context.Context, userID uuid.UUID) (TokenPair, error) {
	issuedAt := s.now()

	access, err := s.jwt.GenerateToken(ctx, userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    issuedAt.Add(s.jwt.AccessTokenLifetime()).UTC(),
	}, nil
}

var userErrorFields = map[error]string{
	domain.ErrEmptyEmail:       "email",
	domain.ErrInvalidEmail:     "email",
	domain.ErrUsernameTooLong:  "username",
	domain.ErrEmptyPassword:    "password",
	domain.ErrPasswordTooShort: "password",
	domain.ErrPasswordTooLong:  "password",
	domain.ErrPasswordTooWeak:  "password",
}

// invalidUser turns a user validation failure into a field error.
func invalidUser(err error) error {
	for sentinel, field := range userErrorFields {
		if errors.Is(err, sentinel) {
			return domain.NewValidationError(field, err.Error(), domain.ErrValidation)
		}
	}
	return domain.NewValidationError("", err.Error(), domain.ErrValidation)
}
