package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. The user must already carry HashedPassword.
	// Returns ErrEmailExists or ErrUsernameExists on unique violations.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrUserNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmail reports whether any user has the email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ExistsByUsername reports whether any user has the username.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// WithTx returns a UserStore bound to tx.
	WithTx(tx *sql.Tx) UserStore
}
