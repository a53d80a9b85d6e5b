package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// MockJWTService implements auth.JWTService with canned results and
// records the users tokens were issued for.
type MockJWTService struct {
	Token        string
	RefreshToken string
	Err          error // returned by both Generate methods
	Claims       *auth.Claims
	ValidateErr  error // returned by both Validate methods
	Lifetime     time.Duration

	mu        sync.Mutex
	issuedFor []uuid.UUID
}

var _ auth.JWTService = (*MockJWTService)(nil)

func (m *MockJWTService) record(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuedFor = append(m.issuedFor, userID)
}

// IssuedFor returns the user IDs passed to the Generate methods, in call
// order.
func (m *MockJWTService) IssuedFor() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.issuedFor...)
}

// GenerateToken implements auth.JWTService.
func (m *MockJWTService) GenerateToken(_ context.Context, userID uuid.UUID) (string, error) {
	m.record(userID)
	return m.Token, m.Err
}

// GenerateRefreshToken implements auth.JWTService.
func (m *MockJWTService) GenerateRefreshToken(_ context.Context, userID uuid.UUID) (string, error) {
	m.record(userID)
	return m.RefreshToken, m.Err
}

// ValidateToken implements auth.JWTService.
func (m *MockJWTService) ValidateToken(context.Context, string) (*auth.Claims, error) {
	return m.Claims, m.ValidateErr
}

// ValidateRefreshToken implements auth.JWTService.
func (m *MockJWTService) ValidateRefreshToken(context.Context, string) (*auth.Claims, error) {
	return m.Claims, m.ValidateErr
}

// AccessTokenLifetime returns Lifetime, or one hour when unset.
func (m *MockJWTService) AccessTokenLifetime() time.Duration {
	if m.Lifetime == 0 {
		return time.Hour
	}
	return m.Lifetime
}
