package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, sqlMock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, sqlMock
}

func testUser(email string) *domain.User {
	return &domain.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: "hashed:Secret1!x",
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func testTask(creator uuid.UUID) *domain.Task {
	return &domain.Task{
		ID:          uuid.New(),
		Title:       "Write report",
		Description: "Quarterly numbers",
		DueDate:     testNow.Add(72 * time.Hour),
		Status:      domain.TaskStatusPending,
		Priority:    domain.TaskPriorityMedium,
		Tags:        []string{"work"},
		CreatedBy:   creator,
		CreatedAt:   testNow.Add(-time.Hour),
		UpdatedAt:   testNow.Add(-time.Hour),
	}
}

func newTestCache(t *testing.T, tasks *mocks.MockTaskStore) cache.TaskCache {
	t.Helper()
	c, err := cache.NewTaskCache(cache.NewMemoryBackend(0), tasks.FindByID, discardLogger())
	require.NoError(t, err)
	return c
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskEvent
}

func (r *recordingEmitter) EmitEvent(_ context.Context, event *events.TaskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) recorded() []*events.TaskEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.TaskEvent(nil), r.events...)
}
