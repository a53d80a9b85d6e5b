package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewTask(t *testing.T) {
	creator := uuid.New()
	due := fixedNow.Add(10 * 24 * time.Hour)

	task, err := NewTask(creator, "A", "desc", due, TaskStatusPending, TaskPriorityHigh,
		" bob@example.com ", []string{"work", " work ", "", "Home"}, fixedNow)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, creator, task.CreatedBy)
	assert.Equal(t, "bob@example.com", task.AssignedTo)
	assert.Equal(t, []string{"work", "Home"}, task.Tags)
	assert.Equal(t, fixedNow, task.CreatedAt)
	assert.Equal(t, fixedNow, task.UpdatedAt)
}

func TestNewTask_DueDateMustBeStrictlyInFuture(t *testing.T) {
	creator := uuid.New()
	for _, due := range []time.Time{fixedNow, fixedNow.Add(-time.Second), fixedNow.AddDate(-1, 0, 0)} {
		_, err := NewTask(creator, "A", "d", due, TaskStatusPending, "", "", nil, fixedNow)
		assert.ErrorIs(t, err, ErrDueDateNotInFuture)
		assert.ErrorIs(t, err, ErrValidation)
	}

	_, err := NewTask(creator, "A", "d", fixedNow.Add(time.Second), TaskStatusPending, "", "", nil, fixedNow)
	assert.NoError(t, err)
}

func TestTaskValidate(t *testing.T) {
	valid := Task{
		ID:          uuid.New(),
		Title:       "t",
		Description: "d",
		Status:      TaskStatusCompleted,
		CreatedBy:   uuid.New(),
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr error
	}{
		{"missing id", func(t *Task) { t.ID = uuid.Nil }, ErrEmptyTaskID},
		{"blank title", func(t *Task) { t.Title = "  " }, ErrEmptyTaskTitle},
		{"blank description", func(t *Task) { t.Description = "" }, ErrEmptyTaskDesc},
		{"missing creator", func(t *Task) { t.CreatedBy = uuid.Nil }, ErrEmptyTaskCreator},
		{"bad status", func(t *Task) { t.Status = "DONE" }, ErrInvalidTaskStatus},
		{"bad priority", func(t *Task) { t.Priority = "URGENT" }, ErrInvalidTaskPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := valid
			tt.mutate(&task)
			assert.ErrorIs(t, task.Validate(), tt.wantErr)
		})
	}
}

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskStatus
		wantErr bool
	}{
		{"pending", TaskStatusPending, false},
		{"In_Progress", TaskStatusInProgress, false},
		{" COMPLETED ", TaskStatusCompleted, false},
		{"", "", false},
		{"   ", "", false},
		{"done", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTaskStatus(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTaskPriority_ErrorNamesValueAndAllowedSet(t *testing.T) {
	_, err := ParseTaskPriority("urgent")
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "priority", vErr.Field)
	assert.Equal(t, "Invalid value 'urgent' for priority. Allowed values are: LOW, MEDIUM, HIGH", vErr.Message)
}

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime("due_date", "2030-01-02T03:04:05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), got)
	assert.Equal(t, "2030-01-02T03:04:05", FormatDateTime(got))

	for _, bad := range []string{"2030-01-02", "2030-01-02 03:04:05", "2030-13-02T03:04:05", "tomorrow"} {
		_, err := ParseDateTime("due_date", bad)
		assert.ErrorIs(t, err, ErrInvalidFormat, bad)
	}
}

func TestTaskClone(t *testing.T) {
	task := &Task{ID: uuid.New(), Tags: []string{"a"}}
	c := task.Clone()
	c.Tags[0] = "b"
	assert.Equal(t, "a", task.Tags[0])

	var nilTask *Task
	assert.Nil(t, nilTask.Clone())
}
