package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoleType is the kind of grant binding a user to a task.
type RoleType string

// Role kinds
const (
	RoleCreator  RoleType = "CREATOR"
	RoleAssignee RoleType = "ASSIGNEE"
	RoleShared   RoleType = "SHARED"
)

// Roles returns every known role kind, most privileged first.
func Roles() []RoleType {
	return []RoleType{RoleCreator, RoleAssignee, RoleShared}
}

// Valid reports whether r is a known role kind.
func (r RoleType) Valid() bool {
	_, ok := rolePolicy[r]
	return ok
}

// Rank orders roles by privilege: CREATOR > ASSIGNEE > SHARED. Unknown
// roles rank lowest.
func (r RoleType) Rank() int {
	switch r {
	case RoleCreator:
		return 3
	case RoleAssignee:
		return 2
	case RoleShared:
		return 1
	default:
		return 0
	}
}

// TaskField names a task attribute that an update may write.
type TaskField string

// Writable task fields
const (
	FieldTitle       TaskField = "TITLE"
	FieldDescription TaskField = "DESCRIPTION"
	FieldDueDate     TaskField = "DUE_DATE"
	FieldAssignee    TaskField = "ASSIGNEE"
	FieldTags        TaskField = "TAGS"
	FieldStatus      TaskField = "STATUS"
	FieldPriority    TaskField = "PRIORITY"
)

type fieldSet map[TaskField]struct{}

func newFieldSet(fields ...TaskField) fieldSet {
	s := make(fieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// rolePolicy is the fixed role to writable-field table. It is never mutated.
var rolePolicy = map[RoleType]fieldSet{
	RoleCreator: newFieldSet(
		FieldTitle, FieldDescription, FieldDueDate, FieldAssignee,
		FieldTags, FieldStatus, FieldPriority,
	),
	RoleAssignee: newFieldSet(FieldStatus, FieldTags),
	RoleShared:   newFieldSet(),
}

// CanPerform reports whether role may write field. Unknown roles and
// unknown fields are never permitted.
func CanPerform(role RoleType, field TaskField) bool {
	fields, ok := rolePolicy[role]
	if !ok {
		return false
	}
	_, ok = fields[field]
	return ok
}

// TaskRole binds a user to a task with a role kind.
type TaskRole struct {
	ID       int64     `json:"id"`
	TaskID   uuid.UUID `json:"task_id"`
	UserID   uuid.UUID `json:"user_id"`
	RoleType RoleType  `json:"role_type"`
}

// SharedTask records one share grant. CanEdit is stored as metadata and
// does not widen the SHARED role's permissions.
type SharedTask struct {
	ID        int64     `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	UserID    uuid.UUID `json:"user_id"`
	CanEdit   bool      `json:"can_edit"`
	CreatedAt time.Time `json:"created_at"`
}
