package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"omitempty,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse is the public view of a user. Credentials are never
// included.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse defines the successful response for login and refresh.
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresAt    string        `json:"expires_at"` // RFC 3339
	User         *UserResponse `json:"user,omitempty"`
}

// CreateTaskRequest defines the payload for creating a task. Status is
// matched case-insensitively.
type CreateTaskRequest struct {
	Title       string   `json:"title"       validate:"required"`
	Description string   `json:"description" validate:"required"`
	DueDate     string   `json:"due_date"    validate:"required"`
	Status      string   `json:"status"      validate:"required"`
	Priority    string   `json:"priority"`
	AssignedTo  string   `json:"assigned_to" validate:"omitempty,email"`
	Tags        []string `json:"tags"`
}

// UpdateTaskRequest carries a partial update. Absent fields are left
// untouched.
type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	DueDate     *string   `json:"due_date"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	AssignedTo  *string   `json:"assigned_to"`
	Tags        *[]string `json:"tags"`
}

// ShareTaskRequest defines the payload for sharing a task.
type ShareTaskRequest struct {
	Email   string `json:"email"    validate:"required,email"`
	CanEdit bool   `json:"can_edit"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"due_date"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// toCreateInput parses the enum and date fields of the request.
func (req CreateTaskRequest) toCreateInput() (service.CreateTaskInput, error) {
	dueDate, err := domain.ParseDateTime("due_date", req.DueDate)
	if err != nil {
		return service.CreateTaskInput{}, err
	}
	status, err := domain.ParseTaskStatus(req.Status)
	if err != nil {
		return service.CreateTaskInput{}, err
	}
	priority, err := domain.ParseTaskPriority(req.Priority)
	if err != nil {
		return service.CreateTaskInput{}, err
	}
	return service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		Status:      status,
		Priority:    priority,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
	}, nil
}

// toUpdateInput parses the fields present in the request.
func (req UpdateTaskRequest) toUpdateInput() (service.UpdateTaskInput, error) {
	in := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Tags:        req.Tags,
	}
	if req.DueDate != nil {
		dueDate, err := domain.ParseDateTime("due_date", *req.DueDate)
		if err != nil {
			return service.UpdateTaskInput{}, err
		}
		in.DueDate = &dueDate
	}
	if req.Status != nil {
		status, err := domain.ParseTaskStatus(*req.Status)
		if err != nil {
			return service.UpdateTaskInput{}, err
		}
		in.Status = &status
	}
	if req.Priority != nil {
		priority, err := domain.ParseTaskPriority(*req.Priority)
		if err != nil {
			return service.UpdateTaskInput{}, err
		}
		in.Priority = &priority
	}
	return in, nil
}

func taskToResponse(task domain.Task) TaskResponse {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     domain.FormatDateTime(task.DueDate),
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		AssignedTo:  task.AssignedTo,
		Tags:        tags,
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func userToResponse(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}
}

func tokensToResponse(tokens service.TokenPair, user *domain.User) AuthResponse {
	return AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    tokens.ExpiresAt.UTC().Format(time.RFC3339),
		User:         userToResponse(user),
	}
}
