package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// TaskHandler handles the task endpoints.
type TaskHandler struct {
	queries   service.TaskQueryService
	lifecycle service.TaskLifecycleService
	logger    *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(
	queries service.TaskQueryService,
	lifecycle service.TaskLifecycleService,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		queries:   queries,
		lifecycle: lifecycle,
		logger:    logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, service.ErrUnauthenticated, "")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}
	if fieldErrs := shared.ValidateRequest(req); fieldErrs != nil {
		respondValidationFailed(w, r, fieldErrs)
		return
	}

	in, err := req.toCreateInput()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.lifecycle.Create(r.Context(), user, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(*task))
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, service.ErrUnauthenticated, "")
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.queries.List(r.Context(), user, params)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, domain.MapPage(page, taskToResponse))
}

// GetTask handles GET /api/tasks/{taskID}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user, taskID, ok := handleUserAndTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.queries.GetTask(r.Context(), user, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(*task))
}

// UpdateTask handles PUT /api/tasks/{taskID}.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, taskID, ok := handleUserAndTaskID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}

	in, err := req.toUpdateInput()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if _, err := h.lifecycle.Update(r.Context(), user, taskID, in); err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, fmt.Sprintf("Task with id: %s updated", taskID))
}

// DeleteTask handles DELETE /api/tasks/{taskID}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, taskID, ok := handleUserAndTaskID(w, r)
	if !ok {
		return
	}

	if err := h.lifecycle.Delete(r.Context(), user, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("task deleted",
		slog.String("task_id", taskID.String()))
	shared.RespondWithMessage(w, r, http.StatusOK, fmt.Sprintf("Task with id: %s deleted", taskID))
}

// ShareTask handles POST /api/tasks/{taskID}/share.
func (h *TaskHandler) ShareTask(w http.ResponseWriter, r *http.Request) {
	user, taskID, ok := handleUserAndTaskID(w, r)
	if !ok {
		return
	}

	var req ShareTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}
	if fieldErrs := shared.ValidateRequest(req); fieldErrs != nil {
		respondValidationFailed(w, r, fieldErrs)
		return
	}

	if err := h.lifecycle.Share(r.Context(), user, taskID, service.ShareTaskInput{
		Email:   req.Email,
		CanEdit: req.CanEdit,
	}); err != nil {
		HandleAPIError(w, r, err, "Failed to share task")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Task shared with "+req.Email)
}
