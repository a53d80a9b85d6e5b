package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// taskIDParam is the chi route parameter naming a task.
const taskIDParam = "taskID"

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, paramName+" is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "Invalid id format: "+pathParam, domain.ErrInvalidID)
	}

	return id, nil
}

// handleUserAndTaskID resolves the authenticated caller and the task ID in
// the path. It writes an error response and returns false if either is
// missing or malformed.
func handleUserAndTaskID(w http.ResponseWriter, r *http.Request) (*domain.User, uuid.UUID, bool) {
	log := logger.FromContext(r.Context())

	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		log.Warn("user not found in request context")
		HandleAPIError(w, r, service.ErrUnauthenticated, "")
		return nil, uuid.Nil, false
	}

	taskID, err := getPathUUID(r, taskIDParam)
	if err != nil {
		log.Debug("invalid task id", slog.String("value", chi.URLParam(r, taskIDParam)))
		HandleAPIError(w, r, err, "")
		return nil, uuid.Nil, false
	}

	return user, taskID, true
}

// parseListParams reads page, size, status, priority and tags from the
// query string. Tags may be given as a comma separated list, repeated, or
// both.
func parseListParams(r *http.Request) (service.ListParams, error) {
	q := r.URL.Query()
	params := service.ListParams{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
	}

	var err error
	if params.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		return service.ListParams{}, err
	}
	if params.Size, err = queryInt(q.Get("size"), "size"); err != nil {
		return service.ListParams{}, err
	}

	for _, raw := range q["tags"] {
		params.Tags = append(params.Tags, strings.Split(raw, ",")...)
	}

	return params, nil
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name,
			fmt.Sprintf("Invalid value '%s' for %s. Expected an integer", raw, name),
			domain.ErrInvalidFormat)
	}
	return n, nil
}
