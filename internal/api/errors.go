package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes. Unknown
// errors map to 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrConflict),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the message shown to clients for err. Only
// messages composed for clients are passed through; anything else gets a
// generic text.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var (
		svcErr    *service.ServiceError
		accessErr *service.AccessError
		ve        *domain.ValidationError
	)
	switch {
	case errors.As(err, &accessErr):
		return accessErr.Error()
	case errors.As(err, &svcErr):
		return svcErr.Message
	case errors.As(err, &ve):
		return ve.Message

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"
	case errors.Is(err, auth.ErrInvalidToken):
		return "Invalid token"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrEmailExists):
		return "user with email already exists"
	case errors.Is(err, store.ErrUsernameExists):
		return "user with username already exists"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. A non-empty
// fallbackMsg replaces the generic text for unmapped errors. Validation
// errors that name a field are also reported in the errors list.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMsg != "" {
		message = fallbackMsg
	}

	var opts []shared.ResponseOption
	var ve *domain.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		opts = append(opts, shared.WithFieldErrors(shared.FieldError{Field: ve.Field, Message: ve.Message}))
	}
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// respondValidationFailed writes a 400 listing every invalid field.
func respondValidationFailed(w http.ResponseWriter, r *http.Request, fieldErrs []shared.FieldError) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "validation failed", nil,
		shared.WithFieldErrors(fieldErrs...))
}

// respondBadBody writes a 400 for a body that could not be decoded.
func respondBadBody(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
}
