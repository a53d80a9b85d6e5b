package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// AuthHandler handles registration, login and token refresh.
type AuthHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:  users,
		logger: logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /api/users/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}
	if fieldErrs := shared.ValidateRequest(req); fieldErrs != nil {
		respondValidationFailed(w, r, fieldErrs)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register user")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("user registered",
		slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, userToResponse(user))
}

// Login handles POST /api/users/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}
	if fieldErrs := shared.ValidateRequest(req); fieldErrs != nil {
		respondValidationFailed(w, r, fieldErrs)
		return
	}

	user, tokens, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tokensToResponse(tokens, user))
}

// RefreshToken handles POST /api/users/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		respondBadBody(w, r, err)
		return
	}
	if fieldErrs := shared.ValidateRequest(req); fieldErrs != nil {
		respondValidationFailed(w, r, fieldErrs)
		return
	}

	tokens, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tokensToResponse(tokens, nil))
}
