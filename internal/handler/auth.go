package handler

import (
	"log/slog"
	"net/http"

	"github.com/elebur/VoteAPI/internal/service"
)

// AuthHandler handles the token endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Token handles POST /token/ and returns a refresh and access token pair.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.authService.Login(r.Context(), req)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, pair)
}

// Refresh handles POST /token/refresh/.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshInput
	if !decodeJSON(w, r, &req) {
		return
	}

	access, err := h.authService.Refresh(r.Context(), req)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"access": access})
}

// writeAuthError reports field problems at the top level, as token clients expect.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if fields, ok := fieldErrors(err); ok {
		jsonResponse(w, http.StatusBadRequest, fields)
		return
	}
	writeError(w, r, h.logger, err)
}
