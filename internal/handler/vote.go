package handler

import (
	"log/slog"
	"net/http"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/security/middleware"
	"github.com/elebur/VoteAPI/internal/service"
	"github.com/elebur/VoteAPI/internal/validation"
)

// VoteHandler serves voting and results.
type VoteHandler struct {
	votes  *service.VoteService
	logger *slog.Logger
}

func NewVoteHandler(votes *service.VoteService, logger *slog.Logger) *VoteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteHandler{votes: votes, logger: logger}
}

// Cast handles POST /menu/{id}/vote/
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"detail": middleware.MsgNotAuthenticated})
		return
	}
	menuID, err := pathID(r, "id", "Menu")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// The body is read first but its problems wait until the voter and menu exist.
	var req service.VoteInput
	bodyErr := readJSON(r, &req)

	ballot, err := h.votes.OpenBallot(r.Context(), principal.UserID, menuID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if bodyErr != nil {
		writeError(w, r, h.logger, bodyErr)
		return
	}
	res, err := h.votes.Cast(r.Context(), ballot, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Results handles GET /vote/results/, optionally for ?date=YYYY-MM-DD.
func (h *VoteHandler) Results(w http.ResponseWriter, r *http.Request) {
	day := h.votes.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, r, h.logger, &domain.ValidationError{
				Fields: domain.FieldErrors{"date": []string{validation.MsgInvalidDate}},
			})
			return
		}
		day = parsed
	}

	tallies, err := h.votes.Tally(r.Context(), day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	jsonResponse(w, http.StatusOK, tallies)
}
