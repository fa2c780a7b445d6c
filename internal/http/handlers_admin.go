package httpx

import (
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/service"
)

// AdminHandlers provides session and rate-limit administration. Every
// route using these handlers must be gated behind the admin role.
type AdminHandlers struct {
	Svc *service.AuthService
}

// SessionStats reports total, active and expired session counts.
func (h *AdminHandlers) SessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.SessionStats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// InvalidateUserSessions removes every session of the user named in the
// route, e.g. after deactivating an account.
func (h *AdminHandlers) InvalidateUserSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		WriteAppError(w, apperrors.Validation("a valid user id is required"))
		return
	}

	count, err := h.Svc.LogoutAll(r.Context(), userID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"sessions_removed": count})
}

type clearRateLimitRequest struct {
	Identifier string `json:"identifier"`
}

// ClearRateLimit resets the throttle bucket for one identifier so a
// legitimate user locked out by failed attempts can try again.
func (h *AdminHandlers) ClearRateLimit(w http.ResponseWriter, r *http.Request) {
	var req clearRateLimitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Identifier == "" {
		WriteAppError(w, apperrors.ValidationField("identifier", "identifier is required"))
		return
	}

	h.Svc.ClearRateLimit(req.Identifier)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// CleanupSessions sweeps expired sessions immediately instead of waiting
// for the background reaper.
func (h *AdminHandlers) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	count, err := h.Svc.CleanupExpiredSessions(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"sessions_removed": count})
}
