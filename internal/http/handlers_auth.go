package httpx

import (
	"net/http"
	"time"

	apperrors "github.com/parishtech/shepherd/internal/errors"
	"github.com/parishtech/shepherd/internal/service"
)

// AuthHandlers provides HTTP handlers for login, logout and session
// management.
type AuthHandlers struct {
	Svc *service.AuthService
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	MemberID *int64 `json:"member_id,omitempty"`
}

// Login handles credential verification and session creation.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, sessionResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt,
		User: userView{
			ID:       result.User.ID.String(),
			Username: result.User.Username,
			Email:    result.User.Email,
			Role:     string(result.User.Role),
			MemberID: result.User.MemberID,
		},
	})
}

// Logout destroys the caller's session. Requires authentication.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.MissingToken("authentication required"))
		return
	}

	if err := h.Svc.Logout(r.Context(), identity.Session.Token); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// LogoutAll destroys every session belonging to the caller and reports
// how many were removed.
func (h *AuthHandlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.MissingToken("authentication required"))
		return
	}

	count, err := h.Svc.LogoutAll(r.Context(), identity.User.ID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"sessions_removed": count})
}

// Refresh extends the caller's session lifetime and returns the new
// expiry.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.MissingToken("authentication required"))
		return
	}

	session, err := h.Svc.RefreshSession(r.Context(), identity.Session.Token, nil)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// Me returns the caller's own profile.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteAppError(w, apperrors.MissingToken("authentication required"))
		return
	}

	WriteJSON(w, http.StatusOK, userView{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
		MemberID: user.MemberID,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword verifies the current password, applies the new one and
// invalidates every session of the user, including the current one.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.MissingToken("authentication required"))
		return
	}

	var req changePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ChangePassword(r.Context(), identity.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}
