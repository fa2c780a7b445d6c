package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/parishtech/shepherd/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteAppError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid JSON body"))
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteAppError writes a JSON error response whose status and code derive
// from the error's kind. Internal errors and non-AppErrors get a generic
// 500 body so storage details never reach the client.
func WriteAppError(w http.ResponseWriter, err error) {
	status, code := statusForError(err)

	body := errorBody{Error: string(code), Message: safeMessage(err, code)}
	WriteJSON(w, status, body)
}

// statusForError maps an error kind to its HTTP status and client-visible
// code. Expired sessions are reported as invalid_token: clients must not
// be able to tell a lapsed token from a bogus one.
func statusForError(err error) (int, apperrors.ErrorCode) {
	code := apperrors.GetCode(err)
	switch code {
	case apperrors.ErrCodeMissingToken:
		return http.StatusUnauthorized, code
	case apperrors.ErrCodeInvalidToken, apperrors.ErrCodeExpired:
		return http.StatusUnauthorized, apperrors.ErrCodeInvalidToken
	case apperrors.ErrCodeUserDeactivated, apperrors.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized, code
	case apperrors.ErrCodeInsufficientPermissions, apperrors.ErrCodeAccessDenied:
		return http.StatusForbidden, code
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests, code
	case apperrors.ErrCodeWeakPassword, apperrors.ErrCodeValidation:
		return http.StatusBadRequest, code
	case apperrors.ErrCodeUserNotFound, apperrors.ErrCodeNotFound:
		return http.StatusNotFound, code
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, code
	default:
		return http.StatusInternalServerError, apperrors.ErrCodeInternal
	}
}

// safeMessage returns the AppError's curated message, or a generic one for
// internal and unclassified errors whose text may leak infrastructure
// details.
func safeMessage(err error, code apperrors.ErrorCode) string {
	if code == apperrors.ErrCodeInternal {
		return "internal server error"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
