package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeMissingToken indicates no bearer token was presented.
	ErrCodeMissingToken ErrorCode = "missing_token"
	// ErrCodeInvalidToken indicates the presented token resolves to no usable session.
	// Expired and unknown tokens are deliberately indistinguishable to callers.
	ErrCodeInvalidToken ErrorCode = "invalid_token"
	// ErrCodeExpired indicates a session lapsed by time. Internal only; the HTTP
	// layer reports it as invalid_token.
	ErrCodeExpired ErrorCode = "expired"
	// ErrCodeUserDeactivated indicates the session's owning user is no longer active.
	ErrCodeUserDeactivated ErrorCode = "user_deactivated"
	// ErrCodeInsufficientPermissions indicates the caller's role is below the required level.
	ErrCodeInsufficientPermissions ErrorCode = "insufficient_permissions"
	// ErrCodeAccessDenied indicates a member-data ownership check failed.
	ErrCodeAccessDenied ErrorCode = "access_denied"
	// ErrCodeRateLimited indicates an identifier exhausted its attempt budget.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeInvalidCredentials indicates a failed login. It never reveals
	// whether the username exists.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeWeakPassword indicates a password failed the strength policy.
	ErrCodeWeakPassword ErrorCode = "weak_password"
	// ErrCodeUserNotFound indicates a referenced user id does not exist.
	ErrCodeUserNotFound ErrorCode = "user_not_found"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message, safe to show to callers
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates an AppError with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// MissingToken creates a new MissingToken error.
func MissingToken(message string) *AppError {
	return New(ErrCodeMissingToken, message)
}

// InvalidToken creates a new InvalidToken error.
func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

// Expired creates a new Expired error.
func Expired(message string) *AppError {
	return New(ErrCodeExpired, message)
}

// UserDeactivated creates a new UserDeactivated error.
func UserDeactivated(message string) *AppError {
	return New(ErrCodeUserDeactivated, message)
}

// InsufficientPermissions creates a new InsufficientPermissions error.
func InsufficientPermissions(message string) *AppError {
	return New(ErrCodeInsufficientPermissions, message)
}

// AccessDenied creates a new AccessDenied error.
func AccessDenied(message string) *AppError {
	return New(ErrCodeAccessDenied, message)
}

// RateLimited creates a new RateLimited error.
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message)
}

// InvalidCredentials creates a new InvalidCredentials error.
func InvalidCredentials(message string) *AppError {
	return New(ErrCodeInvalidCredentials, message)
}

// WeakPassword creates a new WeakPassword error.
func WeakPassword(message string) *AppError {
	return New(ErrCodeWeakPassword, message)
}

// UserNotFound creates a new UserNotFound error.
func UserNotFound(message string) *AppError {
	return New(ErrCodeUserNotFound, message)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return Newf(ErrCodeNotFound, format, args...)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return Newf(ErrCodeValidation, format, args...)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsMissingToken checks if an error is a MissingToken error.
func IsMissingToken(err error) bool {
	return isCode(err, ErrCodeMissingToken)
}

// IsInvalidToken checks if an error is an InvalidToken error.
func IsInvalidToken(err error) bool {
	return isCode(err, ErrCodeInvalidToken)
}

// IsExpired checks if an error is an Expired error.
func IsExpired(err error) bool {
	return isCode(err, ErrCodeExpired)
}

// IsUserDeactivated checks if an error is a UserDeactivated error.
func IsUserDeactivated(err error) bool {
	return isCode(err, ErrCodeUserDeactivated)
}

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool {
	return isCode(err, ErrCodeRateLimited)
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsWeakPassword checks if an error is a WeakPassword error.
func IsWeakPassword(err error) bool {
	return isCode(err, ErrCodeWeakPassword)
}

// IsUserNotFound checks if an error is a UserNotFound error.
func IsUserNotFound(err error) bool {
	return isCode(err, ErrCodeUserNotFound)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
