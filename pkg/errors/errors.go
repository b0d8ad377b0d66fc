package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorType classifies application errors for the HTTP layer.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeModeration     ErrorType = "moderation_rejected"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeExternal       ErrorType = "external"
)

// AppError is a structured application error. Expected domain outcomes
// (duplicate vote, username taken, moderation rejection, rate limit) get
// their own type so handlers never have to string-match messages.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewValidationError creates a 400 validation error.
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewAuthenticationError creates a 401 error.
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewAuthorizationError creates a 403 error.
func NewAuthorizationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a 409 error, used for uniqueness collisions that
// are not duplicate votes/reports (e.g. username taken).
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewRateLimitError creates a 429 error carrying the reset timestamp so the
// client can tell the user when a slot frees up.
func NewRateLimitError(message string, resetAt *time.Time) *AppError {
	details := map[string]interface{}{}
	if resetAt != nil {
		details["reset_at"] = resetAt.UTC().Format(time.RFC3339)
	}
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Details:    details,
	}
}

// NewModerationError creates a 422 error naming which image was rejected.
func NewModerationError(message, rejectedImage string) *AppError {
	return &AppError{
		Type:       ErrorTypeModeration,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Details:    map[string]interface{}{"rejected_image": rejectedImage},
	}
}

// NewInternalError creates a 500 error wrapping the underlying cause.
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewExternalError creates a 502 error for upstream collaborator failures.
func NewExternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// ErrorResponse is the JSON envelope written for every error.
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}

// NewErrorResponse builds the response envelope for an AppError.
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	resp := &ErrorResponse{}
	resp.Error.Type = err.Type
	resp.Error.Message = err.Message
	resp.Error.Details = err.Details
	resp.Error.RequestID = requestID
	resp.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return resp
}
