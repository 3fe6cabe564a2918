package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidCategory  ErrorCode = "INVALID_CATEGORY"
	ErrCodeInvalidSoftware  ErrorCode = "INVALID_SOFTWARE"

	ErrCodeConnectionNotFound ErrorCode = "CONNECTION_NOT_FOUND"
	ErrCodeJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	ErrCodeTenantNotFound     ErrorCode = "TENANT_NOT_FOUND"
	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"

	ErrCodeTokenExpiredNoRefresh ErrorCode = "TOKEN_EXPIRED_NO_REFRESH"
	ErrCodeTokenRefreshFailed    ErrorCode = "TOKEN_REFRESH_FAILED"

	ErrCodeInvalidTransition ErrorCode = "INVALID_JOB_TRANSITION"
	ErrCodeStaleUpdate       ErrorCode = "STALE_PROGRESS_UPDATE"
	ErrCodeAlreadyTerminal   ErrorCode = "JOB_ALREADY_TERMINAL"

	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeSystemRole      ErrorCode = "SYSTEM_ROLE_PROTECTED"
	ErrCodeQueueFull       ErrorCode = "JOB_QUEUE_FULL"
	ErrCodeUnknownProvider ErrorCode = "UNKNOWN_PROVIDER"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code so sentinels still compare equal after
// WithCause/WithMessage cloning.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithMessage(message string) *AppError {
	clone := *e
	clone.Message = message
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrConnectionNotFound = NewNotFoundError("connection not found", ErrCodeConnectionNotFound)
	ErrJobNotFound        = NewNotFoundError("analysis job not found", ErrCodeJobNotFound)
	ErrTenantNotFound     = NewNotFoundError("tenant not found", ErrCodeTenantNotFound)
	ErrRoleNotFound       = NewNotFoundError("role not found", ErrCodeRoleNotFound)
	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)

	// ErrTokenExpiredNoRefresh is unrecoverable without re-authentication:
	// the connection cannot self-renew, so callers should prompt a
	// reconnect instead of retrying the job.
	ErrTokenExpiredNoRefresh = NewConflictError("connection token expired and no refresh token is stored", ErrCodeTokenExpiredNoRefresh)

	// ErrTokenRefreshFailed is retryable; stored credentials stay untouched.
	ErrTokenRefreshFailed = NewExternalError("token refresh failed", ErrCodeTokenRefreshFailed)

	ErrInvalidTransition = NewConflictError("invalid job status transition", ErrCodeInvalidTransition)
	ErrStaleUpdate       = NewConflictError("progress update after terminal state", ErrCodeStaleUpdate)
	ErrAlreadyTerminal   = NewConflictError("job already reached a terminal state", ErrCodeAlreadyTerminal)

	// ErrForbidden deliberately carries no resource detail so a denial
	// never leaks whether the resource exists.
	ErrForbidden = NewForbiddenError("forbidden", ErrCodeForbidden)

	ErrSystemRoleProtected = NewForbiddenError("system roles cannot be deleted", ErrCodeSystemRole)
	ErrJobQueueFull        = NewConflictError("analysis queue is full, try again later", ErrCodeQueueFull)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
