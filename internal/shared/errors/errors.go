package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds. Provider-specific failures are translated to
// these at the adapter boundary; nothing above the adapters ever
// inspects a provider error shape.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrNoGatewayAvailable  = errors.New("no gateway available")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrNotSupported        = errors.New("operation not supported by provider")
	ErrSignatureInvalid    = errors.New("invalid webhook signature")
	ErrDuplicateEvent      = errors.New("event already applied")
	ErrInternal            = errors.New("internal error")
)

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse represents the JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToResponse converts an AppError to ErrorResponse.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Message: e.Message,
		},
	}
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// Validation creates a validation error. Never retried by clients.
func Validation(message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrValidation,
	}
}

// NoGatewayAvailable signals that no enabled, fully configured provider
// supports the requested method. An expected condition, not a bug.
func NoGatewayAvailable(method string) *AppError {
	return &AppError{
		Code:       "NO_GATEWAY_AVAILABLE",
		Message:    fmt.Sprintf("no payment gateway available for %s", method),
		StatusCode: http.StatusServiceUnavailable,
		Err:        ErrNoGatewayAvailable,
	}
}

// ProviderUnavailable wraps a network failure or provider 5xx. Surfaced
// to users as "temporarily unavailable"; charge creation is never
// auto-retried on this.
func ProviderUnavailable(provider string, err error) *AppError {
	return &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    fmt.Sprintf("%s is temporarily unavailable", provider),
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %w", ErrProviderUnavailable, err),
	}
}

// ProviderRejected wraps a provider 4xx (bad credentials, invalid amount).
func ProviderRejected(provider string, err error) *AppError {
	return &AppError{
		Code:       "PROVIDER_REJECTED",
		Message:    fmt.Sprintf("%s rejected the request", provider),
		StatusCode: http.StatusUnprocessableEntity,
		Err:        fmt.Errorf("%w: %w", ErrProviderRejected, err),
	}
}

// SignatureInvalid creates a webhook signature rejection error.
func SignatureInvalid(provider string) *AppError {
	return &AppError{
		Code:       "SIGNATURE_INVALID",
		Message:    fmt.Sprintf("invalid %s webhook signature", provider),
		StatusCode: http.StatusUnauthorized,
		Err:        ErrSignatureInvalid,
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSignatureInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoGatewayAvailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, ErrProviderRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
