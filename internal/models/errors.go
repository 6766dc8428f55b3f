package models

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Authentication errors
	ErrorCodeMissingAPIKey  ErrorCode = "MISSING_API_KEY"
	ErrorCodeInvalidAPIKey  ErrorCode = "INVALID_API_KEY"
	ErrorCodeInactiveAPIKey ErrorCode = "INACTIVE_API_KEY"

	// Rate limiting errors
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Validation errors: fatal, raised before any network activity
	ErrorCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidAccountName ErrorCode = "INVALID_ACCOUNT_NAME"
	ErrorCodeInvalidQuantity    ErrorCode = "INVALID_QUANTITY"
	ErrorCodeInvalidSymbol      ErrorCode = "INVALID_SYMBOL"
	ErrorCodeSelfReference      ErrorCode = "SELF_REFERENCE"
	ErrorCodeMalformedJSON      ErrorCode = "MALFORMED_JSON"

	// RPC errors: recoverable, surfaced only after the retry budget is spent
	ErrorCodeRPCUnavailable     ErrorCode = "RPC_UNAVAILABLE"
	ErrorCodeRPCTimeout         ErrorCode = "RPC_TIMEOUT"
	ErrorCodeRPCCancelled       ErrorCode = "RPC_CANCELLED"
	ErrorCodeInvalidRPCResponse ErrorCode = "INVALID_RPC_RESPONSE"

	// External API errors
	ErrorCodeMarketAPIError  ErrorCode = "MARKET_API_ERROR"
	ErrorCodeHistoryAPIError ErrorCode = "HISTORY_API_ERROR"

	// Internal errors
	ErrorCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Error         ErrorDetail `json:"error"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// HTTPStatusCode returns the appropriate HTTP status code for each error type
func (e ErrorCode) HTTPStatusCode() int {
	switch e {
	case ErrorCodeMissingAPIKey, ErrorCodeInvalidAPIKey, ErrorCodeInactiveAPIKey:
		return http.StatusUnauthorized
	case ErrorCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorCodeInvalidRequest, ErrorCodeInvalidAccountName, ErrorCodeInvalidQuantity,
		ErrorCodeInvalidSymbol, ErrorCodeSelfReference, ErrorCodeMalformedJSON:
		return http.StatusBadRequest
	case ErrorCodeRPCUnavailable, ErrorCodeRPCTimeout, ErrorCodeInvalidRPCResponse,
		ErrorCodeMarketAPIError, ErrorCodeHistoryAPIError:
		return http.StatusBadGateway
	case ErrorCodeRPCCancelled:
		return 499 // client closed request
	case ErrorCodeDatabaseError, ErrorCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the error class may be retried against another node
func (e ErrorCode) Retryable() bool {
	switch e {
	case ErrorCodeRPCUnavailable, ErrorCodeRPCTimeout, ErrorCodeInvalidRPCResponse:
		return true
	default:
		return false
	}
}

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode
	Message    string
	Details    string
	Cause      error
	Context    map[string]interface{}
	StatusCode int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewAppErrorWithCause creates a new application error with underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewValidationError creates a validation error with a specific reason
func NewValidationError(code ErrorCode, reason string) *AppError {
	return NewAppErrorWithDetails(code, "Validation failed", reason)
}

// WriteError converts any error into the standardized JSON error response.
// Non-AppError values are wrapped as internal errors.
func WriteError(c *gin.Context, err error) {
	appErr, ok := err.(*AppError)
	if !ok {
		appErr = NewAppErrorWithCause(ErrorCodeInternalError, "Internal server error", err)
	}

	correlationID := c.GetString("correlation_id")

	c.JSON(appErr.StatusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	})
}
