package dto

import "net/http"

// Standardized API error codes. The code names the failure class; the HTTP
// status is derived from it so handlers never pick status codes by hand.
const (
	// Resource errors
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"

	// Input errors
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeValidation   = "ERR_VALIDATION"

	// Business rule errors
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"

	// Upstream channel errors
	ErrCodeChannelUnavailable = "ERR_CHANNEL_UNAVAILABLE"
	ErrCodeChannelAuthFailed  = "ERR_CHANNEL_AUTH_FAILED"
	ErrCodeChannelRejected    = "ERR_CHANNEL_REJECTED"
	ErrCodeUnknownChannel     = "ERR_UNKNOWN_CHANNEL"

	// Server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Resource -> 404 / 409
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Input -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	// Business rules -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	// Upstream channels -> 502 / 503
	ErrCodeChannelUnavailable: http.StatusServiceUnavailable,
	ErrCodeChannelAuthFailed:  http.StatusBadGateway,
	ErrCodeChannelRejected:    http.StatusBadGateway,
	ErrCodeUnknownChannel:     http.StatusNotFound,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodeMapping maps domain error codes to API error codes
var domainErrorCodeMapping = map[string]string{
	"NOT_FOUND":          ErrCodeNotFound,
	"ALREADY_EXISTS":     ErrCodeAlreadyExists,
	"INVALID_INPUT":      ErrCodeInvalidInput,
	"INVALID_STATE":      ErrCodeInvalidState,
	"INSUFFICIENT_STOCK": ErrCodeInsufficientStock,
	"INVALID_CHANNEL":    ErrCodeUnknownChannel,
	"INVALID_SKU":        ErrCodeInvalidInput,
	"INVALID_NAME":       ErrCodeInvalidInput,
	"INVALID_PRODUCT":    ErrCodeInvalidInput,
	"INVALID_ORDER":      ErrCodeInvalidInput,
	"INVALID_LINE":       ErrCodeInvalidInput,
	"INVALID_QUANTITY":   ErrCodeInvalidInput,
	"INVALID_STATUS":     ErrCodeInvalidInput,
	"VALIDATION_ERROR":   ErrCodeValidation,
	"BAD_REQUEST":        ErrCodeBadRequest,
	"INTERNAL_ERROR":     ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
