package errors

import (
	"fmt"
	"net/http"
)

// NewUnauthorizedError reports a sender that is not on the allow list
func NewUnauthorizedError(sender string) *AppError {
	return New(ErrCodeUnauthorized, "sender not allowed").
		WithContext("sender", sender)
}

// NewMalformedInputError reports an inbound payload that cannot be relayed
func NewMalformedInputError(reason string) *AppError {
	return New(ErrCodeMalformedInput, reason)
}

// NewResolutionError reports an alias that matched no channel or user
func NewResolutionError(alias, token string) *AppError {
	return New(ErrCodeResolutionFailed, fmt.Sprintf("no channel or user matches %q", token)).
		WithContext("alias", alias).
		WithContext("token", token)
}

// NewDeliveryError marks a terminal delivery failure
func NewDeliveryError(destination string, err error) *AppError {
	return Wrap(err, ErrCodeDeliveryFailed, "delivery failed").
		WithContext("destination", destination)
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("config_key", key)
}

// NewTransportError classifies an SMS transport response. Only timeouts and
// network failures are retryable; a status code means the transport answered.
func NewTransportError(endpoint string, statusCode int, err error) *AppError {
	if statusCode == 0 {
		return WrapRetryable(err, ErrCodeTransport, "SMS transport unreachable").
			WithContext("endpoint", endpoint)
	}
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("SMS transport rejected request with status %d", statusCode)).
		WithContext("endpoint", endpoint).
		WithContext("status_code", statusCode)
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(operation string, err error) *AppError {
	return WrapRetryable(err, ErrCodeTimeout, fmt.Sprintf("%s timed out", operation)).
		WithContext("operation", operation)
}

// NewPlatformError wraps a chat platform failure
func NewPlatformError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePlatform, fmt.Sprintf("chat platform %s failed", operation)).
		WithContext("operation", operation)
}

// HTTPStatusCode maps error codes to appropriate HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeMalformedInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeQueueFull, ErrCodeNotReady:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorResponse is the JSON body written for failed requests
type HTTPErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ToHTTPResponse converts an error to a standardized HTTP response. Context
// is never echoed back since it may carry phone numbers.
func ToHTTPResponse(err error, requestID string) HTTPErrorResponse {
	response := HTTPErrorResponse{RequestID: requestID}
	response.Error.Code = GetCode(err)

	switch response.Error.Code {
	case ErrCodeUnauthorized:
		response.Error.Message = "Number not allowed"
	case ErrCodeMalformedInput:
		response.Error.Message = "Invalid format. Use: target message"
	case ErrCodeQueueFull, ErrCodeNotReady:
		response.Error.Message = "Service temporarily unavailable"
	default:
		response.Error.Message = "An internal error occurred"
	}
	return response
}
