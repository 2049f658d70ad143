package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of an exchange error.
type ErrorType int

// Error type constants categorize errors for proper handling and retry logic.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork indicates a network connectivity issue.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeAuthentication indicates invalid or expired credentials,
	// or a request timestamp too far from the venue's clock.
	ErrorTypeAuthentication
	// ErrorTypePermissionDenied indicates access was denied, which this
	// venue also uses for rate-limit violations (HTTP 429).
	ErrorTypePermissionDenied
	// ErrorTypeBadRequest indicates invalid request parameters.
	ErrorTypeBadRequest
	// ErrorTypeArgumentsRequired indicates the caller omitted a mandatory
	// parameter; raised before any network call is made.
	ErrorTypeArgumentsRequired
	// ErrorTypeServerError indicates a server-side error.
	ErrorTypeServerError
	// ErrorTypeInsufficientFunds indicates the account lacks required balance.
	ErrorTypeInsufficientFunds
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"NETWORK",
		"TIMEOUT",
		"AUTHENTICATION",
		"PERMISSION_DENIED",
		"BAD_REQUEST",
		"ARGUMENTS_REQUIRED",
		"SERVER_ERROR",
		"INSUFFICIENT_FUNDS",
	}[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrNoCredentials is returned when no API credentials are configured.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrMarketsNotLoaded is returned when a symbol lookup happens before
	// the markets have been fetched.
	ErrMarketsNotLoaded = errors.New("markets not loaded")
)

// ExchangeError represents a structured error returned from an exchange.
// It provides detailed context for debugging and error handling.
type ExchangeError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code from the response.
	StatusCode int `json:"status_code"`
	// Code is the exchange-specific error code.
	Code string `json:"code"`
	// Message is the human-readable error description. For errors raised
	// from a response body it embeds the connector id and the raw body.
	Message string `json:"message"`
	// RawError contains the original error response for debugging.
	RawError any `json:"raw_error,omitempty"`
	// Exchange identifies which exchange returned this error.
	Exchange string `json:"exchange"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`

	// cause is the underlying sentinel or transport error, if any.
	cause error
}

// Error implements the error interface for ExchangeError.
// It returns a formatted string with exchange name, error type, status code, and message.
func (e *ExchangeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (%d/%s): %s",
			e.Exchange, e.Type, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s (%d): %s",
		e.Exchange, e.Type, e.StatusCode, e.Message)
}

// WithCode returns the error with the specified error code set.
func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// WithRaw returns the error with the original response attached.
func (e *ExchangeError) WithRaw(raw any) *ExchangeError {
	e.RawError = raw
	return e
}

// WithCause returns the error with an underlying cause attached, letting
// callers match sentinels like ErrNoCredentials through errors.Is.
func (e *ExchangeError) WithCause(err error) *ExchangeError {
	e.cause = err
	return e
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (e *ExchangeError) Unwrap() error {
	return e.cause
}

// NewExchangeError creates a new ExchangeError with the specified details.
// The timestamp is automatically set to the current time.
func NewExchangeError(exchange string, errorType ErrorType, statusCode int, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

// NewExchangeErrorWithCode creates a new ExchangeError including an exchange-specific error code.
// The timestamp is automatically set to the current time.
func NewExchangeErrorWithCode(exchange string, errorType ErrorType, statusCode int, code, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

func isErrorType(err error, t ErrorType) bool {
	var e *ExchangeError
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsNetworkError returns true if the error is a network connectivity issue.
// Network errors are typically retryable.
func IsNetworkError(err error) bool {
	return isErrorType(err, ErrorTypeNetwork)
}

// IsTimeoutError returns true if the error is a timeout.
// Timeout errors are typically retryable with a longer deadline.
func IsTimeoutError(err error) bool {
	return isErrorType(err, ErrorTypeTimeout)
}

// IsAuthenticationError returns true if the error is an authentication failure.
// Authentication errors require credential validation and are not retryable.
func IsAuthenticationError(err error) bool {
	return isErrorType(err, ErrorTypeAuthentication)
}

// IsPermissionDenied returns true if the error is an access or rate-limit
// rejection. These should be retried only after a delay.
func IsPermissionDenied(err error) bool {
	return isErrorType(err, ErrorTypePermissionDenied)
}

// IsBadRequest returns true if the error reports invalid request parameters.
func IsBadRequest(err error) bool {
	return isErrorType(err, ErrorTypeBadRequest)
}

// IsArgumentsRequired returns true if the error reports a missing mandatory
// argument detected before any network call.
func IsArgumentsRequired(err error) bool {
	return isErrorType(err, ErrorTypeArgumentsRequired)
}

// IsTerminalError returns true if the error indicates a terminal condition.
// Terminal errors should not be retried as they will not succeed.
func IsTerminalError(err error) bool {
	return isErrorType(err, ErrorTypeInsufficientFunds) ||
		isErrorType(err, ErrorTypeBadRequest) ||
		isErrorType(err, ErrorTypeArgumentsRequired)
}
