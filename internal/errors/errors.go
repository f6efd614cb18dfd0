// Package errors provides the tagged error type shared by the dashboard.
//
// Every failure that reaches a page, a JSON response or the terminal is an
// *AppError. Raw API error bodies are converted exactly once, in the api
// package, so nothing downstream inspects wire shapes.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the error taxonomy.
var (
	// ErrValidation indicates input rejected before any request was sent.
	ErrValidation = errors.New("validation error")

	// ErrAPI indicates the trading API answered with an error detail.
	ErrAPI = errors.New("api error")

	// ErrTransport indicates no response was received from the trading API.
	ErrTransport = errors.New("transport error")

	// ErrUnexpected covers everything else.
	ErrUnexpected = errors.New("unexpected error")

	// ErrUnauthorized indicates the bearer token was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates a resource was not found or is not accessible.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimit indicates too many requests.
	ErrRateLimit = errors.New("rate limit exceeded")
)

// Fallback messages shown to the user.
const (
	TransportMessage  = "No response from server. Please check your network connection."
	UnexpectedMessage = "An unexpected error occurred."
)

// ErrorDetail is one structured item of an API error body.
type ErrorDetail struct {
	Msg  string `json:"msg"`
	Type string `json:"type,omitempty"`
	Loc  []any  `json:"loc,omitempty"`
}

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Kind refines Type, e.g. ErrUnauthorized on top of ErrAPI.
	Kind error
	// Message is the user-facing error message.
	Message string
	// StatusCode is the HTTP status returned by the API, if any.
	StatusCode int
	// Details holds the structured items of an API error body.
	Details []ErrorDetail
	// Fields contains additional error details, e.g. the offending form field.
	Fields map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	if errors.Is(e.Type, target) {
		return true
	}
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// WithFields adds free-form details to an AppError.
func (e *AppError) WithFields(fields map[string]any) *AppError {
	e.Fields = fields
	return e
}

// Field returns the name of the offending field for validation errors.
func (e *AppError) Field() string {
	if e.Fields == nil {
		return ""
	}
	s, _ := e.Fields["field"].(string)
	return s
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// ValidationField creates a validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
		Fields:  map[string]any{"field": field},
	}
}

// NotFound creates a not found error with a complete message.
func NotFound(message string) *AppError {
	return &AppError{
		Type:    ErrNotFound,
		Message: message,
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrUnauthorized,
		Message: message,
	}
}

// Transport wraps a failure to get any response from the API.
func Transport(cause error) *AppError {
	return &AppError{
		Type:    ErrTransport,
		Message: TransportMessage,
		Cause:   cause,
	}
}

// Unexpected wraps an error that fits no other category.
func Unexpected(cause error) *AppError {
	return &AppError{
		Type:    ErrUnexpected,
		Message: UnexpectedMessage,
		Cause:   cause,
	}
}

// FromAPI builds the error for an API response carrying an error detail.
// fallback is used when the body has no usable message.
func FromAPI(status int, message string, details []ErrorDetail, fallback string) *AppError {
	if message == "" && len(details) > 0 {
		message = details[0].Msg
	}
	if message == "" {
		message = fallback
	}
	e := &AppError{
		Type:       ErrAPI,
		Message:    message,
		StatusCode: status,
		Details:    details,
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = ErrUnauthorized
	case http.StatusNotFound:
		e.Kind = ErrNotFound
	case http.StatusTooManyRequests:
		e.Kind = ErrRateLimit
	}
	return e
}

// As converts any error into an *AppError. Context cancellation and
// deadlines are treated as transport failures.
func As(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Transport(err)
	}
	return Unexpected(err)
}

// UserMessage returns the text to display for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return As(err).Message
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransport checks if an error is a transport error.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsAPI checks if an error was reported by the API.
func IsAPI(err error) bool {
	return errors.Is(err, ErrAPI)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, ErrAPI):
		var appErr *AppError
		if errors.As(err, &appErr) && appErr.StatusCode >= 400 && appErr.StatusCode < 500 {
			return appErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
