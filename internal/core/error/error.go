package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "An error occurred in gen ai response lambda"
	// ValidationMessage is returned when required request fields are absent or malformed.
	ValidationMessage = "One or more required fields are missing or invalid"
	// EmptySchemaMessage is returned when the request carries no fields to collect.
	EmptySchemaMessage = "Empty schema provided"
	// AttemptsExhaustedMessage is returned once a session has used every attempt.
	AttemptsExhaustedMessage = "Maximum attempts reached"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrEmptySchema       = errors.New("empty schema")
	ErrAttemptsExhausted = errors.New("attempts exhausted")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Validation reports a malformed or incomplete request.
func Validation(reason string) *AppError {
	return New(fmt.Errorf("%w: %s", ErrValidation, reason), http.StatusBadRequest, ValidationMessage)
}

// EmptySchema reports a request without any field to collect. The status is
// 500 to stay compatible with existing callers of the lambda.
func EmptySchema() *AppError {
	return New(ErrEmptySchema, http.StatusInternalServerError, EmptySchemaMessage)
}

// AttemptsExhausted reports a turn arriving after the session ran out of attempts.
func AttemptsExhausted(attemptCount, maxAttempts int) *AppError {
	return New(
		fmt.Errorf("%w: attempt_count=%d max_attempts=%d", ErrAttemptsExhausted, attemptCount, maxAttempts),
		http.StatusServiceUnavailable,
		AttemptsExhaustedMessage,
	)
}

// Internal wraps an unexpected failure behind the generic system message.
func Internal(err error) *AppError {
	return New(err, http.StatusInternalServerError, SystemErrorMessage)
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
