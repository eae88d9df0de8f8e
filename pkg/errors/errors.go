// Package errors holds the sentinel errors shared by the indexer, the query
// engine and the HTTP surface, and maps them to HTTP statuses and process
// exit codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrInvalidInput  = errors.New("invalid input")
	ErrQueueShutdown = errors.New("work queue is shut down")
	ErrUnavailable   = errors.New("dependency unavailable")
	ErrInternal      = errors.New("internal error")
	ErrTimeout       = errors.New("operation timed out")
)

// AppError attaches a client-facing message and an explicit status to a
// sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// HTTPStatusCode returns the AppError status if err carries one, otherwise
// the status implied by its sentinel.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrQueueShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text safe to show a client. Errors without an
// AppError keep their detail only when they are client errors.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if HTTPStatusCode(err) < http.StatusInternalServerError {
		return err.Error()
	}
	return http.StatusText(HTTPStatusCode(err))
}

// ExitCode maps a failed run to a process exit status: 2 for bad
// arguments or inputs, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidPath):
		return 2
	default:
		return 1
	}
}
