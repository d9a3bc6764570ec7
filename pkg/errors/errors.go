// Package errors defines the service's sentinel errors and their HTTP
// mapping. Handlers classify failures with errors.Is against the sentinels;
// AppError adds a caller-facing message and an explicit status when the
// default mapping is not specific enough.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidQuery        = errors.New("invalid query")
	ErrEngineNotReady      = errors.New("search engine not ready")
	ErrRebuildInProgress   = errors.New("rebuild already in progress")
	ErrSearchUnavailable   = errors.New("search unavailable")
	ErrInvalidCatalog      = errors.New("invalid catalog")
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	ErrNotFound            = errors.New("not found")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

// AppError wraps a sentinel with request-specific detail. Is/As see through
// it to the sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
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

// HTTPStatusCode maps err to a response status. An AppError's explicit code
// wins; otherwise the sentinel decides, and unknown errors are a 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for sentinel, code := range statusBySentinel {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}

var statusBySentinel = map[error]int{
	ErrInvalidQuery:        http.StatusBadRequest,
	ErrInvalidCatalog:      http.StatusBadRequest,
	ErrNotFound:            http.StatusNotFound,
	ErrRebuildInProgress:   http.StatusConflict,
	ErrEngineNotReady:      http.StatusServiceUnavailable,
	ErrSearchUnavailable:   http.StatusServiceUnavailable,
	ErrProviderUnavailable: http.StatusServiceUnavailable,
	ErrTimeout:             http.StatusServiceUnavailable,
}
