package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps network and decoding failures.
	ErrTransport = errors.New("transport failure")
	// ErrPermissionDenied matches any *Error with status 403.
	ErrPermissionDenied = errors.New("permission denied")
)

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
	Path    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %d %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: %d %s", e.Path, e.Status, http.StatusText(e.Status))
}

// Is reports whether e is a 403 when target is ErrPermissionDenied.
func (e *Error) Is(target error) bool {
	return target == ErrPermissionDenied && e.Status == http.StatusForbidden
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server message carried by err, or "".
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
