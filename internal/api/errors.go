package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized marks an authenticated request the backend rejected
	// with 401, or one that could not be sent because no token is held.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport wraps failures below HTTP: DNS, refused connections,
	// timeouts, unreadable bodies.
	ErrTransport = errors.New("transport error")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// backend response.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the human readable part of err: the backend's "error"
// field when present, err.Error() otherwise.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
