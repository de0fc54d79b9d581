package ahadi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures reported by real-time sockets.
type ErrorKind int

const (
	ErrorUnknown ErrorKind = iota
	ErrorConfig
	ErrorAuth
	ErrorTransport
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorConfig:
		return "config"
	case ErrorAuth:
		return "auth"
	case ErrorTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the error value exposed by Socket.Err and the channel adapters.
type Error struct {
	Kind    ErrorKind
	Code    int // close code, when the error came from a close frame
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches by kind, and by message when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrTransport = &Error{Kind: ErrorTransport}

	ErrURLNotConfigured  = &Error{Kind: ErrorConfig, Message: "WebSocket URL not configured"}
	ErrPathNotConfigured = &Error{Kind: ErrorConfig, Message: "WebSocket path not configured"}
	ErrNotAuthenticated  = &Error{Kind: ErrorAuth, Message: "Not authenticated"}
	ErrUnauthorized      = &Error{Kind: ErrorAuth, Message: "Unauthorized or forbidden"}
)

// APIError is returned for non-2xx REST responses.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %d: %s", e.StatusCode, e.Status)
}

// IsUnauthorized reports whether err is a REST 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a REST 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
