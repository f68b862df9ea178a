package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors used throughout the application.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("authentication failed")
	ErrMalformedHierarchy = errors.New("malformed connection group hierarchy")
	ErrRemoteMutation     = errors.New("remote mutation failed")
)

// RemoteError describes a failed call against the Guacamole API.
type RemoteError struct {
	// Op is the remote operation, e.g. "create connection group".
	Op string

	// StatusCode is the HTTP status returned, zero for transport failures.
	StatusCode int

	// Message is the error message reported by the server, if any.
	Message string

	// Cause is the underlying error.
	Cause error

	// Mutation is set for create calls.
	Mutation bool
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	msg := e.Op
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// Is maps HTTP status codes onto the sentinel errors.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRemoteMutation:
		return e.Mutation && e.StatusCode != http.StatusUnauthorized && e.StatusCode != http.StatusForbidden
	}
	return false
}

// Temporary reports whether retrying the call may succeed.
func (e *RemoteError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError
}
