package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("backend: not found")
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrForbidden    = errors.New("backend: forbidden")
	// ErrUnreachable wraps transport-level failures where no response arrived.
	ErrUnreachable = errors.New("backend: unreachable")
)

// ServerError is an error payload returned by the backend. Message is
// surfaced to the guest verbatim when present.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend: status %d", e.Status)
}
