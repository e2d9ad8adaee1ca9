package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBody is returned when the backend answers without a response body.
	ErrNoBody = errors.New("response has no body")

	// ErrSuperseded is the failure cause of a session replaced by a newer one.
	ErrSuperseded = errors.New("session superseded by a newer request")

	// ErrAlreadyStarted is returned by Run on a session that has left Idle.
	ErrAlreadyStarted = errors.New("session already started")
)

// StatusError is returned when the backend answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
