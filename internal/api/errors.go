package api

import (
	"errors"
	"fmt"
)

// Validation errors returned before any request is made.
var (
	ErrMissingID     = errors.New("id is required")
	ErrEmptyRoomName = errors.New("room name is required")
	ErrEmptyQuestion = errors.New("question text is required")
)

// TransportError reports a network, HTTP or protocol failure talking to the API.
type TransportError struct {
	Op      string // "GET /room/abc/questions"
	Status  int    // zero when no response was received
	Message string // server supplied error text, if any
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status > 0 && e.Message != "":
		return fmt.Sprintf("api %s returned status %d: %s", e.Op, e.Status, e.Message)
	case e.Status > 0:
		return fmt.Sprintf("api %s returned status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("api %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("api %s failed", e.Op)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError reports a 404 from the API, e.g. an unknown room.
type NotFoundError struct {
	Op      string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s: not found", e.Op)
	}
	return fmt.Sprintf("api %s: %s", e.Op, e.Message)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
