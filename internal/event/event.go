// Package event decodes live room stream frames into typed question events.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/five82/amaroom/internal/api"
)

// Kind names the change an event carries.
type Kind string

const (
	KindCreate Kind = "Create"
	KindUpdate Kind = "Update"
)

// Event is one decoded stream frame. Data is always the question's full
// current state, never a diff.
type Event struct {
	Kind Kind         `json:"kind"`
	Data api.Question `json:"data"`
}

// ErrUnknownKind marks a well-formed frame whose kind this client does not
// handle. Such frames are skipped without being treated as failures.
var ErrUnknownKind = errors.New("unknown event kind")

// DecodeError reports a frame that could not be turned into an Event.
type DecodeError struct {
	Reason string
	Frame  []byte
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return "decode frame: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Decode parses a single UTF-8 JSON frame of the form {"kind", "data"}.
// Unrecognized kinds yield an error wrapping ErrUnknownKind; every other
// rejection is a *DecodeError.
func Decode(frame []byte) (Event, error) {
	if !utf8.Valid(frame) {
		return Event{}, &DecodeError{Reason: "invalid utf-8", Frame: frame}
	}
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, &DecodeError{Reason: "invalid json", Frame: frame, Err: err}
	}

	kind := Kind(env.Kind)
	switch kind {
	case KindCreate, KindUpdate:
	case "":
		return Event{}, &DecodeError{Reason: "missing kind", Frame: frame}
	default:
		return Event{Kind: kind}, fmt.Errorf("%w %q", ErrUnknownKind, env.Kind)
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return Event{}, &DecodeError{Reason: "missing data", Frame: frame}
	}
	var q api.Question
	if err := json.Unmarshal(env.Data, &q); err != nil {
		return Event{}, &DecodeError{Reason: "invalid question", Frame: frame, Err: err}
	}
	if strings.TrimSpace(q.ID) == "" {
		return Event{}, &DecodeError{Reason: "missing question id", Frame: frame}
	}
	if q.ReactionCount < 0 {
		return Event{}, &DecodeError{Reason: "negative reaction_count", Frame: frame}
	}
	return Event{Kind: kind, Data: q}, nil
}

// Pump decodes frames from in and forwards events to out in arrival order
// until ctx is done or in is closed, then closes out. Frames that fail to
// decode are handed to drop (when non-nil) and skipped; the pump never stops
// because of a bad frame.
func Pump(ctx context.Context, in <-chan []byte, out chan<- Event, drop func(frame []byte, err error)) {
	defer close(out)
	for {
		var frame []byte
		var ok bool
		select {
		case <-ctx.Done():
			return
		case frame, ok = <-in:
			if !ok {
				return
			}
		}

		ev, err := Decode(frame)
		if err != nil {
			if drop != nil {
				drop(frame, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- ev:
		}
	}
}
