package followers

import (
	"errors"
	"fmt"
)

// Validation reasons surfaced before any connection is opened.
const (
	ReasonMultipleIdentifiers = "multiple-identifiers"
	ReasonMalformedCount      = "malformed-count"
	ReasonCountOutOfRange     = "count-out-of-range"
)

// ErrNoIdentity rejects a record carrying neither user_id nor id.
var ErrNoIdentity = errors.New("record has no identity")

// ErrNoCheckpoint reports that no cursor was ever saved for an identifier.
// A first run for an identifier is expected to hit it; it is not a failure.
var ErrNoCheckpoint = errors.New("no checkpoint for identifier")

// ValidationError blocks a session before it starts. No partial state exists
// when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// MalformedEventError marks a single stream frame whose payload failed to
// parse. It is recovered locally (logged and skipped), never escalated.
type MalformedEventError struct {
	Event string
	Err   error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %q event: %v", e.Event, e.Err)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// StreamTransportError is a connection-level failure. It is terminal for the
// session; whatever was merged before it stays available for export.
type StreamTransportError struct {
	Err error
}

func (e *StreamTransportError) Error() string {
	return fmt.Sprintf("stream transport error: %v", e.Err)
}

func (e *StreamTransportError) Unwrap() error { return e.Err }
