package sessions

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	domain "fanfilter/internal/domain/followers"
)

// Session drives one end-to-end run against the upstream event stream:
// open connection, consume events serially, close on a terminal event or
// error, expose the accumulated snapshot at any point in between.
//
// Lifecycle: connecting -> streaming -> {completed | failed | cancelled}.
// All event processing happens on a single goroutine; the mutex only guards
// the snapshot surface readers see.
type Session struct {
	ID  domain.RunID
	Req domain.FilterRequest

	mu           sync.Mutex
	state        domain.State
	store        *domain.Store
	cursor       string
	totalFetched int
	final        []domain.Record
	err          error

	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// onCursor is invoked (off the lock) whenever the resumption token
	// advances, so it can be checkpointed.
	onCursor func(cursor string)
}

// Snapshot is a read-only, point-in-time view of a session. Safe to export
// or display while the underlying run is still streaming.
type Snapshot struct {
	ID             domain.RunID
	Identifier     string
	Prompt         string
	RequestedCount int
	State          domain.State
	Cursor         string
	TotalFetched   int
	Records        []domain.Record
	Err            error
	StartedAt      time.Time
	DurationMS     int64
}

func newSession(id domain.RunID, req domain.FilterRequest, startedAt time.Time, cancel context.CancelFunc, onCursor func(string)) *Session {
	return &Session{
		ID:        id,
		Req:       req,
		state:     domain.StateConnecting,
		store:     domain.NewStore(),
		cursor:    req.Cursor,
		startedAt: startedAt,
		cancel:    cancel,
		done:      make(chan struct{}),
		onCursor:  onCursor,
	}
}

// run consumes the event stream until a terminal transition. It never
// returns an error: failures end up in the session state itself so the
// partial accumulation stays reachable.
func (s *Session) run(reader domain.EventReader) {
	defer close(s.done)
	defer reader.Close()

	for {
		frame, err := reader.Next()
		if err != nil {
			// Connection-level failure with no terminal payload. A
			// cancelled session keeps its state; everything else fails,
			// preserving whatever was merged so far. Resumption is
			// operator-driven via the cursor, never an implicit retry.
			s.mu.Lock()
			if s.state != domain.StateCancelled {
				s.state = domain.StateFailed
				s.err = &domain.StreamTransportError{Err: err}
			}
			s.mu.Unlock()
			return
		}
		if s.terminalFrame(frame) {
			return
		}
	}
}

// terminalFrame processes one frame and reports whether the session reached
// a terminal state.
func (s *Session) terminalFrame(frame domain.Frame) bool {
	s.mu.Lock()
	if s.state == domain.StateCancelled {
		// Closed under the consumer; drop anything still in flight.
		s.mu.Unlock()
		return true
	}
	if s.state == domain.StateConnecting {
		s.state = domain.StateStreaming
	}
	s.mu.Unlock()

	switch frame.Name {
	case domain.EventDone:
		return s.handleDone(frame.Data)
	case domain.EventError:
		s.mu.Lock()
		s.state = domain.StateFailed
		s.err = &domain.StreamTransportError{Err: errServerError(frame.Data)}
		s.mu.Unlock()
		return true
	case domain.EventCursor:
		var ev domain.CursorEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			s.skipMalformed(frame.Name, err)
			return false
		}
		s.advanceCursor(ev.Cursor)
		return false
	default:
		var ev domain.ProgressEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			s.skipMalformed("progress", err)
			return false
		}
		s.applyProgress(ev)
		return false
	}
}

func (s *Session) applyProgress(ev domain.ProgressEvent) {
	s.mu.Lock()
	if ev.TotalFetched != nil {
		s.totalFetched = *ev.TotalFetched
	}
	for _, raw := range ev.Followers {
		rec, err := domain.Normalize(raw)
		if err != nil {
			s.skipMalformed("progress", err)
			continue
		}
		s.store.Offer(rec)
	}
	s.mu.Unlock()

	s.advanceCursor(ev.Cursor)
}

func (s *Session) handleDone(data []byte) bool {
	var ev domain.DoneEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		// A malformed terminal payload fails the session, unlike a
		// malformed progress frame.
		s.mu.Lock()
		s.state = domain.StateFailed
		s.err = &domain.StreamTransportError{Err: &domain.MalformedEventError{Event: domain.EventDone, Err: err}}
		s.mu.Unlock()
		return true
	}

	var final []domain.Record
	finalSeen := make(map[string]struct{})
	for _, raw := range ev.Followers {
		rec, err := domain.Normalize(raw)
		if err != nil {
			s.skipMalformed(domain.EventDone, err)
			continue
		}
		if _, dup := finalSeen[rec.Identity()]; dup {
			continue
		}
		finalSeen[rec.Identity()] = struct{}{}
		final = append(final, rec)
	}

	s.mu.Lock()
	// The terminal list supersedes the incremental store: the backend may
	// re-score or re-order in a final pass. An empty terminal list falls
	// back to the store instead.
	s.final = final
	s.state = domain.StateCompleted
	s.mu.Unlock()

	s.advanceCursor(ev.NextCursor)
	return true
}

// advanceCursor applies last-write-wins on the single cursor field; event
// processing is serial so the latest-processed cursor always wins.
func (s *Session) advanceCursor(cursor string) {
	if cursor == "" {
		return
	}
	s.mu.Lock()
	s.cursor = cursor
	cb := s.onCursor
	s.mu.Unlock()
	if cb != nil {
		cb(cursor)
	}
}

func (s *Session) skipMalformed(event string, err error) {
	log.Printf("session %s: skipping malformed event: %v", s.ID, &domain.MalformedEventError{Event: event, Err: err})
}

// Cancel closes the session immediately. Idempotent: events already
// delivered before closure were processed normally, nothing new is accepted
// afterwards.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = domain.StateCancelled
	}
	s.mu.Unlock()
	s.cancel()
}

// Done is closed once the event loop has fully stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the most recently observed resumption token, verbatim.
func (s *Session) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Records returns the displayable result set: the authoritative terminal
// list when it is non-empty, otherwise the incrementally merged store.
func (s *Session) Records() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordsLocked()
}

func (s *Session) recordsLocked() []domain.Record {
	if len(s.final) > 0 {
		out := make([]domain.Record, len(s.final))
		copy(out, s.final)
		return out
	}
	return s.store.Snapshot()
}

// Snapshot returns a consistent point-in-time view of the whole session.
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:             s.ID,
		Identifier:     s.Req.Identifier,
		Prompt:         s.Req.Prompt,
		RequestedCount: s.Req.Count,
		State:          s.state,
		Cursor:         s.cursor,
		TotalFetched:   s.totalFetched,
		Records:        s.recordsLocked(),
		Err:            s.err,
		StartedAt:      s.startedAt,
		DurationMS:     now.Sub(s.startedAt).Milliseconds(),
	}
}

type serverError []byte

func errServerError(data []byte) error { return serverError(data) }

func (e serverError) Error() string {
	if len(e) == 0 {
		return "server error event"
	}
	return "server error event: " + string(e)
}
