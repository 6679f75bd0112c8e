package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"fanfilter/internal/application"
	domain "fanfilter/internal/domain/followers"
)

// ErrSessionNotFound is returned when no session exists for the given run ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoRecords is returned when an export is requested with zero accumulated
// records. Exporting nothing is a no-op, not a failure.
var ErrNoRecords = errors.New("no records accumulated")

// Service implements the use-cases around stream sessions.
//
// It owns the one-active-session invariant: starting a new run cancels the
// prior live connection before the new one opens, so no two connections ever
// stream concurrently. Terminal sessions stay retrievable for export and
// display.
type Service struct {
	Streams     domain.StreamOpener
	Repo        domain.RunRepository
	Artifacts   domain.ArtifactStore
	Checkpoints domain.CheckpointStore
	Clock       application.Clock

	// startMu serializes the cancel-prior / open / publish sequence so two
	// concurrent starts can never both observe the same prior session and
	// leave two live connections.
	startMu sync.Mutex

	mu       sync.Mutex
	active   *Session
	sessions map[domain.RunID]*Session
}

// NewService wires the service. Repo, Artifacts and Checkpoints may be nil;
// the corresponding side effects are skipped.
func NewService(streams domain.StreamOpener, repo domain.RunRepository, artifacts domain.ArtifactStore, checkpoints domain.CheckpointStore, clock application.Clock) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{
		Streams:     streams,
		Repo:        repo,
		Artifacts:   artifacts,
		Checkpoints: checkpoints,
		Clock:       clock,
		sessions:    make(map[domain.RunID]*Session),
	}
}

// StartCommand is the raw operator input for one run.
type StartCommand struct {
	Identifier string
	Count      string
	Prompt     string
	Cursor     string
	// Resume pulls the checkpointed cursor for the identifier when no
	// explicit cursor was given.
	Resume bool
}

// Start validates the command, tears down any prior live session, opens the
// stream and begins consuming it in the background. Validation failures
// surface before any connection attempt and touch no state.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Session, error) {
	req, err := domain.BuildRequest(cmd.Identifier, cmd.Count, cmd.Prompt, cmd.Cursor)
	if err != nil {
		return nil, err
	}
	if req.Cursor == "" && cmd.Resume && s.Checkpoints != nil {
		cur, err := s.Checkpoints.Cursor(req.Identifier)
		switch {
		case err == nil:
			req.Cursor = cur
		case errors.Is(err, domain.ErrNoCheckpoint):
			// First run for this identifier; start from the beginning.
		default:
			log.Printf("checkpoint lookup failed for %s: %v", req.Identifier, err)
		}
	}

	// One live connection at a time: cancel-then-start, not caller
	// discipline. Held until the new session is published so concurrent
	// starts serialize instead of both surviving.
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	prior := s.active
	s.mu.Unlock()
	if prior != nil && !prior.State().Terminal() {
		prior.Cancel()
		<-prior.Done()
	}

	id := domain.RunID(uuid.New().String())
	streamCtx, cancel := context.WithCancel(context.Background())
	sess := newSession(id, req, s.Clock.Now(), cancel, func(cursor string) {
		if s.Checkpoints == nil {
			return
		}
		if err := s.Checkpoints.SaveCursor(req.Identifier, cursor); err != nil {
			log.Printf("checkpoint save failed for %s: %v", req.Identifier, err)
		}
	})

	reader, err := s.Streams.Open(streamCtx, req)
	if err != nil {
		cancel()
		return nil, &domain.StreamTransportError{Err: err}
	}

	s.mu.Lock()
	s.active = sess
	s.sessions[id] = sess
	s.mu.Unlock()

	s.saveRun(sess.Snapshot(s.Clock.Now()), "")

	go func() {
		sess.run(reader)
		s.finishRun(sess)
	}()

	return sess, nil
}

// Get returns the session for a run ID, live or terminal.
func (s *Service) Get(id domain.RunID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Cancel stops the session's connection immediately. Whatever partial state
// exists is retained as a snapshot. Safe to call twice.
func (s *Service) Cancel(id domain.RunID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.Cancel()
	<-sess.Done()
	return nil
}

// Export renders the session's current records as CSV, live or terminal.
// Returns ErrNoRecords when nothing has accumulated yet.
func (s *Service) Export(id domain.RunID) (data []byte, filename string, err error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}
	records := sess.Records()
	if len(records) == 0 {
		return nil, "", ErrNoRecords
	}
	return []byte(domain.ExportCSV(records)), domain.ExportFilename(sess.Req.Identifier), nil
}

// Latest returns recent run rows from the repository.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Run, error) {
	if s.Repo == nil {
		return nil, nil
	}
	return s.Repo.Latest(ctx, limit)
}

// finishRun runs after the event loop stops: upload the artifact for a
// completed run, then persist the terminal row.
func (s *Service) finishRun(sess *Session) {
	snap := sess.Snapshot(s.Clock.Now())

	artifactURL := ""
	if snap.State == domain.StateCompleted && len(snap.Records) > 0 && s.Artifacts != nil {
		key := fmt.Sprintf("%s/%s/%s", snap.Identifier, snap.ID, domain.ExportFilename(snap.Identifier))
		url, err := s.Artifacts.Upload(context.Background(), key, []byte(domain.ExportCSV(snap.Records)), "text/csv")
		if err != nil {
			log.Printf("artifact upload failed for run %s: %v", snap.ID, err)
		} else {
			artifactURL = url
		}
	}

	s.saveRun(snap, artifactURL)

	if snap.Err != nil {
		log.Printf("run %s ended %s: %v (merged=%d cursor=%q)", snap.ID, snap.State, snap.Err, len(snap.Records), snap.Cursor)
	} else {
		log.Printf("run %s ended %s (merged=%d)", snap.ID, snap.State, len(snap.Records))
	}
}

func (s *Service) saveRun(snap Snapshot, artifactURL string) {
	if s.Repo == nil {
		return
	}
	run := &domain.Run{
		ID:             snap.ID,
		Identifier:     snap.Identifier,
		Prompt:         snap.Prompt,
		RequestedCount: snap.RequestedCount,
		StartedAt:      snap.StartedAt,
		Status:         snap.State,
		MergedCount:    len(snap.Records),
		TotalFetched:   snap.TotalFetched,
		LastCursor:     snap.Cursor,
		ArtifactURL:    artifactURL,
		DurationMS:     snap.DurationMS,
	}
	if err := s.Repo.Save(context.Background(), run); err != nil {
		log.Printf("run save failed for %s: %v", snap.ID, err)
	}
}
