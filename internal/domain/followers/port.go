package followers

import "context"

// StreamOpener port (interface to the backend filtering endpoint)
type StreamOpener interface {
	Open(ctx context.Context, req FilterRequest) (EventReader, error)
}

// EventReader delivers raw frames in arrival order. Next blocks until the
// next frame, returns io.EOF semantics as an error when the connection ends
// without a terminal event, and Close is idempotent.
type EventReader interface {
	Next() (Frame, error)
	Close() error
}

// RunRepository port (interface for run-history persistence)
type RunRepository interface {
	Save(ctx context.Context, r *Run) error
	Get(ctx context.Context, id RunID) (*Run, error)
	Latest(ctx context.Context, limit int) ([]*Run, error)
}

// ArtifactStore port (interface for exported artifact storage)
type ArtifactStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// CheckpointStore port (interface for cursor resumption persistence).
// Cursor returns ErrNoCheckpoint when nothing was ever saved for the
// identifier.
type CheckpointStore interface {
	SaveCursor(identifier, cursor string) error
	Cursor(identifier string) (string, error)
}
