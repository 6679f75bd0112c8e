package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	domain "fanfilter/internal/domain/followers"
)

// Connect opens (and if needed creates) the embedded run-history database.
// Meant for single-binary deployments where running MySQL or Postgres is
// overkill.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx2, schema); err != nil {
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS filter_runs (
    id              TEXT PRIMARY KEY,
    identifier      TEXT NOT NULL,
    prompt          TEXT NOT NULL DEFAULT '',
    requested_count INTEGER NOT NULL DEFAULT 0,
    started_at      TIMESTAMP NOT NULL,
    status          TEXT NOT NULL,
    merged_count    INTEGER NOT NULL DEFAULT 0,
    total_fetched   INTEGER NOT NULL DEFAULT 0,
    last_cursor     TEXT NOT NULL DEFAULT '',
    artifact_url    TEXT NOT NULL DEFAULT '',
    duration_ms     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_filter_runs_started_at ON filter_runs(started_at);
`

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

// Save insert/update a run row
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO filter_runs
(id, identifier, prompt, requested_count, started_at, status,
 merged_count, total_fetched, last_cursor, artifact_url, duration_ms)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
 status=excluded.status,
 merged_count=excluded.merged_count, total_fetched=excluded.total_fetched,
 last_cursor=excluded.last_cursor,
 artifact_url=excluded.artifact_url, duration_ms=excluded.duration_ms;`

	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, run.Identifier, run.Prompt, run.RequestedCount, started, string(run.Status),
		run.MergedCount, run.TotalFetched, run.LastCursor, run.ArtifactURL, run.DurationMS,
	)
	return err
}

// Get by ID
func (r *RunRepository) Get(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	const q = `
SELECT id, identifier, prompt, requested_count, started_at, status,
       merged_count, total_fetched, last_cursor, artifact_url, duration_ms
FROM filter_runs
WHERE id=? LIMIT 1;`

	row := r.db.QueryRowContext(ctx, q, id)

	var run domain.Run
	var status string
	if err := row.Scan(
		&run.ID, &run.Identifier, &run.Prompt, &run.RequestedCount, &run.StartedAt, &status,
		&run.MergedCount, &run.TotalFetched, &run.LastCursor, &run.ArtifactURL, &run.DurationMS,
	); err != nil {
		return nil, err
	}
	run.Status = domain.State(status)
	return &run, nil
}

// Latest runs, newest first
func (r *RunRepository) Latest(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, identifier, prompt, requested_count, started_at, status,
       merged_count, total_fetched, last_cursor, artifact_url, duration_ms
FROM filter_runs
ORDER BY started_at DESC LIMIT ?;`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		var run domain.Run
		var status string
		if err := rows.Scan(
			&run.ID, &run.Identifier, &run.Prompt, &run.RequestedCount, &run.StartedAt, &status,
			&run.MergedCount, &run.TotalFetched, &run.LastCursor, &run.ArtifactURL, &run.DurationMS,
		); err != nil {
			return nil, err
		}
		run.Status = domain.State(status)
		out = append(out, &run)
	}
	return out, rows.Err()
}
