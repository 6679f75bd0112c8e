package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "fanfilter/internal/domain/followers"
)

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

// Save insert/update a run row
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO filter_runs
(id, identifier, prompt, requested_count, started_at, status,
 merged_count, total_fetched, last_cursor, artifact_url, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 merged_count = EXCLUDED.merged_count,
 total_fetched = EXCLUDED.total_fetched,
 last_cursor = EXCLUDED.last_cursor,
 artifact_url = EXCLUDED.artifact_url,
 duration_ms = EXCLUDED.duration_ms;`

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
WHERE id=$1 LIMIT 1;`

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
ORDER BY started_at DESC LIMIT $1;`

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
