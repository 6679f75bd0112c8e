package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "fanfilter/internal/domain/followers"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save insert/update a run row. Rows are upserted because a run is written
// once when it starts and again on its terminal transition.
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO filter_runs
(id, identifier, prompt, requested_count, started_at, status,
 merged_count, total_fetched, last_cursor, artifact_url, duration_ms)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 merged_count=VALUES(merged_count), total_fetched=VALUES(total_fetched),
 last_cursor=VALUES(last_cursor),
 artifact_url=VALUES(artifact_url), duration_ms=VALUES(duration_ms);
`
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
WHERE id=? LIMIT 1;
`
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
ORDER BY started_at DESC LIMIT ?;
`
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
