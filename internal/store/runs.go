package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StartRun records a new pipeline run with status running
func (s *Store) StartRun(ctx context.Context, startedAt time.Time) (*PipelineRun, error) {
	run := &PipelineRun{
		ID:        uuid.NewString(),
		StartedAt: startedAt.UTC(),
		Status:    RunStatusRunning,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, started_at, status)
		VALUES (?, ?, ?)
	`, run.ID, run.StartedAt.Format(time.RFC3339Nano), run.Status)
	if err != nil {
		return nil, fmt.Errorf("inserting pipeline run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final status, counters and duration of a run
func (s *Store) FinishRun(ctx context.Context, run *PipelineRun) error {
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_runs SET
			finished_at = ?,
			status = ?,
			activities_processed = ?,
			streams_processed = ?,
			weather_processed = ?,
			activities_succeeded = ?,
			activities_failed = ?,
			message = ?,
			duration_sec = ?
		WHERE id = ?
	`,
		finished, run.Status,
		run.ActivitiesProcessed, run.StreamsProcessed, run.WeatherProcessed,
		run.ActivitiesSucceeded, run.ActivitiesFailed,
		run.Message, run.DurationSec, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating pipeline run %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(ctx context.Context, id string) (*PipelineRun, error) {
	return s.scanRun(s.db.QueryRowContext(ctx, runSelect+` WHERE id = ?`, id))
}

// LatestRun returns the most recently started run
func (s *Store) LatestRun(ctx context.Context) (*PipelineRun, error) {
	return s.scanRun(s.db.QueryRowContext(ctx, runSelect+` ORDER BY started_at DESC LIMIT 1`))
}

const runSelect = `
	SELECT id, started_at, finished_at, status,
		activities_processed, streams_processed, weather_processed,
		activities_succeeded, activities_failed, message, duration_sec
	FROM pipeline_runs`

func (s *Store) scanRun(row *sql.Row) (*PipelineRun, error) {
	var r PipelineRun
	var started string
	var finished, message sql.NullString
	var duration sql.NullFloat64
	err := row.Scan(
		&r.ID, &started, &finished, &r.Status,
		&r.ActivitiesProcessed, &r.StreamsProcessed, &r.WeatherProcessed,
		&r.ActivitiesSucceeded, &r.ActivitiesFailed, &message, &duration,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if finished.Valid {
		t, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		r.FinishedAt = &t
	}
	r.Message = nullStringPtr(message)
	r.DurationSec = nullFloatPtr(duration)
	return &r, nil
}
