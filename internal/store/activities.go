package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertRawActivity inserts or replaces a raw activity summary
func (s *Store) UpsertRawActivity(ctx context.Context, a *RawActivity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities_raw (activity_id, source_id, start_time, raw_json, user_id, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			source_id = excluded.source_id,
			start_time = excluded.start_time,
			raw_json = excluded.raw_json,
			user_id = excluded.user_id,
			updated_at = CURRENT_TIMESTAMP
	`, a.ActivityID, a.SourceID, a.StartTime, a.RawJSON, a.UserID)
	if err != nil {
		return fmt.Errorf("upserting raw activity %s: %w", a.ActivityID, err)
	}
	return nil
}

// GetRawActivity retrieves a raw activity by ID
func (s *Store) GetRawActivity(ctx context.Context, activityID string) (*RawActivity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT activity_id, source_id, start_time, raw_json, user_id
		FROM activities_raw
		WHERE activity_id = ?
	`, activityID)

	var a RawActivity
	var userID sql.NullString
	err := row.Scan(&a.ActivityID, &a.SourceID, &a.StartTime, &a.RawJSON, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	a.UserID = nullStringPtr(userID)
	return &a, nil
}

// ListRawActivities returns every raw activity ordered by start time
func (s *Store) ListRawActivities(ctx context.Context) ([]RawActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT activity_id, source_id, start_time, raw_json, user_id
		FROM activities_raw
		ORDER BY start_time, activity_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []RawActivity
	for rows.Next() {
		var a RawActivity
		var userID sql.NullString
		if err := rows.Scan(&a.ActivityID, &a.SourceID, &a.StartTime, &a.RawJSON, &userID); err != nil {
			return nil, err
		}
		a.UserID = nullStringPtr(userID)
		activities = append(activities, a)
	}

	return activities, rows.Err()
}

// CountRawActivities returns the number of raw activities
func (s *Store) CountRawActivities(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM activities_raw")
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
