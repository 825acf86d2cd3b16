package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveWeather stores the weather snapshot JSON for an activity
func (s *Store) SaveWeather(ctx context.Context, activityID, rawJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_raw (activity_id, raw_json, fetched_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			raw_json = excluded.raw_json,
			fetched_at = CURRENT_TIMESTAMP
	`, activityID, rawJSON)
	if err != nil {
		return fmt.Errorf("saving weather for %s: %w", activityID, err)
	}
	return nil
}

// GetRawWeather returns the stored snapshot JSON, or "" when none exists
func (s *Store) GetRawWeather(ctx context.Context, activityID string) (string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT raw_json FROM weather_raw WHERE activity_id = ?
	`, activityID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return raw, nil
}

// CountWeatherActivities returns the number of distinct activities with weather
func (s *Store) CountWeatherActivities(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(DISTINCT activity_id) FROM weather_raw")
}
