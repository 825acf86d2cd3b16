package store

import (
	"context"
	"encoding/json"
	"fmt"

	"fitmetrics/internal/signal"
)

// SaveStream stores one stream kind for an activity as {"data": [...]},
// replacing any previous copy.
func (s *Store) SaveStream(ctx context.Context, activityID, kind string, data signal.Series) error {
	raw, err := json.Marshal(map[string]signal.Series{"data": data})
	if err != nil {
		return fmt.Errorf("encoding %s stream: %w", kind, err)
	}
	return s.SaveRawStream(ctx, activityID, kind, string(raw))
}

// SaveRawStream stores stream JSON as received
func (s *Store) SaveRawStream(ctx context.Context, activityID, kind, rawJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streams_raw (activity_id, stream_type, raw_json)
		VALUES (?, ?, ?)
		ON CONFLICT(activity_id, stream_type) DO UPDATE SET
			raw_json = excluded.raw_json
	`, activityID, kind, rawJSON)
	if err != nil {
		return fmt.Errorf("saving %s stream for %s: %w", kind, activityID, err)
	}
	return nil
}

// RawStream is an undecoded stream row.
type RawStream struct {
	Kind    string
	RawJSON string
}

// GetRawStreams retrieves all stream rows for an activity
func (s *Store) GetRawStreams(ctx context.Context, activityID string) ([]RawStream, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stream_type, raw_json
		FROM streams_raw
		WHERE activity_id = ?
		ORDER BY stream_type
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var streams []RawStream
	for rows.Next() {
		var r RawStream
		if err := rows.Scan(&r.Kind, &r.RawJSON); err != nil {
			return nil, err
		}
		streams = append(streams, r)
	}

	return streams, rows.Err()
}

// CountStreams returns the number of stored stream rows
func (s *Store) CountStreams(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM streams_raw")
}
