package store

import (
	"context"
	"database/sql"
	"errors"
)

// Keys stored in pipeline_state.
const (
	StateLastRunID   = "last_run_id"
	StateLastSuccess = "last_success_at"
)

// GetState retrieves a pipeline state value by key.
// Returns empty string if key doesn't exist
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM pipeline_state WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetState sets a pipeline state value
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}
