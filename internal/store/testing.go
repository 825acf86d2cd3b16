package store

import (
	"database/sql"
)

// NewTestStore wraps an already opened database (typically ":memory:"),
// applying the same pragmas and migrations as Open.
// This is only intended for use in tests.
func NewTestStore(sqlDB *sql.DB) (*Store, error) {
	return setup(sqlDB)
}
