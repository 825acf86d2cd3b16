package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"fitmetrics/internal/signal"
)

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// seriesJSON encodes a curve, storing NULL for an empty one.
func seriesJSON(s signal.Series) (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func parseSeriesJSON(ns sql.NullString) (signal.Series, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var values []*float64
	if err := json.Unmarshal([]byte(ns.String), &values); err != nil {
		return nil, fmt.Errorf("decoding curve: %w", err)
	}
	return signal.FromNullable(values), nil
}
