package service

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"fitmetrics/internal/store"
)

// decodeStreams turns stored stream rows into a StreamSet. Rows that are not
// numeric arrays (latlng pairs, for example) are skipped.
func decodeStreams(activityID string, rows []store.RawStream, logger *zap.SugaredLogger) store.StreamSet {
	streams := make(store.StreamSet, len(rows))
	for _, row := range rows {
		series, err := store.ParseStream(row.RawJSON)
		if err != nil {
			logger.Debugw("Skipping non-numeric stream", "activity_id", activityID, "stream", row.Kind, "error", err)
			continue
		}
		streams[row.Kind] = series
	}
	return streams
}

// FormatPace formats seconds per km as "M:SS"
func FormatPace(secPerKm float64) string {
	if math.IsNaN(secPerKm) || math.IsInf(secPerKm, 0) || secPerKm < 0 {
		return "-"
	}
	seconds := int(math.Round(secPerKm))
	mins := seconds / SecondsPerMinute
	secs := seconds % SecondsPerMinute
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// FormatDuration formats seconds as "H:MM:SS" or "M:SS"
func FormatDuration(seconds float64) string {
	total := int(math.Round(seconds))
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
