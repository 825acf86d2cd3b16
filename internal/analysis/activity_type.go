package analysis

import (
	"strings"
	"time"
)

// NormalizeActivityType folds source sport names into the small set the
// read paths group by. Unknown types pass through lowercased.
func NormalizeActivityType(value string) string {
	raw := strings.ToLower(strings.TrimSpace(value))
	switch raw {
	case "run", "trail run", "virtual run", "trailrun", "virtualrun":
		return "run"
	case "walk", "hike", "walk/run":
		return "walk"
	case "golf":
		return "golf"
	case "":
		return "unknown"
	}
	return raw
}

// startTimeLayouts are the ISO 8601 forms accepted for start times. Layouts
// without an offset are read as UTC.
var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseStartTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// WeekStart returns the Monday (UTC) of the week containing an ISO 8601
// timestamp, formatted as YYYY-MM-DD.
func WeekStart(startTime string) (string, bool) {
	t, ok := parseStartTime(startTime)
	if !ok {
		return "", false
	}
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
	return monday.Format(time.DateOnly), true
}
