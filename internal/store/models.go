package store

import (
	"time"

	"fitmetrics/internal/signal"
)

// Stream kinds read by the pipeline.
const (
	StreamTime      = "time"
	StreamDistance  = "distance"
	StreamHeartRate = "heartrate"
	StreamCadence   = "cadence"
	StreamAltitude  = "altitude"
)

// Run statuses recorded in pipeline_runs.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusError   = "error"
)

// RawActivity is an activity summary as stored by ingestion. The pipeline
// never modifies it.
type RawActivity struct {
	ActivityID string  `db:"activity_id"`
	SourceID   string  `db:"source_id"`
	StartTime  string  `db:"start_time"` // ISO 8601
	RawJSON    string  `db:"raw_json"`
	UserID     *string `db:"user_id"` // nullable
}

// StreamSet maps a stream kind to its index-synchronized samples.
type StreamSet map[string]signal.Series

// Get returns the stream for kind, or nil when absent.
func (s StreamSet) Get(kind string) signal.Series {
	if s == nil {
		return nil
	}
	return s[kind]
}

// Has reports whether kind is present with at least one sample.
func (s StreamSet) Has(kind string) bool {
	return len(s.Get(kind)) > 0
}

// Aligned reports whether every listed stream is present and all share a
// length.
func (s StreamSet) Aligned(kinds ...string) bool {
	n := -1
	for _, k := range kinds {
		series := s.Get(k)
		if len(series) == 0 {
			return false
		}
		if n >= 0 && len(series) != n {
			return false
		}
		n = len(series)
	}
	return n > 0
}

// Weather is the optional per-activity weather snapshot.
type Weather struct {
	TempC   *float64
	WindKmh *float64
}

// ZoneSummary holds time spent per heart-rate zone plus the parameters used.
type ZoneSummary struct {
	Seconds [5]float64 // z1..z5
	Score   float64
	Label   string
	MaxHR   float64
	RestHR  float64
	Method  string
}

// DerivedMetrics is everything the pipeline computes for one activity. It is
// fully replaced on every run.
type DerivedMetrics struct {
	ActivityID   string  `db:"activity_id"`
	SourceID     string  `db:"source_id"`
	UserID       *string `db:"user_id"`
	StartTime    string  `db:"start_time"`
	WeekStart    string  `db:"week_start"` // Monday (UTC) of StartTime, empty if unparseable
	Name         string  `db:"name"`
	ActivityType string  `db:"activity_type"`

	DistanceM   float64  `db:"distance_m"`
	MovingS     float64  `db:"moving_s"`
	ElevGain    *float64 `db:"elev_gain"`
	AvgSpeedMps *float64 `db:"avg_speed_mps"`
	AvgHRRaw    *float64 `db:"avg_hr_raw"`

	AvgHRNorm          *float64 `db:"avg_hr_norm"`
	FlatPaceSec        *float64 `db:"flat_pace_sec"`         // s/km
	FlatPaceWeatherSec *float64 `db:"flat_pace_weather_sec"` // s/km
	FlatTime           *float64 `db:"flat_time"`             // seconds
	FlatDist           *float64 `db:"flat_dist"`             // meters
	CadenceAvg         *float64 `db:"cadence_avg"`           // spm
	StrideLen          *float64 `db:"stride_len"`            // meters
	HRDrift            *float64 `db:"hr_drift"`              // bpm
	Decoupling         *float64 `db:"decoupling"`            // percent

	Zones *ZoneSummary

	HRNormCurve  signal.Series
	PaceCurve    signal.Series
	CadenceCurve signal.Series
	HRCurve      signal.Series

	Warnings []string
}

// IsRun reports whether the activity feeds the running-specific tables.
func (m *DerivedMetrics) IsRun() bool {
	return m.ActivityType == "run"
}

// PipelineRun is the accounting record for one pipeline invocation.
type PipelineRun struct {
	ID                  string     `db:"id"`
	StartedAt           time.Time  `db:"started_at"`
	FinishedAt          *time.Time `db:"finished_at"`
	Status              string     `db:"status"`
	ActivitiesProcessed int        `db:"activities_processed"` // raw activities seen
	StreamsProcessed    int        `db:"streams_processed"`
	WeatherProcessed    int        `db:"weather_processed"` // distinct activities with weather
	ActivitiesSucceeded int        `db:"activities_succeeded"`
	ActivitiesFailed    int        `db:"activities_failed"`
	Message             *string    `db:"message"`
	DurationSec         *float64   `db:"duration_sec"`
}

// WeeklySummary is one row of the metrics_weekly view.
type WeeklySummary struct {
	WeekStart     string   `db:"week_start"`
	Runs          int      `db:"runs"`
	DistanceM     float64  `db:"distance_m"`
	MovingS       float64  `db:"moving_s"`
	AvgFlatPace   *float64 `db:"avg_flat_pace_sec"`
	AvgHRNorm     *float64 `db:"avg_hr_norm"`
	AvgDecoupling *float64 `db:"avg_decoupling"`
}
