package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fitmetrics/internal/analysis"
	"fitmetrics/internal/errreport"
	"fitmetrics/internal/freshness"
	"fitmetrics/internal/signal"
	"fitmetrics/internal/store"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	st, err := store.NewTestStore(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// seedFixtures stores three activities: A1 with every stream, B1 without
// heart rate and with an unreadable weather snapshot, and M1 whose payload
// cannot be decoded.
func seedFixtures(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()

	activities := []store.RawActivity{
		{ActivityID: "A1", SourceID: "strava", StartTime: "2026-02-01T12:00:00Z",
			RawJSON: `{"sport_type":"Run","name":"Run A","distance":1000,"moving_time":300,"average_speed":3.33,"total_elevation_gain":5}`},
		{ActivityID: "B1", SourceID: "strava", StartTime: "2026-02-02T08:00:00Z",
			RawJSON: `{"type":"Run","name":"Run B","distance":1000,"moving_time":300,"average_speed":3.33}`},
		{ActivityID: "M1", SourceID: "strava", StartTime: "2026-02-03T08:00:00Z",
			RawJSON: `{"sport_type":"Run","distance":"far"}`},
	}
	for i := range activities {
		require.NoError(t, st.UpsertRawActivity(ctx, &activities[i]))
	}

	common := map[string]signal.Series{
		store.StreamTime:     {0, 60, 120, 180, 240, 300},
		store.StreamDistance: {0, 200, 400, 600, 800, 1000},
		store.StreamAltitude: {0, 1, 2, 3, 4, 5},
		store.StreamCadence:  {80, 82, 84, 86, 88, 90},
	}
	for _, id := range []string{"A1", "B1"} {
		for kind, data := range common {
			require.NoError(t, st.SaveStream(ctx, id, kind, data))
		}
	}
	require.NoError(t, st.SaveStream(ctx, "A1", store.StreamHeartRate, signal.Series{140, 145, 150, 155, 160, 165}))
	require.NoError(t, st.SaveRawStream(ctx, "A1", "latlng", `{"data":[[1,2],[3,4]]}`))

	require.NoError(t, st.SaveWeather(ctx, "A1", `{"temp_c":28,"wind_kmh":5}`))
	require.NoError(t, st.SaveWeather(ctx, "B1", `{"temp_c":"hot"}`))
}

func newTestPipeline(st *store.Store, marker *freshness.Marker, workers int) *PipelineService {
	logger := zap.NewNop().Sugar()
	reporter, _ := errreport.New(errreport.Config{}, logger)
	return NewPipelineService(st, analysis.DefaultZones(), marker, reporter, logger, workers)
}

func derivedJSON(t *testing.T, st *store.Store, id string) string {
	t.Helper()
	m, err := st.GetDerivedMetrics(context.Background(), id)
	require.NoError(t, err)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return string(data)
}

func TestRunProcessesAllActivities(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixtures(t, st)
	marker := freshness.NewMarker(filepath.Join(t.TempDir(), "last_update.json"))

	result, err := newTestPipeline(st, marker, 1).Run(ctx, nil)
	require.NoError(t, err)

	run := result.Run
	assert.Equal(t, store.RunStatusOK, run.Status)
	assert.Equal(t, 3, run.ActivitiesProcessed)
	assert.Equal(t, 10, run.StreamsProcessed)
	assert.Equal(t, 2, run.WeatherProcessed)
	assert.Equal(t, 2, run.ActivitiesSucceeded)
	assert.Equal(t, 1, run.ActivitiesFailed)
	require.NotNil(t, run.DurationSec)
	require.NotNil(t, run.FinishedAt)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "M1", result.Failures[0].ActivityID)
	assert.Equal(t, KindMalformed, result.Failures[0].Kind)
	assert.ErrorIs(t, result.Failures[0], store.ErrMalformed)

	assert.True(t, result.MarkerWritten)
	_, err = marker.Read()
	require.NoError(t, err)

	stored, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
	assert.Equal(t, store.RunStatusOK, stored.Status)
	assert.Equal(t, 1, stored.ActivitiesFailed)

	lastRun, err := st.GetState(ctx, store.StateLastRunID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, lastRun)

	a1, err := st.GetDerivedMetrics(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, a1.FlatPaceSec)
	assert.Greater(t, *a1.FlatPaceSec, 300.0)
	require.NotNil(t, a1.FlatPaceWeatherSec)
	assert.InDelta(t, *a1.FlatPaceSec*1.05, *a1.FlatPaceWeatherSec, 1e-6)
	assert.NotNil(t, a1.Decoupling)
	assert.NotNil(t, a1.Zones)

	b1, err := st.GetDerivedMetrics(ctx, "B1")
	require.NoError(t, err)
	assert.Nil(t, b1.AvgHRNorm)
	assert.Nil(t, b1.Decoupling)
	assert.NotNil(t, b1.FlatPaceSec)
	assert.Equal(t, *b1.FlatPaceSec, *b1.FlatPaceWeatherSec)
	assert.Contains(t, b1.Warnings, WarnWeatherUnreadable)
	assert.Contains(t, b1.Warnings, analysis.WarnNoHeartRate)

	_, err = st.GetDerivedMetrics(ctx, "M1")
	assert.ErrorIs(t, err, store.ErrActivityNotFound)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixtures(t, st)
	pipeline := newTestPipeline(st, nil, 1)

	_, err := pipeline.Run(ctx, nil)
	require.NoError(t, err)
	firstA1 := derivedJSON(t, st, "A1")
	firstB1 := derivedJSON(t, st, "B1")

	_, err = pipeline.Run(ctx, nil)
	require.NoError(t, err)
	assert.JSONEq(t, firstA1, derivedJSON(t, st, "A1"))
	assert.JSONEq(t, firstB1, derivedJSON(t, st, "B1"))
}

func TestRunOutputIndependentOfWorkers(t *testing.T) {
	ctx := context.Background()

	sequential := newTestStore(t)
	seedFixtures(t, sequential)
	_, err := newTestPipeline(sequential, nil, 1).Run(ctx, nil)
	require.NoError(t, err)

	parallel := newTestStore(t)
	seedFixtures(t, parallel)
	result, err := newTestPipeline(parallel, nil, 4).Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Run.ActivitiesSucceeded)
	assert.Equal(t, 1, result.Run.ActivitiesFailed)

	for _, id := range []string{"A1", "B1"} {
		assert.JSONEq(t, derivedJSON(t, sequential, id), derivedJSON(t, parallel, id), id)
	}
}

func TestRunReportsProgress(t *testing.T) {
	st := newTestStore(t)
	seedFixtures(t, st)

	progress := make(chan RunProgress)
	var updates []RunProgress
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			updates = append(updates, p)
		}
	}()

	_, err := newTestPipeline(st, nil, 1).Run(context.Background(), progress)
	require.NoError(t, err)
	<-done

	require.Len(t, updates, 4)
	assert.Equal(t, 0, updates[0].Completed)
	last := updates[len(updates)-1]
	assert.Equal(t, 3, last.Total)
	assert.Equal(t, 3, last.Completed)
	assert.Equal(t, "M1", last.CurrentActivity)
	assert.Error(t, last.Error)
}

func TestRunParallelProgressWithSlowConsumer(t *testing.T) {
	st := newTestStore(t)
	seedFixtures(t, st)

	progress := make(chan RunProgress)
	var updates []RunProgress
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			time.Sleep(10 * time.Millisecond)
			updates = append(updates, p)
		}
	}()

	result, err := newTestPipeline(st, nil, 3).Run(context.Background(), progress)
	require.NoError(t, err)
	<-done

	assert.Equal(t, 2, result.Run.ActivitiesSucceeded)
	assert.Equal(t, 1, result.Run.ActivitiesFailed)

	require.Len(t, updates, 4)
	seen := map[int]bool{}
	for _, u := range updates[1:] {
		assert.Equal(t, 3, u.Total)
		seen[u.Completed] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
}

func TestRunActivityWithoutStreamsGetsRow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixtures(t, st)
	require.NoError(t, st.UpsertRawActivity(ctx, &store.RawActivity{
		ActivityID: "N1",
		SourceID:   "strava",
		StartTime:  "2026-02-04T08:00:00Z",
		RawJSON:    `{"sport_type":"Run","name":"Treadmill","distance":5000,"moving_time":1500}`,
	}))

	result, err := newTestPipeline(st, nil, 1).Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Run.ActivitiesProcessed)
	assert.Equal(t, 3, result.Run.ActivitiesSucceeded)

	n1, err := st.GetDerivedMetrics(ctx, "N1")
	require.NoError(t, err)
	assert.Equal(t, "run", n1.ActivityType)
	assert.Equal(t, 5000.0, n1.DistanceM)
	assert.Nil(t, n1.FlatPaceSec)
	assert.Nil(t, n1.FlatPaceWeatherSec)
	assert.Nil(t, n1.AvgHRNorm)
	assert.Nil(t, n1.HRDrift)
	assert.Nil(t, n1.Decoupling)
	assert.Nil(t, n1.Zones)
	assert.Nil(t, n1.CadenceAvg)
	assert.Empty(t, n1.PaceCurve)
	assert.Empty(t, n1.HRCurve)
	assert.Contains(t, n1.Warnings, analysis.WarnNoTimeDistance)
}

func TestRunStorageFailureAborts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixtures(t, st)
	markerPath := filepath.Join(t.TempDir(), "last_update.json")

	_, err := st.DB().ExecContext(ctx, `DROP TABLE activity_details_run`)
	require.NoError(t, err)

	result, err := newTestPipeline(st, freshness.NewMarker(markerPath), 1).Run(ctx, nil)
	require.Error(t, err)

	var perr *ProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindStorage, perr.Kind)
	assert.Equal(t, "A1", perr.ActivityID)

	require.NotNil(t, result)
	assert.False(t, result.MarkerWritten)
	_, statErr := os.Stat(markerPath)
	assert.True(t, os.IsNotExist(statErr))

	stored, err := st.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusError, stored.Status)
	require.NotNil(t, stored.Message)
	assert.Contains(t, *stored.Message, "A1")
}

func TestRunCancelledLeavesMarker(t *testing.T) {
	st := newTestStore(t)
	seedFixtures(t, st)
	markerPath := filepath.Join(t.TempDir(), "last_update.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progress := make(chan RunProgress)
	go func() {
		for range progress {
			cancel()
		}
	}()

	result, err := newTestPipeline(st, freshness.NewMarker(markerPath), 1).Run(ctx, progress)
	require.Error(t, err)
	assert.False(t, result.MarkerWritten)
	_, statErr := os.Stat(markerPath)
	assert.True(t, os.IsNotExist(statErr))

	stored, err := st.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusError, stored.Status)
}

func TestProcessActivityMalformed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixtures(t, st)

	raw, err := st.GetRawActivity(ctx, "M1")
	require.NoError(t, err)

	_, err = newTestPipeline(st, nil, 1).ProcessActivity(ctx, *raw)
	var perr *ProcessingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindMalformed, perr.Kind)
	assert.Equal(t, "M1", perr.ActivityID)
	assert.ErrorIs(t, err, store.ErrMalformed)
	assert.Contains(t, err.Error(), "activity M1: malformed")
}

func TestProcessActivitySwitchingTypeDropsRunDetails(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedFixtures(t, st)
	pipeline := newTestPipeline(st, nil, 1)

	raw, err := st.GetRawActivity(ctx, "A1")
	require.NoError(t, err)
	_, err = pipeline.ProcessActivity(ctx, *raw)
	require.NoError(t, err)

	countDetails := func() int {
		var n int
		require.NoError(t, st.DB().QueryRowContext(ctx,
			`SELECT COUNT(*) FROM activity_details_run WHERE activity_id = 'A1'`).Scan(&n))
		return n
	}
	assert.Equal(t, 1, countDetails())

	raw.RawJSON = `{"sport_type":"Hike","name":"Walk A","distance":1000,"moving_time":900}`
	require.NoError(t, st.UpsertRawActivity(ctx, raw))
	m, err := pipeline.ProcessActivity(ctx, *raw)
	require.NoError(t, err)
	assert.Equal(t, "walk", m.ActivityType)
	assert.Equal(t, 0, countDetails())
}

func TestFormatPace(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "0:00"},
		{30, "0:30"},
		{299.6, "5:00"},
		{359, "5:59"},
		{600, "10:00"},
		{-1, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatPace(tt.seconds); got != tt.expected {
				t.Errorf("FormatPace(%v) = %q, want %q", tt.seconds, got, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{300, "5:00"},
		{3600, "1:00:00"},
		{3725.4, "1:02:05"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.expected {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.expected)
			}
		})
	}
}
