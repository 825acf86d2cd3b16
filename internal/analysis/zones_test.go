package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitmetrics/internal/signal"
)

func TestHRZonesBounds(t *testing.T) {
	z := HRZones{RestingHR: 50, MaxHR: 190, Method: "hrr"}
	b := z.Bounds()
	assert.InDelta(t, 120, b[0], 1e-9)
	assert.InDelta(t, 134, b[1], 1e-9)
	assert.InDelta(t, 148, b[2], 1e-9)
	assert.InDelta(t, 162, b[3], 1e-9)
	assert.InDelta(t, 176, b[4], 1e-9)

	tests := []struct {
		hr   float64
		zone int
	}{
		{60, 1},
		{125, 1},
		{133.9, 1},
		{134.5, 2},
		{148.5, 3},
		{161, 3},
		{162.5, 4},
		{176.5, 5},
		{200, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.zone, z.Zone(tt.hr), "hr %v", tt.hr)
	}
}

func TestZoneLabel(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{1.0, "Recovery"},
		{1.49, "Recovery"},
		{1.5, "Endurance"},
		{2.49, "Endurance"},
		{2.5, "Tempo"},
		{3.5, "Threshold"},
		{4.49, "Threshold"},
		{4.5, "VO2"},
		{5.0, "VO2"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := ZoneLabel(tt.score); got != tt.expected {
				t.Errorf("ZoneLabel(%v) = %q, want %q", tt.score, got, tt.expected)
			}
		})
	}
}

func TestComputeZoneTimes(t *testing.T) {
	zones := HRZones{RestingHR: 50, MaxHR: 190, Method: "hrr"}
	times := signal.Series{0, 10, 20, 30, 40, 50, 60}
	hr := signal.Series{100, 125, 140, 150, 170, 180, 30}

	result := ComputeZoneTimes(times, hr, zones)
	require.NotNil(t, result)

	// Steps ending at 125 (z1), 140 (z2), 150 (z3), 170 (z4), 180 (z5); the
	// last step ends on an implausible reading.
	assert.Equal(t, [5]float64{10, 10, 10, 10, 10}, result.Seconds)
	assert.InDelta(t, 3.0, result.Score, 1e-9)
	assert.Equal(t, "Tempo", result.Label)
	assert.Equal(t, 190.0, result.MaxHR)
	assert.Equal(t, 50.0, result.RestHR)
	assert.Equal(t, "hrr", result.Method)
}

func TestZoneTimeConservation(t *testing.T) {
	zones := DefaultZones()
	times := make(signal.Series, 200)
	hr := make(signal.Series, 200)
	clock := 0.0
	for i := range times {
		// irregular sampling with a few repeated timestamps
		if i%17 != 0 {
			clock += float64(1 + i%3)
		}
		times[i] = clock
		hr[i] = 100 + float64(i%90)
		if i%23 == 0 {
			hr[i] = math.NaN()
		}
	}

	result := ComputeZoneTimes(times, hr, zones)
	require.NotNil(t, result)

	attributed := 0.0
	for i := 1; i < len(times); i++ {
		dt := times[i] - times[i-1]
		v, ok := hr.At(i)
		if dt > 0 && ok && v >= MinZoneHR && v <= MaxZoneHR {
			attributed += dt
		}
	}

	sum := 0.0
	for _, s := range result.Seconds {
		sum += s
	}
	assert.InDelta(t, attributed, sum, 1e-9)
}

func TestComputeZoneTimesNil(t *testing.T) {
	tests := []struct {
		name  string
		times signal.Series
		hr    signal.Series
		zones HRZones
	}{
		{"single sample", signal.Series{0}, signal.Series{150}, DefaultZones()},
		{"misaligned", signal.Series{0, 1, 2}, signal.Series{150, 150}, DefaultZones()},
		{"max not above rest", signal.Series{0, 1}, signal.Series{150, 150}, HRZones{RestingHR: 60, MaxHR: 60}},
		{"no plausible heart rate", signal.Series{0, 1, 2}, signal.Series{math.NaN(), 250, 10}, DefaultZones()},
		{"time never advances", signal.Series{5, 5, 5}, signal.Series{150, 150, 150}, DefaultZones()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ComputeZoneTimes(tt.times, tt.hr, tt.zones))
		})
	}
}
