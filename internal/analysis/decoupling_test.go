package analysis

import (
	"math"
	"testing"

	"fitmetrics/internal/signal"
)

// splitRun builds 101 samples at 10 s / 30 m steps with hr1 in the first
// half (by distance) and hr2 in the second.
func splitRun(hr1, hr2 float64) (signal.Series, signal.Series, signal.Series) {
	times := evenSeries(101, 0, 10)
	dists := evenSeries(101, 0, 30)
	hr := make(signal.Series, 101)
	for i := range hr {
		if i <= 50 {
			hr[i] = hr1
		} else {
			hr[i] = hr2
		}
	}
	return times, dists, hr
}

func TestComputeDrift(t *testing.T) {
	tests := []struct {
		name           string
		build          func() (signal.Series, signal.Series, signal.Series)
		wantNil        bool
		wantDrift      float64
		wantDecoupling float64
		delta          float64
	}{
		{
			name:  "steady effort",
			build: func() (signal.Series, signal.Series, signal.Series) { return splitRun(150, 150) },
			delta: 1e-9,
		},
		{
			name:           "heart rate rises at same pace",
			build:          func() (signal.Series, signal.Series, signal.Series) { return splitRun(150, 165) },
			wantDrift:      15,
			wantDecoupling: (1/(165.0/150.0) - 1) * 100,
			delta:          1e-9,
		},
		{
			name:           "decoupling clamped to +50",
			build:          func() (signal.Series, signal.Series, signal.Series) { return splitRun(150, 50) },
			wantDrift:      -100,
			wantDecoupling: 50,
			delta:          1e-9,
		},
		{
			name:           "decoupling clamped to -50",
			build:          func() (signal.Series, signal.Series, signal.Series) { return splitRun(60, 200) },
			wantDrift:      140,
			wantDecoupling: -50,
			delta:          1e-9,
		},
		{
			name: "heart rate only in first half",
			build: func() (signal.Series, signal.Series, signal.Series) {
				return splitRun(150, math.NaN())
			},
			wantNil: true,
		},
		{
			name: "zero heart rate counts as absent",
			build: func() (signal.Series, signal.Series, signal.Series) {
				return splitRun(0, 150)
			},
			wantNil: true,
		},
		{
			name: "no distance covered",
			build: func() (signal.Series, signal.Series, signal.Series) {
				times, _, hr := splitRun(150, 150)
				return times, constSeries(101, 0), hr
			},
			wantNil: true,
		},
		{
			name: "heart rate misaligned",
			build: func() (signal.Series, signal.Series, signal.Series) {
				times, dists, hr := splitRun(150, 150)
				return times, dists, hr[:50]
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times, dists, hr := tt.build()
			result := ComputeDrift(times, dists, hr)
			if tt.wantNil {
				if result != nil {
					t.Errorf("ComputeDrift() = %+v, want nil", result)
				}
				return
			}
			if result == nil {
				t.Fatal("ComputeDrift() = nil")
			}
			if math.Abs(result.HRDrift-tt.wantDrift) > tt.delta {
				t.Errorf("HRDrift = %v, want %v", result.HRDrift, tt.wantDrift)
			}
			if math.Abs(result.Decoupling-tt.wantDecoupling) > tt.delta {
				t.Errorf("Decoupling = %v, want %v", result.Decoupling, tt.wantDecoupling)
			}
		})
	}
}

func TestComputeDriftFixture(t *testing.T) {
	times := signal.Series{0, 60, 120, 180, 240, 300}
	dists := signal.Series{0, 200, 400, 600, 800, 1000}
	hr := signal.Series{140, 145, 150, 155, 160, 165}

	result := ComputeDrift(times, dists, hr)
	if result == nil {
		t.Fatal("ComputeDrift() = nil")
	}
	// first half: 145, 150; second half: 155, 160, 165
	if math.Abs(result.HRDrift-(160-147.5)) > 1e-9 {
		t.Errorf("HRDrift = %v, want 12.5", result.HRDrift)
	}
}

func TestTrimmedMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"fewer than five uses plain mean", []float64{1, 2, 100}, 103.0 / 3},
		{"five samples trims nothing", []float64{1, 2, 3, 4, 100}, 22},
		{"ten samples trims one each end", []float64{100, 1, 2, 3, 4, 5, 6, 7, 8, -50}, 4.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := trimmedMean(tt.values)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("trimmedMean(%v) = %v, want %v", tt.values, result, tt.expected)
			}
		})
	}
}
