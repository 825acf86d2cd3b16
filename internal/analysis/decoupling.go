package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"fitmetrics/internal/signal"
)

// Drift compares the second half of an activity against the first.
type Drift struct {
	// HRDrift is the second-half minus first-half average heart rate (bpm)
	HRDrift float64
	// Decoupling is the pace:HR ratio change in percent, clamped to ±50.
	// Positive means the second half cost more heartbeats per unit of pace.
	Decoupling float64
}

// ComputeDrift splits the activity at half its final distance and compares
// trimmed-mean pace and heart rate across the halves. A sample belongs to the
// first half while its cumulative distance is at most half the total.
//
// Returns nil when streams are misaligned, the activity covers no distance,
// or either half lacks pace or heart rate.
func ComputeDrift(times, dists, hr signal.Series) *Drift {
	n := len(times)
	if n == 0 || len(dists) != n || len(hr) != n {
		return nil
	}
	total, ok := dists.Last()
	if !ok || total <= 0 {
		return nil
	}
	half := total / 2

	var pace1, pace2, hr1, hr2 []float64
	for i := 1; i < n; i++ {
		dt := times[i] - times[i-1]
		dd := dists[i] - dists[i-1]
		if !(dt > 0 && dd > 0) {
			continue
		}
		pace := dt / (dd / 1000)
		h, hasHR := hr.At(i)
		if dists[i] <= half {
			pace1 = append(pace1, pace)
			if hasHR {
				hr1 = append(hr1, h)
			}
		} else {
			pace2 = append(pace2, pace)
			if hasHR {
				hr2 = append(hr2, h)
			}
		}
	}

	p1, p2 := trimmedMean(pace1), trimmedMean(pace2)
	h1, h2 := trimmedMean(hr1), trimmedMean(hr2)
	if p1 == 0 || p2 == 0 || h1 <= 0 || h2 <= 0 {
		return nil
	}

	decoupling := ((p2/p1)/(h2/h1) - 1) * 100
	decoupling = math.Max(-MaxDecouplingPct, math.Min(MaxDecouplingPct, decoupling))
	return &Drift{
		HRDrift:    h2 - h1,
		Decoupling: decoupling,
	}
}

// trimmedMean drops the lowest and highest 10% before averaging. Fewer than
// five samples, or a trim that would leave nothing, use the plain mean.
// Returns 0 for no samples.
func trimmedMean(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n < MinTrimSamples {
		return stat.Mean(sorted, nil)
	}
	k := int(float64(n) * TrimFraction)
	if 2*k >= n {
		return stat.Mean(sorted, nil)
	}
	return stat.Mean(sorted[k:n-k], nil)
}
