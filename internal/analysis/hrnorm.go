package analysis

import (
	"math"

	"fitmetrics/internal/signal"
)

// NormalizedHR is the result of ramp-up correction.
type NormalizedHR struct {
	// Curve has one entry per time sample. Pre-cutoff entries hold the
	// modeled ramp and post-cutoff entries the retained raw HR.
	Curve signal.Series
	// Mean of all retained and modeled values, nil if there are none.
	Mean *float64
	// Anomaly is set when any post-cutoff sample was rejected.
	Anomaly bool
	// CutoffSec is where the ramp model hands over to measured HR.
	CutoffSec float64
}

// NormalizeHeartRate replaces the early ramp-up portion of a heart-rate
// stream with an exponential model, and rejects later samples that deviate
// from their neighborhood.
//
// The cutoff defaults to 120 s. If HR peaks within the first 900 s / 1200 m
// and then falls by 22 bpm within 120 s / 400 m, the cutoff moves to that
// drop when it is later than the default. Before the cutoff HR is modeled as
// baseline + (target-baseline)*(1-exp(-d/tau)), capped at target, where d is
// distance. Without a usable distance stream those samples stay missing.
//
// Returns nil when time and heart rate are not the same length or carry no
// usable heart rate.
func NormalizeHeartRate(times, hr, dists signal.Series) *NormalizedHR {
	n := len(times)
	if n == 0 || len(hr) != n {
		return nil
	}
	valid := hr.Valid()
	if len(valid) == 0 {
		return nil
	}

	var d signal.Series
	if len(dists) == n {
		d = dists
	}

	cutoff := findCutoff(times, hr, d)

	var baselineVals, targetVals []float64
	for i := 0; i < n; i++ {
		t, tok := times.At(i)
		h, hok := hr.At(i)
		if !tok || !hok {
			continue
		}
		if t <= RampBaselineSec {
			baselineVals = append(baselineVals, h)
		}
		if t >= cutoff+RampTargetFromSec && t <= cutoff+RampTargetToSec {
			targetVals = append(targetVals, h)
		}
	}
	baseline, ok := signal.Median(baselineVals)
	if !ok {
		baseline, _ = signal.Min(valid)
	}
	target, ok := signal.Median(targetVals)
	if !ok {
		target = baseline
	}

	cutoffDist := math.NaN()
	if d != nil {
		for i := 0; i < n; i++ {
			if t, ok := times.At(i); ok && t >= cutoff {
				cutoffDist = d[i]
				break
			}
		}
	}
	tau := RampDefaultTau
	modeled := !signal.IsMissing(cutoffDist) && cutoffDist != 0
	if modeled {
		tau = 0.5 * cutoffDist
	}

	curve := make(signal.Series, n)
	retained := make([]float64, 0, n)
	anomaly := false
	window := make([]float64, 0, 2*AnomalyHalfWindow+1)

	for i := 0; i < n; i++ {
		curve[i] = signal.Missing()
		t, ok := times.At(i)
		if !ok {
			continue
		}

		if t < cutoff {
			if !modeled {
				continue
			}
			x, ok := d.At(i)
			if !ok {
				continue
			}
			pred := baseline + (target-baseline)*(1-math.Exp(-math.Max(0, x)/tau))
			pred = math.Min(pred, target)
			curve[i] = pred
			retained = append(retained, pred)
			continue
		}

		h, ok := hr.At(i)
		if !ok {
			continue
		}
		lo := max(0, i-AnomalyHalfWindow)
		hi := min(n, i+AnomalyHalfWindow+1)
		window = window[:0]
		for _, v := range hr[lo:hi] {
			if !signal.IsMissing(v) {
				window = append(window, v)
			}
		}
		med, _ := signal.Median(window)
		if math.Abs(h-med) >= AnomalyBPM {
			anomaly = true
			continue
		}
		curve[i] = h
		retained = append(retained, h)
	}

	out := &NormalizedHR{Curve: curve, Anomaly: anomaly, CutoffSec: cutoff}
	if m, ok := signal.Mean(retained); ok {
		out.Mean = &m
	}
	return out
}

// findCutoff locates the end of the ramp-up phase.
func findCutoff(times, hr, d signal.Series) float64 {
	cutoff := RampDefaultCutoffSec
	n := len(times)

	peakHR := math.Inf(-1)
	peakIdx := -1
	for i := 0; i < n; i++ {
		t, ok := times.At(i)
		if !ok {
			continue
		}
		if t > RampPeakMaxSec {
			break
		}
		if dist, ok := d.At(i); ok && dist > RampPeakMaxDist {
			break
		}
		if h, ok := hr.At(i); ok && h > peakHR {
			peakHR = h
			peakIdx = i
		}
	}
	if peakIdx < 0 {
		return cutoff
	}

	peakTime := times[peakIdx]
	peakDist, hasPeakDist := d.At(peakIdx)
	threshold := peakHR - RampDropBPM
	for i := peakIdx + 1; i < n; i++ {
		t, ok := times.At(i)
		if !ok {
			continue
		}
		if t-peakTime > RampDropWindowSec {
			break
		}
		if dist, ok := d.At(i); ok && hasPeakDist && dist-peakDist > RampDropWindowDist {
			break
		}
		if h, ok := hr.At(i); ok && h <= threshold {
			cutoff = math.Max(cutoff, t)
			break
		}
	}
	return cutoff
}
