package analysis

import "fitmetrics/internal/signal"

// Smoothed is a denoised curve and the mean of its present samples.
type Smoothed struct {
	Series signal.Series
	Mean   *float64
}

func newSmoothed(s signal.Series) Smoothed {
	out := Smoothed{Series: s}
	if m, ok := s.Mean(); ok {
		out.Mean = &m
	}
	return out
}

// PaceSeries converts cumulative time and distance into instantaneous pace
// in seconds per kilometer. Index 0 and pairs that do not move forward in
// both time and distance are missing.
func PaceSeries(times, dists signal.Series) signal.Series {
	n := min(len(times), len(dists))
	pace := make(signal.Series, n)
	for i := range pace {
		pace[i] = signal.Missing()
	}
	for i := 1; i < n; i++ {
		dt := times[i] - times[i-1]
		dd := dists[i] - dists[i-1]
		// NaN deltas fail both comparisons
		if !(dt > 0 && dd > 0) {
			continue
		}
		pace[i] = dt / (dd / 1000)
	}
	return pace
}

// SmoothPace derives a smoothed pace curve (s/km) from time and distance
// streams of equal length.
func SmoothPace(times, dists signal.Series) Smoothed {
	pace := PaceSeries(times, dists)
	pace = signal.Clamp(pace, MinPaceSecPerKm, MaxPaceSecPerKm)
	pace = signal.Hampel(pace, HampelWindow, HampelThreshold)
	pace = signal.EMA(pace, PaceEMAAlpha)
	pace = signal.RollingMean(pace, PaceRollWindow)
	pace = signal.Clamp(pace, MinPaceSecPerKm, MaxPaceSecPerKm)
	return newSmoothed(pace)
}

// SmoothCadence denoises a cadence stream. Streams recorded as single-leg
// counts (median below 120) are doubled to steps per minute.
func SmoothCadence(cadence signal.Series) Smoothed {
	c := signal.DropInitialZeros(cadence)
	c = signal.Clamp(c, MinRawCadence, MaxRawCadence)
	c = signal.Hampel(c, HampelWindow, HampelThreshold)
	if med, ok := signal.Median(c.Valid()); ok && med != 0 && med < SingleLegCadenceBelow {
		c = c.Map(func(v float64) float64 { return v * 2 })
	}
	c = signal.Clamp(c, MinCadence, MaxCadence)
	c = signal.EMA(c, CadenceEMAAlpha)
	return newSmoothed(c)
}

// SmoothHeartRate denoises a raw or ramp-corrected heart-rate stream.
func SmoothHeartRate(hr signal.Series) Smoothed {
	h := signal.DropInitialZeros(hr)
	h = signal.Clamp(h, MinSmoothHR, MaxSmoothHR)
	h = signal.Hampel(h, HampelWindow, HampelThreshold)
	h = signal.EMA(h, HREMAAlpha)
	return newSmoothed(h)
}

// RawCadenceAverage is the fallback cadence: the mean of the raw stream,
// doubled when it looks like a single-leg count. The cadence and time
// streams must be the same length.
func RawCadenceAverage(cadence, times signal.Series) *float64 {
	if len(cadence) == 0 || len(cadence) != len(times) {
		return nil
	}
	avg, ok := cadence.Mean()
	if !ok {
		return nil
	}
	if avg < SingleLegCadenceBelow {
		avg *= 2
	}
	return &avg
}
