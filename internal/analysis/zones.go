package analysis

import (
	"fitmetrics/internal/signal"
	"fitmetrics/internal/store"
)

// HRZones represents athlete's heart rate zones
type HRZones struct {
	RestingHR float64
	MaxHR     float64
	Method    string // label echoed into derived rows
}

// DefaultZones returns sensible defaults if not configured
func DefaultZones() HRZones {
	return HRZones{
		RestingHR: 48,
		MaxHR:     185,
		Method:    "hrr",
	}
}

// Reserve is the heart-rate reserve (max minus resting).
func (z HRZones) Reserve() float64 {
	return z.MaxHR - z.RestingHR
}

// Bounds returns the lower bound of zones 1 through 5 using the Karvonen
// formula: rest + fraction*reserve.
func (z HRZones) Bounds() [5]float64 {
	var b [5]float64
	for i, f := range ZoneBoundFractions {
		b[i] = z.RestingHR + f*z.Reserve()
	}
	return b
}

// Zone returns the 1-based zone of a heart rate. Anything below the zone 2
// bound counts as zone 1.
func (z HRZones) Zone(hr float64) int {
	b := z.Bounds()
	switch {
	case hr < b[1]:
		return 1
	case hr < b[2]:
		return 2
	case hr < b[3]:
		return 3
	case hr < b[4]:
		return 4
	default:
		return 5
	}
}

// ZoneLabel names a time-weighted zone score
func ZoneLabel(score float64) string {
	switch {
	case score < 1.5:
		return "Recovery"
	case score < 2.5:
		return "Endurance"
	case score < 3.5:
		return "Tempo"
	case score < 4.5:
		return "Threshold"
	default:
		return "VO2"
	}
}

// ComputeZoneTimes attributes each positive time step to the zone of the
// heart rate at its end. Steps ending on a missing or implausible
// (outside 40-220 bpm) reading are skipped.
//
// Returns nil when streams are misaligned, there are fewer than two samples,
// the zone configuration is invalid, or no time could be attributed.
func ComputeZoneTimes(times, hr signal.Series, zones HRZones) *store.ZoneSummary {
	n := len(times)
	if n < 2 || len(hr) != n {
		return nil
	}
	if zones.MaxHR <= zones.RestingHR {
		return nil
	}

	var seconds [5]float64
	total := 0.0
	for i := 1; i < n; i++ {
		dt := times[i] - times[i-1]
		if !(dt > 0) {
			continue
		}
		v, ok := hr.At(i)
		if !ok || v < MinZoneHR || v > MaxZoneHR {
			continue
		}
		seconds[zones.Zone(v)-1] += dt
		total += dt
	}
	if total <= 0 {
		return nil
	}

	weighted := 0.0
	for i, s := range seconds {
		weighted += float64(i+1) * s
	}
	score := weighted / total

	return &store.ZoneSummary{
		Seconds: seconds,
		Score:   score,
		Label:   ZoneLabel(score),
		MaxHR:   zones.MaxHR,
		RestHR:  zones.RestingHR,
		Method:  zones.Method,
	}
}
