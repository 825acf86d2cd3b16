package analysis

import (
	"math"

	"fitmetrics/internal/signal"
)

// FlatPace is the grade-adjusted pace of an activity.
type FlatPace struct {
	SecPerKm float64 // flat-equivalent pace
	FlatTime float64 // flat-equivalent seconds
	Distance float64 // meters covered by usable pairs
}

// GradeCost is the relative energy cost of running at grade (rise/run)
// compared to flat ground.
func GradeCost(grade float64) float64 {
	return 1 + GradeCostLinear*grade + GradeCostSquare*grade*grade
}

// ComputeFlatPace estimates the pace the activity would have had on flat
// ground. Each forward-moving pair contributes its time scaled by the cost of
// its grade, with grade clamped to ±10%. Altitude is optional and ignored
// unless it matches the time stream in length.
//
// Returns nil when time and distance differ in length or no distance was
// covered.
func ComputeFlatPace(times, dists, alts signal.Series) *FlatPace {
	n := len(times)
	if n == 0 || len(dists) != n {
		return nil
	}
	hasAlt := len(alts) == n

	var flatTime, total float64
	for i := 1; i < n; i++ {
		dt := times[i] - times[i-1]
		dd := dists[i] - dists[i-1]
		if !(dt > 0 && dd > 0) {
			continue
		}
		grade := 0.0
		if hasAlt {
			if da := alts[i] - alts[i-1]; !signal.IsMissing(da) {
				grade = math.Max(-MaxGrade, math.Min(MaxGrade, da/dd))
			}
		}
		flatTime += (dt / dd) * GradeCost(grade) * dd
		total += dd
	}
	if total <= 0 {
		return nil
	}
	return &FlatPace{
		SecPerKm: flatTime / total * 1000,
		FlatTime: flatTime,
		Distance: total,
	}
}
