package analysis

import "fitmetrics/internal/store"

// WeatherFactor is a linear heat, cold and wind penalty on pace. It is a
// heuristic, not a physiological model: 0.5%/°C above 18 °C, 0.3%/°C below
// 5 °C and 0.3% per km/h of wind above 10 km/h.
func WeatherFactor(w *store.Weather) float64 {
	factor := 1.0
	if w == nil {
		return factor
	}
	if w.TempC != nil {
		temp := *w.TempC
		if temp > WarmThresholdC {
			factor += (temp - WarmThresholdC) * WarmPenalty
		}
		if temp < ColdThresholdC {
			factor += (ColdThresholdC - temp) * ColdPenalty
		}
	}
	if w.WindKmh != nil && *w.WindKmh > WindThresholdKm {
		factor += (*w.WindKmh - WindThresholdKm) * WindPenalty
	}
	return factor
}

// WeatherAdjustedPace scales a flat pace by the weather penalty. Without
// weather the pace passes through unchanged; without a pace there is nothing
// to adjust.
func WeatherAdjustedPace(flatPace *float64, w *store.Weather) *float64 {
	if flatPace == nil {
		return nil
	}
	adjusted := *flatPace * WeatherFactor(w)
	return &adjusted
}
