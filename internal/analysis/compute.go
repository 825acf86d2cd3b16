package analysis

import (
	"strings"

	"fitmetrics/internal/signal"
	"fitmetrics/internal/store"
)

// Warnings attached to derived rows when an input is missing or unusable.
const (
	WarnNoTimeDistance   = "missing or misaligned time/distance streams"
	WarnNoAltitude       = "missing altitude stream; flat pace assumes level ground"
	WarnNoHeartRate      = "missing heart-rate stream"
	WarnHRMisaligned     = "heart-rate stream does not match time stream"
	WarnHRAnomaly        = "heart-rate samples rejected as anomalies"
	WarnNoCadence        = "missing cadence stream"
	WarnNoWeather        = "no weather snapshot; flat pace not weather-adjusted"
	WarnNoDrift          = "not enough paired pace and heart-rate data for decoupling"
	WarnNoZones          = "not enough heart-rate data for zone times"
	WarnZoneConfigBroken = "max heart rate must exceed resting heart rate for zone times"
)

// ComputeDerivedMetrics calculates all metrics for a single activity.
// Missing or misaligned inputs leave the affected fields nil and add a
// warning; nothing here fails.
func ComputeDerivedMetrics(activity store.RawActivity, payload store.ActivityPayload, streams store.StreamSet, weather *store.Weather, zones HRZones) store.DerivedMetrics {
	activityType := NormalizeActivityType(payload.SportType)
	weekStart, _ := WeekStart(activity.StartTime)

	metrics := store.DerivedMetrics{
		ActivityID:   activity.ActivityID,
		SourceID:     activity.SourceID,
		UserID:       activity.UserID,
		StartTime:    activity.StartTime,
		WeekStart:    weekStart,
		Name:         strings.TrimSpace(payload.Name),
		ActivityType: activityType,
		ElevGain:     payload.TotalElevationGain,
		AvgHRRaw:     payload.AverageHeartRate,
	}
	var warn warnings

	times := streams.Get(store.StreamTime)
	dists := streams.Get(store.StreamDistance)
	alts := streams.Get(store.StreamAltitude)
	hr := streams.Get(store.StreamHeartRate)
	cadence := streams.Get(store.StreamCadence)

	// Flat pace
	timeDistAligned := streams.Aligned(store.StreamTime, store.StreamDistance)
	if !timeDistAligned {
		warn.add(WarnNoTimeDistance)
	} else if !streams.Aligned(store.StreamTime, store.StreamAltitude) {
		warn.add(WarnNoAltitude)
	}
	if flat := ComputeFlatPace(times, dists, alts); flat != nil {
		metrics.FlatPaceSec = &flat.SecPerKm
		metrics.FlatTime = &flat.FlatTime
		metrics.FlatDist = &flat.Distance
	}

	// Heart-rate ramp normalization
	switch {
	case len(hr) == 0:
		warn.add(WarnNoHeartRate)
	case len(hr) != len(times):
		warn.add(WarnHRMisaligned)
	}
	var normCurve signal.Series
	if norm := NormalizeHeartRate(times, hr, dists); norm != nil {
		normCurve = norm.Curve
		metrics.AvgHRNorm = norm.Mean
		if norm.Anomaly {
			warn.add(WarnHRAnomaly)
		}
	}
	metrics.HRNormCurve = normCurve

	// Decoupling on normalized HR when it lines up, raw otherwise
	driftHR := hr
	if len(normCurve) > 0 && len(normCurve) == len(times) {
		driftHR = normCurve
	}
	if drift := ComputeDrift(times, dists, driftHR); drift != nil {
		metrics.HRDrift = &drift.HRDrift
		metrics.Decoupling = &drift.Decoupling
	} else if timeDistAligned && len(hr) > 0 {
		warn.add(WarnNoDrift)
	}

	// Smoothing
	if timeDistAligned {
		pace := SmoothPace(times, dists)
		metrics.PaceCurve = pace.Series
	}

	var cadenceMean *float64
	if len(cadence) > 0 {
		smoothed := SmoothCadence(cadence)
		metrics.CadenceCurve = smoothed.Series
		cadenceMean = smoothed.Mean
	} else {
		warn.add(WarnNoCadence)
	}

	hrSource := hr
	if len(normCurve) > 0 {
		hrSource = normCurve
	}
	if len(hrSource) > 0 {
		smoothed := SmoothHeartRate(hrSource)
		metrics.HRCurve = smoothed.Series
		if smoothed.Mean != nil {
			metrics.AvgHRNorm = smoothed.Mean
		}
	}

	// Zone times on the same series that was smoothed
	if len(times) > 0 && len(hrSource) > 0 {
		metrics.Zones = ComputeZoneTimes(times, hrSource, zones)
		if metrics.Zones == nil {
			if zones.MaxHR <= zones.RestingHR {
				warn.add(WarnZoneConfigBroken)
			} else {
				warn.add(WarnNoZones)
			}
		}
	}

	// Summary figures
	metrics.DistanceM = valueOr(payload.Distance, 0)
	metrics.MovingS = valueOr(payload.MovingTime, 0)
	metrics.AvgSpeedMps = payload.AverageSpeed
	if metrics.AvgSpeedMps == nil && metrics.DistanceM != 0 && metrics.MovingS != 0 {
		speed := metrics.DistanceM / metrics.MovingS
		metrics.AvgSpeedMps = &speed
	}

	if cadenceMean != nil && *cadenceMean != 0 {
		metrics.CadenceAvg = cadenceMean
	} else {
		metrics.CadenceAvg = RawCadenceAverage(cadence, times)
	}
	if metrics.AvgSpeedMps != nil && metrics.CadenceAvg != nil && *metrics.CadenceAvg != 0 {
		stride := *metrics.AvgSpeedMps * 60 / *metrics.CadenceAvg
		metrics.StrideLen = &stride
	}

	// Weather
	metrics.FlatPaceWeatherSec = WeatherAdjustedPace(metrics.FlatPaceSec, weather)
	if weather == nil && metrics.FlatPaceSec != nil {
		warn.add(WarnNoWeather)
	}

	metrics.Warnings = warn.list
	return metrics
}

type warnings struct {
	list []string
}

func (w *warnings) add(msg string) {
	w.list = append(w.list, msg)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// DecouplingAssessment returns a human-readable decoupling assessment
func DecouplingAssessment(decoupling float64) string {
	switch {
	case decoupling < 3:
		return "Excellent aerobic base"
	case decoupling < 5:
		return "Good aerobic fitness"
	case decoupling < 8:
		return "Developing aerobic base"
	case decoupling < 12:
		return "Needs more easy miles"
	default:
		return "Aerobic system needs work"
	}
}
