package analysis

const (
	// Signal conditioning
	HampelWindow    = 7
	HampelThreshold = 3.0

	// Pace smoothing (s/km)
	MinPaceSecPerKm = 150
	MaxPaceSecPerKm = 900
	PaceEMAAlpha    = 0.12
	PaceRollWindow  = 5

	// Cadence smoothing (steps/min)
	MinRawCadence         = 50
	MaxRawCadence         = 200
	MinCadence            = 120
	MaxCadence            = 240
	SingleLegCadenceBelow = 120 // medians below this are single-leg counts
	CadenceEMAAlpha       = 0.2

	// Heart-rate smoothing (bpm)
	MinSmoothHR = 60
	MaxSmoothHR = 210
	HREMAAlpha  = 0.2

	// Ramp-up normalization
	RampDefaultCutoffSec = 120.0
	RampPeakMaxSec       = 900
	RampPeakMaxDist      = 1200
	RampDropWindowSec    = 120
	RampDropWindowDist   = 400
	RampDropBPM          = 22
	RampBaselineSec      = 30
	RampTargetFromSec    = 30
	RampTargetToSec      = 120
	RampDefaultTau       = 0.5
	AnomalyHalfWindow    = 15
	AnomalyBPM           = 20

	// Flat pace
	MaxGrade        = 0.1
	GradeCostLinear = 0.045
	GradeCostSquare = 0.35

	// Weather adjustment
	WarmThresholdC  = 18.0
	WarmPenalty     = 0.005
	ColdThresholdC  = 5.0
	ColdPenalty     = 0.003
	WindThresholdKm = 10.0
	WindPenalty     = 0.003

	// Decoupling
	TrimFraction     = 0.1
	MinTrimSamples   = 5
	MaxDecouplingPct = 50.0

	// HR zones
	MinZoneHR = 40
	MaxZoneHR = 220
)

// ZoneBoundFractions are the heart-rate-reserve fractions bounding zones
// 1 through 5.
var ZoneBoundFractions = []float64{0.5, 0.6, 0.7, 0.8, 0.9}
