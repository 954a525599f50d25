// Package scoring combines extracted features into the weighted entry
// quality score.
package scoring

// SignalStrength classifies the overall entry quality
type SignalStrength string

const (
	StrengthExcellent SignalStrength = "EXCELLENT"
	StrengthStrong    SignalStrength = "STRONG"
	StrengthModerate  SignalStrength = "MODERATE"
	StrengthWeak      SignalStrength = "WEAK"
	StrengthAvoid     SignalStrength = "AVOID"
)

// Subscores are the five 0-100 component scores
type Subscores struct {
	Momentum           float64 `json:"momentum"`
	Volume             float64 `json:"volume"`
	Technical          float64 `json:"technical"`
	Breakout           float64 `json:"breakout"`
	TimeframeAlignment float64 `json:"timeframe_alignment"`
}

// Confirmations flags which signal families back the entry
type Confirmations struct {
	Volume   bool `json:"volume"`
	Momentum bool `json:"momentum"`
	Breakout bool `json:"breakout"`
}

// EntryQualityMetrics is one evaluation's full scoring output. Created fresh
// per evaluation, never persisted.
type EntryQualityMetrics struct {
	Subscores         Subscores      `json:"subscores"`
	OverallScore      float64        `json:"overall_score"`
	SignalStrength    SignalStrength `json:"signal_strength"`
	Confirmations     Confirmations  `json:"confirmations"`
	RiskFactors       []string       `json:"risk_factors"`
	WarningFlags      []string       `json:"warning_flags"`
	IsHighProbability bool           `json:"is_high_probability"`
}

// Subscore weights. Momentum leads, technical structure trails.
const (
	WeightMomentum  = 0.30
	WeightVolume    = 0.25
	WeightBreakout  = 0.20
	WeightTimeframe = 0.15
	WeightTechnical = 0.10
)

// Strength boundaries on the overall score
const (
	excellentScore = 85.0
	strongScore    = 75.0
	moderateScore  = 60.0
	weakScore      = 40.0
)

// Override floors: a starved subscore caps the whole signal regardless of
// the weighted total
const (
	volumeFloorAvoid  = 20.0
	momentumFloorWeak = 25.0
)

// Risk factor labels. The high-probability gate matches on these substrings.
const (
	RiskOverboughtRSI = "overbought RSI"
	RiskWeakMoneyFlow = "weak money flow"
	RiskWeakTrend     = "weak trend"
	RiskVolumeDrought = "volume drought"
)
