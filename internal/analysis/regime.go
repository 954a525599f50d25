package analysis

import (
	"math"
)

// TrendDirection labels a trend
type TrendDirection string

const (
	TrendUp       TrendDirection = "UPTREND"
	TrendDown     TrendDirection = "DOWNTREND"
	TrendSideways TrendDirection = "SIDEWAYS"
)

// MarketPhase is the Wyckoff-style cycle phase
type MarketPhase string

const (
	PhaseAccumulation  MarketPhase = "ACCUMULATION"
	PhaseMarkup        MarketPhase = "MARKUP"
	PhaseDistribution  MarketPhase = "DISTRIBUTION"
	PhaseMarkdown      MarketPhase = "MARKDOWN"
	PhaseConsolidation MarketPhase = "CONSOLIDATION"
	PhaseTransition    MarketPhase = "TRANSITION"
)

// VolatilityRegime compares current volatility to the historical baseline
type VolatilityRegime string

const (
	VolatilityLow    VolatilityRegime = "LOW"
	VolatilityNormal VolatilityRegime = "NORMAL"
	VolatilityHigh   VolatilityRegime = "HIGH"
)

// RegimeFeatures is the market-regime summary for one symbol
type RegimeFeatures struct {
	PrimaryTrend   TrendDirection   `json:"primary_trend"`
	SecondaryTrend TrendDirection   `json:"secondary_trend"`
	Phase          MarketPhase      `json:"phase"`
	Volatility     VolatilityRegime `json:"volatility"`
	Confidence     float64          `json:"confidence"` // Clamped to [0.2, 0.9]
}

// MarketRegimeClassifier derives trend, phase and volatility regime from a
// rolling price/volume series.
type MarketRegimeClassifier struct {
	shortPeriod    int // Secondary trend slope window
	mediumPeriod   int // Medium moving average
	longPeriod     int // Long moving average
	baselinePeriod int // Historical volatility baseline
}

// NewMarketRegimeClassifier creates a classifier with the standard windows
func NewMarketRegimeClassifier() *MarketRegimeClassifier {
	return &MarketRegimeClassifier{
		shortPeriod:    10,
		mediumPeriod:   20,
		longPeriod:     50,
		baselinePeriod: 60,
	}
}

// Decisive phases add regime confidence: the market is clearly in one stage
// of the cycle rather than drifting between them
var decisivePhases = map[MarketPhase]bool{
	PhaseAccumulation: true,
	PhaseMarkup:       true,
	PhaseDistribution: true,
	PhaseMarkdown:     true,
}

// Classify derives regime features from a price/volume series (oldest first).
// Short series fall back to a low-confidence TRANSITION read.
func (mc *MarketRegimeClassifier) Classify(prices, volumes []float64) RegimeFeatures {
	features := RegimeFeatures{
		PrimaryTrend:   TrendSideways,
		SecondaryTrend: TrendSideways,
		Phase:          PhaseTransition,
		Volatility:     VolatilityNormal,
		Confidence:     0.2,
	}

	if len(prices) < mc.mediumPeriod || len(prices) != len(volumes) {
		return features
	}

	last := prices[len(prices)-1]
	maMedium := movingAverage(prices, mc.mediumPeriod)
	maLong := movingAverage(prices, mc.longPeriod)

	// Primary trend from moving-average ordering
	if last > maMedium && maMedium > maLong {
		features.PrimaryTrend = TrendUp
	} else if last < maMedium && maMedium < maLong {
		features.PrimaryTrend = TrendDown
	}

	// Secondary trend from the short-term slope
	slope := recentSlope(prices, mc.shortPeriod)
	if slope > 0.002 {
		features.SecondaryTrend = TrendUp
	} else if slope < -0.002 {
		features.SecondaryTrend = TrendDown
	}

	features.Volatility = mc.volatilityRegime(prices)
	features.Phase = mc.classifyPhase(prices, volumes, features)
	features.Confidence = mc.confidence(features)

	return features
}

// classifyPhase combines trend, volatility, volume direction and RSI
func (mc *MarketRegimeClassifier) classifyPhase(prices, volumes []float64, f RegimeFeatures) MarketPhase {
	volumeRising := recentSlope(volumes, mc.shortPeriod) > 0
	rsi := seriesRSI(prices, 14)

	switch {
	case f.PrimaryTrend == TrendUp && f.SecondaryTrend != TrendDown && volumeRising:
		return PhaseMarkup
	case f.PrimaryTrend == TrendDown && f.SecondaryTrend != TrendUp && volumeRising:
		return PhaseMarkdown
	case f.PrimaryTrend == TrendSideways && rsi < 45 && volumeRising:
		return PhaseAccumulation
	case f.PrimaryTrend != TrendDown && rsi > 65 && !volumeRising:
		return PhaseDistribution
	case f.Volatility == VolatilityLow && rsi >= 40 && rsi <= 60:
		return PhaseConsolidation
	default:
		return PhaseTransition
	}
}

// volatilityRegime compares recent return volatility against the 60-period
// historical baseline
func (mc *MarketRegimeClassifier) volatilityRegime(prices []float64) VolatilityRegime {
	recent := returnStdDev(lastN(prices, mc.mediumPeriod))
	baseline := returnStdDev(lastN(prices, mc.baselinePeriod))
	if baseline == 0 {
		return VolatilityNormal
	}

	ratio := recent / baseline
	if ratio > 1.3 {
		return VolatilityHigh
	}
	if ratio < 0.7 {
		return VolatilityLow
	}
	return VolatilityNormal
}

// confidence scores how readable the regime is: +0.2 for aligned trends,
// +0.15 for a decisive phase, +0.1 for calm volatility, -0.1 for high
func (mc *MarketRegimeClassifier) confidence(f RegimeFeatures) float64 {
	confidence := 0.5

	if f.PrimaryTrend == f.SecondaryTrend && f.PrimaryTrend != TrendSideways {
		confidence += 0.2
	}
	if decisivePhases[f.Phase] {
		confidence += 0.15
	}
	switch f.Volatility {
	case VolatilityLow:
		confidence += 0.1
	case VolatilityHigh:
		confidence -= 0.1
	}

	return clamp(confidence, 0.2, 0.9)
}

// ==================== SERIES HELPERS ====================

func movingAverage(series []float64, period int) float64 {
	window := lastN(series, period)
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

// recentSlope is the normalized change over the last period points
func recentSlope(series []float64, period int) float64 {
	window := lastN(series, period)
	if len(window) < 2 || window[0] == 0 {
		return 0
	}
	return (window[len(window)-1] - window[0]) / window[0]
}

func returnStdDev(series []float64) float64 {
	if len(series) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1] != 0 {
			returns = append(returns, (series[i]-series[i-1])/series[i-1])
		}
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// seriesRSI is a standard Wilder RSI over the tail of the series
func seriesRSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	window := lastN(prices, period+1)
	gains, losses := 0.0, 0.0
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

func lastN(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
