package analysis

import (
	"momentum-signal-engine/internal/taapi"
)

// BreakoutType classifies the dominant breakout signal
type BreakoutType string

const (
	BreakoutNone       BreakoutType = "NONE"
	BreakoutSqueeze    BreakoutType = "SQUEEZE_BREAKOUT"
	BreakoutPattern    BreakoutType = "PATTERN_BREAKOUT"
	BreakoutVolume     BreakoutType = "VOLUME_BREAKOUT"
	BreakoutResistance BreakoutType = "RESISTANCE_BREAK"
	BreakoutMomentum   BreakoutType = "MOMENTUM_BREAKOUT"
)

// BreakoutFeatures is the breakout summary for one snapshot
type BreakoutFeatures struct {
	Type            BreakoutType `json:"type"`
	Strength        float64      `json:"strength"`
	SqueezeFired    bool         `json:"squeeze_fired"`
	BandsExpanding  bool         `json:"bands_expanding"`
	PatternBullish  bool         `json:"pattern_bullish"`
	ResistanceBreak bool         `json:"resistance_break"`
	MomentumCross   bool         `json:"momentum_cross"`
	VolumeSurge     bool         `json:"volume_surge"`
}

// BreakoutDetector inspects squeeze state, band width, trend strength,
// candlestick patterns and momentum-oscillator crossings.
type BreakoutDetector struct {
	expansionWidth float64 // Bollinger width over middle band that reads as expansion
	spikeThreshold float64 // Volume ratio that reads as a surge
}

// NewBreakoutDetector creates a breakout detector with default thresholds
func NewBreakoutDetector() *BreakoutDetector {
	return &BreakoutDetector{
		expansionWidth: 0.04,
		spikeThreshold: 2.0,
	}
}

// Strength contributions per signal. The dominant (highest-contribution)
// signal names the breakout type; strength accumulates across all of them.
const (
	squeezeStrength    = 30.0
	volumeStrength     = 25.0
	patternStrength    = 20.0
	momentumStrength   = 20.0
	resistanceStrength = 15.0
	trendBonus         = 10.0
)

// Detect derives breakout features from the primary indicator set
func (bd *BreakoutDetector) Detect(primary *taapi.IndicatorSet) BreakoutFeatures {
	features := BreakoutFeatures{Type: BreakoutNone}
	if primary == nil {
		return features
	}

	if primary.Squeeze != nil {
		features.SqueezeFired = primary.Squeeze.On && primary.Squeeze.Momentum > 0
	}

	if primary.Bollinger != nil && primary.Bollinger.Middle > 0 {
		width := (primary.Bollinger.Upper - primary.Bollinger.Lower) / primary.Bollinger.Middle
		features.BandsExpanding = width > bd.expansionWidth
	}

	if primary.Patterns != nil {
		features.PatternBullish = primary.Patterns.Engulfing > 0 ||
			primary.Patterns.Hammer > 0 ||
			primary.Patterns.MorningStar > 0
	}

	if primary.VWAP != nil && primary.Bollinger != nil {
		features.ResistanceBreak = *primary.VWAP > primary.Bollinger.Upper
	}

	if primary.StochRSI != nil {
		features.MomentumCross = primary.StochRSI.K > primary.StochRSI.D && primary.StochRSI.K > 50
	}

	features.VolumeSurge = primary.SpikeRatio() >= bd.spikeThreshold && features.BandsExpanding

	// Accumulate strength and pick the dominant signal
	best := 0.0
	bump := func(t BreakoutType, contribution float64) {
		features.Strength += contribution
		if contribution > best {
			best = contribution
			features.Type = t
		}
	}

	if features.SqueezeFired {
		bump(BreakoutSqueeze, squeezeStrength)
	}
	if features.VolumeSurge {
		bump(BreakoutVolume, volumeStrength)
	}
	if features.PatternBullish {
		bump(BreakoutPattern, patternStrength)
	}
	if features.MomentumCross {
		bump(BreakoutMomentum, momentumStrength)
	}
	if features.ResistanceBreak {
		bump(BreakoutResistance, resistanceStrength)
	}
	if features.Type != BreakoutNone && primary.ADXValue() >= 25 {
		features.Strength += trendBonus
	}

	return features
}

// Confirmed reports whether any breakout signal fired. A zero-value
// features struct reads as unconfirmed.
func (f BreakoutFeatures) Confirmed() bool {
	return f.Type != BreakoutNone && f.Type != ""
}
