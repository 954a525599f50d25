// Package filter is the ordered compliance chain a BUY signal must clear
// before it is surfaced. Bullish-only: every rejection demotes to HOLD.
package filter

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"momentum-signal-engine/config"
	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/fetcher"
	"momentum-signal-engine/internal/optimizer"
	"momentum-signal-engine/internal/signal"
)

// Rejection codes, in chain order
const (
	ReasonMinConfidence   = "MIN_CONFIDENCE_NOT_MET"
	ReasonRSIOverbought   = "RSI_OVERBOUGHT_AVOIDED"
	ReasonBearishFiltered = "BEARISH_SIGNAL_FILTERED"
	ReasonVolumeRequired  = "VOLUME_CONFIRMATION_REQUIRED"
	ReasonWeakTrend       = "WEAK_TREND_AVOIDED"
	ReasonRSISweetSpot    = "RSI_OUTSIDE_SWEETSPOT"
	ReasonInternalError   = "ERROR_HOLD"
)

// Confidence boost for signals that clear the full chain with room to spare
const (
	boostThreshold = 80.0
	boostAmount    = 5.0
	boostCeiling   = 95.0
)

// Result is the outcome of running one signal through the chain
type Result struct {
	Approved           bool          `json:"approved"`
	Action             signal.Action `json:"action"`
	AdjustedConfidence float64       `json:"adjusted_confidence"`
	ComplianceScore    float64       `json:"compliance_score"`
	RejectionReason    string        `json:"rejection_reason,omitempty"`
	RejectionDetail    string        `json:"rejection_detail,omitempty"`
	RulesEvaluated     int           `json:"rules_evaluated"`
}

// ruleInput bundles everything a rule may inspect
type ruleInput struct {
	sig        *signal.MomentumSignal
	snap       *fetcher.IndicatorSnapshot
	vol        *analysis.VolumeFeatures
	regime     *analysis.RegimeFeatures
	thresholds optimizer.Thresholds
	cfg        config.FilterConfig
}

// rule is one link in the chain. check returns pass/fail plus a detail
// string for rejections; penalty maps the pre-filter confidence to the
// rejected confidence.
type rule struct {
	code    string
	weight  float64
	check   func(in *ruleInput) (bool, string)
	penalty func(confidence float64) float64
}

// ComplianceChain evaluates rules in a fixed order and stops at the first
// failure.
type ComplianceChain struct {
	cfg    config.FilterConfig
	rules  []rule
	logger zerolog.Logger
}

func NewComplianceChain(cfg config.FilterConfig, logger zerolog.Logger) *ComplianceChain {
	c := &ComplianceChain{
		cfg:    cfg,
		logger: logger.With().Str("component", "compliance_chain").Logger(),
	}
	c.rules = []rule{
		{
			code:   ReasonMinConfidence,
			weight: 25,
			check: func(in *ruleInput) (bool, string) {
				min := math.Max(in.cfg.MinConfidence, in.thresholds.ConfidenceScore)
				if in.sig.Confidence < min {
					return false, fmt.Sprintf("confidence %.1f below minimum %.1f", in.sig.Confidence, min)
				}
				return true, ""
			},
			penalty: func(conf float64) float64 { return conf },
		},
		{
			code:   ReasonRSIOverbought,
			weight: 20,
			check: func(in *ruleInput) (bool, string) {
				max := math.Min(in.cfg.RSIOverboughtMax, in.thresholds.RSIEntryMax)
				if rsi := in.snap.Primary.RSIValue(); rsi > max {
					return false, fmt.Sprintf("RSI %.1f above entry ceiling %.1f", rsi, max)
				}
				return true, ""
			},
			penalty: floorPenalty(30, 25),
		},
		{
			code:   ReasonBearishFiltered,
			weight: 5,
			check: func(in *ruleInput) (bool, string) {
				if in.sig.Action != signal.ActionBuy {
					return false, "signal is not a confirmed entry"
				}
				if in.regime != nil && in.regime.PrimaryTrend == analysis.TrendDown && !in.snap.Primary.HasBullishMACD() {
					return false, "downtrend regime without bullish momentum"
				}
				return true, ""
			},
			penalty: func(float64) float64 { return 0 },
		},
		{
			code:   ReasonVolumeRequired,
			weight: 20,
			check: func(in *ruleInput) (bool, string) {
				if in.vol.SpikeRatio < in.thresholds.VolumeSpikeMin {
					return false, fmt.Sprintf("volume spike %.2fx below required %.2fx", in.vol.SpikeRatio, in.thresholds.VolumeSpikeMin)
				}
				return true, ""
			},
			penalty: floorPenalty(25, 20),
		},
		{
			code:   ReasonWeakTrend,
			weight: 15,
			check: func(in *ruleInput) (bool, string) {
				if adx := in.snap.Primary.ADXValue(); adx < in.cfg.MinTrendStrength {
					return false, fmt.Sprintf("ADX %.1f below minimum trend strength %.1f", adx, in.cfg.MinTrendStrength)
				}
				return true, ""
			},
			penalty: floorPenalty(20, 30),
		},
		{
			code:   ReasonRSISweetSpot,
			weight: 15,
			check: func(in *ruleInput) (bool, string) {
				rsi := in.snap.Primary.RSIValue()
				if rsi < in.cfg.RSISweetSpotLow || rsi > in.cfg.RSISweetSpotHigh {
					return false, fmt.Sprintf("RSI %.1f outside [%.0f, %.0f]", rsi, in.cfg.RSISweetSpotLow, in.cfg.RSISweetSpotHigh)
				}
				return true, ""
			},
			penalty: floorPenalty(15, 25),
		},
	}
	return c
}

// floorPenalty subtracts deduction from the confidence but never below floor
func floorPenalty(deduction, floor float64) func(float64) float64 {
	return func(conf float64) float64 {
		return math.Max(floor, conf-deduction)
	}
}

// Apply runs the signal through the chain. A rule panic demotes the signal
// to an error HOLD instead of taking the evaluation down.
func (c *ComplianceChain) Apply(sig *signal.MomentumSignal, snap *fetcher.IndicatorSnapshot, vol *analysis.VolumeFeatures, regime *analysis.RegimeFeatures, thresholds optimizer.Thresholds) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("symbol", sig.Symbol).
				Interface("panic", r).
				Msg("Filter rule panicked, demoting to HOLD")
			result = &Result{
				Action:          signal.ActionHold,
				RejectionReason: ReasonInternalError,
				RejectionDetail: fmt.Sprintf("internal filter error: %v", r),
			}
		}
	}()

	in := &ruleInput{
		sig:        sig,
		snap:       snap,
		vol:        vol,
		regime:     regime,
		thresholds: thresholds,
		cfg:        c.cfg,
	}

	score := 0.0
	for i, r := range c.rules {
		ok, detail := r.check(in)
		if !ok {
			adjusted := r.penalty(sig.Confidence)
			c.logger.Info().
				Str("symbol", sig.Symbol).
				Str("reason", r.code).
				Str("detail", detail).
				Float64("adjusted_confidence", adjusted).
				Msg("Signal rejected by compliance chain")
			return &Result{
				Action:             signal.ActionHold,
				AdjustedConfidence: adjusted,
				ComplianceScore:    score,
				RejectionReason:    r.code,
				RejectionDetail:    detail,
				RulesEvaluated:     i + 1,
			}
		}
		score += r.weight
	}

	adjusted := sig.Confidence
	if adjusted >= boostThreshold {
		adjusted = math.Min(boostCeiling, adjusted+boostAmount)
	}

	c.logger.Debug().
		Str("symbol", sig.Symbol).
		Float64("compliance_score", score).
		Float64("adjusted_confidence", adjusted).
		Msg("Signal cleared compliance chain")

	return &Result{
		Approved:           true,
		Action:             signal.ActionBuy,
		AdjustedConfidence: adjusted,
		ComplianceScore:    score,
		RulesEvaluated:     len(c.rules),
	}
}
