package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/fetcher"
	"momentum-signal-engine/internal/scoring"
)

// Confidence ceilings per score band. Mapping BUY above a great score still
// leaves headroom below 100 for later boosts.
const (
	excellentBand    = 80.0
	strongBand       = 70.0
	conditionalBand  = 60.0
	excellentCeiling = 95.0
	strongCeiling    = 85.0
	conditionalCap   = 75.0
	warningDamp      = 0.9
)

// DecisionEngine converts entry quality metrics into a MomentumSignal
type DecisionEngine struct {
	logger zerolog.Logger
}

func NewDecisionEngine(logger zerolog.Logger) *DecisionEngine {
	return &DecisionEngine{
		logger: logger.With().Str("component", "decision_engine").Logger(),
	}
}

// Decide applies the band mapping to the overall score. The 60-69 band is
// conditional: it enters only with both volume and momentum confirmed.
func (e *DecisionEngine) Decide(snap *fetcher.IndicatorSnapshot, metrics *scoring.EntryQualityMetrics, brk *analysis.BreakoutFeatures) *MomentumSignal {
	sig := &MomentumSignal{
		Symbol:             snap.Symbol,
		Action:             ActionHold,
		Confidence:         metrics.OverallScore,
		Strength:           metrics.SignalStrength,
		BreakoutType:       brk.Type,
		EntryQuality:       metrics,
		VolumeConfirmation: metrics.Confirmations.Volume,
		RiskRewardRatio:    riskReward(snap),
		Reasons:            []string{},
		IndicatorsAligned:  countAligned(snap),
		Timestamp:          time.Now(),
	}

	overall := metrics.OverallScore
	switch {
	case overall >= excellentBand:
		sig.Action = ActionBuy
		sig.Confidence = math.Min(excellentCeiling, overall)
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("excellent entry quality (%.1f)", overall))
	case overall >= strongBand:
		sig.Action = ActionBuy
		sig.Confidence = math.Min(strongCeiling, overall)
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("strong entry quality (%.1f)", overall))
	case overall >= conditionalBand:
		if metrics.Confirmations.Volume && metrics.Confirmations.Momentum {
			sig.Action = ActionBuy
			sig.Confidence = math.Min(conditionalCap, overall)
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("moderate quality (%.1f) with volume and momentum confirmed", overall))
		} else {
			sig.Reasons = append(sig.Reasons, "moderate quality without volume and momentum confirmation")
		}
	default:
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("entry quality below threshold (%.1f)", overall))
	}

	if len(metrics.WarningFlags) > 0 {
		sig.Confidence *= warningDamp
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("confidence reduced for %d warning flags", len(metrics.WarningFlags)))
	}

	e.logger.Debug().
		Str("symbol", sig.Symbol).
		Str("action", string(sig.Action)).
		Float64("confidence", sig.Confidence).
		Str("breakout_type", string(sig.BreakoutType)).
		Msg("Signal decided")
	return sig
}

// TechnicalConfidence is the regime-aware confidence used by the streaming
// path: the overall score adjusted for confirmations, risk factors and the
// prevailing market regime, clamped to [0, 100].
func (e *DecisionEngine) TechnicalConfidence(metrics *scoring.EntryQualityMetrics, brk *analysis.BreakoutFeatures, regime *analysis.RegimeFeatures) float64 {
	conf := metrics.OverallScore
	if metrics.Confirmations.Volume {
		conf += 8
	}
	if metrics.Confirmations.Momentum {
		conf += 4
	}
	if brk.Confirmed() {
		conf += 6
	}
	conf -= 4 * float64(len(metrics.RiskFactors))

	if regime != nil {
		switch regime.PrimaryTrend {
		case analysis.TrendUp:
			conf += 3
		case analysis.TrendDown:
			conf -= 8
		}
	}

	return math.Max(0, math.Min(100, conf))
}

// riskReward estimates reward-to-risk from the upper band distance against
// an ATR-sized stop. Zero when bands or ATR are unavailable.
func riskReward(snap *fetcher.IndicatorSnapshot) float64 {
	p := snap.Primary
	if p.Bollinger == nil || p.VWAP == nil || p.ATR == nil || *p.ATR <= 0 {
		return 0
	}
	price := *p.VWAP
	reward := p.Bollinger.Upper - price
	risk := 1.5 * *p.ATR
	if reward <= 0 {
		return 0
	}
	return reward / risk
}

// countAligned counts the bullish checks across the snapshot
func countAligned(snap *fetcher.IndicatorSnapshot) int {
	aligned := 0
	if rsi := snap.Primary.RSIValue(); rsi >= 40 && rsi <= 65 {
		aligned++
	}
	if snap.Primary.HasBullishMACD() {
		aligned++
	}
	if snap.Primary.HasBullishEMAStack() {
		aligned++
	}
	if snap.Primary.ADXValue() >= 25 {
		aligned++
	}
	if snap.Primary.MFIValue() > 50 {
		aligned++
	}
	if snap.ShortTerm.RSIValue() > 45 {
		aligned++
	}
	if snap.LongTerm.RSIValue() > 45 {
		aligned++
	}
	if snap.ShortTerm.HasBullishMACD() {
		aligned++
	}
	return aligned
}
