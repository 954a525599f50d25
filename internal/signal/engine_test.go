package signal

import (
	"testing"

	"github.com/rs/zerolog"

	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/fetcher"
	"momentum-signal-engine/internal/scoring"
	"momentum-signal-engine/internal/taapi"
)

func fp(v float64) *float64 { return &v }

func metricsWithScore(score float64) *scoring.EntryQualityMetrics {
	return &scoring.EntryQualityMetrics{
		OverallScore:   score,
		SignalStrength: scoring.StrengthStrong,
		Confirmations:  scoring.Confirmations{Volume: true, Momentum: true},
		RiskFactors:    []string{},
		WarningFlags:   []string{},
	}
}

func plainSnapshot() *fetcher.IndicatorSnapshot {
	return &fetcher.IndicatorSnapshot{
		Symbol:    "BTC/USDT",
		Primary:   &taapi.IndicatorSet{},
		ShortTerm: &taapi.IndicatorSet{},
		LongTerm:  &taapi.IndicatorSet{},
	}
}

func TestExcellentBandBuysWithCeiling(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())
	sig := e.Decide(plainSnapshot(), metricsWithScore(98), &analysis.BreakoutFeatures{})

	if sig.Action != ActionBuy {
		t.Fatalf("action = %s, want BUY", sig.Action)
	}
	if sig.Confidence != 95 {
		t.Errorf("confidence = %.1f, want capped 95", sig.Confidence)
	}
}

func TestStrongBandBuys(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())
	sig := e.Decide(plainSnapshot(), metricsWithScore(74), &analysis.BreakoutFeatures{})

	if sig.Action != ActionBuy {
		t.Fatalf("action = %s, want BUY", sig.Action)
	}
	if sig.Confidence != 74 {
		t.Errorf("confidence = %.1f, want 74", sig.Confidence)
	}
}

func TestConditionalBandRequiresBothConfirmations(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())

	confirmed := metricsWithScore(64)
	sig := e.Decide(plainSnapshot(), confirmed, &analysis.BreakoutFeatures{})
	if sig.Action != ActionBuy {
		t.Fatalf("action = %s, confirmed conditional band should BUY", sig.Action)
	}
	if sig.Confidence != 64 {
		t.Errorf("confidence = %.1f, want 64", sig.Confidence)
	}

	unconfirmed := metricsWithScore(64)
	unconfirmed.Confirmations.Momentum = false
	sig = e.Decide(plainSnapshot(), unconfirmed, &analysis.BreakoutFeatures{})
	if sig.Action != ActionHold {
		t.Errorf("action = %s, conditional band without momentum must HOLD", sig.Action)
	}
}

func TestLowScoreHolds(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())
	sig := e.Decide(plainSnapshot(), metricsWithScore(45), &analysis.BreakoutFeatures{})

	if sig.Action != ActionHold {
		t.Errorf("action = %s, want HOLD", sig.Action)
	}
}

func TestWarningFlagsDampConfidence(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())
	m := metricsWithScore(90)
	m.WarningFlags = []string{"declining volume"}

	sig := e.Decide(plainSnapshot(), m, &analysis.BreakoutFeatures{})
	if sig.Confidence != 90*0.9 {
		t.Errorf("confidence = %.1f, want 81 after warning damp", sig.Confidence)
	}
}

func TestRiskRewardFromBandsAndATR(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())
	snap := plainSnapshot()
	snap.Primary = &taapi.IndicatorSet{
		Bollinger: &taapi.BollingerValue{Upper: 106, Middle: 100, Lower: 94},
		VWAP:      fp(100),
		ATR:       fp(2),
	}

	sig := e.Decide(snap, metricsWithScore(85), &analysis.BreakoutFeatures{})
	if sig.RiskRewardRatio != 2 {
		t.Errorf("risk reward = %v, want (106-100)/(1.5*2) = 2", sig.RiskRewardRatio)
	}
}

func TestTechnicalConfidenceRegimeAdjustment(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())
	m := metricsWithScore(70)
	brk := &analysis.BreakoutFeatures{}

	up := &analysis.RegimeFeatures{PrimaryTrend: analysis.TrendUp}
	down := &analysis.RegimeFeatures{PrimaryTrend: analysis.TrendDown}

	// 70 + 8 volume + 4 momentum = 82, then +3 uptrend / -8 downtrend
	if got := e.TechnicalConfidence(m, brk, up); got != 85 {
		t.Errorf("uptrend confidence = %.1f, want 85", got)
	}
	if got := e.TechnicalConfidence(m, brk, down); got != 74 {
		t.Errorf("downtrend confidence = %.1f, want 74", got)
	}
}

func TestTechnicalConfidenceBonusPerConfirmation(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())
	noBrk := &analysis.BreakoutFeatures{}
	confirmedBrk := &analysis.BreakoutFeatures{Type: analysis.BreakoutSqueeze, Strength: 40}

	volumeOnly := metricsWithScore(70)
	volumeOnly.Confirmations = scoring.Confirmations{Volume: true}
	if got := e.TechnicalConfidence(volumeOnly, noBrk, nil); got != 78 {
		t.Errorf("volume-only confidence = %.1f, want 70+8", got)
	}

	momentumOnly := metricsWithScore(70)
	momentumOnly.Confirmations = scoring.Confirmations{Momentum: true}
	if got := e.TechnicalConfidence(momentumOnly, noBrk, nil); got != 74 {
		t.Errorf("momentum-only confidence = %.1f, want 70+4", got)
	}

	breakoutOnly := metricsWithScore(70)
	breakoutOnly.Confirmations = scoring.Confirmations{}
	if got := e.TechnicalConfidence(breakoutOnly, confirmedBrk, nil); got != 76 {
		t.Errorf("breakout-only confidence = %.1f, want 70+6", got)
	}

	// A zero-value breakout features struct carries no bonus
	if got := e.TechnicalConfidence(breakoutOnly, noBrk, nil); got != 70 {
		t.Errorf("unconfirmed confidence = %.1f, want 70", got)
	}
}

func TestTechnicalConfidenceClamps(t *testing.T) {
	e := NewDecisionEngine(zerolog.Nop())

	high := metricsWithScore(99)
	brkConfirmed := &analysis.BreakoutFeatures{Type: analysis.BreakoutSqueeze, Strength: 40}
	if got := e.TechnicalConfidence(high, brkConfirmed, nil); got != 100 {
		t.Errorf("confidence = %.1f, want clamped 100", got)
	}

	low := metricsWithScore(5)
	low.Confirmations = scoring.Confirmations{}
	low.RiskFactors = []string{"a", "b", "c", "d"}
	if got := e.TechnicalConfidence(low, &analysis.BreakoutFeatures{}, nil); got != 0 {
		t.Errorf("confidence = %.1f, want clamped 0", got)
	}
}
