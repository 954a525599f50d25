package scoring

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/fetcher"
	"momentum-signal-engine/internal/taapi"
)

func fp(v float64) *float64 { return &v }

// bullishSet is a primary-interval set where every check passes
func bullishSet() *taapi.IndicatorSet {
	return &taapi.IndicatorSet{
		RSI:       fp(52),
		MACD:      &taapi.MACDValue{MACD: 0.010, Signal: 0.008, Histogram: 0.002},
		EMA20:     fp(102),
		EMA50:     fp(101),
		EMA200:    fp(99),
		Bollinger: &taapi.BollingerValue{Upper: 103, Middle: 100, Lower: 97},
		ATR:       fp(1.2),
		ADX:       fp(30),
		MFI:       fp(60),
		VWAP:      fp(101),
		OBV:       fp(1500000),
		StochRSI:  &taapi.StochRSIValue{K: 55, D: 48},
		WilliamsR: fp(-45),
		Squeeze:   &taapi.SqueezeValue{Momentum: 0.5, On: true},
		PVO:       fp(2.5),
		Volume:    &taapi.VolumeStats{Current: 2000, Average20: 1000},
	}
}

func bullishSnapshot() *fetcher.IndicatorSnapshot {
	return &fetcher.IndicatorSnapshot{
		Symbol:  "BTC/USDT",
		Primary: bullishSet(),
		ShortTerm: &taapi.IndicatorSet{
			RSI:  fp(54),
			MACD: &taapi.MACDValue{MACD: 0.005, Signal: 0.003, Histogram: 0.001},
			MFI:  fp(58),
			PVO:  fp(1.5),
		},
		LongTerm: &taapi.IndicatorSet{
			RSI:    fp(56),
			MACD:   &taapi.MACDValue{MACD: 0.02, Signal: 0.015, Histogram: 0.004},
			EMA50:  fp(100),
			EMA200: fp(95),
			ADX:    fp(28),
		},
		FetchedAt: time.Now(),
	}
}

func features(snap *fetcher.IndicatorSnapshot, spikeMin float64) (*analysis.VolumeFeatures, *analysis.BreakoutFeatures) {
	vol := analysis.NewVolumeAnalyzer().Analyze(snap.Primary, spikeMin)
	brk := analysis.NewBreakoutDetector().Detect(snap.Primary)
	return &vol, &brk
}

func TestFullyConfirmedEntryScoresExcellent(t *testing.T) {
	snap := bullishSnapshot()
	vol, brk := features(snap, 1.8)
	scorer := NewEntryQualityScorer(zerolog.Nop())

	m := scorer.Evaluate(snap, vol, brk)

	if m.OverallScore < 80 {
		t.Fatalf("overall = %.1f, want at least 80 for a fully confirmed setup", m.OverallScore)
	}
	if m.SignalStrength != StrengthExcellent {
		t.Errorf("strength = %s, want EXCELLENT", m.SignalStrength)
	}
	if !m.Confirmations.Volume || !m.Confirmations.Momentum {
		t.Errorf("confirmations = %+v, want volume and momentum", m.Confirmations)
	}
	if len(m.RiskFactors) != 0 {
		t.Errorf("risk factors = %v, want none", m.RiskFactors)
	}
	if !m.IsHighProbability {
		t.Error("fully confirmed setup should be high probability")
	}
}

func TestStarvedVolumeOverridesToAvoid(t *testing.T) {
	snap := bullishSnapshot()
	snap.Primary.MFI = fp(35)
	snap.Primary.OBV = nil
	snap.Primary.Volume = &taapi.VolumeStats{Current: 900, Average20: 1000}
	vol, brk := features(snap, 1.8)
	scorer := NewEntryQualityScorer(zerolog.Nop())

	m := scorer.Evaluate(snap, vol, brk)

	if m.Subscores.Volume >= 20 {
		t.Fatalf("volume subscore = %.1f, want starved (< 20)", m.Subscores.Volume)
	}
	if m.SignalStrength != StrengthAvoid {
		t.Errorf("strength = %s, starved volume must override to AVOID", m.SignalStrength)
	}
}

func TestStarvedMomentumOverridesToWeak(t *testing.T) {
	snap := bullishSnapshot()
	snap.Primary.RSI = fp(30)
	snap.Primary.MACD = &taapi.MACDValue{MACD: -0.01, Signal: 0.002, Histogram: -0.012}
	snap.Primary.EMA20 = fp(95)
	snap.Primary.ADX = fp(12)
	vol, brk := features(snap, 1.8)
	scorer := NewEntryQualityScorer(zerolog.Nop())

	m := scorer.Evaluate(snap, vol, brk)

	if m.Subscores.Momentum >= 25 {
		t.Fatalf("momentum subscore = %.1f, want starved (< 25)", m.Subscores.Momentum)
	}
	if m.SignalStrength != StrengthWeak {
		t.Errorf("strength = %s, starved momentum must override to WEAK", m.SignalStrength)
	}
}

func TestOverboughtRSIBlocksHighProbability(t *testing.T) {
	snap := bullishSnapshot()
	snap.Primary.RSI = fp(78)
	vol, brk := features(snap, 1.8)
	scorer := NewEntryQualityScorer(zerolog.Nop())

	m := scorer.Evaluate(snap, vol, brk)

	found := false
	for _, rf := range m.RiskFactors {
		if rf == RiskOverboughtRSI {
			found = true
		}
	}
	if !found {
		t.Fatalf("risk factors = %v, want overbought RSI flagged", m.RiskFactors)
	}
	if m.IsHighProbability {
		t.Error("overbought setup must not be high probability")
	}
}

func TestNeutralSnapshotScoresBelowEntry(t *testing.T) {
	snap := fetcher.NewNeutralSnapshot("BTC/USDT")
	vol, brk := features(snap, 1.8)
	scorer := NewEntryQualityScorer(zerolog.Nop())

	m := scorer.Evaluate(snap, vol, brk)

	if m.OverallScore >= 60 {
		t.Fatalf("neutral snapshot scored %.1f, must stay below the entry band", m.OverallScore)
	}
	if m.SignalStrength == StrengthExcellent || m.SignalStrength == StrengthStrong {
		t.Errorf("neutral snapshot classified %s", m.SignalStrength)
	}
}

func TestImprovingOneSubscoreNeverLowersOverall(t *testing.T) {
	scorer := NewEntryQualityScorer(zerolog.Nop())

	// Each case weakens exactly one subscore's inputs; restoring them must
	// raise that subscore and never drop the weighted overall.
	cases := []struct {
		name     string
		weaken   func(snap *fetcher.IndicatorSnapshot)
		subscore func(m *EntryQualityMetrics) float64
	}{
		{
			name:     "momentum via ADX",
			weaken:   func(snap *fetcher.IndicatorSnapshot) { snap.Primary.ADX = fp(10) },
			subscore: func(m *EntryQualityMetrics) float64 { return m.Subscores.Momentum },
		},
		{
			name:     "volume via MFI",
			weaken:   func(snap *fetcher.IndicatorSnapshot) { snap.Primary.MFI = fp(40) },
			subscore: func(m *EntryQualityMetrics) float64 { return m.Subscores.Volume },
		},
		{
			name: "technical via stochastic RSI",
			weaken: func(snap *fetcher.IndicatorSnapshot) {
				snap.Primary.StochRSI = &taapi.StochRSIValue{K: 40, D: 48}
			},
			subscore: func(m *EntryQualityMetrics) float64 { return m.Subscores.Technical },
		},
		{
			name: "breakout via squeeze momentum",
			weaken: func(snap *fetcher.IndicatorSnapshot) {
				snap.Primary.Squeeze = &taapi.SqueezeValue{Momentum: -0.5, On: true}
			},
			subscore: func(m *EntryQualityMetrics) float64 { return m.Subscores.Breakout },
		},
		{
			name: "timeframe alignment via short-term MACD",
			weaken: func(snap *fetcher.IndicatorSnapshot) {
				snap.ShortTerm.MACD = &taapi.MACDValue{MACD: -0.005, Signal: 0.003, Histogram: -0.008}
			},
			subscore: func(m *EntryQualityMetrics) float64 { return m.Subscores.TimeframeAlignment },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			strong := bullishSnapshot()
			vol, brk := features(strong, 1.8)
			high := scorer.Evaluate(strong, vol, brk)

			weak := bullishSnapshot()
			tc.weaken(weak)
			vol, brk = features(weak, 1.8)
			low := scorer.Evaluate(weak, vol, brk)

			if tc.subscore(high) <= tc.subscore(low) {
				t.Fatalf("subscore did not improve: strong %.1f vs weakened %.1f",
					tc.subscore(high), tc.subscore(low))
			}
			if high.OverallScore < low.OverallScore {
				t.Errorf("overall fell from %.1f to %.1f as the subscore improved",
					low.OverallScore, high.OverallScore)
			}
		})
	}
}

func TestTighterSpikeThresholdLowersVolumeScore(t *testing.T) {
	snap := bullishSnapshot()
	scorer := NewEntryQualityScorer(zerolog.Nop())

	// Spike ratio is 2.0; confirmed at 1.8, unconfirmed once tightened past it
	volLoose, brkLoose := features(snap, 1.8)
	loose := scorer.Evaluate(snap, volLoose, brkLoose)

	volTight, brkTight := features(snap, 2.4)
	tight := scorer.Evaluate(snap, volTight, brkTight)

	if tight.Subscores.Volume >= loose.Subscores.Volume {
		t.Errorf("volume subscore %.1f under tightened threshold, want below %.1f",
			tight.Subscores.Volume, loose.Subscores.Volume)
	}
}
