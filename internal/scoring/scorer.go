package scoring

import (
	"strings"

	"github.com/rs/zerolog"

	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/fetcher"
)

// EntryQualityScorer turns an indicator snapshot plus the extracted volume
// and breakout features into EntryQualityMetrics.
type EntryQualityScorer struct {
	logger zerolog.Logger
}

func NewEntryQualityScorer(logger zerolog.Logger) *EntryQualityScorer {
	return &EntryQualityScorer{
		logger: logger.With().Str("component", "entry_quality_scorer").Logger(),
	}
}

// Evaluate computes all subscores, the weighted overall score, strength
// classification and the high-probability gate for one snapshot.
func (s *EntryQualityScorer) Evaluate(snap *fetcher.IndicatorSnapshot, vol *analysis.VolumeFeatures, brk *analysis.BreakoutFeatures) *EntryQualityMetrics {
	metrics := &EntryQualityMetrics{
		RiskFactors:  []string{},
		WarningFlags: []string{},
	}

	metrics.Subscores.Momentum = s.scoreMomentum(snap)
	metrics.Subscores.Volume = s.scoreVolume(snap, vol)
	metrics.Subscores.Technical = s.scoreTechnical(snap)
	metrics.Subscores.Breakout = s.scoreBreakout(snap, brk)
	metrics.Subscores.TimeframeAlignment = s.scoreTimeframeAlignment(snap)

	metrics.OverallScore = metrics.Subscores.Momentum*WeightMomentum +
		metrics.Subscores.Volume*WeightVolume +
		metrics.Subscores.Technical*WeightTechnical +
		metrics.Subscores.Breakout*WeightBreakout +
		metrics.Subscores.TimeframeAlignment*WeightTimeframe

	metrics.Confirmations = Confirmations{
		Volume:   vol.Confirmed(),
		Momentum: s.momentumConfirmed(snap),
		Breakout: brk.Confirmed(),
	}

	s.collectRiskFactors(snap, vol, metrics)
	s.collectWarningFlags(snap, vol, brk, metrics)

	metrics.SignalStrength = s.classifyStrength(metrics)
	metrics.IsHighProbability = s.highProbability(metrics)

	s.logger.Debug().
		Str("symbol", snap.Symbol).
		Float64("overall", metrics.OverallScore).
		Str("strength", string(metrics.SignalStrength)).
		Bool("high_probability", metrics.IsHighProbability).
		Msg("Entry quality evaluated")

	return metrics
}

// scoreMomentum: four equally weighted checks on the primary timeframe
func (s *EntryQualityScorer) scoreMomentum(snap *fetcher.IndicatorSnapshot) float64 {
	score := 0.0
	rsi := snap.Primary.RSIValue()
	if rsi >= 40 && rsi <= 65 {
		score += 25
	}
	if snap.Primary.HasBullishMACD() {
		score += 25
	}
	if snap.Primary.HasBullishEMAStack() {
		score += 25
	}
	if snap.Primary.ADXValue() >= 25 {
		score += 25
	}
	return score
}

// scoreVolume: MFI tiers plus OBV availability plus the spike check. The
// spike check already carries the adaptive threshold via VolumeFeatures.
func (s *EntryQualityScorer) scoreVolume(snap *fetcher.IndicatorSnapshot, vol *analysis.VolumeFeatures) float64 {
	score := 0.0
	mfi := snap.Primary.MFIValue()
	switch {
	case mfi >= 55:
		score += 40
	case mfi >= 45:
		score += 20
	}
	if vol.OBVPresent {
		score += 30
	}
	if vol.SpikeConfirmed {
		score += 30
	}
	return score
}

// scoreTechnical: structural checks on bands and oscillators, 25 each
func (s *EntryQualityScorer) scoreTechnical(snap *fetcher.IndicatorSnapshot) float64 {
	score := 0.0
	if bb := snap.Primary.Bollinger; bb != nil && snap.Primary.VWAP != nil {
		price := *snap.Primary.VWAP
		if price > bb.Middle && price < bb.Upper {
			score += 25
		}
	}
	if st := snap.Primary.StochRSI; st != nil && st.K > st.D && st.K < 80 {
		score += 25
	}
	if wr := snap.Primary.WilliamsR; wr != nil && *wr >= -80 && *wr <= -20 {
		score += 25
	}
	if snap.Primary.ATR != nil && *snap.Primary.ATR > 0 {
		score += 25
	}
	return score
}

// scoreBreakout: squeeze momentum sign, active squeeze, band expansion
func (s *EntryQualityScorer) scoreBreakout(snap *fetcher.IndicatorSnapshot, brk *analysis.BreakoutFeatures) float64 {
	score := 0.0
	if sq := snap.Primary.Squeeze; sq != nil && sq.Momentum > 0 {
		score += 40
	}
	if sq := snap.Primary.Squeeze; sq != nil && sq.On {
		score += 30
	}
	if brk.BandsExpanding {
		score += 30
	}
	return score
}

// scoreTimeframeAlignment: bullish agreement across 15m/1h/4h
func (s *EntryQualityScorer) scoreTimeframeAlignment(snap *fetcher.IndicatorSnapshot) float64 {
	score := 0.0
	if snap.Primary.RSIValue() > 45 && snap.ShortTerm.RSIValue() > 45 && snap.LongTerm.RSIValue() > 45 {
		score += 60
	}
	if snap.Primary.HasBullishMACD() && snap.ShortTerm.HasBullishMACD() {
		score += 40
	}
	return score
}

func (s *EntryQualityScorer) momentumConfirmed(snap *fetcher.IndicatorSnapshot) bool {
	rsi := snap.Primary.RSIValue()
	return rsi >= 40 && rsi <= 65 && snap.Primary.HasBullishMACD()
}

func (s *EntryQualityScorer) collectRiskFactors(snap *fetcher.IndicatorSnapshot, vol *analysis.VolumeFeatures, m *EntryQualityMetrics) {
	if snap.Primary.RSIValue() > 70 {
		m.RiskFactors = append(m.RiskFactors, RiskOverboughtRSI)
	}
	if snap.Primary.MFIValue() < 40 {
		m.RiskFactors = append(m.RiskFactors, RiskWeakMoneyFlow)
	}
	if snap.Primary.ADXValue() < 20 {
		m.RiskFactors = append(m.RiskFactors, RiskWeakTrend)
	}
	if vol.SpikeRatio < 1.0 {
		m.RiskFactors = append(m.RiskFactors, RiskVolumeDrought)
	}
}

func (s *EntryQualityScorer) collectWarningFlags(snap *fetcher.IndicatorSnapshot, vol *analysis.VolumeFeatures, brk *analysis.BreakoutFeatures, m *EntryQualityMetrics) {
	if rsi := snap.Primary.RSIValue(); rsi > 65 && rsi <= 70 {
		m.WarningFlags = append(m.WarningFlags, "RSI approaching overbought")
	}
	if vol.Trend == analysis.VolumeDecreasing {
		m.WarningFlags = append(m.WarningFlags, "declining volume")
	}
	if sq := snap.Primary.Squeeze; sq != nil && sq.On && !brk.BandsExpanding {
		m.WarningFlags = append(m.WarningFlags, "volatility compression unresolved")
	}
	if snap.Degraded {
		m.WarningFlags = append(m.WarningFlags, "degraded snapshot")
	}
}

// classifyStrength applies the subscore overrides before the score bands:
// starved volume or momentum caps the whole evaluation.
func (s *EntryQualityScorer) classifyStrength(m *EntryQualityMetrics) SignalStrength {
	if m.Subscores.Volume < volumeFloorAvoid {
		return StrengthAvoid
	}
	if m.Subscores.Momentum < momentumFloorWeak {
		return StrengthWeak
	}
	switch {
	case m.OverallScore >= excellentScore:
		return StrengthExcellent
	case m.OverallScore >= strongScore:
		return StrengthStrong
	case m.OverallScore >= moderateScore:
		return StrengthModerate
	case m.OverallScore >= weakScore:
		return StrengthWeak
	default:
		return StrengthAvoid
	}
}

// highProbability requires a strong overall score, both volume and momentum
// confirmed, and no disqualifying risk factor.
func (s *EntryQualityScorer) highProbability(m *EntryQualityMetrics) bool {
	if m.OverallScore < strongScore {
		return false
	}
	if !m.Confirmations.Volume || !m.Confirmations.Momentum {
		return false
	}
	for _, rf := range m.RiskFactors {
		if strings.Contains(rf, "overbought") || strings.Contains(rf, "weak money flow") {
			return false
		}
	}
	return true
}
