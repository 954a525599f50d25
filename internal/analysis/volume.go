// Package analysis derives volume, breakout and market-regime features from
// indicator snapshots.
package analysis

import (
	"momentum-signal-engine/internal/taapi"
)

// VolumeTrend labels the direction of volume participation
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "INCREASING"
	VolumeNeutral    VolumeTrend = "NEUTRAL"
	VolumeDecreasing VolumeTrend = "DECREASING"
)

// VolumeFeatures is the volume confirmation summary for one snapshot
type VolumeFeatures struct {
	Confirmations      int         `json:"confirmations"` // 0-4
	Trend              VolumeTrend `json:"trend"`
	SpikeRatio         float64     `json:"spike_ratio"`
	MFIBullish         bool        `json:"mfi_bullish"`
	MFIStrong          bool        `json:"mfi_strong"` // MFI above 60
	OBVPresent         bool        `json:"obv_present"`
	OscillatorPositive bool        `json:"oscillator_positive"`
	SpikeConfirmed     bool        `json:"spike_confirmed"`
}

// VolumeAnalyzer scores volume confirmation from money flow, on-balance
// volume, the volume oscillator and the spike ratio.
type VolumeAnalyzer struct {
	pvoNeutralBand float64 // Oscillator values inside ±band read as flat
}

// NewVolumeAnalyzer creates a volume analyzer
func NewVolumeAnalyzer() *VolumeAnalyzer {
	return &VolumeAnalyzer{pvoNeutralBand: 1.0}
}

// Analyze derives volume features from the primary indicator set. spikeMin is
// the adaptive volume-spike threshold snapshot for this evaluation.
func (va *VolumeAnalyzer) Analyze(primary *taapi.IndicatorSet, spikeMin float64) VolumeFeatures {
	features := VolumeFeatures{
		Trend:      VolumeNeutral,
		SpikeRatio: primary.SpikeRatio(),
	}

	mfi := primary.MFIValue()
	features.MFIBullish = mfi > 50
	features.MFIStrong = mfi > 60

	features.OBVPresent = primary != nil && primary.OBV != nil

	if primary != nil && primary.PVO != nil {
		features.OscillatorPositive = *primary.PVO > 0
		if *primary.PVO > va.pvoNeutralBand {
			features.Trend = VolumeIncreasing
		} else if *primary.PVO < -va.pvoNeutralBand {
			features.Trend = VolumeDecreasing
		}
	}

	features.SpikeConfirmed = features.SpikeRatio >= spikeMin

	if features.MFIBullish {
		features.Confirmations++
	}
	if features.OBVPresent {
		features.Confirmations++
	}
	if features.OscillatorPositive {
		features.Confirmations++
	}
	if features.SpikeConfirmed {
		features.Confirmations++
	}

	return features
}

// Confirmed reports whether volume supports an entry: at least two of the
// four checks, one of which must be the spike or money flow
func (f VolumeFeatures) Confirmed() bool {
	return f.Confirmations >= 2 && (f.SpikeConfirmed || f.MFIBullish)
}
