package fetcher

import (
	"time"

	"momentum-signal-engine/internal/taapi"
)

// Timeframes used to build a snapshot
const (
	IntervalPrimary = "1h"
	IntervalShort   = "15m"
	IntervalLong    = "4h"
)

// PrimaryIndicators is the wide set fetched on the primary interval:
// momentum, trend, bands, volatility, trend strength, money flow and
// volume-weighted price, plus the pattern and squeeze inputs the feature
// extractors read.
var PrimaryIndicators = []string{
	taapi.IndicatorRSI,
	taapi.IndicatorMACD,
	taapi.IndicatorEMA20,
	taapi.IndicatorEMA50,
	taapi.IndicatorEMA200,
	taapi.IndicatorBollinger,
	taapi.IndicatorATR,
	taapi.IndicatorADX,
	taapi.IndicatorMFI,
	taapi.IndicatorVWAP,
	taapi.IndicatorOBV,
	taapi.IndicatorStochRSI,
	taapi.IndicatorWilliamsR,
	taapi.IndicatorSqueeze,
	taapi.IndicatorPVO,
	taapi.IndicatorVolume,
	taapi.IndicatorPatterns,
}

// ShortTermIndicators is the momentum / money-flow subset for the short interval
var ShortTermIndicators = []string{
	taapi.IndicatorRSI,
	taapi.IndicatorMACD,
	taapi.IndicatorMFI,
	taapi.IndicatorPVO,
}

// LongTermIndicators is the trend-confirmation subset for the long interval
var LongTermIndicators = []string{
	taapi.IndicatorRSI,
	taapi.IndicatorMACD,
	taapi.IndicatorEMA50,
	taapi.IndicatorEMA200,
	taapi.IndicatorADX,
}

// IndicatorSnapshot is the merged indicator state for one symbol across the
// three timeframes. Immutable once built; shared by reference from the cache.
type IndicatorSnapshot struct {
	Symbol    string              `json:"symbol"`
	Primary   *taapi.IndicatorSet `json:"primary"`
	ShortTerm *taapi.IndicatorSet `json:"short_term"`
	LongTerm  *taapi.IndicatorSet `json:"long_term"`
	FetchedAt time.Time           `json:"fetched_at"`
	Degraded  bool                `json:"degraded"` // Provider failed; all values are neutral
}

// NewNeutralSnapshot builds the empty snapshot returned on provider failure.
// Every indicator reads as its neutral default, so downstream stages degrade
// to HOLD instead of erroring.
func NewNeutralSnapshot(symbol string) *IndicatorSnapshot {
	return &IndicatorSnapshot{
		Symbol:    symbol,
		Primary:   &taapi.IndicatorSet{},
		ShortTerm: &taapi.IndicatorSet{},
		LongTerm:  &taapi.IndicatorSet{},
		FetchedAt: time.Now(),
		Degraded:  true,
	}
}
