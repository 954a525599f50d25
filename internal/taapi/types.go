// Package taapi provides the client for the rate-limited technical-indicator
// provider. All access goes through the Client interface so the simulated
// provider can be swapped in via configuration.
package taapi

import (
	"context"
)

// Indicator ids understood by the provider bulk endpoint
const (
	IndicatorRSI       = "rsi"
	IndicatorMACD      = "macd"
	IndicatorEMA20     = "ema20"
	IndicatorEMA50     = "ema50"
	IndicatorEMA200    = "ema200"
	IndicatorBollinger = "bbands"
	IndicatorATR       = "atr"
	IndicatorADX       = "adx"
	IndicatorMFI       = "mfi"
	IndicatorVWAP      = "vwap"
	IndicatorOBV       = "obv"
	IndicatorStochRSI  = "stochrsi"
	IndicatorWilliamsR = "willr"
	IndicatorSqueeze   = "squeeze"
	IndicatorPVO       = "pvo"
	IndicatorVolume    = "volume"
	IndicatorPatterns  = "patterns"
)

// BulkRequest is one bulk query: every indicator for one symbol and interval
type BulkRequest struct {
	Exchange   string   `json:"exchange"`
	Symbol     string   `json:"symbol"`
	Interval   string   `json:"interval"`
	Indicators []string `json:"indicators"`
}

// IndicatorResult is one indicator's values in a bulk response, keyed by the
// provider's value names (e.g. "value", "valueMACDHist")
type IndicatorResult struct {
	ID        string             `json:"id"`
	Indicator string             `json:"indicator"`
	Result    map[string]float64 `json:"result"`
	Errors    []string           `json:"errors,omitempty"`
}

// BulkResponse is the provider's bulk answer, keyed by indicator id
type BulkResponse struct {
	Data []IndicatorResult `json:"data"`
}

// Client is the indicator provider abstraction. Exactly one in-flight call is
// guaranteed by the request queue, not by implementations.
type Client interface {
	FetchBulk(ctx context.Context, req BulkRequest) (*BulkResponse, error)
}

// MACDValue holds the MACD line, signal line and histogram
type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerValue holds the three Bollinger bands
type BollingerValue struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// StochRSIValue holds the fast %K and %D of stochastic RSI
type StochRSIValue struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// SqueezeValue holds the TTM squeeze momentum and whether the bands are
// currently compressed
type SqueezeValue struct {
	Momentum float64 `json:"momentum"`
	On       bool    `json:"on"`
}

// VolumeStats holds the latest volume and its 20-period average, used for
// genuine spike-ratio statistics
type VolumeStats struct {
	Current   float64 `json:"current"`
	Average20 float64 `json:"average20"`
}

// PatternFlags holds candlestick pattern detections: 100 bullish, -100
// bearish, 0 none (the provider's convention)
type PatternFlags struct {
	Engulfing   int `json:"engulfing"`
	Hammer      int `json:"hammer"`
	MorningStar int `json:"morning_star"`
}

// IndicatorSet is the decoded indicator values for one symbol and interval.
// Nil fields were missing from the provider response and read as neutral
// defaults through the accessor methods.
type IndicatorSet struct {
	RSI       *float64        `json:"rsi,omitempty"`
	MACD      *MACDValue      `json:"macd,omitempty"`
	EMA20     *float64        `json:"ema20,omitempty"`
	EMA50     *float64        `json:"ema50,omitempty"`
	EMA200    *float64        `json:"ema200,omitempty"`
	Bollinger *BollingerValue `json:"bollinger,omitempty"`
	ATR       *float64        `json:"atr,omitempty"`
	ADX       *float64        `json:"adx,omitempty"`
	MFI       *float64        `json:"mfi,omitempty"`
	VWAP      *float64        `json:"vwap,omitempty"`
	OBV       *float64        `json:"obv,omitempty"`
	StochRSI  *StochRSIValue  `json:"stochrsi,omitempty"`
	WilliamsR *float64        `json:"williams_r,omitempty"`
	Squeeze   *SqueezeValue   `json:"squeeze,omitempty"`
	PVO       *float64        `json:"pvo,omitempty"`
	Volume    *VolumeStats    `json:"volume,omitempty"`
	Patterns  *PatternFlags   `json:"patterns,omitempty"`
}

// Neutral defaults for missing indicator fields
const (
	NeutralRSI = 50.0
	NeutralMFI = 50.0
)

// RSIValue returns RSI or the neutral 50 when missing
func (s *IndicatorSet) RSIValue() float64 {
	if s == nil || s.RSI == nil {
		return NeutralRSI
	}
	return *s.RSI
}

// MFIValue returns the money flow index or the neutral 50 when missing
func (s *IndicatorSet) MFIValue() float64 {
	if s == nil || s.MFI == nil {
		return NeutralMFI
	}
	return *s.MFI
}

// ADXValue returns ADX or 0 when missing. Zero reads as "no trend" so a
// missing value can never pass a trend-strength gate.
func (s *IndicatorSet) ADXValue() float64 {
	if s == nil || s.ADX == nil {
		return 0
	}
	return *s.ADX
}

// SpikeRatio returns current volume over its 20-period average, or 1.0 when
// volume stats are missing (no spike, no drought)
func (s *IndicatorSet) SpikeRatio() float64 {
	if s == nil || s.Volume == nil || s.Volume.Average20 <= 0 {
		return 1.0
	}
	return s.Volume.Current / s.Volume.Average20
}

// HasBullishMACD reports a bullish crossover with a positive histogram
func (s *IndicatorSet) HasBullishMACD() bool {
	return s != nil && s.MACD != nil && s.MACD.MACD > s.MACD.Signal && s.MACD.Histogram > 0
}

// HasBullishEMAStack reports the bullish 20 > 50 > 200 EMA ordering
func (s *IndicatorSet) HasBullishEMAStack() bool {
	if s == nil || s.EMA20 == nil || s.EMA50 == nil || s.EMA200 == nil {
		return false
	}
	return *s.EMA20 > *s.EMA50 && *s.EMA50 > *s.EMA200
}

// DecodeIndicatorSet converts a bulk response into a typed indicator set.
// Indicators that errored or are absent stay nil.
func DecodeIndicatorSet(resp *BulkResponse) *IndicatorSet {
	set := &IndicatorSet{}
	if resp == nil {
		return set
	}

	for _, item := range resp.Data {
		if len(item.Errors) > 0 || item.Result == nil {
			continue
		}
		decodeIndicator(set, item)
	}

	return set
}

func decodeIndicator(set *IndicatorSet, item IndicatorResult) {
	r := item.Result

	switch item.Indicator {
	case IndicatorRSI:
		set.RSI = valuePtr(r, "value")
	case IndicatorMACD:
		if m, okM := r["valueMACD"]; okM {
			set.MACD = &MACDValue{
				MACD:      m,
				Signal:    r["valueMACDSignal"],
				Histogram: r["valueMACDHist"],
			}
		}
	case IndicatorEMA20:
		set.EMA20 = valuePtr(r, "value")
	case IndicatorEMA50:
		set.EMA50 = valuePtr(r, "value")
	case IndicatorEMA200:
		set.EMA200 = valuePtr(r, "value")
	case IndicatorBollinger:
		if u, okU := r["valueUpperBand"]; okU {
			set.Bollinger = &BollingerValue{
				Upper:  u,
				Middle: r["valueMiddleBand"],
				Lower:  r["valueLowerBand"],
			}
		}
	case IndicatorATR:
		set.ATR = valuePtr(r, "value")
	case IndicatorADX:
		set.ADX = valuePtr(r, "value")
	case IndicatorMFI:
		set.MFI = valuePtr(r, "value")
	case IndicatorVWAP:
		set.VWAP = valuePtr(r, "value")
	case IndicatorOBV:
		set.OBV = valuePtr(r, "value")
	case IndicatorStochRSI:
		if k, okK := r["valueFastK"]; okK {
			set.StochRSI = &StochRSIValue{K: k, D: r["valueFastD"]}
		}
	case IndicatorWilliamsR:
		set.WilliamsR = valuePtr(r, "value")
	case IndicatorSqueeze:
		if m, okM := r["value"]; okM {
			set.Squeeze = &SqueezeValue{Momentum: m, On: r["squeezeOn"] > 0}
		}
	case IndicatorPVO:
		set.PVO = valuePtr(r, "value")
	case IndicatorVolume:
		if v, okV := r["value"]; okV {
			set.Volume = &VolumeStats{Current: v, Average20: r["average"]}
		}
	case IndicatorPatterns:
		set.Patterns = &PatternFlags{
			Engulfing:   int(r["engulfing"]),
			Hammer:      int(r["hammer"]),
			MorningStar: int(r["morningStar"]),
		}
	}
}

func valuePtr(r map[string]float64, key string) *float64 {
	if v, ok := r[key]; ok {
		return &v
	}
	return nil
}
