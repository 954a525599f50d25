package taapi

import (
	"context"
	"errors"
	"testing"
)

func TestDecodeIndicatorSetMapsWireKeys(t *testing.T) {
	resp := &BulkResponse{
		Data: []IndicatorResult{
			{Indicator: IndicatorRSI, Result: map[string]float64{"value": 58.2}},
			{Indicator: IndicatorMACD, Result: map[string]float64{
				"valueMACD": 0.012, "valueMACDSignal": 0.009, "valueMACDHist": 0.003,
			}},
			{Indicator: IndicatorBollinger, Result: map[string]float64{
				"valueUpperBand": 105, "valueMiddleBand": 100, "valueLowerBand": 95,
			}},
			{Indicator: IndicatorSqueeze, Result: map[string]float64{"value": 0.4, "squeezeOn": 1}},
			{Indicator: IndicatorVolume, Result: map[string]float64{"value": 2400, "average": 1200}},
		},
	}

	set := DecodeIndicatorSet(resp)

	if set.RSIValue() != 58.2 {
		t.Errorf("RSI = %v", set.RSIValue())
	}
	if !set.HasBullishMACD() {
		t.Error("MACD above signal with positive histogram should read bullish")
	}
	if set.Bollinger == nil || set.Bollinger.Middle != 100 {
		t.Errorf("bollinger = %+v", set.Bollinger)
	}
	if set.Squeeze == nil || !set.Squeeze.On {
		t.Errorf("squeeze = %+v", set.Squeeze)
	}
	if set.SpikeRatio() != 2.0 {
		t.Errorf("spike ratio = %v, want 2.0", set.SpikeRatio())
	}
}

func TestDecodeSkipsErroredIndicators(t *testing.T) {
	resp := &BulkResponse{
		Data: []IndicatorResult{
			{Indicator: IndicatorRSI, Result: map[string]float64{"value": 30}, Errors: []string{"period too long"}},
			{Indicator: IndicatorADX, Result: map[string]float64{"value": 33}},
		},
	}

	set := DecodeIndicatorSet(resp)

	if set.RSI != nil {
		t.Error("errored indicator must stay nil")
	}
	if set.RSIValue() != NeutralRSI {
		t.Errorf("RSI accessor = %v, want neutral", set.RSIValue())
	}
	if set.ADXValue() != 33 {
		t.Errorf("ADX = %v", set.ADXValue())
	}
}

func TestNeutralAccessorsOnEmptySet(t *testing.T) {
	set := &IndicatorSet{}

	if set.RSIValue() != 50 || set.MFIValue() != 50 {
		t.Error("missing RSI/MFI must read as 50")
	}
	if set.ADXValue() != 0 {
		t.Error("missing ADX must read as no trend")
	}
	if set.SpikeRatio() != 1.0 {
		t.Error("missing volume stats must read as ratio 1.0")
	}
	if set.HasBullishMACD() || set.HasBullishEMAStack() {
		t.Error("missing fields must never read bullish")
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		class  ErrorClass
	}{
		{429, ClassRateLimited},
		{400, ClassBadRequest},
		{500, ClassNetwork},
		{503, ClassNetwork},
	}
	for _, tc := range cases {
		if got := classifyHTTPStatus(tc.status, "body"); got.Class != tc.class {
			t.Errorf("status %d classified %s, want %s", tc.status, got.Class, tc.class)
		}
	}
}

func TestIsRateLimitedMatchesWrappedErrors(t *testing.T) {
	pe := &ProviderError{Class: ClassRateLimited, StatusCode: 429, Message: "slow down"}
	if !IsRateLimited(pe) {
		t.Error("direct provider error not matched")
	}
	if IsRateLimited(errors.New("plain error")) {
		t.Error("plain error must not match")
	}
	if IsRateLimited(&ProviderError{Class: ClassBadRequest, StatusCode: 400}) {
		t.Error("bad request must not match rate limit")
	}
}

func TestMockClientIsDeterministic(t *testing.T) {
	c := NewMockClient()
	req := BulkRequest{
		Exchange:   "binance",
		Symbol:     "BTC/USDT",
		Interval:   "1h",
		Indicators: []string{IndicatorRSI, IndicatorMACD, IndicatorADX},
	}

	first, err := c.FetchBulk(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	second, _ := c.FetchBulk(context.Background(), req)

	a := DecodeIndicatorSet(first)
	b := DecodeIndicatorSet(second)
	if a.RSIValue() != b.RSIValue() || a.ADXValue() != b.ADXValue() {
		t.Error("mock values must be stable across calls for the same symbol and interval")
	}

	if c.CallCount() != 2 {
		t.Errorf("call count = %d, want 2", c.CallCount())
	}
}

func TestMockClientVariesAcrossSymbols(t *testing.T) {
	c := NewMockClient()
	indicators := []string{IndicatorRSI, IndicatorMFI}

	respA, _ := c.FetchBulk(context.Background(), BulkRequest{Symbol: "BTC/USDT", Interval: "1h", Indicators: indicators})
	respB, _ := c.FetchBulk(context.Background(), BulkRequest{Symbol: "ETH/USDT", Interval: "1h", Indicators: indicators})

	a := DecodeIndicatorSet(respA)
	b := DecodeIndicatorSet(respB)
	if a.RSIValue() == b.RSIValue() && a.MFIValue() == b.MFIValue() {
		t.Error("different symbols should not share identical simulated values")
	}
}
