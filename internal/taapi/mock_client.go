package taapi

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockClient implements Client with simulated indicator data for development
// and dry runs. It is only ever selected through TaapiConfig.MockMode - the
// live client is never silently substituted.
//
// Values are derived from a hash of symbol+interval so repeated calls (and
// tests) see stable data, with a mild bullish bias so full pipelines produce
// both BUY and HOLD outcomes across a symbol list.
type MockClient struct {
	mu        sync.Mutex
	callCount int
}

// NewMockClient creates a simulated provider
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CallCount returns how many bulk queries have been served
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callCount
}

// FetchBulk returns simulated values for every requested indicator
func (c *MockClient) FetchBulk(_ context.Context, req BulkRequest) (*BulkResponse, error) {
	c.mu.Lock()
	c.callCount++
	c.mu.Unlock()

	seed := mockSeed(req.Symbol, req.Interval)
	resp := &BulkResponse{Data: make([]IndicatorResult, 0, len(req.Indicators))}

	for _, id := range req.Indicators {
		resp.Data = append(resp.Data, IndicatorResult{
			ID:        req.Exchange + "_" + req.Symbol + "_" + req.Interval + "_" + id,
			Indicator: id,
			Result:    mockResult(id, seed),
		})
	}

	return resp, nil
}

func mockSeed(symbol, interval string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	h.Write([]byte(":"))
	h.Write([]byte(interval))
	// Spread into [0,1)
	return float64(h.Sum32()%1000) / 1000.0
}

func mockResult(indicator string, seed float64) map[string]float64 {
	price := 100.0 + seed*50000.0

	switch indicator {
	case IndicatorRSI:
		return map[string]float64{"value": 42.0 + seed*25.0} // 42-67
	case IndicatorMACD:
		hist := (seed - 0.35) * 0.01 // bullish for most seeds
		return map[string]float64{
			"valueMACD":       hist * 3,
			"valueMACDSignal": hist * 2,
			"valueMACDHist":   hist,
		}
	case IndicatorEMA20:
		return map[string]float64{"value": price * 1.01}
	case IndicatorEMA50:
		return map[string]float64{"value": price * 1.005}
	case IndicatorEMA200:
		return map[string]float64{"value": price * 0.98}
	case IndicatorBollinger:
		return map[string]float64{
			"valueUpperBand":  price * 1.03,
			"valueMiddleBand": price,
			"valueLowerBand":  price * 0.97,
		}
	case IndicatorATR:
		return map[string]float64{"value": price * 0.015}
	case IndicatorADX:
		return map[string]float64{"value": 18.0 + seed*22.0} // 18-40
	case IndicatorMFI:
		return map[string]float64{"value": 44.0 + seed*25.0} // 44-69
	case IndicatorVWAP:
		return map[string]float64{"value": price * 0.999}
	case IndicatorOBV:
		return map[string]float64{"value": 1e6 + seed*1e6}
	case IndicatorStochRSI:
		k := 30.0 + seed*40.0
		return map[string]float64{"valueFastK": k, "valueFastD": k - 5.0}
	case IndicatorWilliamsR:
		return map[string]float64{"value": -70.0 + seed*40.0} // -70..-30
	case IndicatorSqueeze:
		on := 0.0
		if seed > 0.6 {
			on = 1.0
		}
		return map[string]float64{"value": (seed - 0.3) * 2.0, "squeezeOn": on}
	case IndicatorPVO:
		return map[string]float64{"value": (seed - 0.3) * 10.0}
	case IndicatorVolume:
		avg := 1000.0 + seed*5000.0
		return map[string]float64{"value": avg * (0.8 + seed*1.6), "average": avg}
	case IndicatorPatterns:
		engulfing := 0.0
		if seed > 0.55 {
			engulfing = 100.0
		}
		return map[string]float64{"engulfing": engulfing, "hammer": 0, "morningStar": 0}
	default:
		return map[string]float64{"value": seed}
	}
}
