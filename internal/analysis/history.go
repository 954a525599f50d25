package analysis

import (
	"sync"
)

// DefaultHistoryDepth covers the 60-period volatility baseline with room to spare
const DefaultHistoryDepth = 120

// SeriesRecorder keeps a rolling per-symbol price/volume window built from
// successive snapshots, feeding the regime classifier. Exchange candle
// services are external collaborators, so this is the only series source the
// pipeline has.
type SeriesRecorder struct {
	mu    sync.Mutex
	depth int
	data  map[string]*symbolSeries
}

type symbolSeries struct {
	prices  []float64
	volumes []float64
}

// NewSeriesRecorder creates a recorder keeping depth points per symbol
func NewSeriesRecorder(depth int) *SeriesRecorder {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &SeriesRecorder{
		depth: depth,
		data:  make(map[string]*symbolSeries),
	}
}

// Record appends one observation for symbol, dropping the oldest past depth
func (r *SeriesRecorder) Record(symbol string, price, volume float64) {
	if price <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	series, ok := r.data[symbol]
	if !ok {
		series = &symbolSeries{
			prices:  make([]float64, 0, r.depth),
			volumes: make([]float64, 0, r.depth),
		}
		r.data[symbol] = series
	}

	series.prices = append(series.prices, price)
	series.volumes = append(series.volumes, volume)
	if len(series.prices) > r.depth {
		series.prices = series.prices[1:]
		series.volumes = series.volumes[1:]
	}
}

// Series returns copies of the recorded windows for symbol, oldest first
func (r *SeriesRecorder) Series(symbol string) (prices, volumes []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	series, ok := r.data[symbol]
	if !ok {
		return nil, nil
	}

	prices = make([]float64, len(series.prices))
	copy(prices, series.prices)
	volumes = make([]float64, len(series.volumes))
	copy(volumes, series.volumes)
	return prices, volumes
}

// Depth returns how many points are recorded for symbol
func (r *SeriesRecorder) Depth(symbol string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if series, ok := r.data[symbol]; ok {
		return len(series.prices)
	}
	return 0
}
