package analysis

import (
	"testing"
)

// risingSeries builds a steadily climbing price series with rising volume
func risingSeries(n int) (prices, volumes []float64) {
	for i := 0; i < n; i++ {
		prices = append(prices, 100+float64(i)*0.5)
		volumes = append(volumes, 1000+float64(i)*10)
	}
	return prices, volumes
}

func fallingSeries(n int) (prices, volumes []float64) {
	for i := 0; i < n; i++ {
		prices = append(prices, 200-float64(i)*0.5)
		volumes = append(volumes, 1000+float64(i)*10)
	}
	return prices, volumes
}

func TestShortSeriesFallsBackToTransition(t *testing.T) {
	mc := NewMarketRegimeClassifier()
	features := mc.Classify([]float64{100, 101}, []float64{1000, 1100})

	if features.Phase != PhaseTransition {
		t.Errorf("phase = %s, want TRANSITION for a short series", features.Phase)
	}
	if features.Confidence != 0.2 {
		t.Errorf("confidence = %v, want the 0.2 floor", features.Confidence)
	}
}

func TestSteadyClimbReadsMarkup(t *testing.T) {
	mc := NewMarketRegimeClassifier()
	prices, volumes := risingSeries(80)

	features := mc.Classify(prices, volumes)

	if features.PrimaryTrend != TrendUp {
		t.Fatalf("primary trend = %s, want UPTREND", features.PrimaryTrend)
	}
	if features.Phase != PhaseMarkup {
		t.Errorf("phase = %s, want MARKUP", features.Phase)
	}
	if features.Confidence <= 0.5 {
		t.Errorf("confidence = %v, aligned rising regime should read above base", features.Confidence)
	}
}

func TestSteadyDeclineReadsMarkdown(t *testing.T) {
	mc := NewMarketRegimeClassifier()
	prices, volumes := fallingSeries(80)

	features := mc.Classify(prices, volumes)

	if features.PrimaryTrend != TrendDown {
		t.Fatalf("primary trend = %s, want DOWNTREND", features.PrimaryTrend)
	}
	if features.Phase != PhaseMarkdown {
		t.Errorf("phase = %s, want MARKDOWN", features.Phase)
	}
}

func TestConfidenceStaysInClampedRange(t *testing.T) {
	mc := NewMarketRegimeClassifier()

	for _, series := range [][2][]float64{
		func() [2][]float64 { p, v := risingSeries(80); return [2][]float64{p, v} }(),
		func() [2][]float64 { p, v := fallingSeries(80); return [2][]float64{p, v} }(),
		{{100, 101}, {1, 1}},
	} {
		features := mc.Classify(series[0], series[1])
		if features.Confidence < 0.2 || features.Confidence > 0.9 {
			t.Errorf("confidence %v outside [0.2, 0.9]", features.Confidence)
		}
	}
}

func TestRecorderKeepsRollingWindow(t *testing.T) {
	r := NewSeriesRecorder(5)

	for i := 0; i < 8; i++ {
		r.Record("BTC/USDT", 100+float64(i), 1000)
	}

	prices, volumes := r.Series("BTC/USDT")
	if len(prices) != 5 || len(volumes) != 5 {
		t.Fatalf("window sizes %d/%d, want 5", len(prices), len(volumes))
	}
	if prices[0] != 103 || prices[4] != 107 {
		t.Errorf("window = %v, want the last five points", prices)
	}
}

func TestRecorderIgnoresNonPositivePrices(t *testing.T) {
	r := NewSeriesRecorder(5)
	r.Record("BTC/USDT", 0, 1000)
	r.Record("BTC/USDT", -5, 1000)

	if depth := r.Depth("BTC/USDT"); depth != 0 {
		t.Errorf("depth = %d, non-positive prices must be dropped", depth)
	}
}
