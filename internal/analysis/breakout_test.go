package analysis

import (
	"testing"

	"momentum-signal-engine/internal/taapi"
)

func TestSqueezeFireDominatesType(t *testing.T) {
	primary := &taapi.IndicatorSet{
		Squeeze:   &taapi.SqueezeValue{Momentum: 0.8, On: true},
		Bollinger: &taapi.BollingerValue{Upper: 105, Middle: 100, Lower: 95},
		Volume:    &taapi.VolumeStats{Current: 2500, Average20: 1000},
		ADX:       fp(30),
	}

	features := NewBreakoutDetector().Detect(primary)

	if features.Type != BreakoutSqueeze {
		t.Fatalf("type = %s, squeeze fire is the strongest signal", features.Type)
	}
	// squeeze 30 + volume surge 25 + trend bonus 10
	if features.Strength != 65 {
		t.Errorf("strength = %v, want 65", features.Strength)
	}
	if !features.Confirmed() {
		t.Error("fired breakout must confirm")
	}
}

func TestVolumeSurgeRequiresBandExpansion(t *testing.T) {
	// Big spike but tight bands: no surge without expansion
	primary := &taapi.IndicatorSet{
		Bollinger: &taapi.BollingerValue{Upper: 101, Middle: 100, Lower: 99},
		Volume:    &taapi.VolumeStats{Current: 3000, Average20: 1000},
	}

	features := NewBreakoutDetector().Detect(primary)

	if features.VolumeSurge {
		t.Error("volume surge must require expanding bands")
	}
	if features.Type != BreakoutNone {
		t.Errorf("type = %s, want NONE", features.Type)
	}
}

func TestQuietMarketHasNoBreakout(t *testing.T) {
	features := NewBreakoutDetector().Detect(&taapi.IndicatorSet{})

	if features.Confirmed() {
		t.Error("empty indicator set must not confirm a breakout")
	}
	if features.Strength != 0 {
		t.Errorf("strength = %v, want 0", features.Strength)
	}
}

func TestResistanceBreakDetected(t *testing.T) {
	primary := &taapi.IndicatorSet{
		VWAP:      fp(106),
		Bollinger: &taapi.BollingerValue{Upper: 105, Middle: 100, Lower: 95},
	}

	features := NewBreakoutDetector().Detect(primary)

	if !features.ResistanceBreak {
		t.Fatal("price above the upper band must read as a resistance break")
	}
	if features.Type != BreakoutResistance {
		t.Errorf("type = %s, want RESISTANCE_BREAK", features.Type)
	}
}

func TestTrendBonusOnlyWithActiveBreakout(t *testing.T) {
	// Strong trend alone contributes nothing without a breakout signal
	primary := &taapi.IndicatorSet{ADX: fp(40)}

	features := NewBreakoutDetector().Detect(primary)
	if features.Strength != 0 {
		t.Errorf("strength = %v, trend bonus requires a named breakout", features.Strength)
	}
}
