// Package optimizer tracks closed-trade outcomes and adapts the entry
// thresholds the scoring and filter stages read.
package optimizer

import (
	"sync"
	"time"
)

// Default threshold values. Tightening only ever moves away from these
// toward stricter entries.
const (
	DefaultConfluenceScore = 60.0
	DefaultConfidenceScore = 65.0
	DefaultVolumeSpikeMin  = 1.8
	DefaultRSIEntryMax     = 72.0
)

// Tightening steps and hard caps. Adjustments are monotonic within these
// bounds so a losing streak can never relax entries.
const (
	scoreStep     = 2.0
	scoreCap      = 90.0
	spikeStep     = 0.2
	spikeCap      = 3.0
	rsiStep       = 3.0
	rsiFloorEntry = 60.0
)

// Thresholds is one immutable generation of adaptive entry thresholds.
// Readers receive value copies; only the optimizer publishes new versions.
type Thresholds struct {
	ConfluenceScore float64   `json:"confluence_score"`
	ConfidenceScore float64   `json:"confidence_score"`
	VolumeSpikeMin  float64   `json:"volume_spike_min"`
	RSIEntryMax     float64   `json:"rsi_entry_max"`
	Version         int       `json:"version"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultThresholds returns generation zero
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConfluenceScore: DefaultConfluenceScore,
		ConfidenceScore: DefaultConfidenceScore,
		VolumeSpikeMin:  DefaultVolumeSpikeMin,
		RSIEntryMax:     DefaultRSIEntryMax,
		Version:         0,
		UpdatedAt:       time.Now(),
	}
}

// ThresholdStore publishes threshold generations. Single writer (the
// optimizer recompute), many snapshot readers (pipeline evaluations).
type ThresholdStore struct {
	mu      sync.RWMutex
	current Thresholds
}

func NewThresholdStore(initial Thresholds) *ThresholdStore {
	return &ThresholdStore{current: initial}
}

// Snapshot returns the current generation by value. An evaluation reads one
// snapshot at its start and uses it throughout, so a mid-evaluation update
// never mixes generations.
func (s *ThresholdStore) Snapshot() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Publish installs a new generation, bumping the version
func (s *ThresholdStore) Publish(t Thresholds) Thresholds {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Version = s.current.Version + 1
	t.UpdatedAt = time.Now()
	s.current = t
	return t
}

// tightenScore raises a score threshold by one step, capped
func tightenScore(v float64) float64 {
	v += scoreStep
	if v > scoreCap {
		return scoreCap
	}
	return v
}

// tightenSpike raises the volume spike minimum by one step, capped
func tightenSpike(v float64) float64 {
	v += spikeStep
	if v > spikeCap {
		return spikeCap
	}
	return v
}

// tightenRSI lowers the RSI entry ceiling by one step, floored
func tightenRSI(v float64) float64 {
	v -= rsiStep
	if v < rsiFloorEntry {
		return rsiFloorEntry
	}
	return v
}
