// Package signal maps entry quality metrics onto actionable trade signals.
package signal

import (
	"time"

	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/scoring"
)

// Action is the recommended trade action. This engine only enters long;
// everything that is not a confirmed entry is HOLD.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionHold Action = "HOLD"
)

// MomentumSignal is one evaluation's final decision output
type MomentumSignal struct {
	Symbol             string                       `json:"symbol"`
	Action             Action                       `json:"action"`
	Confidence         float64                      `json:"confidence"`
	Strength           scoring.SignalStrength       `json:"strength"`
	BreakoutType       analysis.BreakoutType        `json:"breakout_type"`
	EntryQuality       *scoring.EntryQualityMetrics `json:"entry_quality"`
	VolumeConfirmation bool                         `json:"volume_confirmation"`
	RiskRewardRatio    float64                      `json:"risk_reward_ratio"`
	Reasons            []string                     `json:"reasons"`
	IndicatorsAligned  int                          `json:"indicators_aligned"`
	Timestamp          time.Time                    `json:"timestamp"`
}
