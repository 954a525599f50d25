package optimizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"momentum-signal-engine/config"
	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/scoring"
)

// Caps on in-memory history. Oldest entries roll off.
const (
	maxClosedTrades = 1000
	maxReports      = 100
)

// TradeRecord is one tracked trade from entry to exit
type TradeRecord struct {
	ID                string                 `json:"id"`
	Symbol            string                 `json:"symbol"`
	EntryPrice        float64                `json:"entry_price"`
	ExitPrice         float64                `json:"exit_price,omitempty"`
	EnteredAt         time.Time              `json:"entered_at"`
	ExitedAt          time.Time              `json:"exited_at,omitempty"`
	HoldDurationHours float64                `json:"hold_duration_hours"`
	PnLPercent        float64                `json:"pnl_percent"`
	Winner            bool                   `json:"winner"`
	SignalConfidence  float64                `json:"signal_confidence"`
	EntryQualityScore float64                `json:"entry_quality_score"`
	Strength          scoring.SignalStrength `json:"strength"`
	BreakoutType      analysis.BreakoutType  `json:"breakout_type,omitempty"`
	Confirmations     scoring.Confirmations  `json:"confirmations"`
	ThresholdVersion  int                    `json:"threshold_version"`
	Open              bool                   `json:"open"`
}

// EntryMetadata captures the signal context a trade was opened on
type EntryMetadata struct {
	Confidence   float64                      `json:"confidence"`
	BreakoutType analysis.BreakoutType        `json:"breakout_type,omitempty"`
	Metrics      *scoring.EntryQualityMetrics `json:"metrics,omitempty"`
}

// PerformanceReport is one recompute generation of aggregate outcomes
type PerformanceReport struct {
	TotalTrades          int                `json:"total_trades"`
	Wins                 int                `json:"wins"`
	Losses               int                `json:"losses"`
	WinRate              float64            `json:"win_rate"`
	ProfitFactor         float64            `json:"profit_factor"`
	ConsecutiveLosses    int                `json:"consecutive_losses"`
	MaxWinStreak         int                `json:"max_win_streak"`
	MaxLossStreak        int                `json:"max_loss_streak"`
	WinRateByConfirm     map[string]float64 `json:"win_rate_by_confirmation"`
	WinRateByStrength    map[string]float64 `json:"win_rate_by_strength"`
	ThresholdsTightened  bool               `json:"thresholds_tightened"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// PerformanceOptimizer tracks trade outcomes and tightens entry thresholds
// when realized performance falls below target. In-memory state is
// authoritative; the persister is best-effort.
type PerformanceOptimizer struct {
	mu             sync.Mutex
	cfg            config.OptimizerConfig
	store          *ThresholdStore
	persister      StateStore
	openTrades     map[string]*TradeRecord
	closedTrades   []TradeRecord
	sinceRecompute int
	reports        []PerformanceReport
	logger         zerolog.Logger
}

func NewPerformanceOptimizer(cfg config.OptimizerConfig, store *ThresholdStore, persister StateStore, logger zerolog.Logger) *PerformanceOptimizer {
	return &PerformanceOptimizer{
		cfg:        cfg,
		store:      store,
		persister:  persister,
		openTrades: make(map[string]*TradeRecord),
		logger:     logger.With().Str("component", "performance_optimizer").Logger(),
	}
}

// Restore loads the persisted state once at startup. Missing or unreadable
// state is not an error; the optimizer starts from defaults.
func (o *PerformanceOptimizer) Restore(ctx context.Context) {
	if o.persister == nil {
		return
	}
	state, err := o.persister.Load(ctx)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Could not restore optimizer state, starting fresh")
		return
	}
	if state == nil {
		return
	}
	o.mu.Lock()
	o.closedTrades = state.ClosedTrades
	o.reports = state.Reports
	o.mu.Unlock()
	if state.Thresholds.Version > 0 {
		o.store.Publish(state.Thresholds)
	}
	o.logger.Info().
		Int("closed_trades", len(state.ClosedTrades)).
		Int("threshold_version", state.Thresholds.Version).
		Msg("Optimizer state restored")
}

// TrackEntry registers an open trade and returns its id
func (o *PerformanceOptimizer) TrackEntry(symbol string, entryPrice float64, meta EntryMetadata) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	rec := &TradeRecord{
		ID:               uuid.New().String(),
		Symbol:           symbol,
		EntryPrice:       entryPrice,
		EnteredAt:        time.Now(),
		SignalConfidence: meta.Confidence,
		BreakoutType:     meta.BreakoutType,
		ThresholdVersion: o.store.Snapshot().Version,
		Open:             true,
	}
	if meta.Metrics != nil {
		rec.EntryQualityScore = meta.Metrics.OverallScore
		rec.Strength = meta.Metrics.SignalStrength
		rec.Confirmations = meta.Metrics.Confirmations
	}
	o.openTrades[rec.ID] = rec

	o.logger.Info().
		Str("trade_id", rec.ID).
		Str("symbol", symbol).
		Float64("entry_price", entryPrice).
		Msg("Trade entry tracked")
	return rec.ID
}

// TrackExit closes an open trade, records the outcome and triggers a
// recompute once enough trades have closed. A zero-PnL exit is not a winner.
func (o *PerformanceOptimizer) TrackExit(ctx context.Context, id string, exitPrice float64) (*TradeRecord, error) {
	o.mu.Lock()

	rec, ok := o.openTrades[id]
	if !ok {
		o.mu.Unlock()
		return nil, fmt.Errorf("no open trade with id %s", id)
	}
	delete(o.openTrades, id)

	rec.ExitPrice = exitPrice
	rec.ExitedAt = time.Now()
	rec.HoldDurationHours = rec.ExitedAt.Sub(rec.EnteredAt).Hours()
	rec.Open = false
	if rec.EntryPrice != 0 {
		rec.PnLPercent = (exitPrice - rec.EntryPrice) / rec.EntryPrice * 100
	}
	rec.Winner = rec.PnLPercent > 0

	o.closedTrades = append(o.closedTrades, *rec)
	if len(o.closedTrades) > maxClosedTrades {
		o.closedTrades = o.closedTrades[len(o.closedTrades)-maxClosedTrades:]
	}
	o.sinceRecompute++

	recompute := o.sinceRecompute >= o.cfg.RecomputeInterval
	if recompute {
		o.sinceRecompute = 0
	}
	closed := *rec
	o.mu.Unlock()

	o.logger.Info().
		Str("trade_id", id).
		Str("symbol", closed.Symbol).
		Float64("pnl_percent", closed.PnLPercent).
		Bool("winner", closed.Winner).
		Msg("Trade exit tracked")

	if recompute {
		o.Recompute(ctx)
	}
	return &closed, nil
}

// Recompute rebuilds the performance report from the closed-trade log and
// tightens thresholds when performance is below target.
func (o *PerformanceOptimizer) Recompute(ctx context.Context) PerformanceReport {
	o.mu.Lock()
	report := buildReport(o.closedTrades)

	underperforming := report.TotalTrades > 0 &&
		(report.WinRate < o.cfg.TargetWinRate ||
			report.ProfitFactor < o.cfg.MinProfitFactor ||
			report.ConsecutiveLosses > o.cfg.MaxConsecutiveLosses)

	if underperforming {
		o.tighten(report)
		report.ThresholdsTightened = true
	}

	o.reports = append(o.reports, report)
	if len(o.reports) > maxReports {
		o.reports = o.reports[len(o.reports)-maxReports:]
	}
	o.mu.Unlock()

	o.logger.Info().
		Int("total_trades", report.TotalTrades).
		Float64("win_rate", report.WinRate).
		Float64("profit_factor", report.ProfitFactor).
		Bool("tightened", report.ThresholdsTightened).
		Msg("Performance recomputed")

	o.persist(ctx)
	return report
}

// tighten raises the confidence bar and the knob of the confirmation
// family that currently discriminates best between wins and losses.
// Caller holds the mutex.
func (o *PerformanceOptimizer) tighten(report PerformanceReport) {
	t := o.store.Snapshot()
	t.ConfidenceScore = tightenScore(t.ConfidenceScore)

	switch bestConfirmFamily(report.WinRateByConfirm) {
	case "volume":
		t.VolumeSpikeMin = tightenSpike(t.VolumeSpikeMin)
	case "momentum":
		t.RSIEntryMax = tightenRSI(t.RSIEntryMax)
	case "breakout":
		t.ConfluenceScore = tightenScore(t.ConfluenceScore)
	}

	published := o.store.Publish(t)
	o.logger.Warn().
		Int("version", published.Version).
		Float64("confidence_score", published.ConfidenceScore).
		Float64("confluence_score", published.ConfluenceScore).
		Float64("volume_spike_min", published.VolumeSpikeMin).
		Float64("rsi_entry_max", published.RSIEntryMax).
		Msg("Entry thresholds tightened")
}

// bestConfirmFamily picks the confirmation family with the highest win rate
func bestConfirmFamily(rates map[string]float64) string {
	best := ""
	bestRate := -1.0
	for _, family := range []string{"volume", "momentum", "breakout"} {
		if rate, ok := rates[family]; ok && rate > bestRate {
			best = family
			bestRate = rate
		}
	}
	return best
}

func buildReport(closed []TradeRecord) PerformanceReport {
	report := PerformanceReport{
		WinRateByConfirm:  make(map[string]float64),
		WinRateByStrength: make(map[string]float64),
		GeneratedAt:       time.Now(),
	}

	var grossProfit, grossLoss float64
	var winStreak, lossStreak int
	confirmWins := make(map[string]int)
	confirmTotal := make(map[string]int)
	strengthWins := make(map[string]int)
	strengthTotal := make(map[string]int)

	for _, tr := range closed {
		report.TotalTrades++
		if tr.Winner {
			report.Wins++
			grossProfit += tr.PnLPercent
			winStreak++
			lossStreak = 0
			if winStreak > report.MaxWinStreak {
				report.MaxWinStreak = winStreak
			}
		} else {
			report.Losses++
			grossLoss += -tr.PnLPercent
			lossStreak++
			winStreak = 0
			if lossStreak > report.MaxLossStreak {
				report.MaxLossStreak = lossStreak
			}
		}

		for family, confirmed := range map[string]bool{
			"volume":   tr.Confirmations.Volume,
			"momentum": tr.Confirmations.Momentum,
			"breakout": tr.Confirmations.Breakout,
		} {
			if !confirmed {
				continue
			}
			confirmTotal[family]++
			if tr.Winner {
				confirmWins[family]++
			}
		}
		if tr.Strength != "" {
			strengthTotal[string(tr.Strength)]++
			if tr.Winner {
				strengthWins[string(tr.Strength)]++
			}
		}
	}

	report.ConsecutiveLosses = lossStreak
	if report.TotalTrades > 0 {
		report.WinRate = float64(report.Wins) / float64(report.TotalTrades)
	}
	if grossLoss > 0 {
		report.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		report.ProfitFactor = grossProfit
	}
	for family, total := range confirmTotal {
		report.WinRateByConfirm[family] = float64(confirmWins[family]) / float64(total)
	}
	for strength, total := range strengthTotal {
		report.WinRateByStrength[strength] = float64(strengthWins[strength]) / float64(total)
	}
	return report
}

// persist writes the current state best-effort. Failures are logged and
// swallowed; in-memory state stays authoritative.
func (o *PerformanceOptimizer) persist(ctx context.Context) {
	if o.persister == nil {
		return
	}
	o.mu.Lock()
	state := &PersistedState{
		Thresholds:   o.store.Snapshot(),
		ClosedTrades: append([]TradeRecord(nil), o.closedTrades...),
		Reports:      append([]PerformanceReport(nil), o.reports...),
		SavedAt:      time.Now(),
	}
	o.mu.Unlock()

	if err := o.persister.Save(ctx, state); err != nil {
		o.logger.Warn().Err(err).Msg("Could not persist optimizer state")
	}
}

// LatestReport returns the most recent performance report, or a fresh
// report built from the closed-trade log when none has been generated.
func (o *PerformanceOptimizer) LatestReport() PerformanceReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.reports) > 0 {
		return o.reports[len(o.reports)-1]
	}
	return buildReport(o.closedTrades)
}

// Trades returns copies of the open and closed trade logs
func (o *PerformanceOptimizer) Trades() (open []TradeRecord, closed []TradeRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, tr := range o.openTrades {
		open = append(open, *tr)
	}
	closed = append([]TradeRecord(nil), o.closedTrades...)
	return open, closed
}
