// Package pipeline wires fetching, feature extraction, scoring, decision
// and compliance into one evaluation flow.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/cache"
	"momentum-signal-engine/internal/fetcher"
	"momentum-signal-engine/internal/filter"
	"momentum-signal-engine/internal/optimizer"
	"momentum-signal-engine/internal/scoring"
	"momentum-signal-engine/internal/signal"
)

// Evaluation is the full result of one symbol evaluation
type Evaluation struct {
	Signal           *signal.MomentumSignal    `json:"signal"`
	Filter           *filter.Result            `json:"filter"`
	Regime           analysis.RegimeFeatures   `json:"regime"`
	Volume           analysis.VolumeFeatures   `json:"volume"`
	Breakout         analysis.BreakoutFeatures `json:"breakout"`
	ThresholdVersion int                       `json:"threshold_version"`
	Degraded         bool                      `json:"degraded"`
	FromCache        bool                      `json:"from_cache"`
	EvaluatedAt      time.Time                 `json:"evaluated_at"`
}

// Pipeline evaluates symbols end to end. One instance serves all callers;
// provider pacing happens inside the fetcher's request queue.
type Pipeline struct {
	dataFetcher *fetcher.DataFetcher
	tieredCache *cache.TieredCache
	volume      *analysis.VolumeAnalyzer
	breakout    *analysis.BreakoutDetector
	regime      *analysis.MarketRegimeClassifier
	recorder    *analysis.SeriesRecorder
	scorer      *scoring.EntryQualityScorer
	engine      *signal.DecisionEngine
	chain       *filter.ComplianceChain
	thresholds  *optimizer.ThresholdStore
	logger      zerolog.Logger
}

func New(
	dataFetcher *fetcher.DataFetcher,
	tieredCache *cache.TieredCache,
	recorder *analysis.SeriesRecorder,
	scorer *scoring.EntryQualityScorer,
	engine *signal.DecisionEngine,
	chain *filter.ComplianceChain,
	thresholds *optimizer.ThresholdStore,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		dataFetcher: dataFetcher,
		tieredCache: tieredCache,
		volume:      analysis.NewVolumeAnalyzer(),
		breakout:    analysis.NewBreakoutDetector(),
		regime:      analysis.NewMarketRegimeClassifier(),
		recorder:    recorder,
		scorer:      scorer,
		engine:      engine,
		chain:       chain,
		thresholds:  thresholds,
		logger:      logger.With().Str("component", "pipeline").Logger(),
	}
}

// Evaluate runs one symbol through the full flow. A fresh signal-tier cache
// entry short-circuits the whole evaluation.
func (p *Pipeline) Evaluate(ctx context.Context, symbol string) *Evaluation {
	if cached, ok := p.tieredCache.Get(cache.TierSignal, signalKey(symbol)); ok {
		if eval, ok := cached.(*Evaluation); ok {
			copied := *eval
			copied.FromCache = true
			return &copied
		}
	}

	// One threshold generation per evaluation; a mid-flight update applies
	// to the next evaluation.
	thresholds := p.thresholds.Snapshot()

	snap := p.dataFetcher.FetchSnapshot(ctx, symbol)
	p.recordSeries(symbol, snap)

	vol := p.volume.Analyze(snap.Primary, thresholds.VolumeSpikeMin)
	brk := p.breakout.Detect(snap.Primary)
	prices, volumes := p.recorder.Series(symbol)
	regime := p.regime.Classify(prices, volumes)

	metrics := p.scorer.Evaluate(snap, &vol, &brk)
	sig := p.engine.Decide(snap, metrics, &brk)

	// The confluence gate sits between decision and compliance: a BUY whose
	// overall score is under the adaptive confluence bar is demoted before
	// the chain ever sees it as an entry.
	if sig.Action == signal.ActionBuy && metrics.OverallScore < thresholds.ConfluenceScore {
		sig.Action = signal.ActionHold
		sig.Reasons = append(sig.Reasons, "overall score below adaptive confluence threshold")
	}

	result := p.chain.Apply(sig, snap, &vol, &regime, thresholds)

	eval := &Evaluation{
		Signal:           sig,
		Filter:           result,
		Regime:           regime,
		Volume:           vol,
		Breakout:         brk,
		ThresholdVersion: thresholds.Version,
		Degraded:         snap.Degraded,
		EvaluatedAt:      time.Now(),
	}

	// Degraded evaluations are not cached; the next call should retry the
	// provider instead of serving a neutral HOLD for the full TTL.
	if !snap.Degraded {
		p.tieredCache.Set(cache.TierSignal, signalKey(symbol), eval)
	}

	p.logger.Info().
		Str("symbol", symbol).
		Str("action", string(eval.Filter.Action)).
		Float64("confidence", eval.Filter.AdjustedConfidence).
		Bool("approved", eval.Filter.Approved).
		Bool("degraded", eval.Degraded).
		Msg("Symbol evaluated")
	return eval
}

// EvaluateBulk evaluates symbols sequentially. Pacing is enforced by the
// request queue underneath, so there is nothing to parallelize here. The
// whole batch result is cached in the bulk tier keyed by the symbol list;
// a batch containing any degraded evaluation is not cached.
func (p *Pipeline) EvaluateBulk(ctx context.Context, symbols []string) []*Evaluation {
	key := bulkKey(symbols)
	if cached, ok := p.tieredCache.Get(cache.TierBulk, key); ok {
		if evals, ok := cached.([]*Evaluation); ok {
			out := make([]*Evaluation, len(evals))
			for i, eval := range evals {
				copied := *eval
				copied.FromCache = true
				out[i] = &copied
			}
			return out
		}
	}

	evals := make([]*Evaluation, 0, len(symbols))
	degraded := false
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			return evals
		default:
		}
		eval := p.Evaluate(ctx, symbol)
		degraded = degraded || eval.Degraded
		evals = append(evals, eval)
	}
	if !degraded {
		p.tieredCache.Set(cache.TierBulk, key, evals)
	}
	return evals
}

// TechnicalConfidence is the streaming path: regime-aware confidence without
// the compliance chain, for consumers that want the raw technical read.
func (p *Pipeline) TechnicalConfidence(ctx context.Context, symbol string) (float64, *signal.MomentumSignal) {
	thresholds := p.thresholds.Snapshot()
	snap := p.dataFetcher.FetchSnapshot(ctx, symbol)
	p.recordSeries(symbol, snap)

	vol := p.volume.Analyze(snap.Primary, thresholds.VolumeSpikeMin)
	brk := p.breakout.Detect(snap.Primary)
	prices, volumes := p.recorder.Series(symbol)
	regime := p.regime.Classify(prices, volumes)

	metrics := p.scorer.Evaluate(snap, &vol, &brk)
	sig := p.engine.Decide(snap, metrics, &brk)
	conf := p.engine.TechnicalConfidence(metrics, &brk, &regime)
	return conf, sig
}

// recordSeries feeds the regime classifier's rolling history from the
// snapshot's volume-weighted price and current volume.
func (p *Pipeline) recordSeries(symbol string, snap *fetcher.IndicatorSnapshot) {
	if snap.Degraded || snap.Primary.VWAP == nil || snap.Primary.Volume == nil {
		return
	}
	p.recorder.Record(symbol, *snap.Primary.VWAP, snap.Primary.Volume.Current)
}

func signalKey(symbol string) string {
	return "signal:" + symbol
}

func bulkKey(symbols []string) string {
	return "bulk:" + strings.Join(symbols, ",")
}
