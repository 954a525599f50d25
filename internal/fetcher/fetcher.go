// Package fetcher assembles multi-timeframe indicator snapshots through the
// tiered cache and the serializing request queue.
package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"momentum-signal-engine/internal/cache"
	"momentum-signal-engine/internal/queue"
	"momentum-signal-engine/internal/taapi"
)

// DefaultRetryBackoff is the fixed wait before the single rate-limit retry
const DefaultRetryBackoff = 8 * time.Second

// DataFetcher builds IndicatorSnapshots. Cache first, then three sequential
// queued provider calls (primary, short, long). Provider failures degrade to
// a neutral snapshot, never an error.
type DataFetcher struct {
	client       taapi.Client
	requestQueue *queue.RequestQueue
	tieredCache  *cache.TieredCache
	exchange     string
	retryBackoff time.Duration
	sleep        func(d time.Duration)
	logger       zerolog.Logger
}

// New creates a data fetcher
func New(
	client taapi.Client,
	requestQueue *queue.RequestQueue,
	tieredCache *cache.TieredCache,
	exchange string,
	retryBackoff time.Duration,
	logger zerolog.Logger,
) *DataFetcher {
	if retryBackoff <= 0 {
		retryBackoff = DefaultRetryBackoff
	}
	return &DataFetcher{
		client:       client,
		requestQueue: requestQueue,
		tieredCache:  tieredCache,
		exchange:     exchange,
		retryBackoff: retryBackoff,
		sleep:        time.Sleep,
		logger:       logger,
	}
}

// SetSleep replaces the retry backoff sleeper. Tests only.
func (f *DataFetcher) SetSleep(sleep func(d time.Duration)) {
	f.sleep = sleep
}

// FetchSnapshot returns the multi-timeframe snapshot for symbol, from the
// snapshot cache when fresh, otherwise via three sequential queued provider
// calls. Never returns an error: any provider failure yields the neutral
// snapshot so the pipeline degrades to HOLD.
func (f *DataFetcher) FetchSnapshot(ctx context.Context, symbol string) *IndicatorSnapshot {
	if cached, ok := f.tieredCache.Get(cache.TierSnapshot, symbol); ok {
		if snap, ok := cached.(*IndicatorSnapshot); ok {
			return snap
		}
	}

	primary, err := f.fetchInterval(ctx, symbol, IntervalPrimary, PrimaryIndicators)
	if err != nil {
		return f.degrade(symbol, IntervalPrimary, err)
	}

	shortTerm, err := f.fetchInterval(ctx, symbol, IntervalShort, ShortTermIndicators)
	if err != nil {
		return f.degrade(symbol, IntervalShort, err)
	}

	longTerm, err := f.fetchInterval(ctx, symbol, IntervalLong, LongTermIndicators)
	if err != nil {
		return f.degrade(symbol, IntervalLong, err)
	}

	snap := &IndicatorSnapshot{
		Symbol:    symbol,
		Primary:   primary,
		ShortTerm: shortTerm,
		LongTerm:  longTerm,
		FetchedAt: time.Now(),
	}

	f.tieredCache.Set(cache.TierSnapshot, symbol, snap)
	return snap
}

// fetchInterval runs one queued bulk query with the single bounded
// rate-limit retry. All other failure classes propagate immediately.
func (f *DataFetcher) fetchInterval(ctx context.Context, symbol, interval string, indicators []string) (*taapi.IndicatorSet, error) {
	resp, err := f.submitBulk(ctx, symbol, interval, indicators)
	if taapi.IsRateLimited(err) {
		f.logger.Warn().
			Str("symbol", symbol).
			Str("interval", interval).
			Dur("backoff", f.retryBackoff).
			Msg("Provider rate limited, retrying once")
		f.sleep(f.retryBackoff)
		resp, err = f.submitBulk(ctx, symbol, interval, indicators)
	}
	if err != nil {
		return nil, err
	}
	return taapi.DecodeIndicatorSet(resp), nil
}

func (f *DataFetcher) submitBulk(ctx context.Context, symbol, interval string, indicators []string) (*taapi.BulkResponse, error) {
	req := taapi.BulkRequest{
		Exchange:   f.exchange,
		Symbol:     symbol,
		Interval:   interval,
		Indicators: indicators,
	}

	future := f.requestQueue.Submit(func(callCtx context.Context) (interface{}, error) {
		return f.client.FetchBulk(callCtx, req)
	})

	value, err := future.Wait(ctx)
	if err != nil {
		return nil, err
	}

	resp, ok := value.(*taapi.BulkResponse)
	if !ok {
		return nil, &taapi.ProviderError{Class: taapi.ClassNetwork, Message: "unexpected response type"}
	}
	return resp, nil
}

func (f *DataFetcher) degrade(symbol, interval string, err error) *IndicatorSnapshot {
	f.logger.Error().
		Str("symbol", symbol).
		Str("interval", interval).
		Err(err).
		Msg("Provider fetch failed, returning neutral snapshot")
	return NewNeutralSnapshot(symbol)
}
