// Package cache provides the three-tier TTL cache that sits in front of the
// request queue: multi-timeframe snapshots, per-symbol signals, and bulk
// query results.
package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Tier identifies one of the three independent caches
type Tier string

const (
	TierSnapshot Tier = "snapshot" // Multi-timeframe indicator snapshots
	TierSignal   Tier = "signal"   // Latest signal per symbol
	TierBulk     Tier = "bulk"     // Per-batch bulk query results
)

// DefaultCapacity is the per-tier entry limit
const DefaultCapacity = 100

// entry is one cached payload with its insertion time
type entry struct {
	payload  interface{}
	storedAt time.Time
}

// tierStore is a single TTL map with insertion-order eviction
type tierStore struct {
	ttl      time.Duration
	capacity int
	entries  map[string]*entry
	order    []string // Keys in insertion order, oldest first
}

// Stats is a read-only view of cache counters across all tiers
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	TotalRequests int64   `json:"total_requests"`
	HitRate       float64 `json:"hit_rate"`
	Entries       int     `json:"entries"`
}

// TieredCache owns the three tiers. Safe for concurrent use; all access is
// guarded by a single mutex, writes are last-writer-wins.
type TieredCache struct {
	mu    sync.Mutex
	tiers map[Tier]*tierStore
	stats Stats

	now       func() time.Time
	stopSweep chan struct{}
	logger    zerolog.Logger
}

// Config holds per-tier TTLs and the shared capacity
type Config struct {
	SnapshotTTL   time.Duration
	SignalTTL     time.Duration
	BulkTTL       time.Duration
	Capacity      int
	SweepInterval time.Duration
}

// New creates the tiered cache and starts the background sweep when
// sweepInterval is positive
func New(cfg Config, logger zerolog.Logger) *TieredCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}

	c := &TieredCache{
		tiers: map[Tier]*tierStore{
			TierSnapshot: newTierStore(cfg.SnapshotTTL, cfg.Capacity),
			TierSignal:   newTierStore(cfg.SignalTTL, cfg.Capacity),
			TierBulk:     newTierStore(cfg.BulkTTL, cfg.Capacity),
		},
		now:       time.Now,
		stopSweep: make(chan struct{}),
		logger:    logger,
	}

	if cfg.SweepInterval > 0 {
		go c.sweepLoop(cfg.SweepInterval)
	}

	return c
}

func newTierStore(ttl time.Duration, capacity int) *tierStore {
	return &tierStore{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*entry),
		order:    make([]string, 0, capacity),
	}
}

// SetClock replaces the time source. Tests only.
func (c *TieredCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the payload for key in tier. An entry past its TTL is a miss
// even if the sweep has not removed it yet.
func (c *TieredCache) Get(tier Tier, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalRequests++

	store, ok := c.tiers[tier]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	e, ok := store.entries[key]
	if !ok || c.now().Sub(e.storedAt) > store.ttl {
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	return e.payload, true
}

// Set stores payload under key. When the tier is at capacity the
// earliest-inserted surviving entry is evicted first.
func (c *TieredCache) Set(tier Tier, key string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store, ok := c.tiers[tier]
	if !ok {
		return
	}

	if _, exists := store.entries[key]; exists {
		// Overwrite keeps the original insertion position
		store.entries[key] = &entry{payload: payload, storedAt: c.now()}
		return
	}

	if len(store.entries) >= store.capacity {
		c.evictOldest(tier, store)
	}

	store.entries[key] = &entry{payload: payload, storedAt: c.now()}
	store.order = append(store.order, key)
}

// evictOldest removes the earliest-inserted live entry. Caller holds the lock.
func (c *TieredCache) evictOldest(tier Tier, store *tierStore) {
	for len(store.order) > 0 {
		oldest := store.order[0]
		store.order = store.order[1:]
		if _, ok := store.entries[oldest]; ok {
			delete(store.entries, oldest)
			c.stats.Evictions++
			c.logger.Debug().
				Str("tier", string(tier)).
				Str("key", oldest).
				Msg("Cache entry evicted at capacity")
			return
		}
	}
}

// Invalidate removes a single key from a tier
func (c *TieredCache) Invalidate(tier Tier, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if store, ok := c.tiers[tier]; ok {
		delete(store.entries, key)
	}
}

// sweepLoop proactively removes expired entries on a fixed interval
func (c *TieredCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopSweep:
			return
		}
	}
}

// Sweep removes every expired entry across all tiers and returns how many
// were removed
func (c *TieredCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()

	for _, store := range c.tiers {
		kept := store.order[:0]
		for _, key := range store.order {
			e, ok := store.entries[key]
			if !ok {
				continue
			}
			if now.Sub(e.storedAt) > store.ttl {
				delete(store.entries, key)
				removed++
				continue
			}
			kept = append(kept, key)
		}
		store.order = kept
	}

	return removed
}

// Close stops the background sweep
func (c *TieredCache) Close() {
	close(c.stopSweep)
}

// GetStats returns a copy of the cache counters
func (c *TieredCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	if stats.TotalRequests > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.TotalRequests)
	}
	for _, store := range c.tiers {
		stats.Entries += len(store.entries)
	}
	return stats
}
