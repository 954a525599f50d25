// Package queue serializes every call to the rate-limited indicator provider.
// One RequestQueue instance exists per process; it is constructed explicitly
// at the composition root and injected, so tests can substitute their own.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMinInterval is the smallest allowed gap between provider dispatches
const DefaultMinInterval = 800 * time.Millisecond

// Invocation is one unit of provider work. It runs on the queue worker, at
// most one at a time across the whole process.
type Invocation func(ctx context.Context) (interface{}, error)

// outcome carries an invocation's result to the waiting caller
type outcome struct {
	value interface{}
	err   error
}

// Future is the caller's handle on a queued invocation. A caller may stop
// waiting (context cancellation), but the dispatched call and its queue slot
// still complete.
type Future struct {
	done chan outcome
}

// Wait blocks until the invocation completes or ctx is done
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case out := <-f.done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type queuedRequest struct {
	id          string
	invoke      Invocation
	submittedAt time.Time
	future      *Future
}

// Stats is a read-only view of queue counters
type Stats struct {
	Total             int64   `json:"total"`
	Success           int64   `json:"success"`
	Failure           int64   `json:"failure"`
	CurrentQueueDepth int     `json:"current_queue_depth"`
	MaxQueueDepth     int     `json:"max_queue_depth"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
}

// RequestQueue is a FIFO queue with a single worker that paces dispatches at
// least minInterval apart. A failed item never blocks the items behind it,
// and the queue itself never retries - the single bounded rate-limit retry
// lives at the fetcher call site.
type RequestQueue struct {
	mu           sync.Mutex
	items        []*queuedRequest
	running      bool
	lastDispatch time.Time
	minInterval  time.Duration

	stats Stats

	// Injectable clock for tests
	now   func() time.Time
	sleep func(d time.Duration)

	logger zerolog.Logger
}

// New creates a request queue. A non-positive minInterval falls back to the
// default 800ms.
func New(minInterval time.Duration, logger zerolog.Logger) *RequestQueue {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &RequestQueue{
		minInterval: minInterval,
		now:         time.Now,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// SetClock replaces the time source and sleeper. Tests only.
func (q *RequestQueue) SetClock(now func() time.Time, sleep func(d time.Duration)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
	q.sleep = sleep
}

// Submit enqueues an invocation and returns its future. The worker loop is
// started lazily on first use and exits when the queue drains.
func (q *RequestQueue) Submit(invoke Invocation) *Future {
	req := &queuedRequest{
		id:          uuid.New().String(),
		invoke:      invoke,
		submittedAt: time.Now(),
		future:      &Future{done: make(chan outcome, 1)},
	}

	q.mu.Lock()
	q.items = append(q.items, req)
	q.stats.CurrentQueueDepth = len(q.items)
	if q.stats.CurrentQueueDepth > q.stats.MaxQueueDepth {
		q.stats.MaxQueueDepth = q.stats.CurrentQueueDepth
	}
	startWorker := !q.running
	if startWorker {
		q.running = true
	}
	q.mu.Unlock()

	if startWorker {
		go q.drain()
	}

	return req.future
}

// drain pops and dispatches requests in submission order until empty
func (q *RequestQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		req := q.items[0]
		q.items = q.items[1:]
		q.stats.CurrentQueueDepth = len(q.items)
		sinceLast := q.now().Sub(q.lastDispatch)
		sleep := q.sleep
		minInterval := q.minInterval
		q.mu.Unlock()

		// A zero lastDispatch makes sinceLast enormous, so the first
		// dispatch never waits
		if wait := minInterval - sinceLast; wait > 0 {
			sleep(wait)
		}

		q.dispatch(req)
	}
}

func (q *RequestQueue) dispatch(req *queuedRequest) {
	start := q.clockNow()

	q.mu.Lock()
	q.lastDispatch = start
	q.mu.Unlock()

	value, err := req.invoke(context.Background())
	latency := q.clockNow().Sub(start)

	q.mu.Lock()
	q.stats.Total++
	if err != nil {
		q.stats.Failure++
	} else {
		q.stats.Success++
	}
	// Running average over all dispatches
	n := float64(q.stats.Total)
	q.stats.AvgLatencyMs += (float64(latency.Milliseconds()) - q.stats.AvgLatencyMs) / n
	q.mu.Unlock()

	if err != nil {
		q.logger.Debug().
			Str("request_id", req.id).
			Err(err).
			Msg("Queued provider call failed")
	}

	req.future.done <- outcome{value: value, err: err}
}

func (q *RequestQueue) clockNow() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now()
}

// GetStats returns a copy of the queue counters
func (q *RequestQueue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
