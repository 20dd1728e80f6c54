// Package ratelimit paces outbound API calls against a shared call budget.
// The budget is the one piece of mutable cross-call shared state in the
// harvest core: concurrent callers contend for it and acquisition is
// serialized. Waiting may block indefinitely, bounded only by the configured
// pacing; callers needing cancellation must layer it outside the limiter.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for rate limit pacing.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_rate_limit_waits_total",
		Help: "Total number of calls that had to wait for budget",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_rate_limit_wait_seconds",
		Help:    "Time spent waiting for rate limit budget",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Limiter gates calls against a shared budget.
type Limiter interface {
	// Wait blocks the caller until the budget allows one more call.
	Wait()
}

// Bucket is an in-process token bucket: Capacity calls per Period, the whole
// bucket refilling when the period elapses. Safe for concurrent use.
type Bucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	period     time.Duration
	lastRefill time.Time
}

// NewBucket creates a bucket allowing capacity calls per period.
func NewBucket(capacity int, period time.Duration) *Bucket {
	return &Bucket{
		capacity:   capacity,
		tokens:     capacity,
		period:     period,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available, without blocking.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Wait blocks until one token is available, then consumes it.
func (b *Bucket) Wait() {
	if b.Allow() {
		return
	}

	start := time.Now()
	rateLimitWaitsTotal.Inc()

	for {
		b.mu.Lock()
		untilRefill := b.period - time.Since(b.lastRefill)
		b.mu.Unlock()

		if untilRefill > 0 {
			time.Sleep(untilRefill)
		} else {
			time.Sleep(10 * time.Millisecond)
		}

		if b.Allow() {
			rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
			return
		}
	}
}

// Reset restores the bucket to full capacity.
func (b *Bucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = b.capacity
	b.lastRefill = time.Now()
}

// refill replenishes the bucket when the period has elapsed. Caller holds mu.
func (b *Bucket) refill() {
	now := time.Now()
	if now.Sub(b.lastRefill) >= b.period {
		b.tokens = b.capacity
		b.lastRefill = now
	}
}

// Unlimited is a Limiter that never blocks.
type Unlimited struct{}

// Wait returns immediately.
func (Unlimited) Wait() {}
