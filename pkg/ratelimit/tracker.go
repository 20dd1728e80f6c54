package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var trackerBudgetUsed = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "harvest_rate_limit_shared_budget_used",
	Help: "Calls consumed from the shared Redis budget in the current window",
})

// Tracker is a Limiter whose budget lives in Redis, so multiple harvester
// processes share one API quota. Each call increments a counter keyed to the
// current window; callers over the limit sleep until the window rolls over.
type Tracker struct {
	redis  *redis.Client
	key    string
	limit  int
	window time.Duration
	logger zerolog.Logger
}

// NewTracker creates a Redis-backed limiter allowing limit calls per window,
// shared by every process using the same key.
func NewTracker(redisClient *redis.Client, key string, limit int, window time.Duration, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		key:    key,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Acquire blocks until the shared budget allows one more call, or the context
// is cancelled. Redis failures are surfaced rather than silently allowing an
// unpaced call.
func (t *Tracker) Acquire(ctx context.Context) error {
	for {
		used, err := t.consume(ctx)
		if err != nil {
			return fmt.Errorf("acquire shared budget: %w", err)
		}

		trackerBudgetUsed.Set(float64(used))

		if used <= int64(t.limit) {
			return nil
		}

		ttl, err := t.redis.PTTL(ctx, t.key).Result()
		if err != nil {
			return fmt.Errorf("shared budget ttl: %w", err)
		}
		if ttl <= 0 {
			ttl = t.window
		}

		t.logger.Debug().
			Int64("used", used).
			Int("limit", t.limit).
			Dur("wait", ttl).
			Msg("Shared budget exhausted, waiting for window")

		rateLimitWaitsTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ttl):
		}
	}
}

// Wait implements Limiter. It blocks without a cancellation hook; Redis
// failures degrade to a plain window sleep so the harvest keeps pacing.
func (t *Tracker) Wait() {
	if err := t.Acquire(context.Background()); err != nil {
		t.logger.Warn().Err(err).Msg("Shared budget unavailable, sleeping one window")
		time.Sleep(t.window)
	}
}

// consume bumps the window counter, arming its expiry on first use.
func (t *Tracker) consume(ctx context.Context) (int64, error) {
	used, err := t.redis.Incr(ctx, t.key).Result()
	if err != nil {
		return 0, err
	}

	if used == 1 {
		if err := t.redis.PExpire(ctx, t.key, t.window).Err(); err != nil {
			return 0, err
		}
	}

	return used, nil
}
