// Command harvester drives a paginated API harvest from the command line and
// writes the harvested items to stdout as NDJSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/webharvest/harvest-client/pkg/cache"
	"github.com/webharvest/harvest-client/pkg/harvest"
	"github.com/webharvest/harvest-client/pkg/logging"
	"github.com/webharvest/harvest-client/pkg/ratelimit"
	"github.com/webharvest/harvest-client/pkg/transport"
)

// extraParams collects repeated -param key=value flags.
type extraParams map[string]string

func (p extraParams) String() string { return fmt.Sprint(map[string]string(p)) }

func (p extraParams) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	p[key] = val
	return nil
}

func main() {
	var (
		baseURL        = flag.String("url", "", "base endpoint URL (required)")
		token          = flag.String("token", os.Getenv("API_TOKEN"), "API token (default: API_TOKEN env)")
		itemKey        = flag.String("item-key", "posts", "name of the item array in the result envelope")
		startDate      = flag.String("start", "", "start date (YYYY, YYYY-MM or YYYY-MM-DD accepted)")
		endDate        = flag.String("end", "", "end date (default: now)")
		partition      = flag.String("partition", "", "partition strategy: day, or empty for none")
		partitionLimit = flag.Int("partition-limit", 0, "per-query result cap; enables count-window partitioning")
		limit          = flag.Int("limit", 0, "stop after this many items (0: unlimited)")
		rateCalls      = flag.Int("rate", 6, "calls allowed per rate window")
		rateWindow     = flag.Duration("rate-window", time.Minute, "rate window length")
		timeout        = flag.Duration("timeout", 30*time.Second, "per-call timeout")
		detailed       = flag.Bool("detailed", false, "attach partition detail to every output line")
		verbose        = flag.Bool("verbose", false, "log every HTTP transaction")
		params         = extraParams{}
	)
	flag.Var(params, "param", "extra query parameter, key=value (repeatable)")
	flag.Parse()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	if *baseURL == "" {
		logger.Fatal().Msg("Missing -url")
	}

	if *startDate != "" {
		*startDate = harvest.ComplementDate(*startDate, "start")
	}
	if *endDate != "" {
		*endDate = harvest.ComplementDate(*endDate, "end")
	}

	// Day partitioning slices on bare calendar days.
	if *partition == "day" && *startDate != "" {
		*startDate = (*startDate)[:10]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter, cacheManager := setupInfra(ctx, logger, *rateCalls, *rateWindow)

	session := transport.NewSession()
	defer session.Close()

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go serveMetrics(addr, logger)
	}

	stepper := harvest.NewStepper(harvest.StepperConfig{
		Limiter:         limiter,
		Cache:           cacheManager,
		Headers:         map[string]string{"User-Agent": getEnv("USER_AGENT", "harvester/1.0")},
		FollowRedirects: true,
		MaxRedirects:    transport.DefaultMaxRedirects,
		Timeout:         transport.Timeout{Total: *timeout},
		Session:         session,
		Verbose:         *verbose,
	})

	iterator, err := harvest.NewIterator(stepper, harvest.IteratorConfig{
		Query: harvest.Query{
			Token:     *token,
			StartDate: *startDate,
			EndDate:   *endDate,
			Extra:     params,
		},
		Forge:    forgeURL(*baseURL),
		ItemKey:  *itemKey,
		Strategy: harvest.StrategySpec{Name: *partition, Limit: *partitionLimit},
		Limit:    *limit,
		Detailed: *detailed,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid harvest configuration")
	}

	encoder := json.NewEncoder(os.Stdout)
	start := time.Now()

	for iterator.Next(ctx) {
		batch := iterator.Batch()
		for _, item := range batch.Items {
			line := item
			if *detailed && batch.Detail != nil {
				line = map[string]any{"item": item, "detail": batch.Detail}
			}
			if err := encoder.Encode(line); err != nil {
				logger.Fatal().Err(err).Msg("Failed to write output")
			}
		}
	}

	if err := iterator.Err(); err != nil {
		logger.Fatal().
			Err(err).
			Str("code", harvest.Code(err)).
			Int("items", iterator.Total()).
			Msg("Harvest failed")
	}

	logger.Info().
		Int("items", iterator.Total()).
		Dur("elapsed", time.Since(start)).
		Msg("Harvest complete")
}

// setupInfra wires the rate limiter and cache. With REDIS_URL set, the call
// budget is shared across harvester processes and pages are cached; without
// it the process falls back to an in-process bucket and no cache.
func setupInfra(ctx context.Context, logger zerolog.Logger, rateCalls int, rateWindow time.Duration) (ratelimit.Limiter, *cache.Manager) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return ratelimit.NewBucket(rateCalls, rateWindow), nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", redisURL).Msg("Connected to Redis")

	tracker := ratelimit.NewTracker(redisClient, "harvester:budget", rateCalls, rateWindow,
		logging.NewLogger("tracker"))
	return tracker, cache.NewManager(redisClient, 5*time.Minute)
}

// forgeURL returns a pure forge appending the query's parameters to base.
func forgeURL(base string) harvest.Forge {
	return func(q harvest.Query) string {
		values := url.Values{}
		if q.Token != "" {
			values.Set("token", q.Token)
		}
		if q.StartDate != "" {
			values.Set("startDate", q.StartDate)
		}
		if q.EndDate != "" {
			values.Set("endDate", q.EndDate)
		}
		for key, value := range q.Extra {
			values.Set(key, value)
		}

		if len(values) == 0 {
			return base
		}
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return base + sep + values.Encode()
	}
}

// serveMetrics exposes Prometheus metrics for scraping.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
