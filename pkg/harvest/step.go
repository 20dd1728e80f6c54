package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/webharvest/harvest-client/pkg/cache"
	"github.com/webharvest/harvest-client/pkg/logging"
	"github.com/webharvest/harvest-client/pkg/ratelimit"
	"github.com/webharvest/harvest-client/pkg/transport"
)

// Prometheus metrics for harvest API calls.
var (
	harvestRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_requests_total",
		Help: "Total paged API calls by HTTP status",
	}, []string{"status"})

	harvestRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_request_duration_seconds",
		Help:    "Paged API call duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	harvestTransportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_transport_errors_total",
		Help: "Total transport failures by kind",
	}, []string{"kind"})
)

// Requester executes one HTTP transaction. Satisfied by transport.Execute
// through RequesterFunc; tests substitute fakes.
type Requester interface {
	Execute(ctx context.Context, req *transport.Request) (*transport.Result, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, req *transport.Request) (*transport.Result, error)

// Execute implements Requester.
func (f RequesterFunc) Execute(ctx context.Context, req *transport.Request) (*transport.Result, error) {
	return f(ctx, req)
}

// StepperConfig configures the per-call behavior of a Stepper.
type StepperConfig struct {
	// Requester defaults to transport.Execute.
	Requester Requester

	// Limiter paces calls; nil means unpaced.
	Limiter ratelimit.Limiter

	// Cache short-circuits repeated identical queries; nil disables caching.
	Cache *cache.Manager

	// Headers are sent with every call.
	Headers map[string]string

	// Transport knobs, passed through to every request.
	FollowRedirects bool
	MaxRedirects    int
	Timeout         transport.Timeout
	Session         *transport.Session
	Verbose         bool
}

// Stepper performs exactly one paged API call per Step: transport through
// the rate limiter, envelope decoding, item and next-link extraction.
type Stepper struct {
	cfg    StepperConfig
	logger zerolog.Logger
}

// NewStepper creates a Stepper.
func NewStepper(cfg StepperConfig) *Stepper {
	if cfg.Requester == nil {
		cfg.Requester = RequesterFunc(transport.Execute)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.Unlimited{}
	}

	return &Stepper{
		cfg:    cfg,
		logger: logging.NewLogger("stepper"),
	}
}

// Step fetches one page. It returns the page's items and the next-page URL
// ("" when the API offers none). Transport errors pass through unmodified;
// protocol failures surface as the harvest error taxonomy, and an empty or
// missing item array surfaces as ErrExhaustedPagination.
func (s *Stepper) Step(ctx context.Context, pageURL, itemKey string) ([]Item, string, error) {
	// A fresh cache hit answers without spending any rate budget. Stale
	// entries fall through: their revalidation is a real API call and paces
	// normally.
	var cached *cache.Entry
	if s.cfg.Cache != nil {
		cached = s.lookupCache(ctx, pageURL)
		if cached != nil && cached.Fresh() {
			s.logger.Debug().Str("url", pageURL).Msg("Serving page from cache")
			return s.decodePage(cached.Body, itemKey)
		}
	}

	s.cfg.Limiter.Wait()

	start := time.Now()
	defer func() {
		harvestRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req := &transport.Request{
		URL:             pageURL,
		Method:          http.MethodGet,
		Headers:         s.requestHeaders(cached),
		FollowRedirects: s.cfg.FollowRedirects,
		MaxRedirects:    s.cfg.MaxRedirects,
		Timeout:         s.cfg.Timeout,
		Session:         s.cfg.Session,
		Verbose:         s.cfg.Verbose,
	}

	result, err := s.cfg.Requester.Execute(ctx, req)
	if err != nil {
		harvestTransportErrorsTotal.WithLabelValues(transport.ErrorCode(err)).Inc()
		return nil, "", err
	}

	harvestRequestsTotal.WithLabelValues(fmt.Sprintf("%d", result.Status)).Inc()

	body := result.Body

	switch {
	case result.Status == http.StatusNotModified && cached != nil:
		if err := s.cfg.Cache.Refresh(ctx, cache.KeyForURL(pageURL), cached); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		body = cached.Body

	case result.Status == http.StatusUnauthorized:
		return nil, "", ErrInvalidToken

	case result.Status == http.StatusTooManyRequests:
		return nil, "", ErrRateLimitExceeded

	case result.Status >= 400:
		return nil, "", decodeErrorEnvelope(result)

	default:
		s.storeCache(ctx, pageURL, result)
	}

	return s.decodePage(body, itemKey)
}

// requestHeaders merges configured headers with cache validators for a stale
// entry.
func (s *Stepper) requestHeaders(cached *cache.Entry) map[string]string {
	conditional := cache.ConditionalHeaders(cached)
	if len(s.cfg.Headers) == 0 && len(conditional) == 0 {
		return nil
	}

	headers := make(map[string]string, len(s.cfg.Headers)+len(conditional))
	for name, value := range s.cfg.Headers {
		headers[name] = value
	}
	for name, value := range conditional {
		headers[name] = value
	}
	return headers
}

// lookupCache fetches the entry for a URL, degrading silently on cache
// failures.
func (s *Stepper) lookupCache(ctx context.Context, pageURL string) *cache.Entry {
	entry, err := s.cfg.Cache.Get(ctx, cache.KeyForURL(pageURL))
	if err != nil {
		if err != cache.ErrCacheMiss {
			s.logger.Warn().Err(err).Str("url", pageURL).Msg("Cache get error")
		}
		return nil
	}
	return entry
}

// storeCache writes a successful response, degrading silently on failure.
func (s *Stepper) storeCache(ctx context.Context, pageURL string, result *transport.Result) {
	if s.cfg.Cache == nil || result.Status != http.StatusOK {
		return
	}

	entry := cache.EntryFromResult(result, s.cfg.Cache.DefaultTTL())
	if err := s.cfg.Cache.Set(ctx, cache.KeyForURL(pageURL), entry); err != nil {
		s.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to cache page")
	}
}

// decodeErrorEnvelope turns a >=400 response into an InvalidRequestError
// carrying the upstream message and code. A body that does not decode here is
// a fatal envelope failure, not retried.
func decodeErrorEnvelope(result *transport.Result) error {
	var envelope struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	if err := json.Unmarshal(result.Body, &envelope); err != nil {
		return fmt.Errorf("error envelope for status %d: %w", result.Status, ErrInvalidJSON)
	}

	return &InvalidRequestError{
		Message: envelope.Message,
		Code:    envelope.Code,
		Status:  result.Status,
	}
}

// decodePage extracts the item list and next-page link from a success body.
func (s *Stepper) decodePage(body []byte, itemKey string) ([]Item, string, error) {
	var envelope struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Result == nil {
		return nil, "", ErrInvalidJSON
	}

	rawItems, ok := envelope.Result[itemKey]
	if !ok {
		return nil, "", ErrExhaustedPagination
	}

	items, err := decodeItems(rawItems)
	if err != nil {
		return nil, "", ErrInvalidJSON
	}
	if len(items) == 0 {
		return nil, "", ErrExhaustedPagination
	}

	nextPage := ""
	if rawPagination, ok := envelope.Result["pagination"]; ok {
		var pagination struct {
			NextPage string `json:"nextPage"`
		}
		if err := json.Unmarshal(rawPagination, &pagination); err == nil {
			nextPage = pagination.NextPage
		}
	}

	return items, nextPage, nil
}

// decodeItems decodes the item array, preserving numeric identifiers exactly.
func decodeItems(raw json.RawMessage) ([]Item, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var items []Item
	if err := decoder.Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}
