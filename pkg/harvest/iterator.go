package harvest

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/webharvest/harvest-client/pkg/logging"
)

var (
	harvestPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_pages_total",
		Help: "Total pages harvested",
	})

	harvestItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_items_total",
		Help: "Total items yielded by harvests",
	})

	harvestRepartitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_repartitions_total",
		Help: "Total times a harvest re-issued its initial query for a new slice",
	})
)

// OutputFormat selects how harvested items are shaped before being yielded.
type OutputFormat string

const (
	// FormatRaw yields decoded items untouched.
	FormatRaw OutputFormat = "raw"

	// FormatDict yields items through the formatter as keyed records.
	FormatDict OutputFormat = "dict"

	// FormatRow yields items through the formatter as positional rows.
	FormatRow OutputFormat = "row"
)

// Formatter shapes one item for output. The harvest core does not know the
// item's schema; the formatter is supplied by the per-platform caller.
type Formatter func(item Item, format OutputFormat) any

// IteratorConfig configures one harvest.
type IteratorConfig struct {
	// Query is the initial query. A missing end date is inferred as "now"; a
	// bare-day end date is pushed to just before the following midnight.
	Query Query

	// Forge materializes queries into URLs.
	Forge Forge

	// ItemKey names the array holding items in the result envelope.
	ItemKey string

	// Strategy selects the partitioning behavior (zero value: none).
	Strategy StrategySpec

	// Limit caps the total items yielded across the whole harvest
	// (0: unlimited). Reaching it stops the harvest even mid-page.
	Limit int

	// Format selects the output shape; FormatRaw when empty.
	Format OutputFormat

	// Formatter is required for FormatDict and FormatRow.
	Formatter Formatter

	// ItemID extracts dedup identifiers; DefaultItemID when nil.
	ItemID ItemID

	// Detailed attaches the strategy's diagnostic detail to every batch.
	Detailed bool
}

// Batch is the yield of one iterator step: the formatted items of one page
// (or partition step), plus diagnostic detail when requested.
type Batch struct {
	Items  []any
	Detail map[string]any
}

// Iterator drives a harvest to completion. Use it scanner-style:
//
//	for it.Next(ctx) {
//		batch := it.Batch()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
//
// An Iterator is single-owner: one harvest, no concurrent calls.
type Iterator struct {
	stepper  *Stepper
	cfg      IteratorConfig
	strategy Strategy
	itemID   ItemID
	logger   zerolog.Logger

	url       string
	lastURL   string
	lastItems map[string]struct{}
	total     int
	calls     int

	batch *Batch
	err   error
	done  bool
}

// NewIterator validates the configuration, normalizes the query's end date,
// builds the partition strategy and seeds the first URL.
func NewIterator(stepper *Stepper, cfg IteratorConfig) (*Iterator, error) {
	if cfg.Format == "" {
		cfg.Format = FormatRaw
	}
	switch cfg.Format {
	case FormatRaw:
	case FormatDict, FormatRow:
		if cfg.Formatter == nil {
			return nil, ErrUnsupportedFormat
		}
	default:
		return nil, ErrUnsupportedFormat
	}

	cfg.Query.EndDate = normalizeEndDate(cfg.Query.EndDate)

	strategy, err := NewStrategy(cfg.Strategy, cfg.Query, cfg.Forge)
	if err != nil {
		return nil, err
	}

	itemID := cfg.ItemID
	if itemID == nil {
		itemID = DefaultItemID
	}

	return &Iterator{
		stepper:  stepper,
		cfg:      cfg,
		strategy: strategy,
		itemID:   itemID,
		logger:   logging.NewLogger("iterator"),
		url:      strategy.ProduceQuery(nil),
	}, nil
}

// Next advances the harvest by one yielded batch. It returns false when the
// harvest is done or failed; Err distinguishes the two.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}

	for {
		// Fuse against a misbehaving API echoing the same page forever.
		if it.url == "" || it.url == it.lastURL {
			it.finish()
			return false
		}

		it.calls++
		items, nextURL, err := it.stepper.Step(ctx, it.url, it.cfg.ItemKey)

		// Exhaustion is the designed end-of-partition signal, never an
		// error for the caller: repartition and try again.
		if errors.Is(err, ErrExhaustedPagination) {
			it.repartition(nil)
			continue
		}
		if err != nil {
			it.err = err
			it.done = true
			return false
		}

		it.lastURL = it.url
		harvestPagesTotal.Inc()

		batch := &Batch{}
		limitReached := false

		for _, item := range items {
			if _, seen := it.lastItems[it.itemID(item)]; seen {
				continue
			}

			it.total++
			batch.Items = append(batch.Items, it.format(item))

			if it.cfg.Limit > 0 && it.total >= it.cfg.Limit {
				limitReached = true
				break
			}
		}

		if it.cfg.Detailed {
			batch.Detail = it.strategy.Detail()
		}

		harvestItemsTotal.Add(float64(len(batch.Items)))

		// Track the full page's identifiers so an item straddling a shifted
		// page boundary is not yielded twice.
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			seen[it.itemID(item)] = struct{}{}
		}
		it.lastItems = seen

		switch {
		case limitReached:
			it.finish()
		case nextURL == "":
			it.repartition(nil)
		case it.strategy.ShouldContinuePagination(items):
			it.url = nextURL
		default:
			it.repartition(items)
		}

		it.batch = batch
		return true
	}
}

// Batch returns the batch produced by the last successful Next.
func (it *Iterator) Batch() *Batch {
	return it.batch
}

// Err returns the error that stopped the harvest, nil after a natural end.
// ErrExhaustedPagination never appears here.
func (it *Iterator) Err() error {
	return it.err
}

// Total returns the number of items yielded so far.
func (it *Iterator) Total() int {
	return it.total
}

// Each streams every remaining item through fn, stopping on the first error.
func (it *Iterator) Each(ctx context.Context, fn func(item any) error) error {
	for it.Next(ctx) {
		for _, item := range it.Batch().Items {
			if err := fn(item); err != nil {
				return err
			}
		}
	}
	return it.Err()
}

// Collect drains the harvest into one slice.
func (it *Iterator) Collect(ctx context.Context) ([]any, error) {
	var all []any
	err := it.Each(ctx, func(item any) error {
		all = append(all, item)
		return nil
	})
	return all, err
}

// repartition asks the strategy for the next slice's query.
func (it *Iterator) repartition(lastItems []Item) {
	harvestRepartitionsTotal.Inc()
	it.url = it.strategy.ProduceQuery(lastItems)

	if it.url != "" {
		it.logger.Debug().
			Str("url", it.url).
			Interface("detail", it.strategy.Detail()).
			Msg("Repartitioned harvest")
	}
}

// finish marks the harvest done.
func (it *Iterator) finish() {
	it.done = true
	it.logger.Info().
		Int("items", it.total).
		Int("calls", it.calls).
		Msg("Harvest complete")
}

// format shapes one item for output.
func (it *Iterator) format(item Item) any {
	if it.cfg.Format == FormatRaw || it.cfg.Formatter == nil {
		return item
	}
	return it.cfg.Formatter(item, it.cfg.Format)
}
