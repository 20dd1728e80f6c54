package harvest

import (
	"strings"
	"time"
)

// Strategy decides how to re-issue the initial query once the API refuses to
// paginate further for the current query shape. One strategy instance serves
// one harvest; instances are not safe for concurrent use and are never
// shared.
type Strategy interface {
	// ProduceQuery returns the URL of the next slice's initial query, or ""
	// when the harvest is fully done. lastItems is nil when the previous
	// slice ended by exhaustion, and carries the last page's items when the
	// strategy itself stopped pagination early.
	ProduceQuery(lastItems []Item) string

	// ShouldContinuePagination reports whether the iterator should keep
	// walking nextPage links after a page, or stop and ask ProduceQuery for
	// a narrower slice.
	ShouldContinuePagination(items []Item) bool

	// Detail returns strategy-specific diagnostic detail, nil when none.
	Detail() map[string]any
}

// StrategySpec selects a partition strategy: the zero value means none
// (Noop), Name "day" partitions by calendar day, and Limit > 0 partitions by
// a rolling year and item-count window.
type StrategySpec struct {
	Name  string
	Limit int
}

// NewStrategy constructs the strategy for a spec. Day and Limit partitioning
// require a start date.
func NewStrategy(spec StrategySpec, query Query, forge Forge) (Strategy, error) {
	switch {
	case spec.Limit > 0:
		if query.StartDate == "" {
			return nil, ErrMissingStartDate
		}
		// The year walker needs a concrete end bound; an absent one means
		// "now", as everywhere else in the package.
		query.EndDate = normalizeEndDate(query.EndDate)
		return newLimitStrategy(query, forge, spec.Limit), nil

	case spec.Name == "day":
		if query.StartDate == "" {
			return nil, ErrMissingStartDate
		}
		return newDayStrategy(query, forge, time.Now())

	case spec.Name == "":
		return &noopStrategy{query: query, forge: forge}, nil
	}

	return nil, &InvalidRequestError{Message: "unknown partition strategy " + spec.Name}
}

// noopStrategy produces exactly one query (the original) and then signals
// done. Used when no partitioning is requested.
type noopStrategy struct {
	query   Query
	forge   Forge
	started bool
}

func (s *noopStrategy) ProduceQuery([]Item) string {
	if s.started {
		return ""
	}
	s.started = true
	return s.forge(s.query)
}

func (s *noopStrategy) ShouldContinuePagination([]Item) bool { return true }

func (s *noopStrategy) Detail() map[string]any { return nil }

// dayStrategy re-issues the query one calendar day at a time, walking
// backward from today to the caller's start date. Pagination within a day is
// never stopped early.
type dayStrategy struct {
	query Query
	forge Forge
	days  *dayRange
}

func newDayStrategy(query Query, forge Forge, today time.Time) (*dayStrategy, error) {
	days, err := newDayRange(query.StartDate, today)
	if err != nil {
		return nil, err
	}
	return &dayStrategy{query: query, forge: forge, days: days}, nil
}

func (s *dayStrategy) ProduceQuery([]Item) string {
	day, ok := s.days.next()
	if !ok {
		return ""
	}

	s.query.StartDate = day
	s.query.EndDate = day
	return s.forge(s.query)
}

func (s *dayStrategy) ShouldContinuePagination([]Item) bool { return true }

func (s *dayStrategy) Detail() map[string]any {
	return map[string]any{"day": s.query.StartDate}
}

// limitStrategy serves APIs whose true constraint is a maximum result count
// per query. It walks backward year by year and, within a year, re-anchors
// the query's end date to the last item seen once the per-partition count is
// reached, so each re-query makes forward progress without refetching.
//
// Known limitation: the running count assumes the API returns a stable
// ordering between calls. If the upstream reorders results mid-harvest the
// count-window boundaries shift with it; upstream behavior there is
// unspecified.
type limitStrategy struct {
	query Query
	forge Forge
	limit int

	years    *yearRange
	started  bool
	lastItem Item
	seen     int
	shifts   int
}

func newLimitStrategy(query Query, forge Forge, limit int) *limitStrategy {
	s := &limitStrategy{
		query: query,
		forge: forge,
		limit: limit,
		years: newYearRange(query.StartDate, query.EndDate),
	}
	s.rotateYear()
	return s
}

// rotateYear advances to the next earlier year window, reporting false when
// no years remain.
func (s *limitStrategy) rotateYear() bool {
	start, end, ok := s.years.next()
	if !ok {
		return false
	}
	s.query.StartDate = start
	s.query.EndDate = end
	return true
}

func (s *limitStrategy) ProduceQuery(lastItems []Item) string {
	if !s.started {
		s.started = true
		return s.forge(s.query)
	}

	// Exhaustion: the year window ran dry, rotate to the next one.
	if lastItems == nil {
		if !s.rotateYear() {
			return ""
		}
		return s.forge(s.query)
	}

	// Count-window stop: narrow the end date to the last item seen. The API
	// expects 'T' between date and time where items carry a space.
	if s.lastItem != nil {
		if date := itemDate(s.lastItem); date != "" {
			s.query.EndDate = strings.ReplaceAll(date, " ", "T")
		}
	}

	return s.forge(s.query)
}

func (s *limitStrategy) ShouldContinuePagination(items []Item) bool {
	if len(items) > 0 {
		s.lastItem = items[len(items)-1]
		s.seen += len(items)
	}

	if s.seen >= s.limit {
		s.seen = 0
		s.shifts++
		return false
	}

	return true
}

func (s *limitStrategy) Detail() map[string]any {
	if s.query.EndDate == "" {
		return nil
	}
	return map[string]any{"date": s.query.EndDate, "shifts": s.shifts}
}
