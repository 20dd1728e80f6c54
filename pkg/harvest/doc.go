// Package harvest drives exhaustive harvests of paginated, rate-limited,
// JSON-over-HTTP APIs.
//
// The Stepper performs exactly one paged call and decodes its envelope; the
// Iterator walks nextPage links, deduplicates items across page boundaries
// and, when the API refuses to paginate further, asks a partition strategy to
// re-issue the initial query for a narrower slice (a single day, or a rolling
// year and item-count window) until the whole logical result set has been
// harvested.
//
// Iterator and strategy instances are single-owner: one harvest, one
// instance, no concurrent calls. Call-rate pacing and the shared budget live
// in pkg/ratelimit; individual HTTP transactions in pkg/transport.
package harvest
