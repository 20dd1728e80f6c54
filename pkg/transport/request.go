// Package transport executes single HTTP requests with exact redirect-chain
// reconstruction, a typed failure taxonomy, and cooperative cancellation.
//
// The package performs no retries and no logging (beyond opt-in verbose
// tracing): retry and reporting policy belong to the caller.
package transport

import (
	"time"
)

// DefaultMaxRedirects is the redirect hop limit applied when a request
// follows redirects but does not set its own limit.
const DefaultMaxRedirects = 5

// Timeout configures request deadlines. Either Total alone, or a
// Connect/Read split. When split, the effective total deadline is Read,
// plus Connect when both are given; this sum-on-split behavior is part of
// the contract and is not a max().
type Timeout struct {
	Total   time.Duration
	Connect time.Duration
	Read    time.Duration
}

// effectiveTotal resolves the overall deadline for one call.
func (t Timeout) effectiveTotal() time.Duration {
	if t.Total > 0 {
		return t.Total
	}

	total := t.Read
	if t.Connect > 0 {
		total += t.Connect
	}
	return total
}

// Request describes exactly one HTTP transaction. It is owned by the caller
// and never mutated by Execute.
type Request struct {
	// URL is the absolute URL to fetch. It must pass the syntax precheck
	// (scheme required, TLD-aware host, spaces tolerated) or Execute fails
	// with KindInvalidURL before touching the network.
	URL string

	// Method defaults to GET.
	Method string

	// Headers are sent on every hop of the chain.
	Headers map[string]string

	// Body is the optional request body.
	Body []byte

	// FollowRedirects enables following Location headers, up to MaxRedirects
	// hops (DefaultMaxRedirects when zero).
	FollowRedirects bool
	MaxRedirects    int

	Timeout Timeout

	// Session opts into a shared connection cache amortizing TLS/DNS/connect
	// setup across calls. Nil means a one-shot connection per call.
	Session *Session

	// Verbose emits debug-level trace events for each hop.
	Verbose bool
}

// NewRequest returns a GET request for url with redirect following enabled.
func NewRequest(url string) *Request {
	return &Request{
		URL:             url,
		Method:          "GET",
		FollowRedirects: true,
		MaxRedirects:    DefaultMaxRedirects,
	}
}
