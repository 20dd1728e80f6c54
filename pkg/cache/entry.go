package cache

import (
	"net/http"
	"time"
)

// Entry is one cached page response.
type Entry struct {
	// Body is the raw response body.
	Body []byte `json:"body"`

	// ETag validator for If-None-Match revalidation, when the API sent one.
	ETag string `json:"etag"`

	// LastModified validator for If-Modified-Since revalidation.
	LastModified time.Time `json:"last_modified"`

	// StatusCode of the cached response.
	StatusCode int `json:"status_code"`

	// Headers of the cached response (final hop only).
	Headers http.Header `json:"headers"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// FreshUntil is when the entry stops being servable without
	// revalidation.
	FreshUntil time.Time `json:"fresh_until"`
}

// Fresh reports whether the entry can be served without revalidation.
func (e *Entry) Fresh() bool {
	return time.Now().Before(e.FreshUntil)
}

// TTL returns the remaining freshness window, 0 when already stale.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.FreshUntil)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Revalidatable reports whether the entry carries a validator usable for a
// conditional request once stale.
func (e *Entry) Revalidatable() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
