package cache

import (
	"net/http"
	"time"

	"github.com/webharvest/harvest-client/pkg/transport"
)

// EntryFromResult builds a cache entry from a successful transport result.
// Freshness follows the response's Expires header when present and parseable,
// falling back to defaultTTL otherwise.
func EntryFromResult(result *transport.Result, defaultTTL time.Duration) *Entry {
	now := time.Now()

	entry := &Entry{
		Body:       result.Body,
		ETag:       result.Headers.Get("ETag"),
		StatusCode: result.Status,
		Headers:    result.Headers.Clone(),
		StoredAt:   now,
		FreshUntil: now.Add(defaultTTL),
	}

	if expiresStr := result.Headers.Get("Expires"); expiresStr != "" {
		if expires, err := http.ParseTime(expiresStr); err == nil && expires.After(now) {
			entry.FreshUntil = expires
		}
	}

	if lastModStr := result.Headers.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// ConditionalHeaders returns the validator headers for revalidating a stale
// entry. ETag is preferred over Last-Modified.
func ConditionalHeaders(entry *Entry) map[string]string {
	if entry == nil {
		return nil
	}

	if entry.ETag != "" {
		return map[string]string{"If-None-Match": entry.ETag}
	}
	if !entry.LastModified.IsZero() {
		return map[string]string{"If-Modified-Since": entry.LastModified.Format(http.TimeFormat)}
	}
	return nil
}
