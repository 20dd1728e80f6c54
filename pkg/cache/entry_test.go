package cache

import (
	"net/http"
	"testing"
	"time"

	"github.com/webharvest/harvest-client/pkg/transport"
)

func TestEntry_Fresh(t *testing.T) {
	fresh := &Entry{FreshUntil: time.Now().Add(time.Minute)}
	if !fresh.Fresh() {
		t.Error("entry with future FreshUntil should be fresh")
	}

	stale := &Entry{FreshUntil: time.Now().Add(-time.Minute)}
	if stale.Fresh() {
		t.Error("entry with past FreshUntil should be stale")
	}
}

func TestEntry_TTL(t *testing.T) {
	entry := &Entry{FreshUntil: time.Now().Add(time.Minute)}
	if ttl := entry.TTL(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %v, want within (0, 1m]", ttl)
	}

	expired := &Entry{FreshUntil: time.Now().Add(-time.Second)}
	if ttl := expired.TTL(); ttl != 0 {
		t.Errorf("expired TTL() = %v, want 0", ttl)
	}
}

func TestEntry_Revalidatable(t *testing.T) {
	if (&Entry{}).Revalidatable() {
		t.Error("entry without validators should not be revalidatable")
	}
	if !(&Entry{ETag: `"abc"`}).Revalidatable() {
		t.Error("entry with ETag should be revalidatable")
	}
	if !(&Entry{LastModified: time.Now()}).Revalidatable() {
		t.Error("entry with Last-Modified should be revalidatable")
	}
}

func TestEntryFromResult(t *testing.T) {
	headers := http.Header{}
	headers.Set("ETag", `"v1"`)
	headers.Set("Content-Type", "application/json")

	result := &transport.Result{
		URL:     "https://api.example.com/posts",
		Status:  200,
		Headers: headers,
		Body:    []byte(`{"result":{}}`),
	}

	entry := EntryFromResult(result, 10*time.Minute)

	if string(entry.Body) != `{"result":{}}` {
		t.Errorf("Body = %q", entry.Body)
	}
	if entry.ETag != `"v1"` {
		t.Errorf("ETag = %q", entry.ETag)
	}
	if !entry.Fresh() {
		t.Error("new entry should be fresh")
	}
	if got := entry.TTL(); got > 10*time.Minute {
		t.Errorf("TTL() = %v, want <= defaultTTL", got)
	}
}

func TestEntryFromResult_ExpiresHeaderWins(t *testing.T) {
	headers := http.Header{}
	expires := time.Now().Add(30 * time.Minute).UTC()
	headers.Set("Expires", expires.Format(http.TimeFormat))

	result := &transport.Result{Status: 200, Headers: headers}
	entry := EntryFromResult(result, time.Minute)

	if entry.TTL() < 20*time.Minute {
		t.Errorf("TTL() = %v, Expires header should override default", entry.TTL())
	}
}

func TestConditionalHeaders(t *testing.T) {
	if got := ConditionalHeaders(nil); got != nil {
		t.Errorf("ConditionalHeaders(nil) = %v, want nil", got)
	}

	withETag := &Entry{ETag: `"v1"`, LastModified: time.Now()}
	got := ConditionalHeaders(withETag)
	if got["If-None-Match"] != `"v1"` {
		t.Errorf("If-None-Match = %q, ETag should be preferred", got["If-None-Match"])
	}

	lastMod := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withLastMod := &Entry{LastModified: lastMod}
	got = ConditionalHeaders(withLastMod)
	if got["If-Modified-Since"] != lastMod.Format(http.TimeFormat) {
		t.Errorf("If-Modified-Since = %q", got["If-Modified-Since"])
	}
}
