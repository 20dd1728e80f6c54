// Package testutil provides testing utilities for the harvest client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock paginated JSON API for testing. It serves
// the standard envelope shape:
//
//	{"result": {"<itemKey>": [...], "pagination": {"nextPage": "..."}}}
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount     int
	ConditionalCount int
	LastRequestURL   string
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestURL = r.URL.String()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestURL = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Page is one page of a paginated mock endpoint.
type Page struct {
	Items    []map[string]any
	NextPage string
}

// EnvelopeBody renders a page into the envelope body the harvest client
// decodes.
func EnvelopeBody(itemKey string, page Page) string {
	result := map[string]any{itemKey: page.Items}
	if page.NextPage != "" {
		result["pagination"] = map[string]any{"nextPage": page.NextPage}
	} else {
		result["pagination"] = map[string]any{}
	}

	body, _ := json.Marshal(map[string]any{"result": result})
	return string(body)
}

// SetPaginated wires a multi-page endpoint under path: /path serves page 0,
// /path?page=N serves page N, and each page links its successor via
// nextPage. The last page's pagination carries no nextPage.
func (m *MockAPI) SetPaginated(path, itemKey string, pages []Page) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		index := 0
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			fmt.Sscanf(pageParam, "%d", &index)
		}

		if index < 0 || index >= len(pages) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, EnvelopeBody(itemKey, Page{}))
			return
		}

		page := pages[index]
		if index < len(pages)-1 {
			page.NextPage = fmt.Sprintf("%s%s?page=%d", m.URL(), path, index+1)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, EnvelopeBody(itemKey, page))
	})
}

// Items builds n sequential items with string ids starting at first, each
// carrying a date field.
func Items(first, n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"id":   fmt.Sprintf("%d", first+i),
			"date": fmt.Sprintf("2024-01-%02d 12:00:00", (first+i)%28+1),
		})
	}
	return items
}

// ErrorBody renders the upstream error envelope for >=400 responses.
func ErrorBody(message string, code int) string {
	body, _ := json.Marshal(map[string]any{"message": message, "code": code})
	return string(body)
}
