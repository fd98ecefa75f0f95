// Package testutil provides testing utilities for the Propheseer client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock Propheseer API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
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
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// GetRequestCount returns the total number of requests served.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests served for one path.
func (m *MockAPI) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
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

// SubscriptionHeaders returns a typical subscription-plan rate-limit header
// set.
func SubscriptionHeaders(plan string, remainingDay, remainingMinute int) map[string]string {
	return map[string]string{
		"X-RateLimit-Plan":             plan,
		"X-Billing-Type":               "subscription",
		"X-RateLimit-Limit-Day":        "10000",
		"X-RateLimit-Remaining-Day":    strconv.Itoa(remainingDay),
		"X-RateLimit-Limit-Minute":     "100",
		"X-RateLimit-Remaining-Minute": strconv.Itoa(remainingMinute),
	}
}

// CreditsHeaders returns a typical credits-plan rate-limit header set.
func CreditsHeaders(plan string, balanceCents, costCents int) map[string]string {
	return map[string]string{
		"X-RateLimit-Plan":       plan,
		"X-Billing-Type":         "credits",
		"X-Credit-Balance-Cents": strconv.Itoa(balanceCents),
		"X-Credit-Balance":       fmt.Sprintf("%.2f", float64(balanceCents)/100),
		"X-Request-Cost-Cents":   strconv.Itoa(costCents),
		"X-Request-Cost":         fmt.Sprintf("%.2f", float64(costCents)/100),
	}
}

// Envelope builds a {data, meta} response body.
func Envelope(data any, total, limit, offset int) string {
	body := map[string]any{
		"data": data,
		"meta": map[string]any{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

// DataEnvelope builds a {data} response body without pagination meta.
func DataEnvelope(data any) string {
	b, _ := json.Marshal(map[string]any{"data": data})
	return string(b)
}

// MarketFixture returns a minimal market object for list fixtures.
func MarketFixture(id int) map[string]any {
	return map[string]any{
		"id":        fmt.Sprintf("pm_%d", id),
		"source":    "polymarket",
		"sourceId":  strconv.Itoa(id),
		"question":  fmt.Sprintf("Will event %d happen?", id),
		"category":  "politics",
		"status":    "open",
		"outcomes":  []map[string]any{{"name": "Yes", "probability": 0.5}},
		"createdAt": "2026-01-01T00:00:00Z",
		"updatedAt": "2026-01-02T00:00:00Z",
		"url":       fmt.Sprintf("https://example.com/m/%d", id),
	}
}

// SetPaginatedMarkets serves /v1/markets from a fixture of `total` markets,
// honoring the limit and offset query parameters like the real API.
func (m *MockAPI) SetPaginatedMarkets(total int, headers map[string]string) {
	m.SetHandler("/v1/markets", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		var data []map[string]any
		for i := offset; i < offset+limit && i < total; i++ {
			data = append(data, MarketFixture(i))
		}
		if data == nil {
			data = []map[string]any{}
		}

		for key, value := range headers {
			w.Header().Set(key, value)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, Envelope(data, total, limit, offset))
	})
}
