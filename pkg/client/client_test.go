package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q, want %q", got, userAgent)
		}
		w.Header().Set("X-RateLimit-Plan", "starter")
		w.Header().Set("X-RateLimit-Remaining-Day", "941")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Get(context.Background(), "/v1/markets", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.RateLimit == nil {
		t.Fatal("RateLimit = nil, want parsed info")
	}
	if resp.RateLimit.Plan != "starter" {
		t.Errorf("Plan = %q, want %q", resp.RateLimit.Plan, "starter")
	}
	if resp.RateLimit.RemainingDay == nil || *resp.RateLimit.RemainingDay != 941 {
		t.Errorf("RemainingDay = %v, want 941", resp.RateLimit.RemainingDay)
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Get(context.Background(), "/v1/markets", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestDo_RetryExhaustion(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Get(context.Background(), "/v1/markets", nil)
	if err == nil {
		t.Fatal("Get() error = nil, want retry exhaustion")
	}

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error should wrap ErrRetryExhausted, got %v", err)
	}
	var srvErr *InternalServerError
	if !errors.As(err, &srvErr) {
		t.Errorf("error should wrap InternalServerError, got %v", err)
	}
	// Default MaxRetries is 2, so exactly 3 attempts.
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Market not found"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Get(context.Background(), "/v1/markets/pm_nope", nil)

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

func TestDo_MissingKeyFailsBeforeNetwork(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Get(context.Background(), "/v1/markets", nil)
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("server calls = %d, want 0", got)
	}
}

func TestDo_NoAuthWorksWithoutKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("unauthenticated request should carry no Authorization header")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/v1/public/ticker",
		NoAuth: true,
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c, err := New(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: -1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Get(context.Background(), "/v1/markets", nil)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Get(ctx, "/v1/markets", nil)
	if err == nil {
		t.Fatal("Get() error = nil, want cancellation")
	}
	// The first backoff is at least 500ms; cancellation must cut it short.
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("cancellation took %v, want well under the first backoff", elapsed)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New(Config{APIKey: "k", BaseURL: "https://api.example.com/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.BaseURL() != "https://api.example.com" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", c.BaseURL())
	}
}

func TestNew_EnvFallback(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer env-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer env-key")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Get(context.Background(), "/v1/markets", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestDo_TrackerUpdated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Plan", "pro")
		w.Header().Set("X-Billing-Type", "subscription")
		w.Header().Set("X-RateLimit-Remaining-Minute", "58")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.Get(context.Background(), "/v1/markets", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	info, _ := c.RateLimitTracker().Snapshot()
	if info == nil {
		t.Fatal("tracker snapshot = nil, want latest info")
	}
	if info.Plan != "pro" {
		t.Errorf("Plan = %q, want %q", info.Plan, "pro")
	}
}
