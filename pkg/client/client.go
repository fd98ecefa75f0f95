package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/propheseer/propheseer-go/pkg/ratelimit"
)

const (
	// Version is the client library version, reported in the User-Agent.
	Version = "1.0.0"

	// DefaultBaseURL is the production Propheseer API endpoint.
	DefaultBaseURL = "https://api.propheseer.com"

	// EnvAPIKey is the environment variable consulted when Config.APIKey
	// is empty.
	EnvAPIKey = "PROPHESEER_API_KEY"

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of additional attempts after the
	// first failed request.
	DefaultMaxRetries = 2

	userAgent = "propheseer-go/" + Version
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propheseer_requests_total",
			Help: "Total number of API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "propheseer_request_duration_seconds",
			Help:    "API request duration by endpoint",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propheseer_errors_total",
			Help: "Total number of failed API requests by error class",
		},
		[]string{"class"},
	)
)

// Config holds the client configuration.
type Config struct {
	// APIKey authenticates requests. Falls back to the PROPHESEER_API_KEY
	// environment variable when empty.
	APIKey string

	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string

	// Timeout bounds each individual attempt, not the whole retry cycle.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts on retryable
	// failures (429, 5xx, network). Zero means the default; use -1 to
	// disable retries entirely.
	MaxRetries int

	// RequestsPerMinute enables a client-side throttle when positive.
	RequestsPerMinute int

	// Logger for request logging. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// Request describes a single API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is JSON-encoded when non-nil.
	Body any

	// NoAuth marks endpoints that accept unauthenticated requests, such
	// as the public ticker.
	NoAuth bool
}

// Response is the raw outcome of a successful API call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RateLimit  *ratelimit.Info
}

// Client executes HTTP requests against the Propheseer API with
// authentication, retries, and rate-limit tracking.
type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	tracker    *ratelimit.Tracker
	logger     zerolog.Logger
}

// New creates a Client. A missing API key is not an error here: the public
// ticker endpoint works without one, and authenticated requests fail with
// AuthenticationError before any network I/O.
func New(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if cfg.MaxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		tracker:    ratelimit.NewTracker(),
		logger:     logger.With().Str("component", "client").Logger(),
	}, nil
}

// BaseURL returns the configured API endpoint without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RateLimitTracker exposes the most recent rate-limit state observed on
// any response.
func (c *Client) RateLimitTracker() *ratelimit.Tracker {
	return c.tracker
}

// Do executes the request with retries. Retryable failures are 429, 5xx,
// and transport errors; every other status maps to a typed error and is
// returned immediately.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" && !req.NoAuth {
		return nil, &AuthenticationError{APIError: APIError{
			Status:  http.StatusUnauthorized,
			Code:    "UNAUTHORIZED",
			Message: "no API key configured (set " + EnvAPIKey + " or Config.APIKey)",
		}}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ConnectionError{Message: "throttle wait aborted", Err: err}
		}
	}

	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Logger()

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			class := classifyError(lastErr)
			if err := waitRetry(ctx, attempt-1, lastErr, class, logger); err != nil {
				return nil, err
			}
		}

		resp, err := c.doOnce(ctx, req, body, requestID)
		if err == nil {
			logger.Debug().
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Msg("Request succeeded")
			return resp, nil
		}

		lastErr = err
		if !errorRetryable(err) {
			errorsTotal.WithLabelValues(string(classifyError(err))).Inc()
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	errorsTotal.WithLabelValues(string(classifyError(lastErr))).Inc()
	retryExhaustedTotal.Inc()
	logger.Error().
		Int("attempts", attempts).
		Err(lastErr).
		Msg("Request failed after all retries")
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}

// Get is a convenience wrapper for GET requests.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// doOnce performs a single attempt and maps the outcome to a typed error
// or a Response.
func (c *Client) doOnce(ctx context.Context, req Request, body []byte, requestID string) (*Response, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, reader)
	if err != nil {
		return nil, &ConnectionError{Message: "build request", Err: err}
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" && !req.NoAuth {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	requestDuration.WithLabelValues(req.Path).Observe(duration.Seconds())

	if err != nil {
		requestsTotal.WithLabelValues(req.Path, "network_error").Inc()
		return nil, &ConnectionError{Message: "request failed", Err: err}
	}
	defer httpResp.Body.Close()

	requestsTotal.WithLabelValues(req.Path, fmt.Sprintf("%d", httpResp.StatusCode)).Inc()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ConnectionError{Message: "read response body", Err: err}
	}

	info := ratelimit.ParseHeaders(httpResp.Header)
	if info != nil {
		c.tracker.Update(info)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapStatusError(httpResp.StatusCode, respBody, httpResp.Header, info)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		RateLimit:  info,
	}, nil
}

// errorRetryable reports whether a request error warrants another attempt.
func errorRetryable(err error) bool {
	switch e := err.(type) {
	case *ConnectionError:
		return true
	case *RateLimitError:
		return true
	case *InternalServerError:
		return true
	case *APIError:
		return isRetryable(e.Status)
	default:
		return false
	}
}

// classifyError buckets a request error for metrics and retry logging.
func classifyError(err error) ErrorClass {
	switch e := err.(type) {
	case *ConnectionError:
		return ErrorClassNetwork
	case *RateLimitError:
		return ErrorClassRateLimit
	case *InternalServerError:
		return ErrorClassServer
	case *APIError:
		return classifyStatus(e.Status)
	case *AuthenticationError:
		return ErrorClassClient
	case *InsufficientCreditsError:
		return ErrorClassClient
	case *PermissionDeniedError:
		return ErrorClassClient
	case *NotFoundError:
		return ErrorClassClient
	default:
		return ErrorClassClient
	}
}
