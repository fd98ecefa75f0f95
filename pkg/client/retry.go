package client

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	// retryBaseDelay is the first backoff interval; it doubles per attempt.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the computed backoff.
	retryMaxDelay = 30 * time.Second

	// retryJitterFactor is the fraction of the base delay added as random
	// jitter to avoid thundering herds.
	retryJitterFactor = 0.5
)

var (
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propheseer_retries_total",
			Help: "Total number of request retries by error class",
		},
		[]string{"error_class"},
	)

	retryBackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "propheseer_retry_backoff_seconds",
			Help:    "Backoff durations applied between retry attempts",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)

	retryExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "propheseer_retry_exhausted_total",
			Help: "Total number of requests that exhausted all retry attempts",
		},
	)
)

// retryDelay computes how long to wait before retry attempt `attempt`
// (1-based). A 429 carrying a server retry hint takes precedence over the
// exponential schedule.
func retryDelay(attempt int, lastErr error) time.Duration {
	var rle *RateLimitError
	if errors.As(lastErr, &rle) && rle.RetryAfter > 0 {
		return time.Duration(rle.RetryAfter) * time.Second
	}

	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	jitter := time.Duration(rand.Float64() * retryJitterFactor * float64(delay))
	return delay + jitter
}

// waitRetry sleeps for the computed backoff, honoring context cancellation.
func waitRetry(ctx context.Context, attempt int, lastErr error, class ErrorClass, logger zerolog.Logger) error {
	delay := retryDelay(attempt, lastErr)

	retriesTotal.WithLabelValues(string(class)).Inc()
	retryBackoffSeconds.Observe(delay.Seconds())

	logger.Warn().
		Int("attempt", attempt).
		Dur("backoff", delay).
		Str("error_class", string(class)).
		Err(lastErr).
		Msg("Request failed, retrying")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Join(ErrContextCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
