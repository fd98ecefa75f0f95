package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/propheseer/propheseer-go/pkg/ratelimit"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is wrapped into the final error when all retry
	// attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures, used for
// metrics and retry decisions.
type ErrorClass string

const (
	// ErrorClassClient represents non-retryable 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is the base type for all errors returned by the Propheseer API.
// The concrete typed errors below embed it, so callers can match a specific
// kind with errors.As or fall back to the generic fields here.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Headers   http.Header
	RateLimit *ratelimit.Info
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("propheseer: %s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("propheseer: %s (status %d)", e.Message, e.Status)
}

// AuthenticationError reports a missing or invalid API key (HTTP 401).
type AuthenticationError struct {
	APIError
}

// InsufficientCreditsError reports an exhausted credit balance (HTTP 402).
type InsufficientCreditsError struct {
	APIError

	// BalanceCents is the current balance in cents, if the API reported it.
	BalanceCents int

	// RequiredCents is the amount the request would have cost.
	RequiredCents int
}

// PermissionDeniedError reports a plan that does not cover the requested
// resource (HTTP 403).
type PermissionDeniedError struct {
	APIError

	// RequiredPlan is the plan needed to access the resource, if reported.
	RequiredPlan string
}

// NotFoundError reports a missing resource (HTTP 404).
type NotFoundError struct {
	APIError
}

// RateLimitError reports an exceeded request quota (HTTP 429).
type RateLimitError struct {
	APIError

	// RetryAfter is the number of seconds to wait before retrying, taken
	// from the response body or the Retry-After header. Zero when the
	// server gave no hint.
	RetryAfter int
}

// InternalServerError reports an API-side failure (HTTP 5xx).
type InternalServerError struct {
	APIError
}

// ConnectionError reports a transport-level failure: a network error, a
// timeout, or a response payload that does not match the documented schema.
type ConnectionError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("propheseer: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("propheseer: %s", e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// apiErrorBody is the error envelope the API returns on non-2xx responses.
// All fields are optional; decoding is best-effort.
type apiErrorBody struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          string `json:"code"`
	RequiredPlan  string `json:"requiredPlan"`
	RetryAfter    int    `json:"retryAfter"`
	BalanceCents  int    `json:"balanceCents"`
	RequiredCents int    `json:"requiredCents"`
}

// isRetryable reports whether an HTTP status should trigger a retry.
// Only 429 and 5xx are retried; other 4xx responses are final.
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// classifyStatus categorizes an HTTP error status for metrics.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// mapStatusError maps a non-2xx response to the matching typed error.
func mapStatusError(status int, body []byte, headers http.Header, info *ratelimit.Info) error {
	var eb apiErrorBody
	// A non-JSON error body is tolerated, the status code alone is enough.
	_ = json.Unmarshal(body, &eb)

	message := eb.Error
	if message == "" {
		message = eb.Message
	}
	if message == "" {
		message = fmt.Sprintf("API error: %d", status)
	}

	base := APIError{
		Status:    status,
		Code:      eb.Code,
		Message:   message,
		Headers:   headers,
		RateLimit: info,
	}

	switch {
	case status == http.StatusUnauthorized:
		base.Code = orDefault(eb.Code, "UNAUTHORIZED")
		return &AuthenticationError{APIError: base}
	case status == http.StatusPaymentRequired:
		base.Code = orDefault(eb.Code, "INSUFFICIENT_CREDITS")
		return &InsufficientCreditsError{
			APIError:      base,
			BalanceCents:  eb.BalanceCents,
			RequiredCents: eb.RequiredCents,
		}
	case status == http.StatusForbidden:
		base.Code = orDefault(eb.Code, "FORBIDDEN")
		return &PermissionDeniedError{
			APIError:     base,
			RequiredPlan: eb.RequiredPlan,
		}
	case status == http.StatusNotFound:
		base.Code = orDefault(eb.Code, "NOT_FOUND")
		return &NotFoundError{APIError: base}
	case status == http.StatusTooManyRequests:
		base.Code = orDefault(eb.Code, "RATE_LIMITED")
		retryAfter := eb.RetryAfter
		if retryAfter == 0 {
			if s := headers.Get("Retry-After"); s != "" {
				if n, err := strconv.Atoi(s); err == nil {
					retryAfter = n
				}
			}
		}
		return &RateLimitError{APIError: base, RetryAfter: retryAfter}
	case status >= 500:
		base.Code = orDefault(eb.Code, "INTERNAL_ERROR")
		return &InternalServerError{APIError: base}
	default:
		return &base
	}
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
