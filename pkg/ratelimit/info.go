// Package ratelimit parses and tracks the rate-limit state the Propheseer
// API reports on every response.
package ratelimit

import (
	"net/http"
	"strconv"
)

// Response headers carrying rate-limit and billing state.
const (
	HeaderPlan            = "X-RateLimit-Plan"
	HeaderBillingType     = "X-Billing-Type"
	HeaderLimitDay        = "X-RateLimit-Limit-Day"
	HeaderRemainingDay    = "X-RateLimit-Remaining-Day"
	HeaderLimitMinute     = "X-RateLimit-Limit-Minute"
	HeaderRemainingMinute = "X-RateLimit-Remaining-Minute"

	HeaderCreditBalanceCents = "X-Credit-Balance-Cents"
	HeaderCreditBalance      = "X-Credit-Balance"
	HeaderRequestCostCents   = "X-Request-Cost-Cents"
	HeaderRequestCost        = "X-Request-Cost"
)

// Billing types reported in X-Billing-Type.
const (
	BillingSubscription = "subscription"
	BillingCredits      = "credits"
)

// Info is the rate-limit state of a single response. Pointer fields are nil
// when the corresponding header was absent; which fields appear depends on
// the account's billing type.
type Info struct {
	Plan        string `json:"plan"`
	BillingType string `json:"billingType,omitempty"`

	LimitDay        *int `json:"limitDay,omitempty"`
	RemainingDay    *int `json:"remainingDay,omitempty"`
	LimitMinute     *int `json:"limitMinute,omitempty"`
	RemainingMinute *int `json:"remainingMinute,omitempty"`

	CreditBalanceCents *int     `json:"creditBalanceCents,omitempty"`
	CreditBalance      *float64 `json:"creditBalance,omitempty"`
	RequestCostCents   *int     `json:"requestCostCents,omitempty"`
	RequestCost        *float64 `json:"requestCost,omitempty"`
}

// ParseHeaders extracts rate-limit state from response headers. Returns nil
// when the plan header is absent, which is how unauthenticated responses
// look.
func ParseHeaders(h http.Header) *Info {
	plan := h.Get(HeaderPlan)
	if plan == "" {
		return nil
	}

	billingType := h.Get(HeaderBillingType)
	if billingType == "" {
		billingType = BillingSubscription
	}

	info := &Info{
		Plan:        plan,
		BillingType: billingType,

		LimitDay:        intHeader(h, HeaderLimitDay),
		RemainingDay:    intHeader(h, HeaderRemainingDay),
		LimitMinute:     intHeader(h, HeaderLimitMinute),
		RemainingMinute: intHeader(h, HeaderRemainingMinute),
	}

	if info.BillingType == BillingCredits {
		info.CreditBalanceCents = intHeader(h, HeaderCreditBalanceCents)
		info.CreditBalance = floatHeader(h, HeaderCreditBalance)
		info.RequestCostCents = intHeader(h, HeaderRequestCostCents)
		info.RequestCost = floatHeader(h, HeaderRequestCost)
	}

	return info
}

func intHeader(h http.Header, key string) *int {
	s := h.Get(key)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func floatHeader(h http.Header, key string) *float64 {
	s := h.Get(key)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
