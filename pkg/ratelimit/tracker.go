package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remainingDayGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "propheseer_ratelimit_remaining_day",
			Help: "Most recently observed remaining daily request quota",
		},
		[]string{"plan"},
	)

	remainingMinuteGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "propheseer_ratelimit_remaining_minute",
			Help: "Most recently observed remaining per-minute request quota",
		},
		[]string{"plan"},
	)

	creditBalanceGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "propheseer_credit_balance_cents",
			Help: "Most recently observed credit balance in cents",
		},
		[]string{"plan"},
	)
)

// Tracker records the most recent rate-limit state observed on any response.
// It is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	latest    *Info
	updatedAt time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Update records a newly observed Info and refreshes the exported gauges.
// A nil Info is ignored.
func (t *Tracker) Update(info *Info) {
	if info == nil {
		return
	}

	t.mu.Lock()
	t.latest = info
	t.updatedAt = time.Now()
	t.mu.Unlock()

	if info.RemainingDay != nil {
		remainingDayGauge.WithLabelValues(info.Plan).Set(float64(*info.RemainingDay))
	}
	if info.RemainingMinute != nil {
		remainingMinuteGauge.WithLabelValues(info.Plan).Set(float64(*info.RemainingMinute))
	}
	if info.CreditBalanceCents != nil {
		creditBalanceGauge.WithLabelValues(info.Plan).Set(float64(*info.CreditBalanceCents))
	}
}

// Snapshot returns the most recent Info and when it was observed. The Info
// is nil until the first authenticated response arrives.
func (t *Tracker) Snapshot() (*Info, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.updatedAt
}
