package types

// KeyUsage is the current request counters of an API key.
type KeyUsage struct {
	Daily  int `json:"daily"`
	Minute int `json:"minute"`
	Total  int `json:"total"`
}

// UsageHistoryEntry is one day of key usage.
type UsageHistoryEntry struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PlanLimits are the rate limits of a plan.
type PlanLimits struct {
	RequestsPerDay    int `json:"requestsPerDay"`
	RequestsPerMinute int `json:"requestsPerMinute"`
}

// KeyInfo describes the API key making the request.
type KeyInfo struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Plan       string              `json:"plan"`
	Limits     PlanLimits          `json:"limits"`
	Usage      KeyUsage            `json:"usage"`
	History    []UsageHistoryEntry `json:"history,omitempty"`
	CreatedAt  string              `json:"createdAt"`
	LastUsedAt string              `json:"lastUsedAt,omitempty"`
}
