package types

import (
	"encoding/json"
	"net/url"
)

// MarketHistoryEntry is one historical market snapshot. Data keeps the raw
// snapshot payload, whose shape varies by endpoint.
type MarketHistoryEntry struct {
	MarketID     string          `json:"marketId"`
	SnapshotDate string          `json:"snapshotDate"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// SnapshotDate is a date with available snapshot data.
type SnapshotDate struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HistoryListParams filters history listings. The server defaults Days to
// 30 and Limit to 1000.
type HistoryListParams struct {
	MarketID string
	Source   string
	Category string
	Days     int
	Limit    int
}

// Values encodes the params as URL query parameters.
func (p HistoryListParams) Values() url.Values {
	v := url.Values{}
	setString(v, "market_id", p.MarketID)
	setString(v, "source", p.Source)
	setString(v, "category", p.Category)
	setInt(v, "days", p.Days)
	setInt(v, "limit", p.Limit)
	return v
}
