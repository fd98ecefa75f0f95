// Package types defines the wire models of the Propheseer API and the
// query-parameter sets of its list endpoints.
package types

import (
	"net/url"
	"strconv"
)

// Market source platforms.
const (
	SourcePolymarket = "polymarket"
	SourceKalshi     = "kalshi"
	SourceGemini     = "gemini"
)

// Market statuses.
const (
	StatusOpen    = "open"
	StatusClosed  = "closed"
	StatusSettled = "settled"
)

// Outcome is one outcome within a prediction market.
type Outcome struct {
	Name        string   `json:"name"`
	Probability float64  `json:"probability"`
	Volume24h   *float64 `json:"volume24h,omitempty"`
}

// Market is a normalized prediction market from any supported platform.
// IDs are prefixed by source: pm_, ks_, gm_.
type Market struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	SourceID       string    `json:"sourceId"`
	Question       string    `json:"question"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category"`
	Status         string    `json:"status"`
	Outcomes       []Outcome `json:"outcomes"`
	ResolutionDate string    `json:"resolutionDate,omitempty"`
	CreatedAt      string    `json:"createdAt"`
	UpdatedAt      string    `json:"updatedAt"`
	URL            string    `json:"url"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
}

// MarketListParams filters market listings. Zero values are omitted from
// the query string.
type MarketListParams struct {
	Source   string
	Category string
	Status   string
	Q        string
	Limit    int
	Offset   int
}

// Values encodes the params as URL query parameters.
func (p MarketListParams) Values() url.Values {
	v := url.Values{}
	setString(v, "source", p.Source)
	setString(v, "category", p.Category)
	setString(v, "status", p.Status)
	setString(v, "q", p.Q)
	setInt(v, "limit", p.Limit)
	setInt(v, "offset", p.Offset)
	return v
}

func setString(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}

func setInt(v url.Values, key string, val int) {
	if val > 0 {
		v.Set(key, strconv.Itoa(val))
	}
}

func setFloat(v url.Values, key string, val float64) {
	if val > 0 {
		v.Set(key, strconv.FormatFloat(val, 'f', -1, 64))
	}
}
