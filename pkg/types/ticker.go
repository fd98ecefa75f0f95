package types

import "net/url"

// TickerItem is a trimmed-down market for the public ticker.
type TickerItem struct {
	ID          string  `json:"id"`
	Question    string  `json:"question"`
	Probability float64 `json:"probability"`
	Source      string  `json:"source"`
}

// TickerListParams controls the public ticker. The server defaults Limit
// to 12 with a maximum of 20.
type TickerListParams struct {
	Limit int
}

// Values encodes the params as URL query parameters.
func (p TickerListParams) Values() url.Values {
	v := url.Values{}
	setInt(v, "limit", p.Limit)
	return v
}
