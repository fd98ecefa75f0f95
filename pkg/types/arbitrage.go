package types

import "net/url"

// ArbitrageMarket is one market leg of an arbitrage opportunity.
type ArbitrageMarket struct {
	Source   string  `json:"source"`
	YesPrice float64 `json:"yesPrice"`
	URL      string  `json:"url"`
}

// ArbitrageOpportunity is a price spread on the same question across
// platforms. PotentialReturn is a formatted percentage like "5.2%".
type ArbitrageOpportunity struct {
	Question        string            `json:"question"`
	Spread          float64           `json:"spread"`
	PotentialReturn string            `json:"potentialReturn"`
	Markets         []ArbitrageMarket `json:"markets"`
}

// ArbitrageFindParams filters arbitrage results. The server defaults
// MinSpread to 0.03 when omitted.
type ArbitrageFindParams struct {
	MinSpread float64
	Category  string
}

// Values encodes the params as URL query parameters.
func (p ArbitrageFindParams) Values() url.Values {
	v := url.Values{}
	setFloat(v, "min_spread", p.MinSpread)
	setString(v, "category", p.Category)
	return v
}
