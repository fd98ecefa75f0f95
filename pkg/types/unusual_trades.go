package types

import "net/url"

// Detection reasons for unusual trades.
const (
	ReasonPotentialInsider = "potential_insider"
	ReasonHighAmount       = "high_amount"
	ReasonNewWallet        = "new_wallet"
	ReasonNearResolution   = "near_resolution"
)

// Trade sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// UnusualTradeMarket is the market an unusual trade happened in.
type UnusualTradeMarket struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Source   string   `json:"source"`
	EndDate  string   `json:"endDate,omitempty"`
	URL      string   `json:"url,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// TradeDetails describes the flagged trade itself.
type TradeDetails struct {
	WalletAddress   string  `json:"walletAddress"`
	Side            string  `json:"side"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	USDCValue       float64 `json:"usdcValue"`
	Timestamp       string  `json:"timestamp"`
	TransactionHash string  `json:"transactionHash"`
}

// DetectionContext carries the market statistics the detection compared
// the trade against.
type DetectionContext struct {
	MarketAvgSize float64 `json:"marketAvgSize"`
	MarketStdDev  float64 `json:"marketStdDev"`
}

// DetectionInfo explains why a trade was flagged. AnomalyScore runs 0-100.
type DetectionInfo struct {
	Reason       string           `json:"reason"`
	AnomalyScore float64          `json:"anomalyScore"`
	Context      DetectionContext `json:"context"`
}

// UnusualTrade is a trade the detection system flagged.
type UnusualTrade struct {
	ID         string             `json:"id"`
	Market     UnusualTradeMarket `json:"market"`
	Trade      TradeDetails       `json:"trade"`
	Detection  DetectionInfo      `json:"detection"`
	DetectedAt string             `json:"detectedAt"`
}

// UnusualTradeListParams filters unusual trade listings.
type UnusualTradeListParams struct {
	Limit    int
	Offset   int
	MarketID string
	Reason   string
	MinScore float64
	Since    string
	Side     string
	Source   string

	// ExcludeCategories is a comma-separated category list.
	ExcludeCategories string
}

// Values encodes the params as URL query parameters.
func (p UnusualTradeListParams) Values() url.Values {
	v := url.Values{}
	setInt(v, "limit", p.Limit)
	setInt(v, "offset", p.Offset)
	setString(v, "market_id", p.MarketID)
	setString(v, "reason", p.Reason)
	setFloat(v, "min_score", p.MinScore)
	setString(v, "since", p.Since)
	setString(v, "side", p.Side)
	setString(v, "source", p.Source)
	setString(v, "exclude_categories", p.ExcludeCategories)
	return v
}
