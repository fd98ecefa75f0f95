package propheseer

import (
	"context"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/types"
)

// ArbitrageService finds cross-platform price spreads on matching questions.
type ArbitrageService struct {
	http *client.Client
}

// Find returns arbitrage opportunities at or above the requested spread.
func (s *ArbitrageService) Find(ctx context.Context, params types.ArbitrageFindParams) (*Result[[]types.ArbitrageOpportunity], error) {
	resp, err := s.http.Get(ctx, "/v1/arbitrage", params.Values())
	if err != nil {
		return nil, err
	}
	return decodeResult[[]types.ArbitrageOpportunity](resp)
}
