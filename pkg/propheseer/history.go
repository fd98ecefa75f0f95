package propheseer

import (
	"context"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/types"
)

// HistoryService retrieves historical market snapshots.
type HistoryService struct {
	http *client.Client
}

// List returns historical snapshots matching the filters.
func (s *HistoryService) List(ctx context.Context, params types.HistoryListParams) (*Result[[]types.MarketHistoryEntry], error) {
	resp, err := s.http.Get(ctx, "/v1/markets/history", params.Values())
	if err != nil {
		return nil, err
	}
	return decodeResult[[]types.MarketHistoryEntry](resp)
}

// Dates returns the dates that have snapshot data available.
func (s *HistoryService) Dates(ctx context.Context) (*Result[[]types.SnapshotDate], error) {
	resp, err := s.http.Get(ctx, "/v1/markets/history/dates", nil)
	if err != nil {
		return nil, err
	}
	return decodeResult[[]types.SnapshotDate](resp)
}
