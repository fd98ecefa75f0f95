package propheseer

import (
	"context"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/pagination"
	"github.com/propheseer/propheseer-go/pkg/types"
)

// UnusualTradesService lists trades flagged by the anomaly detection system.
type UnusualTradesService struct {
	http *client.Client
}

// List returns one page of unusual trades matching the filters.
func (s *UnusualTradesService) List(ctx context.Context, params types.UnusualTradeListParams) (*pagination.Page[types.UnusualTrade], error) {
	resp, err := s.http.Get(ctx, "/v1/unusual-trades", params.Values())
	if err != nil {
		return nil, err
	}
	return decodePage[types.UnusualTrade](resp)
}

// AutoPaginate returns an iterator over all unusual trades matching the
// filters. maxItems caps the total items yielded; zero means unbounded.
func (s *UnusualTradesService) AutoPaginate(params types.UnusualTradeListParams, maxItems int) *pagination.Iterator[types.UnusualTrade] {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	fetch := func(ctx context.Context, offset, limit int) (*pagination.Page[types.UnusualTrade], error) {
		p := params
		p.Limit = limit
		p.Offset = offset
		return s.List(ctx, p)
	}
	return pagination.NewIteratorFrom(fetch, limit, maxItems, params.Offset)
}
