package propheseer

import (
	"context"
	"net/url"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/pagination"
	"github.com/propheseer/propheseer-go/pkg/types"
)

// defaultPageLimit is the server's default page size for list endpoints.
const defaultPageLimit = 50

// MarketsService lists and retrieves normalized prediction markets from
// Polymarket, Kalshi, and Gemini.
type MarketsService struct {
	http *client.Client
}

// List returns one page of markets matching the filters.
func (s *MarketsService) List(ctx context.Context, params types.MarketListParams) (*pagination.Page[types.Market], error) {
	resp, err := s.http.Get(ctx, "/v1/markets", params.Values())
	if err != nil {
		return nil, err
	}
	return decodePage[types.Market](resp)
}

// Get retrieves a single market by its prefixed ID, e.g. "pm_12345".
func (s *MarketsService) Get(ctx context.Context, marketID string) (*Result[types.Market], error) {
	resp, err := s.http.Get(ctx, "/v1/markets/"+url.PathEscape(marketID), nil)
	if err != nil {
		return nil, err
	}
	return decodeResult[types.Market](resp)
}

// AutoPaginate returns an iterator over all markets matching the filters,
// fetching pages lazily. maxItems caps the total items yielded; zero means
// unbounded. params.Offset sets the starting position.
func (s *MarketsService) AutoPaginate(params types.MarketListParams, maxItems int) *pagination.Iterator[types.Market] {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	fetch := func(ctx context.Context, offset, limit int) (*pagination.Page[types.Market], error) {
		p := params
		p.Limit = limit
		p.Offset = offset
		page, err := s.List(ctx, p)
		if err != nil {
			return nil, err
		}
		return page, nil
	}
	return pagination.NewIteratorFrom(fetch, limit, maxItems, params.Offset)
}
