package propheseer

import (
	"context"
	"net/http"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/types"
)

// TickerService serves the public market ticker. It needs no API key.
type TickerService struct {
	http *client.Client
}

// List returns the current ticker items.
func (s *TickerService) List(ctx context.Context, params types.TickerListParams) (*Result[[]types.TickerItem], error) {
	resp, err := s.http.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   "/v1/public/ticker",
		Query:  params.Values(),
		NoAuth: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeResult[[]types.TickerItem](resp)
}
