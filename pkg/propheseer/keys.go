package propheseer

import (
	"context"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/types"
)

// KeysService inspects the API key making the requests.
type KeysService struct {
	http *client.Client
}

// Me returns the current key's plan, limits, and usage.
func (s *KeysService) Me(ctx context.Context) (*Result[types.KeyInfo], error) {
	resp, err := s.http.Get(ctx, "/v1/keys/me", nil)
	if err != nil {
		return nil, err
	}
	return decodeResult[types.KeyInfo](resp)
}
