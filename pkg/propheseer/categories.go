package propheseer

import (
	"context"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/types"
)

// CategoriesService lists the normalized market categories.
type CategoriesService struct {
	http *client.Client
}

// List returns all categories with their subcategories.
func (s *CategoriesService) List(ctx context.Context) (*Result[[]types.Category], error) {
	resp, err := s.http.Get(ctx, "/v1/categories", nil)
	if err != nil {
		return nil, err
	}
	return decodeResult[[]types.Category](resp)
}
