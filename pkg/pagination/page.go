package pagination

import "github.com/propheseer/propheseer-go/pkg/ratelimit"

// Meta is the pagination block the API attaches to list responses.
type Meta struct {
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Sources []string `json:"sources,omitempty"`
}

// Page holds one response worth of items plus the pagination state needed
// to fetch the next one.
type Page[T any] struct {
	Data      []T
	Meta      Meta
	RateLimit *ratelimit.Info
}

// Len returns the number of items on this page.
func (p *Page[T]) Len() int {
	return len(p.Data)
}

// HasMore reports whether the server has items beyond this page.
func (p *Page[T]) HasMore() bool {
	return p.Meta.Offset+p.Meta.Limit < p.Meta.Total
}

// NextOffset returns the offset of the following page. The second return
// is false when this is the last page.
func (p *Page[T]) NextOffset() (int, bool) {
	if !p.HasMore() {
		return 0, false
	}
	return p.Meta.Offset + p.Meta.Limit, true
}
