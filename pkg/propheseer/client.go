// Package propheseer is the high-level entry point of the SDK. It bundles
// the resource services of the Propheseer prediction-markets API over the
// low-level request executor in pkg/client.
package propheseer

import (
	"encoding/json"

	"github.com/propheseer/propheseer-go/pkg/client"
	"github.com/propheseer/propheseer-go/pkg/pagination"
	"github.com/propheseer/propheseer-go/pkg/ratelimit"
)

// Client aggregates the API's resource services.
type Client struct {
	Markets       *MarketsService
	Categories    *CategoriesService
	Arbitrage     *ArbitrageService
	UnusualTrades *UnusualTradesService
	History       *HistoryService
	Keys          *KeysService
	Ticker        *TickerService

	http *client.Client
}

// New creates a Client from the given configuration.
func New(cfg client.Config) (*Client, error) {
	httpClient, err := client.New(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{http: httpClient}
	c.Markets = &MarketsService{http: httpClient}
	c.Categories = &CategoriesService{http: httpClient}
	c.Arbitrage = &ArbitrageService{http: httpClient}
	c.UnusualTrades = &UnusualTradesService{http: httpClient}
	c.History = &HistoryService{http: httpClient}
	c.Keys = &KeysService{http: httpClient}
	c.Ticker = &TickerService{http: httpClient}
	return c, nil
}

// HTTP exposes the underlying request executor for endpoints this SDK does
// not model yet.
func (c *Client) HTTP() *client.Client {
	return c.http
}

// Result wraps a decoded response together with its rate-limit state.
type Result[T any] struct {
	Data      T
	RateLimit *ratelimit.Info
}

// envelope is the standard response wrapper: data plus optional pagination
// meta.
type envelope[T any] struct {
	Data T                `json:"data"`
	Meta *pagination.Meta `json:"meta"`
}

// decodeResult decodes a single-object envelope. A payload that does not
// match the schema is a protocol failure, reported as a ConnectionError.
func decodeResult[T any](resp *client.Response) (*Result[T], error) {
	var env envelope[T]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, &client.ConnectionError{Message: "malformed response payload", Err: err}
	}
	return &Result[T]{Data: env.Data, RateLimit: resp.RateLimit}, nil
}

// decodePage decodes a list envelope into a Page.
func decodePage[T any](resp *client.Response) (*pagination.Page[T], error) {
	var env envelope[[]T]
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, &client.ConnectionError{Message: "malformed response payload", Err: err}
	}

	page := &pagination.Page[T]{Data: env.Data, RateLimit: resp.RateLimit}
	if env.Meta != nil {
		page.Meta = *env.Meta
	} else {
		page.Meta = pagination.Meta{Total: len(env.Data), Limit: len(env.Data)}
	}
	return page, nil
}
