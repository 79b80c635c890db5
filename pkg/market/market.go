// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package market is the outbound RPC adapter to the separate
// trading/market microservice, per spec.md §6. Failure to create a
// market is explicitly non-fatal to settlement or contract creation —
// callers log and ignore Client.CreateMarket errors where the spec
// requires it; the typed Error here exists so they can tell a transport
// failure (Status == 0) from an upstream rejection.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Error is returned for every non-2xx or transport failure. Status == 0
// means the engine was unreachable (connection refused, timeout) rather
// than that it responded with an error.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("market engine unreachable: %s", e.Detail)
	}
	return fmt.Sprintf("market engine %d: %s", e.Status, e.Detail)
}

// Market is the engine's representation of an LMSR market.
type Market struct {
	ID         string  `json:"id"`
	ContractID string  `json:"contract_id"`
	LiquidityB float64 `json:"b,omitempty"`
}

// Price is the engine's current instantaneous LMSR prices for a market.
type Price struct {
	MarketID string  `json:"market_id"`
	YesPrice float64 `json:"yes_price"`
	NoPrice  float64 `json:"no_price"`
}

// Client is a thin wrapper over the market engine's HTTP API
// (/api/v1/markets), built around one shared *http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Client bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateMarket creates a new LMSR market for contractID. liquidityB of 0
// means "use the engine's default".
func (c *Client) CreateMarket(ctx context.Context, contractID string, liquidityB float64) (*Market, error) {
	payload := map[string]any{"contract_id": contractID}
	if liquidityB != 0 {
		payload["b"] = liquidityB
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode create-market payload: %w", err)
	}

	var m Market
	if err := c.do(ctx, http.MethodPost, "/api/v1/markets", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMarket retrieves a market by id. It returns (nil, nil) on 404.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*Market, error) {
	var m Market
	err := c.do(ctx, http.MethodGet, "/api/v1/markets/"+url.PathEscape(marketID), nil, &m)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMarkets lists markets, optionally filtered by cell.
func (c *Client) ListMarkets(ctx context.Context, cell string) ([]Market, error) {
	path := "/api/v1/markets"
	if cell != "" {
		path += "?cell=" + url.QueryEscape(cell)
	}
	var markets []Market
	if err := c.do(ctx, http.MethodGet, path, nil, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// GetMarketPrice fetches the current LMSR prices for marketID. It returns
// (nil, nil) on 404.
func (c *Client) GetMarketPrice(ctx context.Context, marketID string) (*Price, error) {
	var p Price
	err := c.do(ctx, http.MethodGet, "/api/v1/markets/"+url.PathEscape(marketID)+"/price", nil, &p)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func isNotFound(err error) bool {
	var marketErr *Error
	if e, ok := err.(*Error); ok {
		marketErr = e
	}
	return marketErr != nil && marketErr.Status == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build market engine request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Status: 0, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{Status: resp.StatusCode, Detail: string(detail)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
