package api

import (
	"context"
	"fmt"
	"net/url"
)

// GetStatus fetches the engine status.
func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &resp, nil
}

// GetCurrencies fetches the tradable currencies.
func (c *Client) GetCurrencies(ctx context.Context) ([]Currency, error) {
	var resp CurrenciesResponse
	if err := c.get(ctx, "/currencies", nil, &resp); err != nil {
		return nil, fmt.Errorf("get currencies: %w", err)
	}
	return resp.Currencies, nil
}

// GetTrades fetches every trade the engine currently tracks.
func (c *Client) GetTrades(ctx context.Context) ([]Trade, error) {
	var resp TradesResponse
	if err := c.get(ctx, "/trades", nil, &resp); err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}
	return resp.Trades, nil
}

// SubmitTrade places a new order and returns the engine-assigned id.
func (c *Client) SubmitTrade(ctx context.Context, req SubmitTradeRequest) (string, error) {
	var resp SubmitTradeResponse
	if err := c.post(ctx, "/trades", req, &resp); err != nil {
		return "", fmt.Errorf("submit trade: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("submit trade: empty id in response")
	}
	return resp.ID, nil
}

// AcceptTrade accepts a remote offer using the given local addresses.
func (c *Client) AcceptTrade(ctx context.Context, id, from, to string) error {
	path := "/trades/" + url.PathEscape(id) + "/accept"
	if err := c.post(ctx, path, AcceptTradeRequest{From: from, To: to}, nil); err != nil {
		return fmt.Errorf("accept trade %s: %w", id, err)
	}
	return nil
}

// CancelTrade cancels a trade.
func (c *Client) CancelTrade(ctx context.Context, id, reason string) error {
	path := "/trades/" + url.PathEscape(id) + "/cancel"
	if err := c.post(ctx, path, CancelTradeRequest{Reason: reason}, nil); err != nil {
		return fmt.Errorf("cancel trade %s: %w", id, err)
	}
	return nil
}

// RollbackTrade asks the engine to roll back a trade.
func (c *Client) RollbackTrade(ctx context.Context, id string) error {
	path := "/trades/" + url.PathEscape(id) + "/rollback"
	if err := c.post(ctx, path, struct{}{}, nil); err != nil {
		return fmt.Errorf("rollback trade %s: %w", id, err)
	}
	return nil
}
