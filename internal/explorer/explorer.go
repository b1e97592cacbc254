// Package explorer is a read-only client for the blockchain explorer
// API: account lookups, transaction history, and network status. It is
// informational only and sits outside the verification path.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Account is an address summary from the explorer.
type Account struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	TxCount  int    `json:"tx_count"`
	Contract bool   `json:"is_contract"`
}

// Transaction is one history entry for an address.
type Transaction struct {
	Hash      string    `json:"hash"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Value     string    `json:"value"`
	Block     int64     `json:"block"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkStatus reports the explorer's view of the chain.
type NetworkStatus struct {
	Network     string `json:"network"`
	BlockHeight int64  `json:"block_height"`
	Healthy     bool   `json:"healthy"`
}

// Client queries the explorer API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an explorer client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Account fetches the summary for one address.
func (c *Client) Account(ctx context.Context, address string) (*Account, error) {
	var acct Account
	if err := c.get(ctx, "/api/accounts/"+url.PathEscape(address), &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Transactions fetches recent transactions for an address.
func (c *Client) Transactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	var txs []Transaction
	path := fmt.Sprintf("/api/accounts/%s/transactions?limit=%d", url.PathEscape(address), limit)
	if err := c.get(ctx, path, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Status fetches the network status.
func (c *Client) Status(ctx context.Context) (*NetworkStatus, error) {
	var st NetworkStatus
	if err := c.get(ctx, "/api/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("explorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("explorer returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding explorer response: %w", err)
	}
	return nil
}
