// Package wallet talks to the external custodial wallet service.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		return nil
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type provisionRequest struct {
	UserID string `json:"user_id"`
	FunID  string `json:"fun_id"`
}

type provisionResponse struct {
	Address       string `json:"address"`
	WalletAddress string `json:"wallet_address"`
}

// Provision asks the wallet service to create a custodial wallet and
// returns its address.
func (c *Client) Provision(ctx context.Context, userID, funID string) (string, error) {
	if c == nil {
		return "", errors.New("wallet client is not configured")
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	body, err := json.Marshal(provisionRequest{UserID: userID, FunID: funID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/wallets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("wallet provision http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var pr provisionResponse
	if err := json.Unmarshal(b, &pr); err != nil {
		return "", err
	}
	addr := strings.TrimSpace(pr.Address)
	if addr == "" {
		addr = strings.TrimSpace(pr.WalletAddress)
	}
	if addr == "" {
		return "", errors.New("wallet provision returned no address")
	}
	return addr, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
