// Package cart talks to the cart subsystem, which owns cart contents. The
// storefront only reads the items selected for checkout and clears them once
// an order is paid.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (c *Client) CheckoutItems(ctx context.Context, customerID string) (domain.CartSnapshot, error) {
	endpoint := fmt.Sprintf("%s/carts/%s/checkout-items", c.baseURL, url.PathEscape(customerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("create checkout items request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("fetch checkout items: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return domain.CartSnapshot{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return domain.CartSnapshot{}, fmt.Errorf("cart service returned status %d", resp.StatusCode)
	}

	var snapshot domain.CartSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("decode checkout items: %w", err)
	}

	return snapshot, nil
}

type clearRequest struct {
	ItemIDs []string `json:"item_ids"`
}

func (c *Client) Clear(ctx context.Context, customerID string, itemIDs []string) error {
	data, err := json.Marshal(clearRequest{ItemIDs: itemIDs})
	if err != nil {
		return fmt.Errorf("marshal clear request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/carts/%s/items/clear", c.baseURL, url.PathEscape(customerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create clear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("cart service returned status %d", resp.StatusCode)
	}

	return nil
}
