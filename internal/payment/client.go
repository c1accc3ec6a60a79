package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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

// Charge posts the request to /charges. 200 is a success, 402 a decline;
// anything else is reported as an error.
func (c *Client) Charge(ctx context.Context, charge ChargeRequest) (ChargeResult, error) {
	data, err := json.Marshal(charge)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("marshal charge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(data))
	if err != nil {
		return ChargeResult{}, fmt.Errorf("create charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", charge.PaymentID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("send charge: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPaymentRequired:
	default:
		return ChargeResult{}, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ChargeResult{}, fmt.Errorf("decode charge result: %w", err)
	}

	if resp.StatusCode == http.StatusPaymentRequired {
		result.Success = false
		if result.Reason == "" {
			result.Reason = "payment declined"
		}
	}

	return result, nil
}
