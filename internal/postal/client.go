package postal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Zyfrr/shopstreak/internal/domain"
)

// Client resolves postal codes against an external lookup service exposing
// GET /pincode/{code}.
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

func (c *Client) Lookup(ctx context.Context, postalCode string) (domain.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pincode/"+url.PathEscape(postalCode), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Place{}, fmt.Errorf("lookup postal code %s: %w", postalCode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Place{}, fmt.Errorf("postal code %s: %w", postalCode, domain.ErrNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Place{}, fmt.Errorf("postal lookup returned status %d", resp.StatusCode)
	}

	var place domain.Place
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		return domain.Place{}, fmt.Errorf("decode postal lookup response: %w", err)
	}

	if place.City == "" && place.State == "" {
		return domain.Place{}, fmt.Errorf("postal code %s: %w", postalCode, domain.ErrNotFound)
	}

	return place, nil
}
