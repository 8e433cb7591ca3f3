// Package address wraps the external address resolver. The core consumes it
// as a black box: free text in, zero or more structured addresses out.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ResolvedAddress is one structured candidate returned by the resolver. Only
// the fields the core needs for market lookups and the auction rate table are
// consumed.
type ResolvedAddress struct {
	RoadAddress string `json:"road_address"`
	LotAddress  string `json:"lot_address"`
	Province    string `json:"province"`
	District    string `json:"district"`
	LegalDongCd string `json:"legal_dong_cd"`
	BuildingCd  string `json:"building_cd"`
	RoadCd      string `json:"road_cd"`
}

// Resolver resolves free-text queries to structured addresses.
type Resolver interface {
	Resolve(ctx context.Context, query string) ([]ResolvedAddress, error)
}

// Client is the HTTP implementation of Resolver.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a resolver client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve queries the resolver and returns the structured candidates.
// An empty result is not an error; the user simply has no match to pick.
func (c *Client) Resolve(ctx context.Context, query string) ([]ResolvedAddress, error) {
	endpoint := fmt.Sprintf("%s/v1/addresses?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build address request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("address resolver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address resolver returned status %d", resp.StatusCode)
	}

	var payload struct {
		Addresses []ResolvedAddress `json:"addresses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode address response: %w", err)
	}
	return payload.Addresses, nil
}
