// Package market wraps the external trade/listing/auction data source. Given
// a legal-dong code and a time window it returns recent records; the fair
// value estimate is derived here so the risk engine only sees finished facts.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/doldari/api/internal/models"
)

// Source fetches market data for a neighborhood.
type Source interface {
	Fetch(ctx context.Context, legalDongCd string, window time.Duration, areaSqm float64) (*models.MarketData, error)
}

// Client is the HTTP implementation of Source.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a market data client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves recent trades, listings, and auction outcomes for the
// legal-dong and estimates a fair value for the subject area.
func (c *Client) Fetch(ctx context.Context, legalDongCd string, window time.Duration, areaSqm float64) (*models.MarketData, error) {
	since := time.Now().Add(-window).Format("2006-01-02")
	endpoint := fmt.Sprintf("%s/v1/market/%s?since=%s", c.baseURL, legalDongCd, since)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build market request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market data source returned status %d", resp.StatusCode)
	}

	var data models.MarketData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode market response: %w", err)
	}
	data.LegalDongCd = legalDongCd
	data.FetchedAt = time.Now().UTC()
	data.FairValue = EstimateFairValue(data.Trades, areaSqm)

	return &data, nil
}

// comparableAreaTolerance bounds how far a trade's area may deviate from the
// subject's before it stops counting as a comparable.
const comparableAreaTolerance = 0.15

// EstimateFairValue derives a fair value from recent trades: the median
// price of area-comparable trades, preferring the most recent twelve. Returns
// zero when no comparable trades exist; callers must treat a zero fair value
// as missing data, not as a free property.
func EstimateFairValue(trades []models.Trade, areaSqm float64) int64 {
	comparables := make([]models.Trade, 0, len(trades))
	for _, trade := range trades {
		if areaSqm > 0 && trade.AreaSqm > 0 {
			deviation := (trade.AreaSqm - areaSqm) / areaSqm
			if deviation < -comparableAreaTolerance || deviation > comparableAreaTolerance {
				continue
			}
		}
		comparables = append(comparables, trade)
	}
	if len(comparables) == 0 {
		return 0
	}

	sort.Slice(comparables, func(i, j int) bool {
		return comparables[i].Date.After(comparables[j].Date)
	})
	if len(comparables) > 12 {
		comparables = comparables[:12]
	}

	prices := make([]int64, len(comparables))
	for i, trade := range comparables {
		prices[i] = trade.Price
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })

	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid]
	}
	return (prices[mid-1] + prices[mid]) / 2
}
