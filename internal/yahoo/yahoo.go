// Package yahoo fetches daily closing prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client defines the price source interface. Implemented by FinanceClient and
// by test doubles.
type Client interface {
	RecentPrices(ctx context.Context, symbol string) (Chart, error)
	PricesBetween(ctx context.Context, symbol string, start, end time.Time) (Chart, error)
}

// FinanceClient queries the public Yahoo Finance chart endpoint.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFinanceClient creates a client with a sane request timeout.
func NewFinanceClient() *FinanceClient {
	return &FinanceClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "https://query1.finance.yahoo.com/v8/finance/chart",
	}
}

// NewFinanceClientWithBaseURL creates a client against a custom endpoint.
// Used by tests to point at a local server.
func NewFinanceClientWithBaseURL(baseURL string) *FinanceClient {
	c := NewFinanceClient()
	c.baseURL = baseURL
	return c
}

// RecentPrices fetches the last five trading days for a symbol.
func (c *FinanceClient) RecentPrices(ctx context.Context, symbol string) (Chart, error) {
	endpoint := fmt.Sprintf("%s/%s?interval=1d&range=5d", c.baseURL, url.PathEscape(symbol))
	return c.fetchChart(ctx, symbol, endpoint)
}

// PricesBetween fetches daily prices for a symbol within the date range,
// both ends inclusive.
func (c *FinanceClient) PricesBetween(ctx context.Context, symbol string, start, end time.Time) (Chart, error) {
	// period2 is exclusive, so push it past the end of the last day.
	endpoint := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		c.baseURL, url.PathEscape(symbol), start.Unix(), end.AddDate(0, 0, 1).Unix())
	return c.fetchChart(ctx, symbol, endpoint)
}

func (c *FinanceClient) fetchChart(ctx context.Context, symbol, endpoint string) (Chart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Chart{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Chart{}, fmt.Errorf("yahoo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Chart{}, fmt.Errorf("failed to read yahoo response: %w", err)
	}

	var raw chartResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return Chart{}, fmt.Errorf("failed to decode yahoo response: %w", err)
	}

	if raw.Chart.Error != nil {
		return Chart{}, fmt.Errorf("yahoo error %s: %s", raw.Chart.Error.Code, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return Chart{}, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	return parseChart(raw)
}

func parseChart(raw chartResponse) (Chart, error) {
	result := raw.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return Chart{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 {
		return Chart{}, fmt.Errorf("no close prices returned")
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return Chart{}, fmt.Errorf("mismatched data lengths")
	}

	quotes := make([]Quote, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo emits zero closes for half-populated days, skip those.
		if closes[i] == 0 {
			continue
		}
		quotes = append(quotes, Quote{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: closes[i],
		})
	}

	return Chart{
		Symbol:   result.Meta.Symbol,
		Currency: result.Meta.Currency,
		Exchange: result.Meta.ExchangeName,
		Name:     result.Meta.LongName,
		Quotes:   quotes,
	}, nil
}
