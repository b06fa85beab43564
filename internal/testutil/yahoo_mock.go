package testutil

import (
	"context"
	"time"

	"github.com/jmolenaar/fundtracker/internal/yahoo"
)

// MockYahooClient implements yahoo.Client with canned data so price sync
// paths can be tested without network access.
type MockYahooClient struct {
	Chart yahoo.Chart
	Err   error
	// Calls counts how many fetches were made, across both methods.
	Calls int
}

// NewMockYahooClient creates a mock preloaded with five days of prices
// ending yesterday.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{Chart: MakeChart(5, 100.0)}
}

// RecentPrices returns the configured chart or error.
func (m *MockYahooClient) RecentPrices(_ context.Context, _ string) (yahoo.Chart, error) {
	m.Calls++
	if m.Err != nil {
		return yahoo.Chart{}, m.Err
	}
	return m.Chart, nil
}

// PricesBetween returns the configured chart or error, ignoring the range.
func (m *MockYahooClient) PricesBetween(_ context.Context, _ string, _, _ time.Time) (yahoo.Chart, error) {
	m.Calls++
	if m.Err != nil {
		return yahoo.Chart{}, m.Err
	}
	return m.Chart, nil
}

// WithError configures the mock to fail every fetch.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.Err = err
	return m
}

// MakeChart builds a chart of consecutive daily closes ending yesterday,
// starting at basePrice and rising half a unit per day.
func MakeChart(days int, basePrice float64) yahoo.Chart {
	now := time.Now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)

	chart := yahoo.Chart{Symbol: "TEST", Currency: "USD"}
	for i := 0; i < days; i++ {
		chart.Quotes = append(chart.Quotes, yahoo.Quote{
			Date:  yesterday.AddDate(0, 0, -days+i+1),
			Close: basePrice + float64(i)*0.5,
		})
	}
	return chart
}
