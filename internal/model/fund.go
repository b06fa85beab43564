package model

import "time"

// Fund is a tradable instrument tracked by one or more portfolios.
type Fund struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Isin           string `json:"isin"`
	Symbol         string `json:"symbol"`
	Currency       string `json:"currency"`
	Exchange       string `json:"exchange"`
	InvestmentType string `json:"investmentType"`
	DividendType   string `json:"dividendType"` // accumulating or distributing
}

// FundPrice is one historical closing price for a fund.
type FundPrice struct {
	ID     string    `json:"id"`
	FundID string    `json:"fundId"`
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
}

// FundUsage reports which portfolios hold a fund. A fund with usage cannot be
// deleted without losing portfolio history.
type FundUsage struct {
	InUse      bool               `json:"inUse"`
	Portfolios []FundUsageListing `json:"portfolios"`
}

// FundUsageListing is one portfolio using a fund, with its transaction count.
type FundUsageListing struct {
	PortfolioID      string `json:"portfolioId"`
	PortfolioName    string `json:"portfolioName"`
	TransactionCount int    `json:"transactionCount"`
}

// PriceSyncResult reports the outcome of a price sync for a single fund.
type PriceSyncResult struct {
	FundID      string `json:"fundId"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	PricesAdded int    `json:"pricesAdded"`
}

// PriceSyncError reports a fund whose price sync failed.
type PriceSyncError struct {
	FundID string `json:"fundId"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// BulkPriceSyncResponse summarises an update-all-funds price sync.
// Success is true when at least one fund was updated.
type BulkPriceSyncResponse struct {
	Success      bool              `json:"success"`
	Updated      []PriceSyncResult `json:"updated"`
	Errors       []PriceSyncError  `json:"errors"`
	TotalUpdated int               `json:"totalUpdated"`
	TotalErrors  int               `json:"totalErrors"`
}
