package model

import "time"

// Portfolio is a named collection of fund holdings.
type Portfolio struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	IsArchived          bool   `json:"isArchived"`
	ExcludeFromOverview bool   `json:"excludeFromOverview"`
}

// PortfolioFilter selects which portfolios a listing query returns.
type PortfolioFilter struct {
	IncludeArchived bool
	IncludeExcluded bool
}

// PortfolioSummary is the valuation of one portfolio at a point in time.
// All monetary values are rounded to two decimal places.
type PortfolioSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	TotalValue     float64 `json:"totalValue"`      // market value, shares x latest price
	TotalCost      float64 `json:"totalCost"`       // remaining cost basis
	TotalDividends float64 `json:"totalDividends"`  // cumulative dividend amounts
	UnrealizedGain float64 `json:"unrealizedGain"`  // value - cost
	RealizedGain   float64 `json:"realizedGain"`    // locked in by sales
	SaleProceeds   float64 `json:"saleProceeds"`    // cumulative proceeds from sales
	SoldCostBasis  float64 `json:"soldCostBasis"`   // cost basis of sold positions
	TotalGainLoss  float64 `json:"totalGainLoss"`   // realized + unrealized
	IsArchived     bool    `json:"isArchived"`
}

// PortfolioHistoryPoint holds the summaries of all portfolios for one date.
type PortfolioHistoryPoint struct {
	Date       string             `json:"date"` // YYYY-MM-DD
	Portfolios []PortfolioSummary `json:"portfolios"`
}

// PortfolioSnapshot is one cached, pre-calculated daily portfolio valuation.
// Snapshots are derived data: they can always be rebuilt from transactions,
// dividends and prices, and are deleted whenever history behind them changes.
type PortfolioSnapshot struct {
	ID             string
	PortfolioID    string
	Date           time.Time
	Value          float64
	Cost           float64
	RealizedGain   float64
	UnrealizedGain float64
	TotalDividends float64
	SaleProceeds   float64
	SoldCostBasis  float64
	TotalGainLoss  float64
	IsArchived     bool
	CalculatedAt   time.Time
}
