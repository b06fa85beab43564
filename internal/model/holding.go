package model

import "time"

// Holding is the join of one fund held within one portfolio. It is the unit
// of account for position tracking: transactions, dividends and realized
// gains all hang off a holding.
type Holding struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolioId"`
	FundID      string `json:"fundId"`
}

// HoldingDetail is a holding enriched with fund metadata and current metrics
// for API responses.
type HoldingDetail struct {
	ID             string  `json:"id"`
	PortfolioID    string  `json:"portfolioId"`
	FundID         string  `json:"fundId"`
	FundName       string  `json:"fundName"`
	FundSymbol     string  `json:"fundSymbol"`
	TotalShares    float64 `json:"totalShares"`
	LatestPrice    float64 `json:"latestPrice"`
	AverageCost    float64 `json:"averageCost"`
	TotalCost      float64 `json:"totalCost"`
	CurrentValue   float64 `json:"currentValue"`
	UnrealizedGain float64 `json:"unrealizedGain"`
	RealizedGain   float64 `json:"realizedGain"`
	TotalGainLoss  float64 `json:"totalGainLoss"`
	TotalDividends float64 `json:"totalDividends"`
	TotalFees      float64 `json:"totalFees"`
}

// HoldingHistoryEntry is the per-fund view of one day in a portfolio's history.
type HoldingHistoryEntry struct {
	HoldingID      string    `json:"holdingId"`
	FundID         string    `json:"fundId"`
	FundName       string    `json:"fundName"`
	Date           time.Time `json:"-"`
	Shares         float64   `json:"shares"`
	Price          float64   `json:"price"`
	Value          float64   `json:"value"`
	Cost           float64   `json:"cost"`
	RealizedGain   float64   `json:"realizedGain"`
	UnrealizedGain float64   `json:"unrealizedGain"`
	TotalGainLoss  float64   `json:"totalGainLoss"`
	Dividends      float64   `json:"dividends"`
	Fees           float64   `json:"fees"`
}

// HoldingHistoryPoint groups the holding entries of one portfolio for one date.
type HoldingHistoryPoint struct {
	Date     time.Time             `json:"date"`
	Holdings []HoldingHistoryEntry `json:"holdings"`
}
