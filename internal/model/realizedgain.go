package model

import "time"

// RealizedGain is the persisted gain/loss record for one sell transaction.
// CostBasis reflects the holding's average cost at the moment of this
// specific sale, so the record is rewritten whenever any earlier transaction
// of the same holding changes.
type RealizedGain struct {
	ID              string
	PortfolioID     string
	FundID          string
	TransactionID   string
	TransactionDate time.Time
	SharesSold      float64
	CostBasis       float64
	SaleProceeds    float64
	GainLoss        float64
	CreatedAt       time.Time
}

// RealizedSums aggregates the realized gain records of one portfolio.
type RealizedSums struct {
	GainLoss     float64
	SaleProceeds float64
	CostBasis    float64
}
