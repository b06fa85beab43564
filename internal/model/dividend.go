package model

import "time"

// Dividend reinvestment status values.
const (
	ReinvestmentPending    = "pending"
	ReinvestmentReinvested = "reinvested"
	ReinvestmentPaidOut    = "paid_out"
)

// Dividend is one dividend payment received on a holding. When the dividend
// is reinvested, ReinvestmentTransactionID links the buy-back transaction.
type Dividend struct {
	ID                        string
	FundID                    string
	HoldingID                 string
	RecordDate                time.Time
	ExDividendDate            time.Time
	SharesOwned               float64
	DividendPerShare          float64
	TotalAmount               float64
	ReinvestmentStatus        string
	BuyOrderDate              time.Time
	ReinvestmentTransactionID string
	CreatedAt                 time.Time
}

// DividendDetail is a dividend enriched with fund metadata for API responses.
type DividendDetail struct {
	ID                        string     `json:"id"`
	FundID                    string     `json:"fundId"`
	FundName                  string     `json:"fundName"`
	HoldingID                 string     `json:"holdingId"`
	RecordDate                time.Time  `json:"recordDate"`
	ExDividendDate            time.Time  `json:"exDividendDate"`
	SharesOwned               float64    `json:"sharesOwned"`
	DividendPerShare          float64    `json:"dividendPerShare"`
	TotalAmount               float64    `json:"totalAmount"`
	ReinvestmentStatus        string     `json:"reinvestmentStatus"`
	BuyOrderDate              *time.Time `json:"buyOrderDate,omitempty"`
	ReinvestmentTransactionID string     `json:"reinvestmentTransactionId,omitempty"`
	DividendType              string     `json:"dividendType"`
}
