package model

import "time"

// Transaction type values. A dividend transaction records shares acquired by
// reinvesting a dividend payment. A fee transaction repurposes CostPerShare
// to store the fee amount and carries zero shares.
const (
	TransactionBuy      = "buy"
	TransactionSell     = "sell"
	TransactionDividend = "dividend"
	TransactionFee      = "fee"
)

// Transaction is one lot-affecting event for a holding. CreatedAt breaks the
// ordering tie between same-day transactions: a buy entered before a sell on
// the same date must be applied first.
type Transaction struct {
	ID           string    `json:"id"`
	HoldingID    string    `json:"holdingId"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"`
	Shares       float64   `json:"shares"`
	CostPerShare float64   `json:"costPerShare"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// TransactionDetail is a transaction enriched with fund and flex-import
// linkage for API responses.
type TransactionDetail struct {
	ID                string    `json:"id"`
	HoldingID         string    `json:"holdingId"`
	FundName          string    `json:"fundName"`
	Date              time.Time `json:"date"`
	Type              string    `json:"type"`
	Shares            float64   `json:"shares"`
	CostPerShare      float64   `json:"costPerShare"`
	FlexTransactionID string    `json:"flexTransactionId,omitempty"`
	FlexLinked        bool      `json:"flexLinked"`
}
