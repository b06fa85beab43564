package request

// ReinvestmentRequest describes the buy-back completing a reinvested dividend.
type ReinvestmentRequest struct {
	BuyOrderDate string  `json:"buyOrderDate"`
	Shares       float64 `json:"shares"`
	CostPerShare float64 `json:"costPerShare"`
}

// CreateDividendRequest is the body for recording a dividend payment.
// SharesOwned and TotalAmount are optional; missing values are derived from
// the position and the per-share amount.
type CreateDividendRequest struct {
	HoldingID        string               `json:"holdingId"`
	RecordDate       string               `json:"recordDate"`
	ExDividendDate   string               `json:"exDividendDate"`
	SharesOwned      float64              `json:"sharesOwned,omitempty"`
	DividendPerShare float64              `json:"dividendPerShare"`
	TotalAmount      float64              `json:"totalAmount,omitempty"`
	Reinvestment     *ReinvestmentRequest `json:"reinvestment,omitempty"`
}

// UpdateDividendRequest rewrites a dividend and may complete a pending one
// with a reinvestment.
type UpdateDividendRequest struct {
	RecordDate       string               `json:"recordDate"`
	ExDividendDate   string               `json:"exDividendDate"`
	SharesOwned      float64              `json:"sharesOwned,omitempty"`
	DividendPerShare float64              `json:"dividendPerShare"`
	TotalAmount      float64              `json:"totalAmount,omitempty"`
	Reinvestment     *ReinvestmentRequest `json:"reinvestment,omitempty"`
}
