package request

// CreateFundRequest is the body for creating a fund.
type CreateFundRequest struct {
	Name           string `json:"name"`
	Isin           string `json:"isin"`
	Symbol         string `json:"symbol"`
	Currency       string `json:"currency"`
	Exchange       string `json:"exchange"`
	InvestmentType string `json:"investmentType"`
	DividendType   string `json:"dividendType"`
}

// UpdateFundRequest carries partial fund updates.
type UpdateFundRequest struct {
	Name           *string `json:"name,omitempty"`
	Isin           *string `json:"isin,omitempty"`
	Symbol         *string `json:"symbol,omitempty"`
	Currency       *string `json:"currency,omitempty"`
	Exchange       *string `json:"exchange,omitempty"`
	InvestmentType *string `json:"investmentType,omitempty"`
	DividendType   *string `json:"dividendType,omitempty"`
}

// SetPriceRequest stores one manual price point.
type SetPriceRequest struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// BackfillPricesRequest requests a historical price fetch for a date range.
type BackfillPricesRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}
