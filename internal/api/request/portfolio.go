package request

// CreatePortfolioRequest is the body for creating a portfolio.
type CreatePortfolioRequest struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	ExcludeFromOverview bool   `json:"excludeFromOverview"`
}

// UpdatePortfolioRequest carries partial portfolio updates. Absent fields
// keep their stored value.
type UpdatePortfolioRequest struct {
	Name                *string `json:"name,omitempty"`
	Description         *string `json:"description,omitempty"`
	IsArchived          *bool   `json:"isArchived,omitempty"`
	ExcludeFromOverview *bool   `json:"excludeFromOverview,omitempty"`
}

// CreateHoldingRequest links a fund into a portfolio.
type CreateHoldingRequest struct {
	PortfolioID string `json:"portfolioId"`
	FundID      string `json:"fundId"`
}
