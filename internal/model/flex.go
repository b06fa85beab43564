package model

import "time"

// Flex transaction status values.
const (
	FlexStatusPending   = "pending"
	FlexStatusProcessed = "processed"
	FlexStatusIgnored   = "ignored"
)

// FlexConfig holds the Interactive Brokers flex web-service integration
// settings. The flex token itself is stored fernet-encrypted and never leaves
// the service layer in plain text.
type FlexConfig struct {
	Configured         bool             `json:"configured"`
	QueryID            string           `json:"queryId"`
	TokenExpiresAt     *time.Time       `json:"tokenExpiresAt,omitempty"`
	TokenWarning       string           `json:"tokenWarning,omitempty"`
	LastImportDate     *time.Time       `json:"lastImportDate,omitempty"`
	AutoImportEnabled  bool             `json:"autoImportEnabled"`
	Enabled            bool             `json:"enabled"`
	DefaultAllocations []FlexAllocation `json:"defaultAllocations,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// FlexAllocation is one portfolio's share of an imported flex transaction.
type FlexAllocation struct {
	PortfolioID string  `json:"portfolioId"`
	Percentage  float64 `json:"percentage"`
}

// FlexTransaction is one statement line imported from Interactive Brokers.
// Imported lines land in the inbox with status pending until allocated.
type FlexTransaction struct {
	ID              string    `json:"id"`
	ExternalID      string    `json:"externalId"`
	TransactionDate time.Time `json:"transactionDate"`
	Symbol          string    `json:"symbol,omitempty"`
	Isin            string    `json:"isin,omitempty"`
	Description     string    `json:"description,omitempty"`
	TransactionType string    `json:"transactionType"`
	Quantity        float64   `json:"quantity,omitempty"`
	Price           float64   `json:"price,omitempty"`
	TotalAmount     float64   `json:"totalAmount"`
	Currency        string    `json:"currency"`
	Fees            float64   `json:"fees"`
	Status          string    `json:"status"`
	ImportedAt      time.Time `json:"importedAt"`
}

// FlexAllocationRecord is the persisted outcome of allocating one flex
// transaction to one portfolio, including the created transaction reference.
type FlexAllocationRecord struct {
	ID            string
	FlexID        string
	PortfolioID   string
	PortfolioName string
	Percentage    float64
	Amount        float64
	Shares        float64
	TransactionID string
	Type          string
	CreatedAt     time.Time
}

// EligiblePortfolios is the response of looking up which portfolios can
// receive an allocation of a flex transaction, matched by symbol or ISIN.
type EligiblePortfolios struct {
	Found      bool        `json:"found"`
	MatchedBy  string      `json:"matchedBy"`
	FundID     string      `json:"fundId"`
	FundName   string      `json:"fundName"`
	Portfolios []Portfolio `json:"portfolios"`
	Warning    string      `json:"warning,omitempty"`
}
