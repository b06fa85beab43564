package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jmolenaar/fundtracker/internal/model"
)

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	portfolio := testutil.NewPortfolio().WithName("Pension").Build(t, db)
type PortfolioBuilder struct {
	ID                  string
	Name                string
	Description         string
	IsArchived          bool
	ExcludeFromOverview bool
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		ID:          MakeID(),
		Name:        MakePortfolioName("Test Portfolio"),
		Description: "Test description",
	}
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// Archived marks the portfolio as archived.
func (b *PortfolioBuilder) Archived() *PortfolioBuilder {
	b.IsArchived = true
	return b
}

// ExcludedFromOverview marks the portfolio as excluded from the overview.
func (b *PortfolioBuilder) ExcludedFromOverview() *PortfolioBuilder {
	b.ExcludeFromOverview = true
	return b
}

// Build creates the portfolio in the database and returns it.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO portfolio (id, name, description, is_archived, exclude_from_overview)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Description, b.IsArchived, b.ExcludeFromOverview)
	if err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}

	return model.Portfolio{
		ID:                  b.ID,
		Name:                b.Name,
		Description:         b.Description,
		IsArchived:          b.IsArchived,
		ExcludeFromOverview: b.ExcludeFromOverview,
	}
}

// FundBuilder provides a fluent interface for creating test funds.
type FundBuilder struct {
	ID             string
	Name           string
	ISIN           string
	Symbol         string
	Currency       string
	Exchange       string
	InvestmentType string
	DividendType   string
}

// NewFund creates a FundBuilder with sensible defaults.
func NewFund() *FundBuilder {
	return &FundBuilder{
		ID:             MakeID(),
		Name:           MakeFundName("Test Fund"),
		ISIN:           MakeISIN("US"),
		Symbol:         MakeSymbol("TEST"),
		Currency:       "USD",
		Exchange:       "NASDAQ",
		InvestmentType: "stock",
		DividendType:   "none",
	}
}

// WithName sets a custom name.
func (b *FundBuilder) WithName(name string) *FundBuilder {
	b.Name = name
	return b
}

// WithISIN sets a custom ISIN.
func (b *FundBuilder) WithISIN(isin string) *FundBuilder {
	b.ISIN = isin
	return b
}

// WithSymbol sets a custom symbol.
func (b *FundBuilder) WithSymbol(symbol string) *FundBuilder {
	b.Symbol = symbol
	return b
}

// WithDividendType sets the dividend type.
func (b *FundBuilder) WithDividendType(dividendType string) *FundBuilder {
	b.DividendType = dividendType
	return b
}

// Build creates the fund in the database and returns it.
func (b *FundBuilder) Build(t *testing.T, db *sql.DB) model.Fund {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO fund (id, name, isin, symbol, currency, exchange, investment_type, dividend_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.ISIN, b.Symbol, b.Currency, b.Exchange, b.InvestmentType, b.DividendType)
	if err != nil {
		t.Fatalf("failed to create test fund: %v", err)
	}

	return model.Fund{
		ID:             b.ID,
		Name:           b.Name,
		Isin:           b.ISIN,
		Symbol:         b.Symbol,
		Currency:       b.Currency,
		Exchange:       b.Exchange,
		InvestmentType: b.InvestmentType,
		DividendType:   b.DividendType,
	}
}

// CreateHolding links a fund into a portfolio and returns the holding.
func CreateHolding(t *testing.T, db *sql.DB, portfolioID, fundID string) model.Holding {
	t.Helper()

	h := model.Holding{ID: MakeID(), PortfolioID: portfolioID, FundID: fundID}
	_, err := db.Exec(`INSERT INTO holding (id, portfolio_id, fund_id) VALUES (?, ?, ?)`,
		h.ID, h.PortfolioID, h.FundID)
	if err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return h
}

// CreateTransaction stores one transaction row and returns it. CreatedAt is
// set to now so same-day ordering follows insertion order.
func CreateTransaction(t *testing.T, db *sql.DB, holdingID string, date time.Time, txType string, shares, costPerShare float64) model.Transaction {
	t.Helper()

	tx := model.Transaction{
		ID:           MakeID(),
		HoldingID:    holdingID,
		Date:         date,
		Type:         txType,
		Shares:       shares,
		CostPerShare: costPerShare,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := db.Exec(`
		INSERT INTO "transaction" (id, holding_id, date, type, shares, cost_per_share, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.HoldingID, tx.Date.Format("2006-01-02"), tx.Type, tx.Shares, tx.CostPerShare,
		tx.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateFundPrice stores one closing price for a fund.
func CreateFundPrice(t *testing.T, db *sql.DB, fundID string, date time.Time, price float64) model.FundPrice {
	t.Helper()

	p := model.FundPrice{ID: MakeID(), FundID: fundID, Date: date, Price: price}
	_, err := db.Exec(`INSERT INTO fund_price (id, fund_id, date, price) VALUES (?, ?, ?, ?)`,
		p.ID, p.FundID, p.Date.Format("2006-01-02"), p.Price)
	if err != nil {
		t.Fatalf("failed to create test fund price: %v", err)
	}
	return p
}

// CreateDividend stores one paid-out dividend row and returns it.
func CreateDividend(t *testing.T, db *sql.DB, fundID, holdingID string, exDate time.Time, sharesOwned, perShare float64) model.Dividend {
	t.Helper()

	d := model.Dividend{
		ID:                 MakeID(),
		FundID:             fundID,
		HoldingID:          holdingID,
		RecordDate:         exDate,
		ExDividendDate:     exDate,
		SharesOwned:        sharesOwned,
		DividendPerShare:   perShare,
		TotalAmount:        sharesOwned * perShare,
		ReinvestmentStatus: model.ReinvestmentPaidOut,
	}
	_, err := db.Exec(`
		INSERT INTO dividend (id, fund_id, holding_id, record_date, ex_dividend_date,
			shares_owned, dividend_per_share, total_amount, reinvestment_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.FundID, d.HoldingID, d.RecordDate.Format("2006-01-02"),
		d.ExDividendDate.Format("2006-01-02"), d.SharesOwned, d.DividendPerShare,
		d.TotalAmount, d.ReinvestmentStatus)
	if err != nil {
		t.Fatalf("failed to create test dividend: %v", err)
	}
	return d
}
