package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
)

// FundRepository provides data access for the fund and fund_price tables.
type FundRepository struct {
	db DBTX
}

// NewFundRepository creates a new FundRepository.
func NewFundRepository(db *sql.DB) *FundRepository {
	return &FundRepository{db: db}
}

// List retrieves all funds sorted by name.
func (r *FundRepository) List(ctx context.Context) ([]model.Fund, error) {
	query := `
		SELECT id, name, isin, symbol, currency, exchange, investment_type, dividend_type
		FROM fund
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund table: %w", err)
	}
	defer rows.Close()

	funds := []model.Fund{}
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		funds = append(funds, f)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund table: %w", err)
	}

	return funds, nil
}

// Get retrieves one fund by ID.
func (r *FundRepository) Get(ctx context.Context, id string) (model.Fund, error) {
	query := `
		SELECT id, name, isin, symbol, currency, exchange, investment_type, dividend_type
		FROM fund
		WHERE id = ?
	`

	var f model.Fund
	var symbol sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.Name, &f.Isin, &symbol, &f.Currency, &f.Exchange, &f.InvestmentType, &f.DividendType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Fund{}, apperrors.ErrFundNotFound
	}
	if err != nil {
		return model.Fund{}, fmt.Errorf("failed to scan fund: %w", err)
	}

	f.Symbol = symbol.String
	return f, nil
}

// GetBySymbolOrIsin looks a fund up by symbol first, then by ISIN.
func (r *FundRepository) GetBySymbolOrIsin(ctx context.Context, symbol, isin string) (model.Fund, string, error) {
	query := `
		SELECT id, name, isin, symbol, currency, exchange, investment_type, dividend_type
		FROM fund
		WHERE symbol = ?
	`

	var f model.Fund
	var sym sql.NullString

	err := r.db.QueryRowContext(ctx, query, symbol).Scan(
		&f.ID, &f.Name, &f.Isin, &sym, &f.Currency, &f.Exchange, &f.InvestmentType, &f.DividendType,
	)
	if err == nil {
		f.Symbol = sym.String
		return f, "symbol", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Fund{}, "", fmt.Errorf("failed to scan fund: %w", err)
	}

	if isin == "" {
		return model.Fund{}, "", apperrors.ErrFundNotFound
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, isin, symbol, currency, exchange, investment_type, dividend_type
		FROM fund
		WHERE isin = ?
	`, isin).Scan(
		&f.ID, &f.Name, &f.Isin, &sym, &f.Currency, &f.Exchange, &f.InvestmentType, &f.DividendType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Fund{}, "", apperrors.ErrFundNotFound
	}
	if err != nil {
		return model.Fund{}, "", fmt.Errorf("failed to scan fund: %w", err)
	}

	f.Symbol = sym.String
	return f, "isin", nil
}

// Insert writes a new fund row.
func (r *FundRepository) Insert(ctx context.Context, f *model.Fund) error {
	query := `
		INSERT INTO fund (id, name, isin, symbol, currency, exchange, investment_type, dividend_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.Name, f.Isin, f.Symbol, f.Currency, f.Exchange, f.InvestmentType, f.DividendType,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fund: %w", err)
	}
	return nil
}

// Update rewrites a fund row.
func (r *FundRepository) Update(ctx context.Context, f *model.Fund) error {
	query := `
		UPDATE fund
		SET name = ?, isin = ?, symbol = ?, currency = ?, exchange = ?, investment_type = ?, dividend_type = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		f.Name, f.Isin, f.Symbol, f.Currency, f.Exchange, f.InvestmentType, f.DividendType, f.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update fund: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrFundNotFound
	}
	return nil
}

// Delete removes a fund row. Fails when holdings still reference the fund.
func (r *FundRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM fund WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fund: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrFundNotFound
	}
	return nil
}

// Usage reports which portfolios hold the fund, with transaction counts.
func (r *FundRepository) Usage(ctx context.Context, fundID string) (model.FundUsage, error) {
	query := `
		SELECT p.id, p.name, COUNT(t.id)
		FROM holding h
		JOIN portfolio p ON h.portfolio_id = p.id
		LEFT JOIN "transaction" t ON t.holding_id = h.id
		WHERE h.fund_id = ?
		GROUP BY p.id, p.name
		ORDER BY p.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, fundID)
	if err != nil {
		return model.FundUsage{}, fmt.Errorf("failed to query fund usage: %w", err)
	}
	defer rows.Close()

	usage := model.FundUsage{Portfolios: []model.FundUsageListing{}}
	for rows.Next() {
		var l model.FundUsageListing
		if err := rows.Scan(&l.PortfolioID, &l.PortfolioName, &l.TransactionCount); err != nil {
			return model.FundUsage{}, fmt.Errorf("failed to scan fund usage: %w", err)
		}
		usage.Portfolios = append(usage.Portfolios, l)
	}

	if err = rows.Err(); err != nil {
		return model.FundUsage{}, fmt.Errorf("error iterating fund usage: %w", err)
	}

	usage.InUse = len(usage.Portfolios) > 0
	return usage, nil
}

// GetPrices retrieves the price history of one fund, newest first.
func (r *FundRepository) GetPrices(ctx context.Context, fundID string) ([]model.FundPrice, error) {
	query := `
		SELECT id, fund_id, date, price
		FROM fund_price
		WHERE fund_id = ?
		ORDER BY date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund_price table: %w", err)
	}
	defer rows.Close()

	prices := []model.FundPrice{}
	for rows.Next() {
		var p model.FundPrice
		var dateStr string
		if err := rows.Scan(&p.ID, &p.FundID, &dateStr, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan fund price: %w", err)
		}
		if p.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund_price table: %w", err)
	}

	return prices, nil
}

// GetPricesInRange retrieves prices for multiple funds up to endDate, oldest
// first, grouped by fund. Prices before the range still matter for carry-over
// so no lower bound is applied.
func (r *FundRepository) GetPricesInRange(ctx context.Context, fundIDs []string, endDate time.Time) (map[string][]model.FundPrice, error) {
	if len(fundIDs) == 0 {
		return make(map[string][]model.FundPrice), nil
	}

	query := `
		SELECT id, fund_id, date, price
		FROM fund_price
		WHERE fund_id IN (` + placeholders(len(fundIDs)) + `)
		AND date <= ?
		ORDER BY date ASC
	`

	args := stringArgs(fundIDs)
	args = append(args, endDate.Format("2006-01-02"))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund_price table: %w", err)
	}
	defer rows.Close()

	byFund := make(map[string][]model.FundPrice)
	for rows.Next() {
		var p model.FundPrice
		var dateStr string
		if err := rows.Scan(&p.ID, &p.FundID, &dateStr, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan fund price: %w", err)
		}
		if p.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		byFund[p.FundID] = append(byFund[p.FundID], p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund_price table: %w", err)
	}

	return byFund, nil
}

// GetLatestPrice retrieves the most recent price of one fund.
func (r *FundRepository) GetLatestPrice(ctx context.Context, fundID string) (model.FundPrice, error) {
	query := `
		SELECT id, fund_id, date, price
		FROM fund_price
		WHERE fund_id = ?
		ORDER BY date DESC
		LIMIT 1
	`

	var p model.FundPrice
	var dateStr string

	err := r.db.QueryRowContext(ctx, query, fundID).Scan(&p.ID, &p.FundID, &dateStr, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FundPrice{}, apperrors.ErrFundPriceNotFound
	}
	if err != nil {
		return model.FundPrice{}, fmt.Errorf("failed to scan fund price: %w", err)
	}

	if p.Date, err = ParseTime(dateStr); err != nil {
		return model.FundPrice{}, err
	}
	return p, nil
}

// UpsertPrice inserts a price, replacing any existing row for the same fund
// and date.
func (r *FundRepository) UpsertPrice(ctx context.Context, p *model.FundPrice) error {
	query := `
		INSERT INTO fund_price (id, fund_id, date, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (fund_id, date) DO UPDATE SET price = excluded.price
	`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.FundID, p.Date.Format("2006-01-02"), p.Price)
	if err != nil {
		return fmt.Errorf("failed to upsert fund price: %w", err)
	}
	return nil
}

// CountPricesSince counts price rows for a fund on or after the given date.
func (r *FundRepository) CountPricesSince(ctx context.Context, fundID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fund_price WHERE fund_id = ? AND date >= ?`,
		fundID, since.Format("2006-01-02"),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fund prices: %w", err)
	}
	return count, nil
}

func scanFund(rows *sql.Rows) (model.Fund, error) {
	var f model.Fund
	var symbol sql.NullString

	err := rows.Scan(&f.ID, &f.Name, &f.Isin, &symbol, &f.Currency, &f.Exchange, &f.InvestmentType, &f.DividendType)
	if err != nil {
		return model.Fund{}, fmt.Errorf("failed to scan fund: %w", err)
	}

	f.Symbol = symbol.String
	return f, nil
}
