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

// DividendRepository provides data access for the dividend table.
type DividendRepository struct {
	db DBTX
}

// NewDividendRepository creates a new DividendRepository.
func NewDividendRepository(db *sql.DB) *DividendRepository {
	return &DividendRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *DividendRepository) WithTx(tx *sql.Tx) *DividendRepository {
	return &DividendRepository{db: tx}
}

// Get retrieves one dividend by ID.
func (r *DividendRepository) Get(ctx context.Context, id string) (model.Dividend, error) {
	query := `
		SELECT id, fund_id, holding_id, record_date, ex_dividend_date, shares_owned,
			dividend_per_share, total_amount, reinvestment_status, buy_order_date,
			reinvestment_transaction_id, created_at
		FROM dividend
		WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDividendRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dividend{}, apperrors.ErrDividendNotFound
	}
	return d, err
}

// ListByHoldings retrieves the dividends of the given holdings with ex-date
// up to endDate, grouped by holding.
func (r *DividendRepository) ListByHoldings(ctx context.Context, holdingIDs []string, endDate time.Time) (map[string][]model.Dividend, error) {
	if len(holdingIDs) == 0 {
		return make(map[string][]model.Dividend), nil
	}

	query := `
		SELECT id, fund_id, holding_id, record_date, ex_dividend_date, shares_owned,
			dividend_per_share, total_amount, reinvestment_status, buy_order_date,
			reinvestment_transaction_id, created_at
		FROM dividend
		WHERE holding_id IN (` + placeholders(len(holdingIDs)) + `)
		AND ex_dividend_date <= ?
		ORDER BY ex_dividend_date ASC
	`

	args := stringArgs(holdingIDs)
	args = append(args, endDate.Format("2006-01-02"))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividend table: %w", err)
	}
	defer rows.Close()

	byHolding := make(map[string][]model.Dividend)
	for rows.Next() {
		d, err := scanDividendRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		byHolding[d.HoldingID] = append(byHolding[d.HoldingID], d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividend table: %w", err)
	}

	return byHolding, nil
}

// ListDetailsByFund retrieves enriched dividends of one fund, newest first.
func (r *DividendRepository) ListDetailsByFund(ctx context.Context, fundID string) ([]model.DividendDetail, error) {
	return r.listDetails(ctx, `WHERE d.fund_id = ?`, fundID)
}

// ListDetailsByPortfolio retrieves enriched dividends across one portfolio's
// holdings, newest first.
func (r *DividendRepository) ListDetailsByPortfolio(ctx context.Context, portfolioID string) ([]model.DividendDetail, error) {
	return r.listDetails(ctx, `WHERE h.portfolio_id = ?`, portfolioID)
}

func (r *DividendRepository) listDetails(ctx context.Context, where string, arg any) ([]model.DividendDetail, error) {
	query := `
		SELECT d.id, d.fund_id, f.name, d.holding_id, d.record_date, d.ex_dividend_date,
			d.shares_owned, d.dividend_per_share, d.total_amount, d.reinvestment_status,
			d.buy_order_date, d.reinvestment_transaction_id, f.dividend_type
		FROM dividend d
		JOIN fund f ON d.fund_id = f.id
		JOIN holding h ON d.holding_id = h.id
		` + where + `
		ORDER BY d.record_date DESC
	`

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividend table: %w", err)
	}
	defer rows.Close()

	details := []model.DividendDetail{}
	for rows.Next() {
		var d model.DividendDetail
		var recordStr, exDateStr string
		var buyOrderStr, reinvestID sql.NullString

		err := rows.Scan(
			&d.ID, &d.FundID, &d.FundName, &d.HoldingID, &recordStr, &exDateStr,
			&d.SharesOwned, &d.DividendPerShare, &d.TotalAmount, &d.ReinvestmentStatus,
			&buyOrderStr, &reinvestID, &d.DividendType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}

		if d.RecordDate, err = ParseTime(recordStr); err != nil {
			return nil, err
		}
		if d.ExDividendDate, err = ParseTime(exDateStr); err != nil {
			return nil, err
		}
		if buyOrderStr.Valid {
			buyOrder, err := ParseTime(buyOrderStr.String)
			if err != nil {
				return nil, err
			}
			d.BuyOrderDate = &buyOrder
		}
		d.ReinvestmentTransactionID = reinvestID.String

		details = append(details, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividend table: %w", err)
	}

	return details, nil
}

// Insert writes a new dividend row.
func (r *DividendRepository) Insert(ctx context.Context, d *model.Dividend) error {
	query := `
		INSERT INTO dividend (id, fund_id, holding_id, record_date, ex_dividend_date,
			shares_owned, dividend_per_share, total_amount, reinvestment_status,
			buy_order_date, reinvestment_transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.FundID, d.HoldingID,
		d.RecordDate.Format("2006-01-02"), d.ExDividendDate.Format("2006-01-02"),
		d.SharesOwned, d.DividendPerShare, d.TotalAmount, d.ReinvestmentStatus,
		nullDate(d.BuyOrderDate), nullString(d.ReinvestmentTransactionID),
		d.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dividend: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a dividend row.
func (r *DividendRepository) Update(ctx context.Context, d *model.Dividend) error {
	query := `
		UPDATE dividend
		SET record_date = ?, ex_dividend_date = ?, shares_owned = ?, dividend_per_share = ?,
			total_amount = ?, reinvestment_status = ?, buy_order_date = ?,
			reinvestment_transaction_id = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		d.RecordDate.Format("2006-01-02"), d.ExDividendDate.Format("2006-01-02"),
		d.SharesOwned, d.DividendPerShare, d.TotalAmount, d.ReinvestmentStatus,
		nullDate(d.BuyOrderDate), nullString(d.ReinvestmentTransactionID),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dividend: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrDividendNotFound
	}
	return nil
}

// Delete removes a dividend row.
func (r *DividendRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dividend WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dividend: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrDividendNotFound
	}
	return nil
}

func scanDividendRow(scan func(dest ...any) error) (model.Dividend, error) {
	var d model.Dividend
	var recordStr, exDateStr, createdStr string
	var buyOrderStr, reinvestID sql.NullString

	err := scan(
		&d.ID, &d.FundID, &d.HoldingID, &recordStr, &exDateStr, &d.SharesOwned,
		&d.DividendPerShare, &d.TotalAmount, &d.ReinvestmentStatus, &buyOrderStr,
		&reinvestID, &createdStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Dividend{}, err
		}
		return model.Dividend{}, fmt.Errorf("failed to scan dividend: %w", err)
	}

	if d.RecordDate, err = ParseTime(recordStr); err != nil {
		return model.Dividend{}, err
	}
	if d.ExDividendDate, err = ParseTime(exDateStr); err != nil {
		return model.Dividend{}, err
	}
	if buyOrderStr.Valid {
		if d.BuyOrderDate, err = ParseTime(buyOrderStr.String); err != nil {
			return model.Dividend{}, err
		}
	}
	d.ReinvestmentTransactionID = reinvestID.String
	if d.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Dividend{}, err
	}

	return d, nil
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
