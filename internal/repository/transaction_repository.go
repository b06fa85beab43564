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

// TransactionRepository provides data access for the transaction table.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// GetByHoldings retrieves all transactions for the given holding IDs within
// the date range, grouped by holding ID and sorted by date then creation
// time. The grouping lets callers decide how to aggregate after retrieval.
func (r *TransactionRepository) GetByHoldings(ctx context.Context, holdingIDs []string, startDate, endDate time.Time) (map[string][]model.Transaction, error) {
	if len(holdingIDs) == 0 {
		return make(map[string][]model.Transaction), nil
	}

	query := `
		SELECT id, holding_id, date, type, shares, cost_per_share, created_at
		FROM "transaction"
		WHERE holding_id IN (` + placeholders(len(holdingIDs)) + `)
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC, created_at ASC
	`

	args := stringArgs(holdingIDs)
	args = append(args, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	byHolding := make(map[string][]model.Transaction)

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		byHolding[t.HoldingID] = append(byHolding[t.HoldingID], t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return byHolding, nil
}

// GetForHolding retrieves the complete transaction history of one holding,
// sorted by date then creation time. The mutation path replays this list to
// rebuild realized gains.
func (r *TransactionRepository) GetForHolding(ctx context.Context, holdingID string) ([]model.Transaction, error) {
	query := `
		SELECT id, holding_id, date, type, shares, cost_per_share, created_at
		FROM "transaction"
		WHERE holding_id = ?
		ORDER BY date ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// Get retrieves one transaction row by ID.
func (r *TransactionRepository) Get(ctx context.Context, id string) (model.Transaction, error) {
	query := `
		SELECT id, holding_id, date, type, shares, cost_per_share, created_at
		FROM "transaction"
		WHERE id = ?
	`

	var t model.Transaction
	var dateStr, createdAtStr string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.HoldingID, &dateStr, &t.Type, &t.Shares, &t.CostPerShare, &createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if t.Date, err = ParseTime(dateStr); err != nil {
		return model.Transaction{}, err
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Transaction{}, err
	}

	return t, nil
}

// GetDetail retrieves one transaction enriched with fund name and flex linkage.
func (r *TransactionRepository) GetDetail(ctx context.Context, id string) (model.TransactionDetail, error) {
	query := `
		SELECT
			t.id, t.holding_id, f.name, t.date, t.type, t.shares, t.cost_per_share,
			fa.flex_transaction_id,
			CASE WHEN fa.flex_transaction_id IS NOT NULL THEN 1 ELSE 0 END AS flex_linked
		FROM "transaction" t
		JOIN holding h ON t.holding_id = h.id
		JOIN fund f ON h.fund_id = f.id
		LEFT JOIN flex_allocation fa ON t.id = fa.transaction_id
		WHERE t.id = ?
	`

	var d model.TransactionDetail
	var dateStr string
	var flexID sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.HoldingID, &d.FundName, &dateStr, &d.Type, &d.Shares, &d.CostPerShare,
		&flexID, &d.FlexLinked,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TransactionDetail{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.TransactionDetail{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if d.Date, err = ParseTime(dateStr); err != nil {
		return model.TransactionDetail{}, err
	}
	if flexID.Valid {
		d.FlexTransactionID = flexID.String
	}

	return d, nil
}

// ListDetails retrieves enriched transactions, optionally filtered to one
// portfolio. An empty portfolioID returns all transactions.
func (r *TransactionRepository) ListDetails(ctx context.Context, portfolioID string) ([]model.TransactionDetail, error) {
	query := `
		SELECT
			t.id, t.holding_id, f.name, t.date, t.type, t.shares, t.cost_per_share,
			fa.flex_transaction_id,
			CASE WHEN fa.flex_transaction_id IS NOT NULL THEN 1 ELSE 0 END AS flex_linked
		FROM "transaction" t
		JOIN holding h ON t.holding_id = h.id
		JOIN fund f ON h.fund_id = f.id
		LEFT JOIN flex_allocation fa ON t.id = fa.transaction_id
	`

	var args []any
	if portfolioID != "" {
		query += ` WHERE h.portfolio_id = ?`
		args = append(args, portfolioID)
	}
	query += ` ORDER BY t.date ASC, t.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	details := []model.TransactionDetail{}
	for rows.Next() {
		var d model.TransactionDetail
		var dateStr string
		var flexID sql.NullString

		err := rows.Scan(
			&d.ID, &d.HoldingID, &d.FundName, &dateStr, &d.Type, &d.Shares, &d.CostPerShare,
			&flexID, &d.FlexLinked,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if d.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		if flexID.Valid {
			d.FlexTransactionID = flexID.String
		}

		details = append(details, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return details, nil
}

// OldestDate returns the date of the earliest transaction across the given
// holdings, or the zero time when there are none.
func (r *TransactionRepository) OldestDate(ctx context.Context, holdingIDs []string) time.Time {
	if len(holdingIDs) == 0 {
		return time.Time{}
	}

	query := `
		SELECT MIN(date)
		FROM "transaction"
		WHERE holding_id IN (` + placeholders(len(holdingIDs)) + `)
	`

	var oldest sql.NullString
	err := r.db.QueryRowContext(ctx, query, stringArgs(holdingIDs)...).Scan(&oldest)
	if err != nil || !oldest.Valid {
		return time.Time{}
	}

	parsed, err := time.Parse("2006-01-02", oldest.String)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Insert writes a new transaction row.
func (r *TransactionRepository) Insert(ctx context.Context, t *model.Transaction) error {
	query := `
		INSERT INTO "transaction" (id, holding_id, date, type, shares, cost_per_share, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.HoldingID, t.Date.Format("2006-01-02"), t.Type, t.Shares, t.CostPerShare,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a transaction row.
func (r *TransactionRepository) Update(ctx context.Context, t *model.Transaction) error {
	query := `
		UPDATE "transaction"
		SET holding_id = ?, date = ?, type = ?, shares = ?, cost_per_share = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		t.HoldingID, t.Date.Format("2006-01-02"), t.Type, t.Shares, t.CostPerShare, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// Delete removes a transaction row.
func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM "transaction" WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var t model.Transaction
	var dateStr, createdAtStr string

	err := rows.Scan(&t.ID, &t.HoldingID, &dateStr, &t.Type, &t.Shares, &t.CostPerShare, &createdAtStr)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if t.Date, err = ParseTime(dateStr); err != nil {
		return model.Transaction{}, err
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Transaction{}, err
	}

	return t, nil
}
