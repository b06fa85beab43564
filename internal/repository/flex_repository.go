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

// FlexRepository provides data access for the flex_config, flex_transaction
// and flex_allocation tables.
type FlexRepository struct {
	db DBTX
}

// NewFlexRepository creates a new FlexRepository.
func NewFlexRepository(db *sql.DB) *FlexRepository {
	return &FlexRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *FlexRepository) WithTx(tx *sql.Tx) *FlexRepository {
	return &FlexRepository{db: tx}
}

// FlexConfigRow is the persisted shape of the single flex_config row. The
// token stays encrypted here; the service layer decrypts it on demand.
type FlexConfigRow struct {
	ID                 string
	EncryptedToken     string
	QueryID            string
	TokenExpiresAt     *time.Time
	LastImportDate     *time.Time
	AutoImportEnabled  bool
	Enabled            bool
	DefaultAllocations string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GetConfig retrieves the flex configuration row. At most one row exists.
func (r *FlexRepository) GetConfig(ctx context.Context) (FlexConfigRow, error) {
	query := `
		SELECT id, flex_token, query_id, token_expires_at, last_import_date,
			auto_import_enabled, enabled, default_allocations, created_at, updated_at
		FROM flex_config
		LIMIT 1
	`

	var row FlexConfigRow
	var expiresStr, lastImportStr, allocations sql.NullString
	var createdStr, updatedStr string

	err := r.db.QueryRowContext(ctx, query).Scan(
		&row.ID, &row.EncryptedToken, &row.QueryID, &expiresStr, &lastImportStr,
		&row.AutoImportEnabled, &row.Enabled, &allocations, &createdStr, &updatedStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return FlexConfigRow{}, apperrors.ErrFlexConfigNotFound
	}
	if err != nil {
		return FlexConfigRow{}, fmt.Errorf("failed to scan flex config: %w", err)
	}

	if expiresStr.Valid {
		t, err := ParseTime(expiresStr.String)
		if err != nil {
			return FlexConfigRow{}, err
		}
		row.TokenExpiresAt = &t
	}
	if lastImportStr.Valid {
		t, err := ParseTime(lastImportStr.String)
		if err != nil {
			return FlexConfigRow{}, err
		}
		row.LastImportDate = &t
	}
	row.DefaultAllocations = allocations.String
	if row.CreatedAt, err = ParseTime(createdStr); err != nil {
		return FlexConfigRow{}, err
	}
	if row.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return FlexConfigRow{}, err
	}

	return row, nil
}

// UpsertConfig writes the flex configuration, replacing any existing row.
func (r *FlexRepository) UpsertConfig(ctx context.Context, row *FlexConfigRow) error {
	// Single-row table: clear then insert keeps the row count invariant.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM flex_config WHERE id != ?`, row.ID); err != nil {
		return fmt.Errorf("failed to clear flex config: %w", err)
	}

	query := `
		INSERT INTO flex_config (id, flex_token, query_id, token_expires_at,
			last_import_date, auto_import_enabled, enabled, default_allocations,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			flex_token = excluded.flex_token,
			query_id = excluded.query_id,
			token_expires_at = excluded.token_expires_at,
			auto_import_enabled = excluded.auto_import_enabled,
			enabled = excluded.enabled,
			default_allocations = excluded.default_allocations,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.EncryptedToken, row.QueryID,
		nullTimestamp(row.TokenExpiresAt), nullTimestamp(row.LastImportDate),
		row.AutoImportEnabled, row.Enabled, nullString(row.DefaultAllocations),
		row.CreatedAt.UTC().Format(time.RFC3339), row.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flex config: %w", err)
	}
	return nil
}

// TouchLastImport records the time of the most recent successful import.
func (r *FlexRepository) TouchLastImport(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE flex_config SET last_import_date = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update last import date: %w", err)
	}
	return nil
}

// DeleteConfig removes the flex configuration.
func (r *FlexRepository) DeleteConfig(ctx context.Context) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flex_config`)
	if err != nil {
		return fmt.Errorf("failed to delete flex config: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrFlexConfigNotFound
	}
	return nil
}

// ListTransactions retrieves imported flex transactions, optionally filtered
// by status, newest first.
func (r *FlexRepository) ListTransactions(ctx context.Context, status string) ([]model.FlexTransaction, error) {
	query := `
		SELECT id, external_id, transaction_date, symbol, isin, description,
			transaction_type, quantity, price, total_amount, currency, fees,
			status, imported_at
		FROM flex_transaction
	`

	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY transaction_date DESC, imported_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flex_transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.FlexTransaction{}
	for rows.Next() {
		t, err := scanFlexTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flex_transaction table: %w", err)
	}

	return transactions, nil
}

// GetTransaction retrieves one flex transaction by ID.
func (r *FlexRepository) GetTransaction(ctx context.Context, id string) (model.FlexTransaction, error) {
	query := `
		SELECT id, external_id, transaction_date, symbol, isin, description,
			transaction_type, quantity, price, total_amount, currency, fees,
			status, imported_at
		FROM flex_transaction
		WHERE id = ?
	`

	t, err := scanFlexTransaction(r.db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FlexTransaction{}, apperrors.ErrFlexTransactionNotFound
	}
	return t, err
}

// InsertTransaction writes an imported statement line. Returns
// ErrDuplicateEntry when the external ID was already imported.
func (r *FlexRepository) InsertTransaction(ctx context.Context, t *model.FlexTransaction) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flex_transaction WHERE external_id = ?`, t.ExternalID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check flex transaction: %w", err)
	}
	if exists > 0 {
		return apperrors.ErrDuplicateEntry
	}

	query := `
		INSERT INTO flex_transaction (id, external_id, transaction_date, symbol,
			isin, description, transaction_type, quantity, price, total_amount,
			currency, fees, status, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		t.ID, t.ExternalID, t.TransactionDate.Format("2006-01-02"),
		nullString(t.Symbol), nullString(t.Isin), nullString(t.Description),
		t.TransactionType, t.Quantity, t.Price, t.TotalAmount, t.Currency,
		t.Fees, t.Status, t.ImportedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert flex transaction: %w", err)
	}
	return nil
}

// SetTransactionStatus moves a flex transaction between inbox states.
func (r *FlexRepository) SetTransactionStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE flex_transaction SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update flex transaction status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrFlexTransactionNotFound
	}
	return nil
}

// InsertAllocation writes the record of allocating part of a flex transaction
// to a portfolio.
func (r *FlexRepository) InsertAllocation(ctx context.Context, a *model.FlexAllocationRecord) error {
	query := `
		INSERT INTO flex_allocation (id, flex_transaction_id, portfolio_id,
			percentage, amount, shares, transaction_id, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.FlexID, a.PortfolioID, a.Percentage, a.Amount, a.Shares,
		nullString(a.TransactionID), a.Type, a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert flex allocation: %w", err)
	}
	return nil
}

// ListAllocations retrieves the allocation records of one flex transaction.
func (r *FlexRepository) ListAllocations(ctx context.Context, flexID string) ([]model.FlexAllocationRecord, error) {
	query := `
		SELECT a.id, a.flex_transaction_id, a.portfolio_id, p.name, a.percentage,
			a.amount, a.shares, a.transaction_id, a.type, a.created_at
		FROM flex_allocation a
		JOIN portfolio p ON a.portfolio_id = p.id
		WHERE a.flex_transaction_id = ?
		ORDER BY a.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, flexID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flex_allocation table: %w", err)
	}
	defer rows.Close()

	allocations := []model.FlexAllocationRecord{}
	for rows.Next() {
		var a model.FlexAllocationRecord
		var txID sql.NullString
		var createdStr string
		err := rows.Scan(
			&a.ID, &a.FlexID, &a.PortfolioID, &a.PortfolioName, &a.Percentage,
			&a.Amount, &a.Shares, &txID, &a.Type, &createdStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flex allocation: %w", err)
		}
		a.TransactionID = txID.String
		if a.CreatedAt, err = ParseTime(createdStr); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flex_allocation table: %w", err)
	}

	return allocations, nil
}

func scanFlexTransaction(scan func(dest ...any) error) (model.FlexTransaction, error) {
	var t model.FlexTransaction
	var dateStr, importedStr string
	var symbol, isin, description sql.NullString
	var quantity, price sql.NullFloat64

	err := scan(
		&t.ID, &t.ExternalID, &dateStr, &symbol, &isin, &description,
		&t.TransactionType, &quantity, &price, &t.TotalAmount, &t.Currency,
		&t.Fees, &t.Status, &importedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.FlexTransaction{}, err
		}
		return model.FlexTransaction{}, fmt.Errorf("failed to scan flex transaction: %w", err)
	}

	t.Symbol = symbol.String
	t.Isin = isin.String
	t.Description = description.String
	t.Quantity = quantity.Float64
	t.Price = price.Float64

	if t.TransactionDate, err = ParseTime(dateStr); err != nil {
		return model.FlexTransaction{}, err
	}
	if t.ImportedAt, err = ParseTime(importedStr); err != nil {
		return model.FlexTransaction{}, err
	}

	return t, nil
}

func nullTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
