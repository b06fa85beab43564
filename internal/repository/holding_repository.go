package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
)

// HoldingRepository provides data access for the holding table.
type HoldingRepository struct {
	db DBTX
}

// NewHoldingRepository creates a new HoldingRepository.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// Get retrieves one holding by ID.
func (r *HoldingRepository) Get(ctx context.Context, id string) (model.Holding, error) {
	query := `SELECT id, portfolio_id, fund_id FROM holding WHERE id = ?`

	var h model.Holding
	err := r.db.QueryRowContext(ctx, query, id).Scan(&h.ID, &h.PortfolioID, &h.FundID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, apperrors.ErrHoldingNotFound
	}
	if err != nil {
		return model.Holding{}, fmt.Errorf("failed to scan holding: %w", err)
	}
	return h, nil
}

// GetByPortfolioAndFund looks up the holding joining a portfolio and a fund.
func (r *HoldingRepository) GetByPortfolioAndFund(ctx context.Context, portfolioID, fundID string) (model.Holding, error) {
	query := `SELECT id, portfolio_id, fund_id FROM holding WHERE portfolio_id = ? AND fund_id = ?`

	var h model.Holding
	err := r.db.QueryRowContext(ctx, query, portfolioID, fundID).Scan(&h.ID, &h.PortfolioID, &h.FundID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, apperrors.ErrHoldingNotFound
	}
	if err != nil {
		return model.Holding{}, fmt.Errorf("failed to scan holding: %w", err)
	}
	return h, nil
}

// ListByPortfolio retrieves all holdings of one portfolio.
func (r *HoldingRepository) ListByPortfolio(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	return r.list(ctx, `SELECT id, portfolio_id, fund_id FROM holding WHERE portfolio_id = ?`, portfolioID)
}

// ListByPortfolios retrieves the holdings of multiple portfolios in one query.
func (r *HoldingRepository) ListByPortfolios(ctx context.Context, portfolioIDs []string) ([]model.Holding, error) {
	if len(portfolioIDs) == 0 {
		return []model.Holding{}, nil
	}
	query := `SELECT id, portfolio_id, fund_id FROM holding WHERE portfolio_id IN (` + placeholders(len(portfolioIDs)) + `)`
	return r.list(ctx, query, stringArgs(portfolioIDs)...)
}

// ListByFund retrieves all holdings of one fund across portfolios.
func (r *HoldingRepository) ListByFund(ctx context.Context, fundID string) ([]model.Holding, error) {
	return r.list(ctx, `SELECT id, portfolio_id, fund_id FROM holding WHERE fund_id = ?`, fundID)
}

func (r *HoldingRepository) list(ctx context.Context, query string, args ...any) ([]model.Holding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}
	for rows.Next() {
		var h model.Holding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.FundID); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// Insert writes a new holding row.
func (r *HoldingRepository) Insert(ctx context.Context, h *model.Holding) error {
	query := `INSERT INTO holding (id, portfolio_id, fund_id) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, h.ID, h.PortfolioID, h.FundID)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	return nil
}

// Delete removes a holding and, via cascade, its transactions and dividends.
func (r *HoldingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holding WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrHoldingNotFound
	}
	return nil
}
