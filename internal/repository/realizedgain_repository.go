package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmolenaar/fundtracker/internal/model"
)

// RealizedGainRepository provides data access for the realized_gain table.
type RealizedGainRepository struct {
	db DBTX
}

// NewRealizedGainRepository creates a new RealizedGainRepository.
func NewRealizedGainRepository(db *sql.DB) *RealizedGainRepository {
	return &RealizedGainRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *RealizedGainRepository) WithTx(tx *sql.Tx) *RealizedGainRepository {
	return &RealizedGainRepository{db: tx}
}

// Insert writes a new realized gain record.
func (r *RealizedGainRepository) Insert(ctx context.Context, g *model.RealizedGain) error {
	query := `
		INSERT INTO realized_gain (id, portfolio_id, fund_id, transaction_id,
			transaction_date, shares_sold, cost_basis, sale_proceeds, gain_loss, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.PortfolioID, g.FundID, g.TransactionID,
		g.TransactionDate.Format("2006-01-02"),
		g.SharesSold, g.CostBasis, g.SaleProceeds, g.GainLoss,
		g.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert realized gain: %w", err)
	}
	return nil
}

// DeleteForHolding removes all realized gain records whose sell transaction
// belongs to the given holding. Used before a full rebuild of the holding's
// gain history.
func (r *RealizedGainRepository) DeleteForHolding(ctx context.Context, holdingID string) error {
	query := `
		DELETE FROM realized_gain
		WHERE transaction_id IN (
			SELECT id FROM "transaction" WHERE holding_id = ?
		)
	`

	_, err := r.db.ExecContext(ctx, query, holdingID)
	if err != nil {
		return fmt.Errorf("failed to delete realized gains: %w", err)
	}
	return nil
}

// SumByPortfolios aggregates realized gains per portfolio up to the given
// date: total gain, proceeds and sold cost basis.
func (r *RealizedGainRepository) SumByPortfolios(ctx context.Context, portfolioIDs []string, asOf time.Time) (map[string]model.RealizedSums, error) {
	if len(portfolioIDs) == 0 {
		return make(map[string]model.RealizedSums), nil
	}

	query := `
		SELECT portfolio_id, COALESCE(SUM(gain_loss), 0), COALESCE(SUM(sale_proceeds), 0),
			COALESCE(SUM(cost_basis), 0)
		FROM realized_gain
		WHERE portfolio_id IN (` + placeholders(len(portfolioIDs)) + `)
		AND transaction_date <= ?
		GROUP BY portfolio_id
	`

	args := stringArgs(portfolioIDs)
	args = append(args, asOf.Format("2006-01-02"))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_gain table: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]model.RealizedSums)
	for rows.Next() {
		var portfolioID string
		var s model.RealizedSums
		if err := rows.Scan(&portfolioID, &s.GainLoss, &s.SaleProceeds, &s.CostBasis); err != nil {
			return nil, fmt.Errorf("failed to scan realized gain sums: %w", err)
		}
		sums[portfolioID] = s
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized_gain table: %w", err)
	}

	return sums, nil
}

// ListByHolding retrieves the realized gain records of one holding's sells,
// ordered by transaction date.
func (r *RealizedGainRepository) ListByHolding(ctx context.Context, holdingID string) ([]model.RealizedGain, error) {
	query := `
		SELECT g.id, g.portfolio_id, g.fund_id, g.transaction_id, g.transaction_date,
			g.shares_sold, g.cost_basis, g.sale_proceeds, g.gain_loss, g.created_at
		FROM realized_gain g
		JOIN "transaction" t ON g.transaction_id = t.id
		WHERE t.holding_id = ?
		ORDER BY g.transaction_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, holdingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_gain table: %w", err)
	}
	defer rows.Close()

	gains := []model.RealizedGain{}
	for rows.Next() {
		var g model.RealizedGain
		var dateStr, createdStr string
		err := rows.Scan(
			&g.ID, &g.PortfolioID, &g.FundID, &g.TransactionID, &dateStr,
			&g.SharesSold, &g.CostBasis, &g.SaleProceeds, &g.GainLoss, &createdStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan realized gain: %w", err)
		}
		if g.TransactionDate, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		if g.CreatedAt, err = ParseTime(createdStr); err != nil {
			return nil, err
		}
		gains = append(gains, g)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized_gain table: %w", err)
	}

	return gains, nil
}
