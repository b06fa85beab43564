package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmolenaar/fundtracker/internal/model"
)

// SnapshotRepository provides data access for the snapshot cache tables.
// Snapshots are derived data: every method here either reads the cache,
// extends it, or throws part of it away.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *SnapshotRepository) WithTx(tx *sql.Tx) *SnapshotRepository {
	return &SnapshotRepository{db: tx}
}

// GetPortfolioRange streams the cached portfolio snapshots for one portfolio
// within the date range, oldest first.
func (r *SnapshotRepository) GetPortfolioRange(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]model.PortfolioSnapshot, error) {
	query := `
		SELECT id, portfolio_id, date, value, cost, realized_gain, unrealized_gain,
			total_dividends, sale_proceeds, sold_cost_basis, total_gain_loss,
			is_archived, calculated_at
		FROM portfolio_snapshot
		WHERE portfolio_id = ?
		AND date >= ?
		AND date <= ?
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query,
		portfolioID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio_snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.PortfolioSnapshot{}
	for rows.Next() {
		var s model.PortfolioSnapshot
		var dateStr, calcStr string
		err := rows.Scan(
			&s.ID, &s.PortfolioID, &dateStr, &s.Value, &s.Cost, &s.RealizedGain,
			&s.UnrealizedGain, &s.TotalDividends, &s.SaleProceeds, &s.SoldCostBasis,
			&s.TotalGainLoss, &s.IsArchived, &calcStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio snapshot: %w", err)
		}
		if s.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		if s.CalculatedAt, err = ParseTime(calcStr); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio_snapshot table: %w", err)
	}

	return snapshots, nil
}

// GetHoldingRange streams the cached per-holding snapshots of one portfolio
// within the date range, oldest first, enriched with fund names.
func (r *SnapshotRepository) GetHoldingRange(ctx context.Context, portfolioID string, startDate, endDate time.Time) ([]model.HoldingHistoryEntry, error) {
	query := `
		SELECT s.holding_id, s.fund_id, f.name, s.date, s.shares, s.price, s.value,
			s.cost, s.realized_gain, s.unrealized_gain, s.total_gain_loss,
			s.dividends, s.fees
		FROM holding_snapshot s
		JOIN holding h ON s.holding_id = h.id
		JOIN fund f ON s.fund_id = f.id
		WHERE h.portfolio_id = ?
		AND s.date >= ?
		AND s.date <= ?
		ORDER BY s.date ASC, f.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query,
		portfolioID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query holding_snapshot table: %w", err)
	}
	defer rows.Close()

	entries := []model.HoldingHistoryEntry{}
	for rows.Next() {
		var e model.HoldingHistoryEntry
		var dateStr string
		err := rows.Scan(
			&e.HoldingID, &e.FundID, &e.FundName, &dateStr, &e.Shares, &e.Price,
			&e.Value, &e.Cost, &e.RealizedGain, &e.UnrealizedGain, &e.TotalGainLoss,
			&e.Dividends, &e.Fees,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding snapshot: %w", err)
		}
		if e.Date, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding_snapshot table: %w", err)
	}

	return entries, nil
}

// LatestPortfolioDate returns the most recent cached snapshot date for a
// portfolio, or the zero time when nothing is cached.
func (r *SnapshotRepository) LatestPortfolioDate(ctx context.Context, portfolioID string) (time.Time, error) {
	var dateStr sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM portfolio_snapshot WHERE portfolio_id = ?`, portfolioID,
	).Scan(&dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest snapshot date: %w", err)
	}
	if !dateStr.Valid {
		return time.Time{}, nil
	}
	return ParseTime(dateStr.String)
}

// InsertPortfolioSnapshots bulk-inserts cached portfolio valuations,
// replacing any existing rows for the same portfolio and date.
func (r *SnapshotRepository) InsertPortfolioSnapshots(ctx context.Context, snapshots []model.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	query := `
		INSERT INTO portfolio_snapshot (id, portfolio_id, date, value, cost,
			realized_gain, unrealized_gain, total_dividends, sale_proceeds,
			sold_cost_basis, total_gain_loss, is_archived, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			value = excluded.value,
			cost = excluded.cost,
			realized_gain = excluded.realized_gain,
			unrealized_gain = excluded.unrealized_gain,
			total_dividends = excluded.total_dividends,
			sale_proceeds = excluded.sale_proceeds,
			sold_cost_basis = excluded.sold_cost_basis,
			total_gain_loss = excluded.total_gain_loss,
			is_archived = excluded.is_archived,
			calculated_at = excluded.calculated_at
	`

	for i := range snapshots {
		s := &snapshots[i]
		_, err := r.db.ExecContext(ctx, query,
			s.ID, s.PortfolioID, s.Date.Format("2006-01-02"),
			s.Value, s.Cost, s.RealizedGain, s.UnrealizedGain, s.TotalDividends,
			s.SaleProceeds, s.SoldCostBasis, s.TotalGainLoss, s.IsArchived,
			s.CalculatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert portfolio snapshot: %w", err)
		}
	}
	return nil
}

// InsertHoldingSnapshots bulk-inserts cached per-holding valuations,
// replacing any existing rows for the same holding and date.
func (r *SnapshotRepository) InsertHoldingSnapshots(ctx context.Context, entries []model.HoldingHistoryEntry, ids []string, calculatedAt time.Time) error {
	if len(entries) == 0 {
		return nil
	}
	if len(ids) != len(entries) {
		return fmt.Errorf("snapshot id count mismatch: %d ids for %d entries", len(ids), len(entries))
	}

	query := `
		INSERT INTO holding_snapshot (id, holding_id, fund_id, date, shares, price,
			value, cost, realized_gain, unrealized_gain, total_gain_loss,
			dividends, fees, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (holding_id, date) DO UPDATE SET
			shares = excluded.shares,
			price = excluded.price,
			value = excluded.value,
			cost = excluded.cost,
			realized_gain = excluded.realized_gain,
			unrealized_gain = excluded.unrealized_gain,
			total_gain_loss = excluded.total_gain_loss,
			dividends = excluded.dividends,
			fees = excluded.fees,
			calculated_at = excluded.calculated_at
	`

	calc := calculatedAt.UTC().Format(time.RFC3339)
	for i := range entries {
		e := &entries[i]
		_, err := r.db.ExecContext(ctx, query,
			ids[i], e.HoldingID, e.FundID, e.Date.Format("2006-01-02"),
			e.Shares, e.Price, e.Value, e.Cost, e.RealizedGain, e.UnrealizedGain,
			e.TotalGainLoss, e.Dividends, e.Fees, calc,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding snapshot: %w", err)
		}
	}
	return nil
}

// InvalidateFrom deletes all cached snapshots of one portfolio from the given
// date onward. Called whenever a transaction, dividend or price behind those
// dates changes.
func (r *SnapshotRepository) InvalidateFrom(ctx context.Context, portfolioID string, from time.Time) error {
	fromStr := from.Format("2006-01-02")

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM portfolio_snapshot WHERE portfolio_id = ? AND date >= ?`,
		portfolioID, fromStr,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate portfolio snapshots: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		DELETE FROM holding_snapshot
		WHERE date >= ?
		AND holding_id IN (SELECT id FROM holding WHERE portfolio_id = ?)
	`, fromStr, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to invalidate holding snapshots: %w", err)
	}

	return nil
}

// InvalidateFundFrom deletes cached snapshots from the given date onward for
// every portfolio holding the fund. Used when a price row changes.
func (r *SnapshotRepository) InvalidateFundFrom(ctx context.Context, fundID string, from time.Time) error {
	fromStr := from.Format("2006-01-02")

	_, err := r.db.ExecContext(ctx, `
		DELETE FROM portfolio_snapshot
		WHERE date >= ?
		AND portfolio_id IN (SELECT portfolio_id FROM holding WHERE fund_id = ?)
	`, fromStr, fundID)
	if err != nil {
		return fmt.Errorf("failed to invalidate portfolio snapshots: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		DELETE FROM holding_snapshot
		WHERE date >= ?
		AND holding_id IN (SELECT id FROM holding WHERE fund_id = ?)
	`, fromStr, fundID)
	if err != nil {
		return fmt.Errorf("failed to invalidate holding snapshots: %w", err)
	}

	return nil
}
