package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
)

// PortfolioRepository provides data access for the portfolio table.
type PortfolioRepository struct {
	db DBTX
}

// NewPortfolioRepository creates a new PortfolioRepository.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// List retrieves portfolios matching the filter, sorted by name.
func (r *PortfolioRepository) List(ctx context.Context, filter model.PortfolioFilter) ([]model.Portfolio, error) {
	query := `
		SELECT id, name, description, is_archived, exclude_from_overview
		FROM portfolio
		WHERE 1=1
	`
	if !filter.IncludeArchived {
		query += ` AND is_archived = FALSE`
	}
	if !filter.IncludeExcluded {
		query += ` AND exclude_from_overview = FALSE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}
	for rows.Next() {
		var p model.Portfolio
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.IsArchived, &p.ExcludeFromOverview); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		p.Description = description.String
		portfolios = append(portfolios, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}

	return portfolios, nil
}

// Get retrieves one portfolio by ID.
func (r *PortfolioRepository) Get(ctx context.Context, id string) (model.Portfolio, error) {
	query := `
		SELECT id, name, description, is_archived, exclude_from_overview
		FROM portfolio
		WHERE id = ?
	`

	var p model.Portfolio
	var description sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &description, &p.IsArchived, &p.ExcludeFromOverview,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to scan portfolio: %w", err)
	}

	p.Description = description.String
	return p, nil
}

// Insert writes a new portfolio row.
func (r *PortfolioRepository) Insert(ctx context.Context, p *model.Portfolio) error {
	query := `
		INSERT INTO portfolio (id, name, description, is_archived, exclude_from_overview)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.IsArchived, p.ExcludeFromOverview)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	return nil
}

// Update rewrites a portfolio row.
func (r *PortfolioRepository) Update(ctx context.Context, p *model.Portfolio) error {
	query := `
		UPDATE portfolio
		SET name = ?, description = ?, is_archived = ?, exclude_from_overview = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, p.Name, p.Description, p.IsArchived, p.ExcludeFromOverview, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrPortfolioNotFound
	}
	return nil
}

// Archive marks a portfolio archived without deleting its history.
func (r *PortfolioRepository) Archive(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE portfolio SET is_archived = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to archive portfolio: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check archive result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrPortfolioNotFound
	}
	return nil
}

// Delete removes a portfolio. Holdings, transactions, dividends and snapshots
// cascade via foreign keys.
func (r *PortfolioRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM portfolio WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrPortfolioNotFound
	}
	return nil
}
