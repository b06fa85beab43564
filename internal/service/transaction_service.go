package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/position"
	"github.com/jmolenaar/fundtracker/internal/repository"
)

// TransactionService handles transaction mutations. Every write runs in one
// database transaction that also validates the resulting history, rebuilds
// the holding's realized gain records, and invalidates cached snapshots from
// the earliest affected date. Either all of that lands or none of it does.
type TransactionService struct {
	db              *sql.DB
	transactionRepo *repository.TransactionRepository
	holdingRepo     *repository.HoldingRepository
	snapshotRepo    *repository.SnapshotRepository
	gainRepo        *repository.RealizedGainRepository
	realizedGainSvc *RealizedGainService
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(
	db *sql.DB,
	transactionRepo *repository.TransactionRepository,
	holdingRepo *repository.HoldingRepository,
	snapshotRepo *repository.SnapshotRepository,
	gainRepo *repository.RealizedGainRepository,
	realizedGainSvc *RealizedGainService,
) *TransactionService {
	return &TransactionService{
		db:              db,
		transactionRepo: transactionRepo,
		holdingRepo:     holdingRepo,
		snapshotRepo:    snapshotRepo,
		gainRepo:        gainRepo,
		realizedGainSvc: realizedGainSvc,
	}
}

// List retrieves enriched transactions, optionally filtered to one portfolio.
func (s *TransactionService) List(ctx context.Context, portfolioID string) ([]model.TransactionDetail, error) {
	return s.transactionRepo.ListDetails(ctx, portfolioID)
}

// Get retrieves one enriched transaction.
func (s *TransactionService) Get(ctx context.Context, id string) (model.TransactionDetail, error) {
	return s.transactionRepo.GetDetail(ctx, id)
}

// Create validates and stores a new transaction. A sell is rejected when the
// holding does not own enough shares on the transaction date.
func (s *TransactionService) Create(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	holding, err := s.holdingRepo.Get(ctx, t.HoldingID)
	if err != nil {
		return model.Transaction{}, err
	}

	t.ID = uuid.NewString()
	t.Date = dateOnly(t.Date)
	t.CreatedAt = time.Now().UTC()

	err = s.inTx(ctx, func(txRepo *repository.TransactionRepository, gainRepo *repository.RealizedGainRepository, snapRepo *repository.SnapshotRepository) error {
		history, err := txRepo.GetForHolding(ctx, t.HoldingID)
		if err != nil {
			return err
		}

		if err := position.Validate(append(history, t)); err != nil {
			return err
		}

		if err := txRepo.Insert(ctx, &t); err != nil {
			return err
		}

		if err := s.realizedGainSvc.Rebuild(ctx, gainRepo, holding, append(history, t)); err != nil {
			return err
		}

		return snapRepo.InvalidateFrom(ctx, holding.PortfolioID, t.Date)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	return t, nil
}

// Update rewrites a transaction. The whole history is re-validated with the
// new values in place: shrinking an old buy must not retroactively starve a
// later sell. Snapshots are dropped from the earlier of the old and new date.
func (s *TransactionService) Update(ctx context.Context, t model.Transaction) (model.Transaction, error) {
	existing, err := s.transactionRepo.Get(ctx, t.ID)
	if err != nil {
		return model.Transaction{}, err
	}

	// The holding a transaction belongs to is fixed at creation.
	t.HoldingID = existing.HoldingID
	t.Date = dateOnly(t.Date)
	t.CreatedAt = existing.CreatedAt

	holding, err := s.holdingRepo.Get(ctx, t.HoldingID)
	if err != nil {
		return model.Transaction{}, err
	}

	earliest := t.Date
	if existing.Date.Before(earliest) {
		earliest = existing.Date
	}

	err = s.inTx(ctx, func(txRepo *repository.TransactionRepository, gainRepo *repository.RealizedGainRepository, snapRepo *repository.SnapshotRepository) error {
		history, err := txRepo.GetForHolding(ctx, t.HoldingID)
		if err != nil {
			return err
		}

		modified := make([]model.Transaction, 0, len(history))
		for _, h := range history {
			if h.ID == t.ID {
				modified = append(modified, t)
			} else {
				modified = append(modified, h)
			}
		}

		if err := position.Validate(modified); err != nil {
			return err
		}

		if err := txRepo.Update(ctx, &t); err != nil {
			return err
		}

		if err := s.realizedGainSvc.Rebuild(ctx, gainRepo, holding, modified); err != nil {
			return err
		}

		return snapRepo.InvalidateFrom(ctx, holding.PortfolioID, earliest)
	})
	if err != nil {
		return model.Transaction{}, err
	}

	return t, nil
}

// Delete removes a transaction, rebuilds the holding's realized gains without
// it, and invalidates snapshots from its date.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	existing, err := s.transactionRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	holding, err := s.holdingRepo.Get(ctx, existing.HoldingID)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(txRepo *repository.TransactionRepository, gainRepo *repository.RealizedGainRepository, snapRepo *repository.SnapshotRepository) error {
		history, err := txRepo.GetForHolding(ctx, existing.HoldingID)
		if err != nil {
			return err
		}

		remaining := make([]model.Transaction, 0, len(history))
		for _, h := range history {
			if h.ID != id {
				remaining = append(remaining, h)
			}
		}

		if err := position.Validate(remaining); err != nil {
			return err
		}

		if err := txRepo.Delete(ctx, id); err != nil {
			return err
		}

		if err := s.realizedGainSvc.Rebuild(ctx, gainRepo, holding, remaining); err != nil {
			return err
		}

		return snapRepo.InvalidateFrom(ctx, holding.PortfolioID, existing.Date)
	})
}

// inTx runs fn with transaction-scoped repositories, committing on success.
func (s *TransactionService) inTx(ctx context.Context, fn func(*repository.TransactionRepository, *repository.RealizedGainRepository, *repository.SnapshotRepository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	err = fn(
		s.transactionRepo.WithTx(tx),
		s.gainRepo.WithTx(tx),
		s.snapshotRepo.WithTx(tx),
	)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
