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

// DividendService handles dividend bookkeeping. A dividend on an accumulating
// fund starts pending and is completed by a reinvestment: a linked buy-back
// transaction that adds the purchased shares to the position. Distributing
// funds pay out cash and need no follow-up.
type DividendService struct {
	db              *sql.DB
	dividendRepo    *repository.DividendRepository
	holdingRepo     *repository.HoldingRepository
	fundRepo        *repository.FundRepository
	transactionRepo *repository.TransactionRepository
	snapshotRepo    *repository.SnapshotRepository
	gainRepo        *repository.RealizedGainRepository
	realizedGainSvc *RealizedGainService
}

// NewDividendService creates a new DividendService.
func NewDividendService(
	db *sql.DB,
	dividendRepo *repository.DividendRepository,
	holdingRepo *repository.HoldingRepository,
	fundRepo *repository.FundRepository,
	transactionRepo *repository.TransactionRepository,
	snapshotRepo *repository.SnapshotRepository,
	gainRepo *repository.RealizedGainRepository,
	realizedGainSvc *RealizedGainService,
) *DividendService {
	return &DividendService{
		db:              db,
		dividendRepo:    dividendRepo,
		holdingRepo:     holdingRepo,
		fundRepo:        fundRepo,
		transactionRepo: transactionRepo,
		snapshotRepo:    snapshotRepo,
		gainRepo:        gainRepo,
		realizedGainSvc: realizedGainSvc,
	}
}

// ListByFund retrieves the dividends of one fund.
func (s *DividendService) ListByFund(ctx context.Context, fundID string) ([]model.DividendDetail, error) {
	if _, err := s.fundRepo.Get(ctx, fundID); err != nil {
		return nil, err
	}
	return s.dividendRepo.ListDetailsByFund(ctx, fundID)
}

// ListByPortfolio retrieves the dividends across one portfolio's holdings.
func (s *DividendService) ListByPortfolio(ctx context.Context, portfolioID string) ([]model.DividendDetail, error) {
	return s.dividendRepo.ListDetailsByPortfolio(ctx, portfolioID)
}

// Reinvestment describes the buy-back completing a reinvested dividend.
type Reinvestment struct {
	BuyOrderDate time.Time
	Shares       float64
	CostPerShare float64
}

// Create records a dividend payment. SharesOwned defaults to the position on
// the record date and TotalAmount to shares x per-share. For an accumulating
// fund a reinvestment may be supplied immediately; otherwise the dividend
// stays pending until completed via Update.
func (s *DividendService) Create(ctx context.Context, d model.Dividend, reinvest *Reinvestment) (model.Dividend, error) {
	holding, err := s.holdingRepo.Get(ctx, d.HoldingID)
	if err != nil {
		return model.Dividend{}, err
	}
	fund, err := s.fundRepo.Get(ctx, holding.FundID)
	if err != nil {
		return model.Dividend{}, err
	}

	d.ID = uuid.NewString()
	d.FundID = holding.FundID
	d.RecordDate = dateOnly(d.RecordDate)
	d.ExDividendDate = dateOnly(d.ExDividendDate)
	d.CreatedAt = time.Now().UTC()

	if d.SharesOwned == 0 {
		history, err := s.transactionRepo.GetForHolding(ctx, d.HoldingID)
		if err != nil {
			return model.Dividend{}, err
		}
		pos, err := position.Replay(history, d.RecordDate)
		if err != nil {
			return model.Dividend{}, err
		}
		d.SharesOwned = pos.Shares
	}
	if d.TotalAmount == 0 {
		d.TotalAmount = round(d.SharesOwned * d.DividendPerShare)
	}

	if fund.DividendType == "distributing" {
		d.ReinvestmentStatus = model.ReinvestmentPaidOut
	} else {
		d.ReinvestmentStatus = model.ReinvestmentPending
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if reinvest != nil {
			if err := s.applyReinvestment(ctx, tx, holding, &d, *reinvest); err != nil {
				return err
			}
		}

		if err := s.dividendRepo.WithTx(tx).Insert(ctx, &d); err != nil {
			return err
		}

		return s.snapshotRepo.WithTx(tx).InvalidateFrom(ctx, holding.PortfolioID, d.ExDividendDate)
	})
	if err != nil {
		return model.Dividend{}, err
	}

	return d, nil
}

// Update rewrites a dividend's fields and may complete a pending dividend
// with a reinvestment.
func (s *DividendService) Update(ctx context.Context, d model.Dividend, reinvest *Reinvestment) (model.Dividend, error) {
	existing, err := s.dividendRepo.Get(ctx, d.ID)
	if err != nil {
		return model.Dividend{}, err
	}

	holding, err := s.holdingRepo.Get(ctx, existing.HoldingID)
	if err != nil {
		return model.Dividend{}, err
	}

	d.FundID = existing.FundID
	d.HoldingID = existing.HoldingID
	d.RecordDate = dateOnly(d.RecordDate)
	d.ExDividendDate = dateOnly(d.ExDividendDate)
	d.ReinvestmentStatus = existing.ReinvestmentStatus
	d.ReinvestmentTransactionID = existing.ReinvestmentTransactionID
	d.BuyOrderDate = existing.BuyOrderDate
	d.CreatedAt = existing.CreatedAt
	if d.TotalAmount == 0 {
		d.TotalAmount = round(d.SharesOwned * d.DividendPerShare)
	}

	earliest := d.ExDividendDate
	if existing.ExDividendDate.Before(earliest) {
		earliest = existing.ExDividendDate
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if reinvest != nil && existing.ReinvestmentTransactionID == "" {
			if err := s.applyReinvestment(ctx, tx, holding, &d, *reinvest); err != nil {
				return err
			}
		}

		if err := s.dividendRepo.WithTx(tx).Update(ctx, &d); err != nil {
			return err
		}

		return s.snapshotRepo.WithTx(tx).InvalidateFrom(ctx, holding.PortfolioID, earliest)
	})
	if err != nil {
		return model.Dividend{}, err
	}

	return d, nil
}

// Delete removes a dividend. A linked reinvestment transaction is removed
// with it, and the holding's realized gains are rebuilt without it.
func (s *DividendService) Delete(ctx context.Context, id string) error {
	existing, err := s.dividendRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	holding, err := s.holdingRepo.Get(ctx, existing.HoldingID)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		txRepo := s.transactionRepo.WithTx(tx)

		if err := s.dividendRepo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}

		if existing.ReinvestmentTransactionID != "" {
			if err := txRepo.Delete(ctx, existing.ReinvestmentTransactionID); err != nil {
				return err
			}

			history, err := txRepo.GetForHolding(ctx, holding.ID)
			if err != nil {
				return err
			}
			if err := position.Validate(history); err != nil {
				return err
			}
			if err := s.realizedGainSvc.Rebuild(ctx, s.gainRepo.WithTx(tx), holding, history); err != nil {
				return err
			}
		}

		return s.snapshotRepo.WithTx(tx).InvalidateFrom(ctx, holding.PortfolioID, existing.ExDividendDate)
	})
}

// applyReinvestment creates the buy-back transaction for a dividend and marks
// the dividend reinvested. Runs inside the caller's database transaction.
func (s *DividendService) applyReinvestment(ctx context.Context, tx *sql.Tx, holding model.Holding, d *model.Dividend, reinvest Reinvestment) error {
	txRepo := s.transactionRepo.WithTx(tx)

	buyBack := model.Transaction{
		ID:           uuid.NewString(),
		HoldingID:    holding.ID,
		Date:         dateOnly(reinvest.BuyOrderDate),
		Type:         model.TransactionDividend,
		Shares:       reinvest.Shares,
		CostPerShare: reinvest.CostPerShare,
		CreatedAt:    time.Now().UTC(),
	}

	history, err := txRepo.GetForHolding(ctx, holding.ID)
	if err != nil {
		return err
	}
	if err := position.Validate(append(history, buyBack)); err != nil {
		return err
	}

	if err := txRepo.Insert(ctx, &buyBack); err != nil {
		return err
	}

	if err := s.realizedGainSvc.Rebuild(ctx, s.gainRepo.WithTx(tx), holding, append(history, buyBack)); err != nil {
		return err
	}

	d.ReinvestmentStatus = model.ReinvestmentReinvested
	d.ReinvestmentTransactionID = buyBack.ID
	d.BuyOrderDate = buyBack.Date
	return nil
}

func (s *DividendService) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
