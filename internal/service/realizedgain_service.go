package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/position"
	"github.com/jmolenaar/fundtracker/internal/repository"
)

// RealizedGainService maintains the persisted per-sale gain records. A sale's
// cost basis depends on every transaction before it, so the records of a
// holding are never patched in place: any mutation throws them all away and
// rebuilds from a full replay.
type RealizedGainService struct {
	gainRepo *repository.RealizedGainRepository
}

// NewRealizedGainService creates a new RealizedGainService.
func NewRealizedGainService(gainRepo *repository.RealizedGainRepository) *RealizedGainService {
	return &RealizedGainService{gainRepo: gainRepo}
}

// ListByHolding retrieves the gain records of one holding's sells.
func (s *RealizedGainService) ListByHolding(ctx context.Context, holdingID string) ([]model.RealizedGain, error) {
	return s.gainRepo.ListByHolding(ctx, holdingID)
}

// Rebuild deletes and recreates the gain records of one holding from the
// given transaction history. The repositories passed in are expected to be
// scoped to the caller's database transaction so the swap is atomic with the
// mutation that triggered it.
func (s *RealizedGainService) Rebuild(
	ctx context.Context,
	gainRepo *repository.RealizedGainRepository,
	holding model.Holding,
	txs []model.Transaction,
) error {
	if err := gainRepo.DeleteForHolding(ctx, holding.ID); err != nil {
		return err
	}

	sorted := make([]model.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	now := time.Now().UTC()
	var pos position.Position

	for _, t := range sorted {
		next, sale, err := pos.Apply(t)
		if err != nil {
			return err
		}

		if t.Type == model.TransactionSell {
			record := model.RealizedGain{
				ID:              uuid.NewString(),
				PortfolioID:     holding.PortfolioID,
				FundID:          holding.FundID,
				TransactionID:   t.ID,
				TransactionDate: t.Date,
				SharesSold:      sale.SharesSold,
				CostBasis:       round(sale.CostBasis),
				SaleProceeds:    round(sale.SaleProceeds),
				GainLoss:        round(sale.GainLoss),
				CreatedAt:       now,
			}
			if err := gainRepo.Insert(ctx, &record); err != nil {
				return err
			}
		}

		pos = next
	}

	return nil
}
