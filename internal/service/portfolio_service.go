package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/position"
	"github.com/jmolenaar/fundtracker/internal/repository"
)

// PortfolioService handles portfolio CRUD and current-state valuation.
type PortfolioService struct {
	portfolioRepo    *repository.PortfolioRepository
	holdingRepo      *repository.HoldingRepository
	fundRepo         *repository.FundRepository
	realizedGainRepo *repository.RealizedGainRepository
	snapshotRepo     *repository.SnapshotRepository
	loader           *DataLoader
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
	fundRepo *repository.FundRepository,
	realizedGainRepo *repository.RealizedGainRepository,
	snapshotRepo *repository.SnapshotRepository,
	loader *DataLoader,
) *PortfolioService {
	return &PortfolioService{
		portfolioRepo:    portfolioRepo,
		holdingRepo:      holdingRepo,
		fundRepo:         fundRepo,
		realizedGainRepo: realizedGainRepo,
		snapshotRepo:     snapshotRepo,
		loader:           loader,
	}
}

// List retrieves portfolios matching the filter.
func (s *PortfolioService) List(ctx context.Context, filter model.PortfolioFilter) ([]model.Portfolio, error) {
	return s.portfolioRepo.List(ctx, filter)
}

// Get retrieves one portfolio.
func (s *PortfolioService) Get(ctx context.Context, id string) (model.Portfolio, error) {
	return s.portfolioRepo.Get(ctx, id)
}

// Create stores a new portfolio.
func (s *PortfolioService) Create(ctx context.Context, p model.Portfolio) (model.Portfolio, error) {
	p.ID = uuid.NewString()
	if err := s.portfolioRepo.Insert(ctx, &p); err != nil {
		return model.Portfolio{}, err
	}
	return p, nil
}

// Update rewrites a portfolio's fields.
func (s *PortfolioService) Update(ctx context.Context, p model.Portfolio) (model.Portfolio, error) {
	if err := s.portfolioRepo.Update(ctx, &p); err != nil {
		return model.Portfolio{}, err
	}
	return s.portfolioRepo.Get(ctx, p.ID)
}

// Archive marks a portfolio archived, keeping its history intact.
func (s *PortfolioService) Archive(ctx context.Context, id string) error {
	return s.portfolioRepo.Archive(ctx, id)
}

// Delete removes a portfolio and all dependent data.
func (s *PortfolioService) Delete(ctx context.Context, id string) error {
	return s.portfolioRepo.Delete(ctx, id)
}

// Summaries values every portfolio matching the filter as of today.
func (s *PortfolioService) Summaries(ctx context.Context, filter model.PortfolioFilter) ([]model.PortfolioSummary, error) {
	portfolios, err := s.portfolioRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(portfolios) == 0 {
		return []model.PortfolioSummary{}, nil
	}

	ids := make([]string, len(portfolios))
	for i, p := range portfolios {
		ids[i] = p.ID
	}

	today := dateOnly(time.Now().UTC())
	data, err := s.loader.load(ctx, ids, today)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.PortfolioSummary, 0, len(portfolios))
	for _, p := range portfolios {
		summary, err := summarize(p, data, today)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// Summary values one portfolio as of today.
func (s *PortfolioService) Summary(ctx context.Context, id string) (model.PortfolioSummary, error) {
	portfolio, err := s.portfolioRepo.Get(ctx, id)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	today := dateOnly(time.Now().UTC())
	data, err := s.loader.load(ctx, []string{id}, today)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	return summarize(portfolio, data, today)
}

// summarize folds the loaded data of one portfolio into a summary. Realized
// figures come from the persisted realized gain records rather than replay;
// the two agree because every mutation rebuilds the records.
func summarize(p model.Portfolio, data portfolioData, asOf time.Time) (model.PortfolioSummary, error) {
	summary := model.PortfolioSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		IsArchived:  p.IsArchived,
	}

	for _, h := range data.Holdings[p.ID] {
		pos, err := position.Replay(data.Transactions[h.ID], asOf)
		if err != nil {
			return model.PortfolioSummary{}, err
		}

		var value float64
		if prices := data.Prices[h.FundID]; len(prices) > 0 {
			value = pos.Shares * prices[len(prices)-1].Price
		}

		summary.TotalValue += value
		summary.TotalCost += pos.Cost

		for _, d := range data.Dividends[h.ID] {
			summary.TotalDividends += d.TotalAmount
		}
	}

	sums := data.RealizedSums[p.ID]
	summary.RealizedGain = round(sums.GainLoss)
	summary.SaleProceeds = round(sums.SaleProceeds)
	summary.SoldCostBasis = round(sums.CostBasis)

	summary.TotalValue = round(summary.TotalValue)
	summary.TotalCost = round(summary.TotalCost)
	summary.TotalDividends = round(summary.TotalDividends)
	summary.UnrealizedGain = round(summary.TotalValue - summary.TotalCost)
	summary.TotalGainLoss = round(summary.RealizedGain + summary.UnrealizedGain)

	return summary, nil
}

// Holdings values each holding of one portfolio as of today.
func (s *PortfolioService) Holdings(ctx context.Context, portfolioID string) ([]model.HoldingDetail, error) {
	if _, err := s.portfolioRepo.Get(ctx, portfolioID); err != nil {
		return nil, err
	}

	today := dateOnly(time.Now().UTC())
	data, err := s.loader.load(ctx, []string{portfolioID}, today)
	if err != nil {
		return nil, err
	}

	details := []model.HoldingDetail{}
	for _, h := range data.Holdings[portfolioID] {
		pos, err := position.Replay(data.Transactions[h.ID], today)
		if err != nil {
			return nil, err
		}

		fund := data.Funds[h.FundID]
		detail := model.HoldingDetail{
			ID:          h.ID,
			PortfolioID: h.PortfolioID,
			FundID:      h.FundID,
			FundName:    fund.Name,
			FundSymbol:  fund.Symbol,
			TotalShares: pos.Shares,
			AverageCost: round(pos.AverageCost()),
			TotalCost:   round(pos.Cost),
			TotalFees:   round(position.Fees(data.Transactions[h.ID], today)),
		}

		if prices := data.Prices[h.FundID]; len(prices) > 0 {
			detail.LatestPrice = prices[len(prices)-1].Price
			detail.CurrentValue = round(pos.Shares * detail.LatestPrice)
		}

		for _, d := range data.Dividends[h.ID] {
			detail.TotalDividends += d.TotalAmount
		}
		detail.TotalDividends = round(detail.TotalDividends)

		gains, err := s.realizedGainRepo.ListByHolding(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		for _, g := range gains {
			detail.RealizedGain += g.GainLoss
		}
		detail.RealizedGain = round(detail.RealizedGain)

		detail.UnrealizedGain = round(detail.CurrentValue - detail.TotalCost)
		detail.TotalGainLoss = round(detail.RealizedGain + detail.UnrealizedGain)

		details = append(details, detail)
	}

	return details, nil
}

// AddHolding links a fund into a portfolio. Each fund can appear only once
// per portfolio.
func (s *PortfolioService) AddHolding(ctx context.Context, portfolioID, fundID string) (model.Holding, error) {
	if _, err := s.portfolioRepo.Get(ctx, portfolioID); err != nil {
		return model.Holding{}, err
	}
	if _, err := s.fundRepo.Get(ctx, fundID); err != nil {
		return model.Holding{}, err
	}

	if _, err := s.holdingRepo.GetByPortfolioAndFund(ctx, portfolioID, fundID); err == nil {
		return model.Holding{}, apperrors.ErrDuplicateEntry
	} else if !errors.Is(err, apperrors.ErrHoldingNotFound) {
		return model.Holding{}, err
	}

	holding := model.Holding{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		FundID:      fundID,
	}
	if err := s.holdingRepo.Insert(ctx, &holding); err != nil {
		return model.Holding{}, err
	}
	return holding, nil
}

// RemoveHolding deletes a holding and cascades its transaction history, then
// drops the cached snapshots the history contributed to.
func (s *PortfolioService) RemoveHolding(ctx context.Context, holdingID string) error {
	holding, err := s.holdingRepo.Get(ctx, holdingID)
	if err != nil {
		return err
	}

	if err := s.holdingRepo.Delete(ctx, holdingID); err != nil {
		return err
	}

	// Everything this holding ever contributed is now stale.
	return s.snapshotRepo.InvalidateFrom(ctx, holding.PortfolioID, time.Time{})
}
