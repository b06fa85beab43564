package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/repository"
	"github.com/jmolenaar/fundtracker/internal/yahoo"
)

// maxConcurrentSyncs bounds parallel Yahoo requests during a bulk sync.
const maxConcurrentSyncs = 4

// FundService handles fund management and price synchronisation.
type FundService struct {
	fundRepo     *repository.FundRepository
	snapshotRepo *repository.SnapshotRepository
	yahooClient  yahoo.Client
}

// NewFundService creates a new FundService.
func NewFundService(
	fundRepo *repository.FundRepository,
	snapshotRepo *repository.SnapshotRepository,
	yahooClient yahoo.Client,
) *FundService {
	return &FundService{
		fundRepo:     fundRepo,
		snapshotRepo: snapshotRepo,
		yahooClient:  yahooClient,
	}
}

// List retrieves all funds.
func (s *FundService) List(ctx context.Context) ([]model.Fund, error) {
	return s.fundRepo.List(ctx)
}

// Get retrieves one fund.
func (s *FundService) Get(ctx context.Context, id string) (model.Fund, error) {
	return s.fundRepo.Get(ctx, id)
}

// Create stores a new fund.
func (s *FundService) Create(ctx context.Context, f model.Fund) (model.Fund, error) {
	f.ID = uuid.NewString()
	if err := s.fundRepo.Insert(ctx, &f); err != nil {
		return model.Fund{}, err
	}
	return f, nil
}

// Update rewrites a fund's fields.
func (s *FundService) Update(ctx context.Context, f model.Fund) (model.Fund, error) {
	if err := s.fundRepo.Update(ctx, &f); err != nil {
		return model.Fund{}, err
	}
	return s.fundRepo.Get(ctx, f.ID)
}

// Delete removes a fund unless a portfolio still holds it.
func (s *FundService) Delete(ctx context.Context, id string) error {
	usage, err := s.fundRepo.Usage(ctx, id)
	if err != nil {
		return err
	}
	if usage.InUse {
		return apperrors.ErrFundInUse
	}
	return s.fundRepo.Delete(ctx, id)
}

// Usage reports which portfolios hold the fund.
func (s *FundService) Usage(ctx context.Context, id string) (model.FundUsage, error) {
	if _, err := s.fundRepo.Get(ctx, id); err != nil {
		return model.FundUsage{}, err
	}
	return s.fundRepo.Usage(ctx, id)
}

// Prices retrieves the stored price history of one fund, newest first.
func (s *FundService) Prices(ctx context.Context, fundID string) ([]model.FundPrice, error) {
	if _, err := s.fundRepo.Get(ctx, fundID); err != nil {
		return nil, err
	}
	return s.fundRepo.GetPrices(ctx, fundID)
}

// SetPrice stores one manually entered price and invalidates the snapshots it
// affects.
func (s *FundService) SetPrice(ctx context.Context, fundID string, date time.Time, value float64) (model.FundPrice, error) {
	if _, err := s.fundRepo.Get(ctx, fundID); err != nil {
		return model.FundPrice{}, err
	}

	price := model.FundPrice{
		ID:     uuid.NewString(),
		FundID: fundID,
		Date:   dateOnly(date),
		Price:  value,
	}
	if err := s.fundRepo.UpsertPrice(ctx, &price); err != nil {
		return model.FundPrice{}, err
	}

	if err := s.snapshotRepo.InvalidateFundFrom(ctx, fundID, price.Date); err != nil {
		return model.FundPrice{}, err
	}

	return price, nil
}

// SyncPrices fetches recent prices for one fund from Yahoo and stores what is
// new. Returns the number of prices added.
func (s *FundService) SyncPrices(ctx context.Context, fundID string) (model.PriceSyncResult, error) {
	fund, err := s.fundRepo.Get(ctx, fundID)
	if err != nil {
		return model.PriceSyncResult{}, err
	}
	return s.syncFund(ctx, fund)
}

// BackfillPrices fetches and stores the full price history of one fund for a
// date range.
func (s *FundService) BackfillPrices(ctx context.Context, fundID string, start, end time.Time) (model.PriceSyncResult, error) {
	fund, err := s.fundRepo.Get(ctx, fundID)
	if err != nil {
		return model.PriceSyncResult{}, err
	}
	if fund.Symbol == "" {
		return model.PriceSyncResult{}, apperrors.ErrFundPriceNotFound
	}
	if end.Before(start) {
		return model.PriceSyncResult{}, apperrors.ErrInvalidDateRange
	}

	chart, err := s.yahooClient.PricesBetween(ctx, fund.Symbol, start, end)
	if err != nil {
		return model.PriceSyncResult{}, err
	}

	return s.storeQuotes(ctx, fund, chart.Quotes)
}

// SyncAllPrices refreshes the prices of every fund with a symbol, a few funds
// at a time. Individual failures are collected rather than aborting the rest.
func (s *FundService) SyncAllPrices(ctx context.Context) (model.BulkPriceSyncResponse, error) {
	funds, err := s.fundRepo.List(ctx)
	if err != nil {
		return model.BulkPriceSyncResponse{}, err
	}

	var mu sync.Mutex
	response := model.BulkPriceSyncResponse{
		Updated: []model.PriceSyncResult{},
		Errors:  []model.PriceSyncError{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSyncs)

	for _, fund := range funds {
		if fund.Symbol == "" {
			continue
		}

		fund := fund
		g.Go(func() error {
			result, err := s.syncFund(gctx, fund)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				response.Errors = append(response.Errors, model.PriceSyncError{
					FundID: fund.ID,
					Name:   fund.Name,
					Symbol: fund.Symbol,
					Error:  err.Error(),
				})
				return nil
			}
			response.Updated = append(response.Updated, result)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.BulkPriceSyncResponse{}, err
	}

	response.TotalUpdated = len(response.Updated)
	response.TotalErrors = len(response.Errors)
	response.Success = response.TotalUpdated > 0
	return response, nil
}

func (s *FundService) syncFund(ctx context.Context, fund model.Fund) (model.PriceSyncResult, error) {
	if fund.Symbol == "" {
		return model.PriceSyncResult{}, apperrors.ErrFundPriceNotFound
	}

	chart, err := s.yahooClient.RecentPrices(ctx, fund.Symbol)
	if err != nil {
		return model.PriceSyncResult{}, err
	}

	return s.storeQuotes(ctx, fund, chart.Quotes)
}

func (s *FundService) storeQuotes(ctx context.Context, fund model.Fund, quotes []yahoo.Quote) (model.PriceSyncResult, error) {
	result := model.PriceSyncResult{
		FundID: fund.ID,
		Name:   fund.Name,
		Symbol: fund.Symbol,
	}

	var earliest time.Time
	for _, q := range quotes {
		// Re-upserting an unchanged day is harmless; count it anyway so the
		// caller sees the sync did something.
		price := model.FundPrice{
			ID:     uuid.NewString(),
			FundID: fund.ID,
			Date:   dateOnly(q.Date),
			Price:  q.Close,
		}
		if err := s.fundRepo.UpsertPrice(ctx, &price); err != nil {
			return model.PriceSyncResult{}, err
		}
		result.PricesAdded++

		if earliest.IsZero() || price.Date.Before(earliest) {
			earliest = price.Date
		}
	}

	if !earliest.IsZero() {
		if err := s.snapshotRepo.InvalidateFundFrom(ctx, fund.ID, earliest); err != nil {
			return model.PriceSyncResult{}, err
		}
	}

	return result, nil
}

// LatestPrice retrieves the most recent stored price of one fund.
func (s *FundService) LatestPrice(ctx context.Context, fundID string) (model.FundPrice, error) {
	price, err := s.fundRepo.GetLatestPrice(ctx, fundID)
	if errors.Is(err, apperrors.ErrFundPriceNotFound) {
		return model.FundPrice{}, err
	}
	return price, err
}
