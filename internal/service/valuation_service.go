package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/position"
	"github.com/jmolenaar/fundtracker/internal/repository"
)

// ValuationService builds daily portfolio valuations. Every series is derived
// by replaying transactions, dividends and prices day by day; the snapshot
// tables only cache the result. A cached range is served directly, anything
// missing is computed on demand and written back, and a mutation anywhere in
// history invalidates the cache from that date forward.
type ValuationService struct {
	portfolioRepo   *repository.PortfolioRepository
	holdingRepo     *repository.HoldingRepository
	transactionRepo *repository.TransactionRepository
	snapshotRepo    *repository.SnapshotRepository
	loader          *DataLoader
}

// NewValuationService creates a new ValuationService.
func NewValuationService(
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
	transactionRepo *repository.TransactionRepository,
	snapshotRepo *repository.SnapshotRepository,
	loader *DataLoader,
) *ValuationService {
	return &ValuationService{
		portfolioRepo:   portfolioRepo,
		holdingRepo:     holdingRepo,
		transactionRepo: transactionRepo,
		snapshotRepo:    snapshotRepo,
		loader:          loader,
	}
}

// History returns the daily valuation series of one portfolio. The requested
// range is clamped to the portfolio's first transaction and to today; a
// portfolio with no transactions yields an empty series.
func (s *ValuationService) History(ctx context.Context, portfolioID string, start, end time.Time) ([]model.PortfolioSnapshot, error) {
	portfolio, err := s.portfolioRepo.Get(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	start, end, empty, err := s.clampRange(ctx, portfolioID, start, end)
	if err != nil || empty {
		return []model.PortfolioSnapshot{}, err
	}

	// Fast path: a fully cached range needs no replay.
	cached, err := s.snapshotRepo.GetPortfolioRange(ctx, portfolioID, start, end)
	if err != nil {
		return nil, err
	}
	if len(cached) == daysBetween(start, end) {
		return cached, nil
	}

	snapshots, entries, err := s.buildSeries(ctx, portfolio, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, snapshots, entries); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// HoldingHistory returns the per-fund breakdown of one portfolio's history,
// grouped by date.
func (s *ValuationService) HoldingHistory(ctx context.Context, portfolioID string, start, end time.Time) ([]model.HoldingHistoryPoint, error) {
	portfolio, err := s.portfolioRepo.Get(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	start, end, empty, err := s.clampRange(ctx, portfolioID, start, end)
	if err != nil || empty {
		return []model.HoldingHistoryPoint{}, err
	}

	cached, err := s.snapshotRepo.GetHoldingRange(ctx, portfolioID, start, end)
	if err != nil {
		return nil, err
	}

	var entries []model.HoldingHistoryEntry
	if datesCovered(cached) == daysBetween(start, end) {
		entries = cached
	} else {
		snapshots, fresh, err := s.buildSeries(ctx, portfolio, start, end)
		if err != nil {
			return nil, err
		}
		if err := s.persist(ctx, snapshots, fresh); err != nil {
			return nil, err
		}
		entries = fresh
	}

	return groupByDate(entries), nil
}

// Rebuild recomputes and stores the full snapshot history of one portfolio,
// from its first transaction through today.
func (s *ValuationService) Rebuild(ctx context.Context, portfolioID string) error {
	portfolio, err := s.portfolioRepo.Get(ctx, portfolioID)
	if err != nil {
		return err
	}

	start, end, empty, err := s.clampRange(ctx, portfolioID, time.Time{}, dateOnly(time.Now().UTC()))
	if err != nil || empty {
		return err
	}

	snapshots, entries, err := s.buildSeries(ctx, portfolio, start, end)
	if err != nil {
		return err
	}

	return s.persist(ctx, snapshots, entries)
}

// RebuildAll refreshes the snapshot caches of every portfolio, archived ones
// included. Used by the nightly maintenance job.
func (s *ValuationService) RebuildAll(ctx context.Context) error {
	portfolios, err := s.portfolioRepo.List(ctx, model.PortfolioFilter{
		IncludeArchived: true,
		IncludeExcluded: true,
	})
	if err != nil {
		return err
	}

	for _, p := range portfolios {
		if err := s.Rebuild(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// clampRange narrows a requested range to the days the portfolio actually
// existed: no earlier than its first transaction, no later than today. The
// empty flag is set when the portfolio has no transactions at all or the
// range collapses.
func (s *ValuationService) clampRange(ctx context.Context, portfolioID string, start, end time.Time) (time.Time, time.Time, bool, error) {
	holdings, err := s.holdingRepo.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}

	holdingIDs := make([]string, len(holdings))
	for i, h := range holdings {
		holdingIDs[i] = h.ID
	}

	oldest := s.transactionRepo.OldestDate(ctx, holdingIDs)
	if oldest.IsZero() {
		return time.Time{}, time.Time{}, true, nil
	}

	today := dateOnly(time.Now().UTC())
	if start.IsZero() || start.Before(oldest) {
		start = oldest
	}
	if end.IsZero() || end.After(today) {
		end = today
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, true, nil
	}

	return dateOnly(start), dateOnly(end), false, nil
}

// holdingCursor carries the running replay state of one holding through the
// day-by-day walk. Each input list is consumed once, in order.
type holdingCursor struct {
	holding model.Holding

	txs    []model.Transaction
	divs   []model.Dividend
	prices []model.FundPrice
	ti     int
	di     int
	pi     int

	pos       position.Position
	realized  float64
	proceeds  float64
	soldBasis float64
	dividends float64
	fees      float64
	lastPrice float64
	hasPrice  bool
}

// advance applies every event dated on or before day.
func (c *holdingCursor) advance(day time.Time) error {
	for c.ti < len(c.txs) && !c.txs[c.ti].Date.After(day) {
		t := c.txs[c.ti]
		c.ti++

		if t.Type == model.TransactionFee {
			c.fees += t.CostPerShare
		}

		pos, sale, err := c.pos.Apply(t)
		if err != nil {
			return err
		}
		c.pos = pos

		if t.Type == model.TransactionSell {
			c.realized += sale.GainLoss
			c.proceeds += sale.SaleProceeds
			c.soldBasis += sale.CostBasis
		}
	}

	for c.di < len(c.divs) && !c.divs[c.di].ExDividendDate.After(day) {
		c.dividends += c.divs[c.di].TotalAmount
		c.di++
	}

	for c.pi < len(c.prices) && !c.prices[c.pi].Date.After(day) {
		c.lastPrice = c.prices[c.pi].Price
		c.hasPrice = true
		c.pi++
	}

	return nil
}

// buildSeries walks the date range one day at a time, maintaining a running
// position per holding, and emits one portfolio snapshot plus one entry per
// holding for every day. A holding without any price yet contributes zero
// value but its cost still counts.
func (s *ValuationService) buildSeries(ctx context.Context, portfolio model.Portfolio, start, end time.Time) ([]model.PortfolioSnapshot, []model.HoldingHistoryEntry, error) {
	data, err := s.loader.load(ctx, []string{portfolio.ID}, end)
	if err != nil {
		return nil, nil, err
	}

	cursors := make([]*holdingCursor, 0, len(data.Holdings[portfolio.ID]))
	for _, h := range data.Holdings[portfolio.ID] {
		cursors = append(cursors, &holdingCursor{
			holding: h,
			txs:     data.Transactions[h.ID],
			divs:    data.Dividends[h.ID],
			prices:  data.Prices[h.FundID],
		})
	}

	calculatedAt := time.Now().UTC()
	days := daysBetween(start, end)
	snapshots := make([]model.PortfolioSnapshot, 0, days)
	entries := make([]model.HoldingHistoryEntry, 0, days*len(cursors))

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		snapshot := model.PortfolioSnapshot{
			ID:           uuid.NewString(),
			PortfolioID:  portfolio.ID,
			Date:         day,
			IsArchived:   portfolio.IsArchived,
			CalculatedAt: calculatedAt,
		}

		for _, c := range cursors {
			if err := c.advance(day); err != nil {
				return nil, nil, err
			}

			value := 0.0
			if c.hasPrice {
				value = c.pos.Shares * c.lastPrice
			}

			entry := model.HoldingHistoryEntry{
				HoldingID:      c.holding.ID,
				FundID:         c.holding.FundID,
				FundName:       data.Funds[c.holding.FundID].Name,
				Date:           day,
				Shares:         c.pos.Shares,
				Price:          c.lastPrice,
				Value:          round(value),
				Cost:           round(c.pos.Cost),
				RealizedGain:   round(c.realized),
				UnrealizedGain: round(value - c.pos.Cost),
				TotalGainLoss:  round(c.realized + value - c.pos.Cost),
				Dividends:      round(c.dividends),
				Fees:           round(c.fees),
			}
			entries = append(entries, entry)

			snapshot.Value += value
			snapshot.Cost += c.pos.Cost
			snapshot.RealizedGain += c.realized
			snapshot.SaleProceeds += c.proceeds
			snapshot.SoldCostBasis += c.soldBasis
			snapshot.TotalDividends += c.dividends
		}

		snapshot.Value = round(snapshot.Value)
		snapshot.Cost = round(snapshot.Cost)
		snapshot.RealizedGain = round(snapshot.RealizedGain)
		snapshot.SaleProceeds = round(snapshot.SaleProceeds)
		snapshot.SoldCostBasis = round(snapshot.SoldCostBasis)
		snapshot.TotalDividends = round(snapshot.TotalDividends)
		snapshot.UnrealizedGain = round(snapshot.Value - snapshot.Cost)
		snapshot.TotalGainLoss = round(snapshot.RealizedGain + snapshot.UnrealizedGain)

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, entries, nil
}

func (s *ValuationService) persist(ctx context.Context, snapshots []model.PortfolioSnapshot, entries []model.HoldingHistoryEntry) error {
	if err := s.snapshotRepo.InsertPortfolioSnapshots(ctx, snapshots); err != nil {
		return err
	}

	ids := make([]string, len(entries))
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return s.snapshotRepo.InsertHoldingSnapshots(ctx, entries, ids, time.Now().UTC())
}

// datesCovered counts the distinct dates present in a holding entry list.
func datesCovered(entries []model.HoldingHistoryEntry) int {
	seen := make(map[time.Time]bool)
	for _, e := range entries {
		seen[e.Date] = true
	}
	return len(seen)
}

// groupByDate folds a flat entry list into one point per date. Entries arrive
// date-ascending, so order is preserved.
func groupByDate(entries []model.HoldingHistoryEntry) []model.HoldingHistoryPoint {
	points := []model.HoldingHistoryPoint{}
	index := make(map[time.Time]int)

	for _, e := range entries {
		i, ok := index[e.Date]
		if !ok {
			i = len(points)
			index[e.Date] = i
			points = append(points, model.HoldingHistoryPoint{Date: e.Date})
		}
		points[i].Holdings = append(points[i].Holdings, e)
	}

	return points
}
