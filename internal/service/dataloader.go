package service

import (
	"context"
	"time"

	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/repository"
)

// portfolioData bundles everything needed to value a set of portfolios over
// a date range, loaded in a fixed number of queries regardless of how many
// portfolios or days are involved.
type portfolioData struct {
	Holdings     map[string][]model.Holding     // portfolio ID -> holdings
	Transactions map[string][]model.Transaction // holding ID -> transactions, date ascending
	Dividends    map[string][]model.Dividend    // holding ID -> dividends, ex-date ascending
	Prices       map[string][]model.FundPrice   // fund ID -> prices, date ascending
	Funds        map[string]model.Fund          // fund ID -> fund
	RealizedSums map[string]model.RealizedSums  // portfolio ID -> totals as of end date
}

// DataLoader batches the reads shared by summaries and history building.
type DataLoader struct {
	holdingRepo      *repository.HoldingRepository
	transactionRepo  *repository.TransactionRepository
	dividendRepo     *repository.DividendRepository
	fundRepo         *repository.FundRepository
	realizedGainRepo *repository.RealizedGainRepository
}

func NewDataLoader(
	holdingRepo *repository.HoldingRepository,
	transactionRepo *repository.TransactionRepository,
	dividendRepo *repository.DividendRepository,
	fundRepo *repository.FundRepository,
	realizedGainRepo *repository.RealizedGainRepository,
) *DataLoader {
	return &DataLoader{
		holdingRepo:      holdingRepo,
		transactionRepo:  transactionRepo,
		dividendRepo:     dividendRepo,
		fundRepo:         fundRepo,
		realizedGainRepo: realizedGainRepo,
	}
}

// load retrieves the valuation inputs of the given portfolios up to endDate.
// Transactions are loaded from the beginning of time: position replay always
// needs the full history, whatever range is displayed.
func (l *DataLoader) load(ctx context.Context, portfolioIDs []string, endDate time.Time) (portfolioData, error) {
	data := portfolioData{
		Holdings:     make(map[string][]model.Holding),
		Funds:        make(map[string]model.Fund),
		RealizedSums: make(map[string]model.RealizedSums),
	}

	holdings, err := l.holdingRepo.ListByPortfolios(ctx, portfolioIDs)
	if err != nil {
		return portfolioData{}, err
	}

	holdingIDs := make([]string, 0, len(holdings))
	fundIDs := make([]string, 0, len(holdings))
	seenFunds := make(map[string]bool)
	for _, h := range holdings {
		data.Holdings[h.PortfolioID] = append(data.Holdings[h.PortfolioID], h)
		holdingIDs = append(holdingIDs, h.ID)
		if !seenFunds[h.FundID] {
			seenFunds[h.FundID] = true
			fundIDs = append(fundIDs, h.FundID)
		}
	}

	data.Transactions, err = l.transactionRepo.GetByHoldings(ctx, holdingIDs, time.Time{}, endDate)
	if err != nil {
		return portfolioData{}, err
	}

	data.Dividends, err = l.dividendRepo.ListByHoldings(ctx, holdingIDs, endDate)
	if err != nil {
		return portfolioData{}, err
	}

	data.Prices, err = l.fundRepo.GetPricesInRange(ctx, fundIDs, endDate)
	if err != nil {
		return portfolioData{}, err
	}

	for _, fundID := range fundIDs {
		fund, err := l.fundRepo.Get(ctx, fundID)
		if err != nil {
			return portfolioData{}, err
		}
		data.Funds[fundID] = fund
	}

	data.RealizedSums, err = l.realizedGainRepo.SumByPortfolios(ctx, portfolioIDs, endDate)
	if err != nil {
		return portfolioData{}, err
	}

	return data, nil
}
