package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/ibkr"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/position"
	"github.com/jmolenaar/fundtracker/internal/repository"
)

// tokenExpiryWarning is how far ahead of flex token expiry the config
// response starts carrying a warning.
const tokenExpiryWarning = 14 * 24 * time.Hour

// allocationTolerance absorbs float noise when checking that allocation
// percentages sum to 100.
const allocationTolerance = 0.01

// FlexService manages the Interactive Brokers flex integration: the stored
// configuration (with the token fernet-encrypted at rest), statement imports
// into the inbox, and the allocation of imported lines to portfolios.
type FlexService struct {
	db              *sql.DB
	flexRepo        *repository.FlexRepository
	fundRepo        *repository.FundRepository
	holdingRepo     *repository.HoldingRepository
	portfolioRepo   *repository.PortfolioRepository
	transactionRepo *repository.TransactionRepository
	dividendRepo    *repository.DividendRepository
	snapshotRepo    *repository.SnapshotRepository
	gainRepo        *repository.RealizedGainRepository
	realizedGainSvc *RealizedGainService
	client          ibkr.Client
	key             *fernet.Key
}

// NewFlexService creates a new FlexService. The fernet key is required: flex
// tokens are never stored in plain text.
func NewFlexService(
	db *sql.DB,
	flexRepo *repository.FlexRepository,
	fundRepo *repository.FundRepository,
	holdingRepo *repository.HoldingRepository,
	portfolioRepo *repository.PortfolioRepository,
	transactionRepo *repository.TransactionRepository,
	dividendRepo *repository.DividendRepository,
	snapshotRepo *repository.SnapshotRepository,
	gainRepo *repository.RealizedGainRepository,
	realizedGainSvc *RealizedGainService,
	client ibkr.Client,
	fernetKey string,
) (*FlexService, error) {
	key, err := fernet.DecodeKey(fernetKey)
	if err != nil {
		return nil, fmt.Errorf("invalid fernet key: %w", err)
	}

	return &FlexService{
		db:              db,
		flexRepo:        flexRepo,
		fundRepo:        fundRepo,
		holdingRepo:     holdingRepo,
		portfolioRepo:   portfolioRepo,
		transactionRepo: transactionRepo,
		dividendRepo:    dividendRepo,
		snapshotRepo:    snapshotRepo,
		gainRepo:        gainRepo,
		realizedGainSvc: realizedGainSvc,
		client:          client,
		key:             key,
	}, nil
}

// GetConfig returns the stored flex configuration without the token. A
// missing configuration is reported as not configured rather than an error.
func (s *FlexService) GetConfig(ctx context.Context) (model.FlexConfig, error) {
	row, err := s.flexRepo.GetConfig(ctx)
	if errors.Is(err, apperrors.ErrFlexConfigNotFound) {
		return model.FlexConfig{Configured: false}, nil
	}
	if err != nil {
		return model.FlexConfig{}, err
	}

	config := model.FlexConfig{
		Configured:        true,
		QueryID:           row.QueryID,
		TokenExpiresAt:    row.TokenExpiresAt,
		LastImportDate:    row.LastImportDate,
		AutoImportEnabled: row.AutoImportEnabled,
		Enabled:           row.Enabled,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}

	if row.DefaultAllocations != "" {
		if err := json.Unmarshal([]byte(row.DefaultAllocations), &config.DefaultAllocations); err != nil {
			return model.FlexConfig{}, fmt.Errorf("failed to decode default allocations: %w", err)
		}
	}

	if row.TokenExpiresAt != nil {
		until := time.Until(*row.TokenExpiresAt)
		switch {
		case until <= 0:
			config.TokenWarning = "flex token has expired"
		case until <= tokenExpiryWarning:
			config.TokenWarning = fmt.Sprintf("flex token expires in %d days", int(until.Hours()/24))
		}
	}

	return config, nil
}

// SaveConfig encrypts and stores the flex credentials and settings. An empty
// token keeps the previously stored one.
func (s *FlexService) SaveConfig(ctx context.Context, token, queryID string, expiresAt *time.Time, autoImport, enabled bool, defaults []model.FlexAllocation) (model.FlexConfig, error) {
	now := time.Now().UTC()

	row := repository.FlexConfigRow{
		ID:                uuid.NewString(),
		QueryID:           queryID,
		TokenExpiresAt:    expiresAt,
		AutoImportEnabled: autoImport,
		Enabled:           enabled,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if existing, err := s.flexRepo.GetConfig(ctx); err == nil {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		row.LastImportDate = existing.LastImportDate
		row.EncryptedToken = existing.EncryptedToken
	} else if !errors.Is(err, apperrors.ErrFlexConfigNotFound) {
		return model.FlexConfig{}, err
	}

	if token != "" {
		encrypted, err := fernet.EncryptAndSign([]byte(token), s.key)
		if err != nil {
			return model.FlexConfig{}, fmt.Errorf("failed to encrypt flex token: %w", err)
		}
		row.EncryptedToken = string(encrypted)
	}
	if row.EncryptedToken == "" {
		return model.FlexConfig{}, fmt.Errorf("flex token is required")
	}

	if len(defaults) > 0 {
		encoded, err := json.Marshal(defaults)
		if err != nil {
			return model.FlexConfig{}, fmt.Errorf("failed to encode default allocations: %w", err)
		}
		row.DefaultAllocations = string(encoded)
	}

	if err := s.flexRepo.UpsertConfig(ctx, &row); err != nil {
		return model.FlexConfig{}, err
	}

	return s.GetConfig(ctx)
}

// DeleteConfig removes the flex configuration and its encrypted token.
func (s *FlexService) DeleteConfig(ctx context.Context) error {
	return s.flexRepo.DeleteConfig(ctx)
}

// decryptToken recovers the plain flex token from the stored row.
func (s *FlexService) decryptToken(row repository.FlexConfigRow) (string, error) {
	plain := fernet.VerifyAndDecrypt([]byte(row.EncryptedToken), 0, []*fernet.Key{s.key})
	if plain == nil {
		return "", fmt.Errorf("failed to decrypt flex token")
	}
	return string(plain), nil
}

// ImportResult summarises one statement import.
type ImportResult struct {
	Imported   int       `json:"imported"`
	Duplicates int       `json:"duplicates"`
	FromDate   string    `json:"fromDate"`
	ToDate     string    `json:"toDate"`
	ImportedAt time.Time `json:"importedAt"`
}

// Import downloads the configured flex statement and lands its trades and
// dividend cash lines in the inbox. Lines already imported are skipped by
// their broker-side transaction ID.
func (s *FlexService) Import(ctx context.Context) (ImportResult, error) {
	row, err := s.flexRepo.GetConfig(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	if !row.Enabled {
		return ImportResult{}, fmt.Errorf("flex integration is disabled")
	}

	token, err := s.decryptToken(row)
	if err != nil {
		return ImportResult{}, err
	}

	statement, err := s.client.FetchStatement(ctx, token, row.QueryID)
	if err != nil {
		return ImportResult{}, err
	}

	flexStatement := statement.FlexStatements.FlexStatement
	result := ImportResult{
		FromDate:   flexStatement.FromDate,
		ToDate:     flexStatement.ToDate,
		ImportedAt: statement.RetrievedAt,
	}

	for _, trade := range flexStatement.Trades.Trade {
		t, err := tradeToFlexTransaction(trade)
		if err != nil {
			return ImportResult{}, err
		}

		err = s.flexRepo.InsertTransaction(ctx, &t)
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			result.Duplicates++
			continue
		}
		if err != nil {
			return ImportResult{}, err
		}
		result.Imported++
	}

	for _, cash := range flexStatement.CashTransactions.CashTransaction {
		if cash.Type != "Dividends" {
			continue
		}

		t, err := cashToFlexTransaction(cash)
		if err != nil {
			return ImportResult{}, err
		}

		err = s.flexRepo.InsertTransaction(ctx, &t)
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			result.Duplicates++
			continue
		}
		if err != nil {
			return ImportResult{}, err
		}
		result.Imported++
	}

	if err := s.flexRepo.TouchLastImport(ctx, row.ID, time.Now().UTC()); err != nil {
		return ImportResult{}, err
	}

	return result, nil
}

// Inbox lists imported flex transactions, optionally filtered by status.
func (s *FlexService) Inbox(ctx context.Context, status string) ([]model.FlexTransaction, error) {
	return s.flexRepo.ListTransactions(ctx, status)
}

// Eligible reports which portfolios can receive an allocation of one flex
// transaction, matched to a fund by symbol first, ISIN second.
func (s *FlexService) Eligible(ctx context.Context, flexID string) (model.EligiblePortfolios, error) {
	flexTx, err := s.flexRepo.GetTransaction(ctx, flexID)
	if err != nil {
		return model.EligiblePortfolios{}, err
	}

	fund, matchedBy, err := s.fundRepo.GetBySymbolOrIsin(ctx, flexTx.Symbol, flexTx.Isin)
	if errors.Is(err, apperrors.ErrFundNotFound) {
		return model.EligiblePortfolios{
			Found:   false,
			Warning: fmt.Sprintf("no fund matches symbol %q or isin %q", flexTx.Symbol, flexTx.Isin),
		}, nil
	}
	if err != nil {
		return model.EligiblePortfolios{}, err
	}

	holdings, err := s.holdingRepo.ListByFund(ctx, fund.ID)
	if err != nil {
		return model.EligiblePortfolios{}, err
	}

	portfolios := []model.Portfolio{}
	for _, h := range holdings {
		p, err := s.portfolioRepo.Get(ctx, h.PortfolioID)
		if err != nil {
			return model.EligiblePortfolios{}, err
		}
		if !p.IsArchived {
			portfolios = append(portfolios, p)
		}
	}

	return model.EligiblePortfolios{
		Found:      true,
		MatchedBy:  matchedBy,
		FundID:     fund.ID,
		FundName:   fund.Name,
		Portfolios: portfolios,
	}, nil
}

// Allocate splits one pending flex transaction across portfolios by
// percentage, creating the corresponding transactions or dividends, and marks
// the line processed. Percentages must sum to 100. The whole allocation is
// atomic.
func (s *FlexService) Allocate(ctx context.Context, flexID string, allocations []model.FlexAllocation) ([]model.FlexAllocationRecord, error) {
	flexTx, err := s.flexRepo.GetTransaction(ctx, flexID)
	if err != nil {
		return nil, err
	}
	if flexTx.Status != model.FlexStatusPending {
		return nil, fmt.Errorf("flex transaction %s is already %s", flexID, flexTx.Status)
	}

	var total float64
	for _, a := range allocations {
		total += a.Percentage
	}
	if math.Abs(total-100) > allocationTolerance {
		return nil, fmt.Errorf("%w: percentages sum to %.2f", apperrors.ErrAllocationMismatch, total)
	}

	fund, _, err := s.fundRepo.GetBySymbolOrIsin(ctx, flexTx.Symbol, flexTx.Isin)
	if err != nil {
		return nil, err
	}

	var records []model.FlexAllocationRecord

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		flexRepo := s.flexRepo.WithTx(tx)
		txRepo := s.transactionRepo.WithTx(tx)
		gainRepo := s.gainRepo.WithTx(tx)
		snapRepo := s.snapshotRepo.WithTx(tx)

		for _, a := range allocations {
			holding, err := s.holdingRepo.GetByPortfolioAndFund(ctx, a.PortfolioID, fund.ID)
			if err != nil {
				return err
			}

			fraction := a.Percentage / 100
			record := model.FlexAllocationRecord{
				ID:          uuid.NewString(),
				FlexID:      flexTx.ID,
				PortfolioID: a.PortfolioID,
				Percentage:  a.Percentage,
				Amount:      round(flexTx.TotalAmount * fraction),
				Shares:      flexTx.Quantity * fraction,
				CreatedAt:   time.Now().UTC(),
			}

			switch flexTx.TransactionType {
			case "buy", "sell":
				record.Type = flexTx.TransactionType

				created := model.Transaction{
					ID:           uuid.NewString(),
					HoldingID:    holding.ID,
					Date:         dateOnly(flexTx.TransactionDate),
					Type:         flexTx.TransactionType,
					Shares:       record.Shares,
					CostPerShare: flexTx.Price,
					CreatedAt:    time.Now().UTC(),
				}

				history, err := txRepo.GetForHolding(ctx, holding.ID)
				if err != nil {
					return err
				}
				if err := position.Validate(append(history, created)); err != nil {
					return err
				}
				if err := txRepo.Insert(ctx, &created); err != nil {
					return err
				}
				if err := s.realizedGainSvc.Rebuild(ctx, gainRepo, holding, append(history, created)); err != nil {
					return err
				}
				record.TransactionID = created.ID

			case "dividend":
				record.Type = "dividend"

				dividend := model.Dividend{
					ID:                 uuid.NewString(),
					FundID:             fund.ID,
					HoldingID:          holding.ID,
					RecordDate:         dateOnly(flexTx.TransactionDate),
					ExDividendDate:     dateOnly(flexTx.TransactionDate),
					TotalAmount:        record.Amount,
					ReinvestmentStatus: model.ReinvestmentPaidOut,
					CreatedAt:          time.Now().UTC(),
				}
				if err := s.dividendRepo.WithTx(tx).Insert(ctx, &dividend); err != nil {
					return err
				}

			default:
				return fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, flexTx.TransactionType)
			}

			if err := flexRepo.InsertAllocation(ctx, &record); err != nil {
				return err
			}
			if err := snapRepo.InvalidateFrom(ctx, a.PortfolioID, dateOnly(flexTx.TransactionDate)); err != nil {
				return err
			}

			records = append(records, record)
		}

		return flexRepo.SetTransactionStatus(ctx, flexTx.ID, model.FlexStatusProcessed)
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Ignore marks a pending flex transaction as not relevant.
func (s *FlexService) Ignore(ctx context.Context, flexID string) error {
	flexTx, err := s.flexRepo.GetTransaction(ctx, flexID)
	if err != nil {
		return err
	}
	if flexTx.Status != model.FlexStatusPending {
		return fmt.Errorf("flex transaction %s is already %s", flexID, flexTx.Status)
	}
	return s.flexRepo.SetTransactionStatus(ctx, flexID, model.FlexStatusIgnored)
}

// Allocations lists the allocation records of one flex transaction.
func (s *FlexService) Allocations(ctx context.Context, flexID string) ([]model.FlexAllocationRecord, error) {
	if _, err := s.flexRepo.GetTransaction(ctx, flexID); err != nil {
		return nil, err
	}
	return s.flexRepo.ListAllocations(ctx, flexID)
}

func (s *FlexService) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
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

// tradeToFlexTransaction maps one statement trade line to an inbox row.
func tradeToFlexTransaction(trade ibkr.Trade) (model.FlexTransaction, error) {
	date, err := parseFlexDate(trade.TradeDate)
	if err != nil {
		return model.FlexTransaction{}, err
	}

	txType := "buy"
	if trade.BuySell == "SELL" {
		txType = "sell"
	}

	return model.FlexTransaction{
		ID:              uuid.NewString(),
		ExternalID:      strconv.FormatInt(trade.TransactionID, 10),
		TransactionDate: date,
		Symbol:          trade.Symbol,
		Isin:            trade.Isin,
		Description:     trade.Description,
		TransactionType: txType,
		Quantity:        math.Abs(trade.Quantity),
		Price:           trade.TradePrice,
		TotalAmount:     math.Abs(trade.NetCash),
		Currency:        trade.Currency,
		Fees:            math.Abs(trade.IbCommission),
		Status:          model.FlexStatusPending,
		ImportedAt:      time.Now().UTC(),
	}, nil
}

// cashToFlexTransaction maps one dividend cash line to an inbox row.
func cashToFlexTransaction(cash ibkr.CashTransaction) (model.FlexTransaction, error) {
	date, err := parseFlexDate(cash.ReportDate)
	if err != nil {
		return model.FlexTransaction{}, err
	}

	return model.FlexTransaction{
		ID:              uuid.NewString(),
		ExternalID:      strconv.FormatInt(cash.TransactionID, 10),
		TransactionDate: date,
		Symbol:          cash.Symbol,
		Isin:            cash.Isin,
		Description:     cash.Description,
		TransactionType: "dividend",
		TotalAmount:     cash.Amount,
		Currency:        cash.Currency,
		Status:          model.FlexStatusPending,
		ImportedAt:      time.Now().UTC(),
	}, nil
}

// parseFlexDate handles the two date formats IBKR emits.
func parseFlexDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised flex date %q", value)
}
