package testutil

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/jmolenaar/fundtracker/internal/ibkr"
	"github.com/jmolenaar/fundtracker/internal/repository"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/yahoo"
)

// NewTestDataLoader wires a DataLoader against the given database.
func NewTestDataLoader(t *testing.T, db *sql.DB) *service.DataLoader {
	t.Helper()

	return service.NewDataLoader(
		repository.NewHoldingRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewDividendRepository(db),
		repository.NewFundRepository(db),
		repository.NewRealizedGainRepository(db),
	)
}

// NewTestPortfolioService wires a PortfolioService against the given database.
func NewTestPortfolioService(t *testing.T, db *sql.DB) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewFundRepository(db),
		repository.NewRealizedGainRepository(db),
		repository.NewSnapshotRepository(db),
		NewTestDataLoader(t, db),
	)
}

// NewTestValuationService wires a ValuationService against the given database.
func NewTestValuationService(t *testing.T, db *sql.DB) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSnapshotRepository(db),
		NewTestDataLoader(t, db),
	)
}

// NewTestTransactionService wires a TransactionService against the given database.
func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	gainRepo := repository.NewRealizedGainRepository(db)
	return service.NewTransactionService(
		db,
		repository.NewTransactionRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewSnapshotRepository(db),
		gainRepo,
		service.NewRealizedGainService(gainRepo),
	)
}

// NewTestDividendService wires a DividendService against the given database.
func NewTestDividendService(t *testing.T, db *sql.DB) *service.DividendService {
	t.Helper()

	gainRepo := repository.NewRealizedGainRepository(db)
	return service.NewDividendService(
		db,
		repository.NewDividendRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewFundRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewSnapshotRepository(db),
		gainRepo,
		service.NewRealizedGainService(gainRepo),
	)
}

// NewTestFundService wires a FundService with the given price source.
func NewTestFundService(t *testing.T, db *sql.DB, client yahoo.Client) *service.FundService {
	t.Helper()

	return service.NewFundService(
		repository.NewFundRepository(db),
		repository.NewSnapshotRepository(db),
		client,
	)
}

// TestFernetKey is a throwaway key for encrypting flex tokens in tests.
const TestFernetKey = "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4="

// NewTestFlexService wires a FlexService with the given statement source.
func NewTestFlexService(t *testing.T, db *sql.DB, client ibkr.Client) *service.FlexService {
	t.Helper()

	gainRepo := repository.NewRealizedGainRepository(db)
	svc, err := service.NewFlexService(
		db,
		repository.NewFlexRepository(db),
		repository.NewFundRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewPortfolioRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewDividendRepository(db),
		repository.NewSnapshotRepository(db),
		gainRepo,
		service.NewRealizedGainService(gainRepo),
		client,
		TestFernetKey,
	)
	if err != nil {
		t.Fatalf("failed to create flex service: %v", err)
	}
	return svc
}

// MakeID generates a UUID string for use in tests.
func MakeID() string {
	return uuid.New().String()
}

// MakeISIN generates a structurally valid ISIN code for testing.
func MakeISIN(prefix string) string {
	if prefix == "" {
		prefix = "US"
	}
	return prefix + randomAlphanumeric(10)
}

// MakeSymbol generates a ticker symbol for testing.
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakePortfolioName generates a unique portfolio name for testing.
func MakePortfolioName(base string) string {
	if base == "" {
		base = "Portfolio"
	}
	return base + " " + randomAlphanumeric(6)
}

// MakeFundName generates a unique fund name for testing.
func MakeFundName(base string) string {
	if base == "" {
		base = "Fund"
	}
	return base + " " + randomAlphanumeric(6)
}

func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // test data only
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
