// Package apperrors defines the sentinel errors shared across the service and
// API layers. Handlers translate them to HTTP statuses with errors.Is.
package apperrors

import "errors"

// Entity errors indicate that a requested resource does not exist.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrFundNotFound indicates that a fund with the given ID does not exist.
	ErrFundNotFound = errors.New("fund not found")

	// ErrFundPriceNotFound indicates no price record for a fund and date combination.
	ErrFundPriceNotFound = errors.New("fund price not found")

	// ErrHoldingNotFound indicates that a portfolio-fund holding does not exist.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrDividendNotFound indicates that a dividend record with the given ID does not exist.
	ErrDividendNotFound = errors.New("dividend not found")

	// ErrRealizedGainNotFound indicates that a realized gain/loss record does not exist.
	ErrRealizedGainNotFound = errors.New("realized gain/loss not found")

	// ErrFlexConfigNotFound indicates the IBKR flex configuration has not been set up.
	ErrFlexConfigNotFound = errors.New("flex configuration not found")

	// ErrFlexTransactionNotFound indicates that an imported flex transaction does not exist.
	ErrFlexTransactionNotFound = errors.New("flex transaction not found")
)

// Business rule errors indicate an operation violates a domain constraint.
var (
	// ErrInsufficientShares rejects a sell of more shares than the holding owns
	// at that point in time. The offending write is discarded wholesale.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrUnknownTransactionType rejects replay of a transaction whose type is not
	// one of buy, sell, dividend, fee.
	ErrUnknownTransactionType = errors.New("unknown transaction type")

	// ErrFundInUse blocks deletion of a fund that still has holdings.
	ErrFundInUse = errors.New("fund is in use")

	// ErrInvalidDateRange indicates start date is after end date.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrDuplicateEntry indicates a unique constraint would be violated.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrAllocationMismatch indicates flex allocation percentages do not sum to 100.
	ErrAllocationMismatch = errors.New("allocation percentages must sum to 100")
)

// Integrity errors indicate the stored data is inconsistent with itself.
var (
	// ErrDataIntegrity indicates replayed history produced an impossible state,
	// e.g. a negative share count outside the sell path.
	ErrDataIntegrity = errors.New("data integrity violation")
)

// Operation errors wrap lower-level failures with a stable, user-facing identity.
var (
	ErrFailedToRetrievePortfolios   = errors.New("failed to retrieve portfolios")
	ErrFailedToRetrieveFunds        = errors.New("failed to retrieve funds")
	ErrFailedToRetrieveHoldings     = errors.New("failed to retrieve holdings")
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveDividends    = errors.New("failed to retrieve dividends")
	ErrFailedToRetrieveHistory      = errors.New("failed to retrieve history")
	ErrFailedToRetrieveFlexInbox    = errors.New("failed to retrieve flex inbox")
	ErrFailedToUpdateFundPrice      = errors.New("failed to update fund price")
)
