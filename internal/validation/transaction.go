package validation

import (
	"fmt"

	"github.com/jmolenaar/fundtracker/internal/model"
)

// ValidateTransactionType checks the type against the supported set.
func ValidateTransactionType(txType string) error {
	switch txType {
	case model.TransactionBuy, model.TransactionSell, model.TransactionDividend, model.TransactionFee:
		return nil
	}
	return fmt.Errorf("unknown transaction type %q", txType)
}

// ValidateTransactionAmounts checks shares and cost for the given type. A fee
// carries its amount in costPerShare and no shares; every other type needs a
// positive share count and a non-negative cost.
func ValidateTransactionAmounts(txType string, shares, costPerShare float64) error {
	if txType == model.TransactionFee {
		if shares != 0 {
			return fmt.Errorf("fee transactions must have zero shares")
		}
		if costPerShare <= 0 {
			return fmt.Errorf("fee amount must be positive")
		}
		return nil
	}

	if shares <= 0 {
		return fmt.Errorf("shares must be positive")
	}
	if costPerShare < 0 {
		return fmt.Errorf("cost per share cannot be negative")
	}
	return nil
}
