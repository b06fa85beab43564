// Package position implements the pure share and cost-basis accounting engine.
//
// A holding's state at any point in time is derived by replaying its
// transactions in order. The engine uses weighted-average cost accounting:
// every sale removes the proportional slice of the blended cost basis, not
// the cost of a specific purchase lot. All functions are pure; callers own
// data loading and persistence.
package position

import (
	"fmt"
	"sort"
	"time"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
)

// Position is the aggregate state of a holding at a point in time.
type Position struct {
	Shares float64
	Cost   float64 // remaining cost basis across all un-sold shares

	// Clamped is set when replay would have driven shares or cost negative
	// and the result was clamped to zero instead. This only happens on
	// corrupt history (e.g. out-of-order imports); valid sells are rejected
	// before they are written.
	Clamped bool
}

// AverageCost returns the blended cost per share, or 0 for an empty position.
func (p Position) AverageCost() float64 {
	if p.Shares <= 0 {
		return 0
	}
	return p.Cost / p.Shares
}

// SaleResult is the realized outcome of selling shares against a position.
type SaleResult struct {
	SharesSold   float64
	CostBasis    float64 // average cost at time of sale x shares sold
	SaleProceeds float64
	GainLoss     float64 // proceeds - cost basis
}

// sortChronological orders transactions by date, breaking same-day ties by
// creation order. The tie-break matters: a buy entered before a sell on the
// same day must add its shares before the sell removes them.
func sortChronological(txs []model.Transaction) []model.Transaction {
	sorted := make([]model.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// Apply folds one transaction into the position and returns the new state.
//
//   - buy and dividend (reinvestment) add shares and shares x costPerShare.
//   - sell removes the proportional average-cost slice, then the shares.
//     A sell that would drive the position negative clamps shares and cost
//     to zero and marks the result Clamped rather than failing, preserving
//     output compatibility for corrupt history.
//   - fee has no effect on shares or cost; fees are aggregated separately.
//
// For a sell, the returned SaleResult carries the realized outcome evaluated
// against the pre-sale state; it is zero for every other type. An unknown
// type fails loudly.
func (p Position) Apply(t model.Transaction) (Position, SaleResult, error) {
	switch t.Type {
	case model.TransactionBuy, model.TransactionDividend:
		p.Shares += t.Shares
		p.Cost += t.Shares * t.CostPerShare
		return p, SaleResult{}, nil

	case model.TransactionSell:
		proceeds := t.Shares * t.CostPerShare
		var costBasis float64

		if remaining := p.Shares - t.Shares; remaining > 0 {
			costBasis = p.AverageCost() * t.Shares
			p.Cost = p.Cost * remaining / p.Shares
			p.Shares = remaining
		} else {
			// Selling out (or overselling) consumes the whole basis.
			costBasis = p.Cost
			if remaining < 0 {
				p.Clamped = true
			}
			p.Shares = 0
			p.Cost = 0
		}

		return p, SaleResult{
			SharesSold:   t.Shares,
			CostBasis:    costBasis,
			SaleProceeds: proceeds,
			GainLoss:     proceeds - costBasis,
		}, nil

	case model.TransactionFee:
		// cash flow only
		return p, SaleResult{}, nil

	default:
		return Position{}, SaleResult{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, t.Type)
	}
}

// Replay computes the position of a holding as of the given date by applying
// every transaction dated on or before asOf, oldest first. Transactions may
// arrive in any order.
func Replay(txs []model.Transaction, asOf time.Time) (Position, error) {
	var pos Position
	var err error

	for _, t := range sortChronological(txs) {
		if t.Date.After(asOf) {
			break
		}
		if pos, _, err = pos.Apply(t); err != nil {
			return Position{}, err
		}
	}

	return pos, nil
}

// Before computes the position immediately before the transaction with the
// given ID is applied: all earlier transactions, plus same-day transactions
// created earlier, are replayed. This is the state a sale's cost basis must
// be evaluated against.
func Before(txs []model.Transaction, exclude model.Transaction) (Position, error) {
	prior := make([]model.Transaction, 0, len(txs))
	for _, t := range sortChronological(txs) {
		if t.ID == exclude.ID {
			break
		}
		if t.Date.After(exclude.Date) {
			break
		}
		if t.Date.Equal(exclude.Date) && !t.CreatedAt.Before(exclude.CreatedAt) {
			break
		}
		prior = append(prior, t)
	}
	return Replay(prior, exclude.Date)
}

// Sell evaluates a sale of shares at the given price against a position.
// It fails with ErrInsufficientShares when the position does not hold enough
// shares; this is the hard validation guarding new writes, distinct from the
// clamp inside Replay which only tolerates already-corrupted history.
func (p Position) Sell(shares, pricePerShare float64) (SaleResult, error) {
	if shares > p.Shares {
		return SaleResult{}, fmt.Errorf("%w: selling %.4f, holding %.4f",
			apperrors.ErrInsufficientShares, shares, p.Shares)
	}

	costBasis := p.AverageCost() * shares
	proceeds := shares * pricePerShare

	return SaleResult{
		SharesSold:   shares,
		CostBasis:    costBasis,
		SaleProceeds: proceeds,
		GainLoss:     proceeds - costBasis,
	}, nil
}

// Validate replays a holding's full history and rejects it if any sell would
// remove more shares than held at that point. Used before committing a
// mutation: an edit to an old buy can retroactively starve a later sell, and
// that must fail rather than clamp.
func Validate(txs []model.Transaction) error {
	var pos Position
	var err error

	for _, t := range sortChronological(txs) {
		if t.Type == model.TransactionSell && t.Shares > pos.Shares {
			return fmt.Errorf("%w: selling %.4f on %s, holding %.4f",
				apperrors.ErrInsufficientShares, t.Shares, t.Date.Format("2006-01-02"), pos.Shares)
		}
		if pos, _, err = pos.Apply(t); err != nil {
			return err
		}
	}

	return nil
}

// Fees sums the fee amounts of all transactions dated on or before asOf.
// Fee rows store the amount in CostPerShare with zero shares.
func Fees(txs []model.Transaction, asOf time.Time) float64 {
	var fees float64
	for _, t := range txs {
		if t.Type == model.TransactionFee && !t.Date.After(asOf) {
			fees += t.CostPerShare
		}
	}
	return fees
}
