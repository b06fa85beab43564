package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/repository"
	"github.com/jmolenaar/fundtracker/internal/testutil"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("buy then sell records a realized gain", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		_, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 1, 10),
			Type: model.TransactionBuy, Shares: 100, CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}

		_, err = svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 2, 10),
			Type: model.TransactionSell, Shares: 50, CostPerShare: 15,
		})
		if err != nil {
			t.Fatalf("sell failed: %v", err)
		}

		gains, err := repository.NewRealizedGainRepository(db).ListByHolding(ctx, holding.ID)
		if err != nil {
			t.Fatalf("failed to list gains: %v", err)
		}
		if len(gains) != 1 {
			t.Fatalf("expected 1 realized gain record, got %d", len(gains))
		}
		if gains[0].GainLoss != 250 {
			t.Errorf("expected gain 250, got %v", gains[0].GainLoss)
		}
		if gains[0].CostBasis != 500 {
			t.Errorf("expected cost basis 500, got %v", gains[0].CostBasis)
		}
		if gains[0].SaleProceeds != 750 {
			t.Errorf("expected proceeds 750, got %v", gains[0].SaleProceeds)
		}
	})

	t.Run("rejects a sell exceeding the position", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		_, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 1, 10),
			Type: model.TransactionBuy, Shares: 10, CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}

		_, err = svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 1, 11),
			Type: model.TransactionSell, Shares: 11, CostPerShare: 10,
		})
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Fatalf("expected ErrInsufficientShares, got %v", err)
		}

		// Nothing may be written by the rejected mutation.
		txs, err := repository.NewTransactionRepository(db).GetForHolding(ctx, holding.ID)
		if err != nil {
			t.Fatalf("failed to list transactions: %v", err)
		}
		if len(txs) != 1 {
			t.Errorf("expected 1 transaction after rejected sell, got %d", len(txs))
		}
	})

	t.Run("rejects a sell predating any purchase", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		_, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 3, 1),
			Type: model.TransactionBuy, Shares: 10, CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}

		// Dated before the buy, so at that point nothing is held.
		_, err = svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 2, 1),
			Type: model.TransactionSell, Shares: 5, CostPerShare: 10,
		})
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Fatalf("expected ErrInsufficientShares, got %v", err)
		}
	})

	t.Run("unknown holding fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		_, err := svc.Create(ctx, model.Transaction{
			HoldingID: testutil.MakeID(), Date: date(2024, 1, 10),
			Type: model.TransactionBuy, Shares: 1, CostPerShare: 1,
		})
		if !errors.Is(err, apperrors.ErrHoldingNotFound) {
			t.Fatalf("expected ErrHoldingNotFound, got %v", err)
		}
	})
}

func TestTransactionService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("editing a buy rewrites downstream realized gains", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		buy, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 1, 10),
			Type: model.TransactionBuy, Shares: 100, CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}
		_, err = svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 2, 10),
			Type: model.TransactionSell, Shares: 50, CostPerShare: 15,
		})
		if err != nil {
			t.Fatalf("sell failed: %v", err)
		}

		// Raising the purchase price turns the 250 gain into a 250 loss.
		buy.CostPerShare = 20
		if _, err := svc.Update(ctx, buy); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		gains, err := repository.NewRealizedGainRepository(db).ListByHolding(ctx, holding.ID)
		if err != nil {
			t.Fatalf("failed to list gains: %v", err)
		}
		if len(gains) != 1 {
			t.Fatalf("expected 1 realized gain record, got %d", len(gains))
		}
		if gains[0].GainLoss != -250 {
			t.Errorf("expected gain -250 after edit, got %v", gains[0].GainLoss)
		}
	})

	t.Run("rejects an edit that would oversell later", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		buy, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 1, 10),
			Type: model.TransactionBuy, Shares: 100, CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}
		_, err = svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 2, 10),
			Type: model.TransactionSell, Shares: 80, CostPerShare: 15,
		})
		if err != nil {
			t.Fatalf("sell failed: %v", err)
		}

		// Shrinking the buy below the later sell must be rejected whole.
		buy.Shares = 50
		_, err = svc.Update(ctx, buy)
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Fatalf("expected ErrInsufficientShares, got %v", err)
		}

		stored, err := repository.NewTransactionRepository(db).Get(ctx, buy.ID)
		if err != nil {
			t.Fatalf("failed to reload buy: %v", err)
		}
		if stored.Shares != 100 {
			t.Errorf("expected buy untouched at 100 shares, got %v", stored.Shares)
		}
	})
}

func TestTransactionService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting a sell removes its realized gain", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		_, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 1, 10),
			Type: model.TransactionBuy, Shares: 100, CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}
		sell, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 2, 10),
			Type: model.TransactionSell, Shares: 50, CostPerShare: 15,
		})
		if err != nil {
			t.Fatalf("sell failed: %v", err)
		}

		if err := svc.Delete(ctx, sell.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		gains, err := repository.NewRealizedGainRepository(db).ListByHolding(ctx, holding.ID)
		if err != nil {
			t.Fatalf("failed to list gains: %v", err)
		}
		if len(gains) != 0 {
			t.Errorf("expected no realized gains after delete, got %d", len(gains))
		}
	})

	t.Run("rejects a delete that strands a later sell", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		buy, err := svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 1, 10),
			Type: model.TransactionBuy, Shares: 100, CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}
		_, err = svc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: date(2024, 2, 10),
			Type: model.TransactionSell, Shares: 50, CostPerShare: 15,
		})
		if err != nil {
			t.Fatalf("sell failed: %v", err)
		}

		err = svc.Delete(ctx, buy.ID)
		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Fatalf("expected ErrInsufficientShares, got %v", err)
		}
	})

	t.Run("deleting an unknown transaction fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTransactionService(t, db)

		err := svc.Delete(ctx, testutil.MakeID())
		if !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Fatalf("expected ErrTransactionNotFound, got %v", err)
		}
	})
}
