package service_test

import (
	"context"
	"testing"

	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/repository"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/testutil"
)

func TestDividendService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults shares owned from the position on the record date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestDividendService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithDividendType("distributing").Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		testutil.CreateTransaction(t, db, holding.ID, date(2024, 1, 10), model.TransactionBuy, 80, 10)
		testutil.CreateTransaction(t, db, holding.ID, date(2024, 3, 1), model.TransactionBuy, 20, 10)

		dividend, err := svc.Create(ctx, model.Dividend{
			HoldingID:        holding.ID,
			RecordDate:       date(2024, 2, 1),
			ExDividendDate:   date(2024, 1, 30),
			DividendPerShare: 0.5,
		}, nil)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		// Only the first buy predates the record date.
		if dividend.SharesOwned != 80 {
			t.Errorf("expected shares owned 80, got %v", dividend.SharesOwned)
		}
		if dividend.TotalAmount != 40 {
			t.Errorf("expected total amount 40, got %v", dividend.TotalAmount)
		}
		if dividend.ReinvestmentStatus != model.ReinvestmentPaidOut {
			t.Errorf("expected status paid_out for a distributing fund, got %q", dividend.ReinvestmentStatus)
		}
	})

	t.Run("accumulating fund dividend stays pending without a reinvestment", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestDividendService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithDividendType("accumulating").Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)
		testutil.CreateTransaction(t, db, holding.ID, date(2024, 1, 10), model.TransactionBuy, 100, 10)

		dividend, err := svc.Create(ctx, model.Dividend{
			HoldingID:        holding.ID,
			RecordDate:       date(2024, 2, 1),
			ExDividendDate:   date(2024, 1, 30),
			DividendPerShare: 0.25,
		}, nil)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if dividend.ReinvestmentStatus != model.ReinvestmentPending {
			t.Errorf("expected status pending, got %q", dividend.ReinvestmentStatus)
		}
	})

	t.Run("immediate reinvestment creates the buy-back transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestDividendService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithDividendType("accumulating").Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)
		testutil.CreateTransaction(t, db, holding.ID, date(2024, 1, 10), model.TransactionBuy, 100, 10)

		dividend, err := svc.Create(ctx, model.Dividend{
			HoldingID:        holding.ID,
			RecordDate:       date(2024, 2, 1),
			ExDividendDate:   date(2024, 1, 30),
			DividendPerShare: 0.25,
		}, &service.Reinvestment{
			BuyOrderDate: date(2024, 2, 3),
			Shares:       2.5,
			CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		if dividend.ReinvestmentStatus != model.ReinvestmentReinvested {
			t.Errorf("expected status reinvested, got %q", dividend.ReinvestmentStatus)
		}
		if dividend.ReinvestmentTransactionID == "" {
			t.Fatal("expected a linked reinvestment transaction")
		}

		tx, err := repository.NewTransactionRepository(db).Get(ctx, dividend.ReinvestmentTransactionID)
		if err != nil {
			t.Fatalf("failed to load buy-back: %v", err)
		}
		if tx.Type != model.TransactionDividend {
			t.Errorf("expected dividend transaction type, got %q", tx.Type)
		}
		if tx.Shares != 2.5 {
			t.Errorf("expected 2.5 shares, got %v", tx.Shares)
		}
	})
}

func TestDividendService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a pending dividend with a reinvestment", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestDividendService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithDividendType("accumulating").Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)
		testutil.CreateTransaction(t, db, holding.ID, date(2024, 1, 10), model.TransactionBuy, 100, 10)

		created, err := svc.Create(ctx, model.Dividend{
			HoldingID:        holding.ID,
			RecordDate:       date(2024, 2, 1),
			ExDividendDate:   date(2024, 1, 30),
			DividendPerShare: 0.25,
		}, nil)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		updated, err := svc.Update(ctx, model.Dividend{
			ID:               created.ID,
			RecordDate:       created.RecordDate,
			ExDividendDate:   created.ExDividendDate,
			SharesOwned:      created.SharesOwned,
			DividendPerShare: created.DividendPerShare,
		}, &service.Reinvestment{
			BuyOrderDate: date(2024, 2, 5),
			Shares:       2.5,
			CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.ReinvestmentStatus != model.ReinvestmentReinvested {
			t.Errorf("expected status reinvested, got %q", updated.ReinvestmentStatus)
		}
		if updated.ReinvestmentTransactionID == "" {
			t.Error("expected a linked reinvestment transaction")
		}
	})
}

func TestDividendService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the linked reinvestment transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestDividendService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithDividendType("accumulating").Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)
		testutil.CreateTransaction(t, db, holding.ID, date(2024, 1, 10), model.TransactionBuy, 100, 10)

		dividend, err := svc.Create(ctx, model.Dividend{
			HoldingID:        holding.ID,
			RecordDate:       date(2024, 2, 1),
			ExDividendDate:   date(2024, 1, 30),
			DividendPerShare: 0.25,
		}, &service.Reinvestment{
			BuyOrderDate: date(2024, 2, 3),
			Shares:       2.5,
			CostPerShare: 10,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		if err := svc.Delete(ctx, dividend.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		var remaining int
		if err := db.QueryRow(`SELECT COUNT(*) FROM "transaction" WHERE holding_id = ?`, holding.ID).Scan(&remaining); err != nil {
			t.Fatalf("failed to count transactions: %v", err)
		}
		if remaining != 1 {
			t.Errorf("expected only the original buy to remain, got %d transactions", remaining)
		}
	})
}
