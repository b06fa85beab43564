package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/testutil"
)

func TestPortfolioService_CRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("create, get, update, archive, delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		created, err := svc.Create(ctx, model.Portfolio{Name: "Pension", Description: "long term"})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected an assigned ID")
		}

		got, err := svc.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Name != "Pension" {
			t.Errorf("expected name Pension, got %q", got.Name)
		}

		got.Name = "Retirement"
		if _, err := svc.Update(ctx, got); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		if err := svc.Archive(ctx, created.ID); err != nil {
			t.Fatalf("archive failed: %v", err)
		}
		archived, err := svc.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("get after archive failed: %v", err)
		}
		if !archived.IsArchived {
			t.Error("expected portfolio to be archived")
		}

		if err := svc.Delete(ctx, created.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := svc.Get(ctx, created.ID); !errors.Is(err, apperrors.ErrPortfolioNotFound) {
			t.Fatalf("expected ErrPortfolioNotFound after delete, got %v", err)
		}
	})

	t.Run("listing hides archived portfolios unless asked", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		testutil.NewPortfolio().WithName("Active").Build(t, db)
		testutil.NewPortfolio().WithName("Old").Archived().Build(t, db)

		visible, err := svc.List(ctx, model.PortfolioFilter{})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(visible) != 1 {
			t.Errorf("expected 1 visible portfolio, got %d", len(visible))
		}

		all, err := svc.List(ctx, model.PortfolioFilter{IncludeArchived: true, IncludeExcluded: true})
		if err != nil {
			t.Fatalf("list all failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 portfolios, got %d", len(all))
		}
	})
}

func TestPortfolioService_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("values the portfolio at the latest price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		txSvc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		buyDate := today().AddDate(0, 0, -10)
		if _, err := txSvc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: buyDate,
			Type: model.TransactionBuy, Shares: 100, CostPerShare: 10,
		}); err != nil {
			t.Fatalf("buy failed: %v", err)
		}
		if _, err := txSvc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: buyDate.AddDate(0, 0, 5),
			Type: model.TransactionSell, Shares: 50, CostPerShare: 15,
		}); err != nil {
			t.Fatalf("sell failed: %v", err)
		}
		testutil.CreateFundPrice(t, db, fund.ID, today().AddDate(0, 0, -1), 20)

		summary, err := svc.Summary(ctx, portfolio.ID)
		if err != nil {
			t.Fatalf("summary failed: %v", err)
		}

		if summary.TotalValue != 1000 {
			t.Errorf("expected value 1000 (50 shares x 20), got %v", summary.TotalValue)
		}
		if summary.TotalCost != 500 {
			t.Errorf("expected remaining cost 500, got %v", summary.TotalCost)
		}
		if summary.RealizedGain != 250 {
			t.Errorf("expected realized gain 250, got %v", summary.RealizedGain)
		}
		if summary.UnrealizedGain != 500 {
			t.Errorf("expected unrealized gain 500, got %v", summary.UnrealizedGain)
		}
		if summary.TotalGainLoss != 750 {
			t.Errorf("expected total gain 750, got %v", summary.TotalGainLoss)
		}
	})

	t.Run("dividends accumulate into the summary", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithDividendType("distributing").Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		buyDate := today().AddDate(0, 0, -10)
		testutil.CreateTransaction(t, db, holding.ID, buyDate, model.TransactionBuy, 100, 10)
		testutil.CreateDividend(t, db, fund.ID, holding.ID, buyDate.AddDate(0, 0, 2), 100, 0.5)

		summary, err := svc.Summary(ctx, portfolio.ID)
		if err != nil {
			t.Fatalf("summary failed: %v", err)
		}
		if summary.TotalDividends != 50 {
			t.Errorf("expected dividends 50, got %v", summary.TotalDividends)
		}
	})
}

func TestPortfolioService_Holdings(t *testing.T) {
	ctx := context.Background()

	t.Run("reports per-holding metrics", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		buyDate := today().AddDate(0, 0, -5)
		testutil.CreateTransaction(t, db, holding.ID, buyDate, model.TransactionBuy, 40, 10)
		testutil.CreateTransaction(t, db, holding.ID, buyDate.AddDate(0, 0, 1), model.TransactionBuy, 60, 20)
		testutil.CreateTransaction(t, db, holding.ID, buyDate.AddDate(0, 0, 2), model.TransactionFee, 0, 7.5)
		testutil.CreateFundPrice(t, db, fund.ID, buyDate.AddDate(0, 0, 2), 18)

		details, err := svc.Holdings(ctx, portfolio.ID)
		if err != nil {
			t.Fatalf("holdings failed: %v", err)
		}
		if len(details) != 1 {
			t.Fatalf("expected 1 holding, got %d", len(details))
		}

		d := details[0]
		if d.TotalShares != 100 {
			t.Errorf("expected 100 shares, got %v", d.TotalShares)
		}
		if d.AverageCost != 16 {
			t.Errorf("expected average cost 16, got %v", d.AverageCost)
		}
		if d.TotalCost != 1600 {
			t.Errorf("expected cost 1600, got %v", d.TotalCost)
		}
		if d.CurrentValue != 1800 {
			t.Errorf("expected value 1800, got %v", d.CurrentValue)
		}
		if d.TotalFees != 7.5 {
			t.Errorf("expected fees 7.5, got %v", d.TotalFees)
		}
	})
}

func TestPortfolioService_AddHolding(t *testing.T) {
	ctx := context.Background()

	t.Run("links a fund once per portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)

		if _, err := svc.AddHolding(ctx, portfolio.ID, fund.ID); err != nil {
			t.Fatalf("add holding failed: %v", err)
		}

		_, err := svc.AddHolding(ctx, portfolio.ID, fund.ID)
		if !errors.Is(err, apperrors.ErrDuplicateEntry) {
			t.Fatalf("expected ErrDuplicateEntry on second add, got %v", err)
		}
	})

	t.Run("remove drops the holding and its transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding, err := svc.AddHolding(ctx, portfolio.ID, fund.ID)
		if err != nil {
			t.Fatalf("add holding failed: %v", err)
		}
		testutil.CreateTransaction(t, db, holding.ID, today(), model.TransactionBuy, 1, 1)

		if err := svc.RemoveHolding(ctx, holding.ID); err != nil {
			t.Fatalf("remove holding failed: %v", err)
		}

		var remaining int
		if err := db.QueryRow(`SELECT COUNT(*) FROM "transaction" WHERE holding_id = ?`, holding.ID).Scan(&remaining); err != nil {
			t.Fatalf("failed to count transactions: %v", err)
		}
		if remaining != 0 {
			t.Errorf("expected cascade to remove transactions, got %d", remaining)
		}
	})
}
