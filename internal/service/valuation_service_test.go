package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/testutil"
)

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func TestValuationService_History(t *testing.T) {
	ctx := context.Background()

	t.Run("empty portfolio yields empty series", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)

		series, err := svc.History(ctx, portfolio.ID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if len(series) != 0 {
			t.Errorf("expected empty series, got %d points", len(series))
		}
	})

	t.Run("covers every day from first transaction through today", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		start := today().AddDate(0, 0, -6)
		testutil.CreateTransaction(t, db, holding.ID, start, model.TransactionBuy, 10, 10)
		testutil.CreateFundPrice(t, db, fund.ID, start, 12)

		// A range wider than the portfolio's life is clamped, not an error.
		series, err := svc.History(ctx, portfolio.ID, start.AddDate(0, 0, -30), today().AddDate(0, 0, 5))
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if len(series) != 7 {
			t.Fatalf("expected 7 daily points, got %d", len(series))
		}
		for i, point := range series {
			want := start.AddDate(0, 0, i)
			if !point.Date.Equal(want) {
				t.Errorf("point %d: expected date %v, got %v", i, want, point.Date)
			}
			if point.Cost != 100 {
				t.Errorf("point %d: expected cost 100, got %v", i, point.Cost)
			}
			// The day-one price carries forward over days without a quote.
			if point.Value != 120 {
				t.Errorf("point %d: expected value 120, got %v", i, point.Value)
			}
		}
	})

	t.Run("days before the first price count cost but no value", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		start := today().AddDate(0, 0, -3)
		testutil.CreateTransaction(t, db, holding.ID, start, model.TransactionBuy, 10, 10)
		testutil.CreateFundPrice(t, db, fund.ID, start.AddDate(0, 0, 2), 15)

		series, err := svc.History(ctx, portfolio.ID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if len(series) != 4 {
			t.Fatalf("expected 4 daily points, got %d", len(series))
		}
		if series[0].Value != 0 || series[1].Value != 0 {
			t.Errorf("expected zero value before first price, got %v and %v", series[0].Value, series[1].Value)
		}
		if series[0].Cost != 100 {
			t.Errorf("expected cost 100 before first price, got %v", series[0].Cost)
		}
		if series[2].Value != 150 || series[3].Value != 150 {
			t.Errorf("expected value 150 from first price on, got %v and %v", series[2].Value, series[3].Value)
		}
	})

	t.Run("sell rolls gain into realized and proceeds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		start := today().AddDate(0, 0, -2)
		testutil.CreateTransaction(t, db, holding.ID, start, model.TransactionBuy, 100, 10)
		testutil.CreateTransaction(t, db, holding.ID, start.AddDate(0, 0, 1), model.TransactionSell, 50, 15)
		testutil.CreateFundPrice(t, db, fund.ID, start, 15)

		series, err := svc.History(ctx, portfolio.ID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if len(series) != 3 {
			t.Fatalf("expected 3 daily points, got %d", len(series))
		}

		dayOfSale := series[1]
		if dayOfSale.RealizedGain != 250 {
			t.Errorf("expected realized gain 250, got %v", dayOfSale.RealizedGain)
		}
		if dayOfSale.SaleProceeds != 750 {
			t.Errorf("expected sale proceeds 750, got %v", dayOfSale.SaleProceeds)
		}
		if dayOfSale.Cost != 500 {
			t.Errorf("expected remaining cost 500, got %v", dayOfSale.Cost)
		}
		if dayOfSale.Value != 750 {
			t.Errorf("expected value 750, got %v", dayOfSale.Value)
		}
	})

	t.Run("serves cached snapshots and recomputes after invalidation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db)
		txSvc := testutil.NewTestTransactionService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		start := today().AddDate(0, 0, -4)
		testutil.CreateTransaction(t, db, holding.ID, start, model.TransactionBuy, 10, 10)
		testutil.CreateFundPrice(t, db, fund.ID, start, 10)

		first, err := svc.History(ctx, portfolio.ID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("first history failed: %v", err)
		}

		var cached int
		if err := db.QueryRow(`SELECT COUNT(*) FROM portfolio_snapshot WHERE portfolio_id = ?`, portfolio.ID).Scan(&cached); err != nil {
			t.Fatalf("failed to count snapshots: %v", err)
		}
		if cached != len(first) {
			t.Fatalf("expected %d cached snapshots, got %d", len(first), cached)
		}

		// A mid-range buy must drop the cache from its date forward and
		// change the replayed values.
		if _, err := txSvc.Create(ctx, model.Transaction{
			HoldingID: holding.ID, Date: start.AddDate(0, 0, 2),
			Type: model.TransactionBuy, Shares: 10, CostPerShare: 10,
		}); err != nil {
			t.Fatalf("mid-range buy failed: %v", err)
		}

		second, err := svc.History(ctx, portfolio.ID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("second history failed: %v", err)
		}
		if len(second) != len(first) {
			t.Fatalf("expected %d points, got %d", len(first), len(second))
		}
		if second[1].Cost != 100 {
			t.Errorf("expected untouched cost 100 before the new buy, got %v", second[1].Cost)
		}
		if second[2].Cost != 200 {
			t.Errorf("expected cost 200 from the new buy on, got %v", second[2].Cost)
		}
	})
}

func TestValuationService_HoldingHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a per-fund breakdown for each day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fundA := testutil.NewFund().WithName("Fund A").Build(t, db)
		fundB := testutil.NewFund().WithName("Fund B").Build(t, db)
		holdingA := testutil.CreateHolding(t, db, portfolio.ID, fundA.ID)
		holdingB := testutil.CreateHolding(t, db, portfolio.ID, fundB.ID)

		start := today().AddDate(0, 0, -1)
		testutil.CreateTransaction(t, db, holdingA.ID, start, model.TransactionBuy, 10, 10)
		testutil.CreateTransaction(t, db, holdingB.ID, start, model.TransactionBuy, 5, 20)
		testutil.CreateFundPrice(t, db, fundA.ID, start, 11)
		testutil.CreateFundPrice(t, db, fundB.ID, start, 22)

		points, err := svc.HoldingHistory(ctx, portfolio.ID, time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("holding history failed: %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("expected 2 daily points, got %d", len(points))
		}
		if len(points[0].Holdings) != 2 {
			t.Fatalf("expected 2 holdings per point, got %d", len(points[0].Holdings))
		}

		values := map[string]float64{}
		for _, h := range points[0].Holdings {
			values[h.FundName] = h.Value
		}
		if values["Fund A"] != 110 {
			t.Errorf("expected Fund A value 110, got %v", values["Fund A"])
		}
		if values["Fund B"] != 110 {
			t.Errorf("expected Fund B value 110, got %v", values["Fund B"])
		}
	})
}

func TestValuationService_Rebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("drops and repopulates the snapshot cache", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		start := today().AddDate(0, 0, -2)
		testutil.CreateTransaction(t, db, holding.ID, start, model.TransactionBuy, 10, 10)
		testutil.CreateFundPrice(t, db, fund.ID, start, 10)

		if err := svc.Rebuild(ctx, portfolio.ID); err != nil {
			t.Fatalf("rebuild failed: %v", err)
		}

		var cached int
		if err := db.QueryRow(`SELECT COUNT(*) FROM portfolio_snapshot WHERE portfolio_id = ?`, portfolio.ID).Scan(&cached); err != nil {
			t.Fatalf("failed to count snapshots: %v", err)
		}
		if cached != 3 {
			t.Errorf("expected 3 cached snapshots, got %d", cached)
		}
	})
}
