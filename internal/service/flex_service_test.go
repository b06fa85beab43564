package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
	"github.com/jmolenaar/fundtracker/internal/ibkr"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/repository"
	"github.com/jmolenaar/fundtracker/internal/testutil"
)

func TestFlexService_Config(t *testing.T) {
	ctx := context.Background()

	t.Run("unset configuration reports not configured", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestFlexService(t, db, &testutil.MockFlexClient{})

		config, err := svc.GetConfig(ctx)
		if err != nil {
			t.Fatalf("get config failed: %v", err)
		}
		if config.Configured {
			t.Error("expected not configured")
		}
	})

	t.Run("token is encrypted at rest and never returned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestFlexService(t, db, &testutil.MockFlexClient{})

		config, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, true, true, nil)
		if err != nil {
			t.Fatalf("save config failed: %v", err)
		}
		if !config.Configured {
			t.Error("expected configured")
		}
		if config.QueryID != "12345" {
			t.Errorf("expected query ID 12345, got %q", config.QueryID)
		}

		var stored string
		if err := db.QueryRow(`SELECT flex_token FROM flex_config`).Scan(&stored); err != nil {
			t.Fatalf("failed to read stored token: %v", err)
		}
		if stored == "secret-token" {
			t.Error("expected token to be encrypted at rest")
		}
	})

	t.Run("saving with an empty token keeps the stored one", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestFlexService(t, db, &testutil.MockFlexClient{})

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}

		var before string
		if err := db.QueryRow(`SELECT flex_token FROM flex_config`).Scan(&before); err != nil {
			t.Fatalf("failed to read stored token: %v", err)
		}

		if _, err := svc.SaveConfig(ctx, "", "67890", nil, false, true, nil); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		var after string
		var queryID string
		if err := db.QueryRow(`SELECT flex_token, query_id FROM flex_config`).Scan(&after, &queryID); err != nil {
			t.Fatalf("failed to read stored token: %v", err)
		}
		if after != before {
			t.Error("expected the stored token to survive an empty-token save")
		}
		if queryID != "67890" {
			t.Errorf("expected query ID updated to 67890, got %q", queryID)
		}
	})

	t.Run("saving without any token fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestFlexService(t, db, &testutil.MockFlexClient{})

		if _, err := svc.SaveConfig(ctx, "", "12345", nil, false, true, nil); err == nil {
			t.Fatal("expected error when no token was ever stored")
		}
	})
}

func TestFlexService_Import(t *testing.T) {
	ctx := context.Background()

	statement := testutil.MakeFlexStatement(
		[]ibkr.Trade{{
			Symbol:        "VWRL",
			Isin:          "IE00B3RBWM25",
			Quantity:      10,
			TradePrice:    100,
			NetCash:       -1000,
			TransactionID: 1001,
			TradeDate:     "2024-03-01",
			BuySell:       "BUY",
			Currency:      "EUR",
		}},
		[]ibkr.CashTransaction{
			{
				Symbol:        "VWRL",
				Isin:          "IE00B3RBWM25",
				Amount:        25.5,
				Type:          "Dividends",
				TransactionID: 1002,
				ReportDate:    "2024-03-05",
				Currency:      "EUR",
			},
			{
				Symbol:        "VWRL",
				Amount:        -2,
				Type:          "Other Fees",
				TransactionID: 1003,
				ReportDate:    "2024-03-05",
				Currency:      "EUR",
			},
		},
	)

	t.Run("lands trades and dividend cash lines in the inbox", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: statement}
		svc := testutil.NewTestFlexService(t, db, client)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}

		result, err := svc.Import(ctx)
		if err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if result.Imported != 2 {
			t.Errorf("expected 2 imported lines, got %d", result.Imported)
		}
		if result.Duplicates != 0 {
			t.Errorf("expected no duplicates, got %d", result.Duplicates)
		}

		inbox, err := svc.Inbox(ctx, model.FlexStatusPending)
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		if len(inbox) != 2 {
			t.Fatalf("expected 2 pending lines, got %d", len(inbox))
		}
	})

	t.Run("re-import counts duplicates instead of re-adding", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: statement}
		svc := testutil.NewTestFlexService(t, db, client)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}

		if _, err := svc.Import(ctx); err != nil {
			t.Fatalf("first import failed: %v", err)
		}
		result, err := svc.Import(ctx)
		if err != nil {
			t.Fatalf("second import failed: %v", err)
		}
		if result.Imported != 0 {
			t.Errorf("expected nothing new, got %d imports", result.Imported)
		}
		if result.Duplicates != 2 {
			t.Errorf("expected 2 duplicates, got %d", result.Duplicates)
		}
	})

	t.Run("disabled integration refuses to import", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: statement}
		svc := testutil.NewTestFlexService(t, db, client)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, false, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}

		if _, err := svc.Import(ctx); err == nil {
			t.Fatal("expected import to fail while disabled")
		}
	})
}

func TestFlexService_Allocate(t *testing.T) {
	ctx := context.Background()

	t.Run("allocating a buy creates the portfolio transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: testutil.MakeFlexStatement(
			[]ibkr.Trade{{
				Symbol: "VWRL", Isin: "IE00B3RBWM25",
				Quantity: 10, TradePrice: 100, NetCash: -1000,
				TransactionID: 2001, TradeDate: "2024-03-01", BuySell: "BUY", Currency: "EUR",
			}}, nil)}
		svc := testutil.NewTestFlexService(t, db, client)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithSymbol("VWRL").WithISIN("IE00B3RBWM25").Build(t, db)
		holding := testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}
		if _, err := svc.Import(ctx); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		inbox, err := svc.Inbox(ctx, model.FlexStatusPending)
		if err != nil || len(inbox) != 1 {
			t.Fatalf("expected 1 pending line, got %d (err %v)", len(inbox), err)
		}

		records, err := svc.Allocate(ctx, inbox[0].ID, []model.FlexAllocation{
			{PortfolioID: portfolio.ID, Percentage: 100},
		})
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 allocation record, got %d", len(records))
		}
		if records[0].Shares != 10 {
			t.Errorf("expected 10 allocated shares, got %v", records[0].Shares)
		}

		txs, err := repository.NewTransactionRepository(db).GetForHolding(ctx, holding.ID)
		if err != nil {
			t.Fatalf("failed to list transactions: %v", err)
		}
		if len(txs) != 1 {
			t.Fatalf("expected 1 created transaction, got %d", len(txs))
		}
		if txs[0].Type != model.TransactionBuy || txs[0].Shares != 10 || txs[0].CostPerShare != 100 {
			t.Errorf("unexpected created transaction: %+v", txs[0])
		}

		processed, err := svc.Inbox(ctx, model.FlexStatusProcessed)
		if err != nil {
			t.Fatalf("inbox failed: %v", err)
		}
		if len(processed) != 1 {
			t.Errorf("expected the line marked processed, got %d", len(processed))
		}
	})

	t.Run("percentages must sum to 100", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: testutil.MakeFlexStatement(
			[]ibkr.Trade{{
				Symbol: "VWRL", Isin: "IE00B3RBWM25",
				Quantity: 10, TradePrice: 100, NetCash: -1000,
				TransactionID: 2002, TradeDate: "2024-03-01", BuySell: "BUY", Currency: "EUR",
			}}, nil)}
		svc := testutil.NewTestFlexService(t, db, client)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithSymbol("VWRL").WithISIN("IE00B3RBWM25").Build(t, db)
		testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}
		if _, err := svc.Import(ctx); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		inbox, err := svc.Inbox(ctx, model.FlexStatusPending)
		if err != nil || len(inbox) != 1 {
			t.Fatalf("expected 1 pending line, got %d (err %v)", len(inbox), err)
		}

		_, err = svc.Allocate(ctx, inbox[0].ID, []model.FlexAllocation{
			{PortfolioID: portfolio.ID, Percentage: 60},
		})
		if !errors.Is(err, apperrors.ErrAllocationMismatch) {
			t.Fatalf("expected ErrAllocationMismatch, got %v", err)
		}
	})

	t.Run("ignore marks a pending line and blocks re-processing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: testutil.MakeFlexStatement(
			[]ibkr.Trade{{
				Symbol: "VWRL", Isin: "IE00B3RBWM25",
				Quantity: 10, TradePrice: 100, NetCash: -1000,
				TransactionID: 2003, TradeDate: "2024-03-01", BuySell: "BUY", Currency: "EUR",
			}}, nil)}
		svc := testutil.NewTestFlexService(t, db, client)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().WithSymbol("VWRL").WithISIN("IE00B3RBWM25").Build(t, db)
		testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}
		if _, err := svc.Import(ctx); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		inbox, err := svc.Inbox(ctx, model.FlexStatusPending)
		if err != nil || len(inbox) != 1 {
			t.Fatalf("expected 1 pending line, got %d (err %v)", len(inbox), err)
		}

		if err := svc.Ignore(ctx, inbox[0].ID); err != nil {
			t.Fatalf("ignore failed: %v", err)
		}

		if _, err := svc.Allocate(ctx, inbox[0].ID, []model.FlexAllocation{
			{PortfolioID: portfolio.ID, Percentage: 100},
		}); err == nil {
			t.Fatal("expected allocate to fail on an ignored line")
		}
	})
}

func TestFlexService_Eligible(t *testing.T) {
	ctx := context.Background()

	t.Run("matches by symbol and skips archived portfolios", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: testutil.MakeFlexStatement(
			[]ibkr.Trade{{
				Symbol: "VWRL", Isin: "IE00B3RBWM25",
				Quantity: 10, TradePrice: 100, NetCash: -1000,
				TransactionID: 3001, TradeDate: "2024-03-01", BuySell: "BUY", Currency: "EUR",
			}}, nil)}
		svc := testutil.NewTestFlexService(t, db, client)

		active := testutil.NewPortfolio().WithName("Active").Build(t, db)
		archived := testutil.NewPortfolio().WithName("Old").Archived().Build(t, db)
		fund := testutil.NewFund().WithSymbol("VWRL").WithISIN("IE00B3RBWM25").Build(t, db)
		testutil.CreateHolding(t, db, active.ID, fund.ID)
		testutil.CreateHolding(t, db, archived.ID, fund.ID)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}
		if _, err := svc.Import(ctx); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		inbox, err := svc.Inbox(ctx, model.FlexStatusPending)
		if err != nil || len(inbox) != 1 {
			t.Fatalf("expected 1 pending line, got %d (err %v)", len(inbox), err)
		}

		eligible, err := svc.Eligible(ctx, inbox[0].ID)
		if err != nil {
			t.Fatalf("eligible failed: %v", err)
		}
		if !eligible.Found {
			t.Fatal("expected a fund match")
		}
		if len(eligible.Portfolios) != 1 || eligible.Portfolios[0].ID != active.ID {
			t.Errorf("expected only the active portfolio, got %+v", eligible.Portfolios)
		}
	})

	t.Run("unknown instrument reports a warning instead of an error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		client := &testutil.MockFlexClient{Statement: testutil.MakeFlexStatement(
			[]ibkr.Trade{{
				Symbol: "ZZZZ", Quantity: 1, TradePrice: 1, NetCash: -1,
				TransactionID: 3002, TradeDate: "2024-03-01", BuySell: "BUY", Currency: "EUR",
			}}, nil)}
		svc := testutil.NewTestFlexService(t, db, client)

		if _, err := svc.SaveConfig(ctx, "secret-token", "12345", nil, false, true, nil); err != nil {
			t.Fatalf("save config failed: %v", err)
		}
		if _, err := svc.Import(ctx); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		inbox, err := svc.Inbox(ctx, model.FlexStatusPending)
		if err != nil || len(inbox) != 1 {
			t.Fatalf("expected 1 pending line, got %d (err %v)", len(inbox), err)
		}

		eligible, err := svc.Eligible(ctx, inbox[0].ID)
		if err != nil {
			t.Fatalf("eligible failed: %v", err)
		}
		if eligible.Found {
			t.Error("expected no fund match")
		}
		if eligible.Warning == "" {
			t.Error("expected a warning message")
		}
	})
}
