package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmolenaar/fundtracker/internal/api/request"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/testutil"
)

func setupFundHandler(t *testing.T) (*FundHandler, *sql.DB, *testutil.MockYahooClient) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mock := testutil.NewMockYahooClient()
	return NewFundHandler(testutil.NewTestFundService(t, db, mock)), db, mock
}

func TestFundHandler_Create(t *testing.T) {
	t.Run("creates a fund", func(t *testing.T) {
		handler, _, _ := setupFundHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/funds", request.CreateFundRequest{
			Name:         "Vanguard FTSE All-World",
			Isin:         testutil.MakeISIN("IE"),
			Symbol:       "VWRL.AS",
			Currency:     "EUR",
			Exchange:     "AMS",
			DividendType: "distributing",
		}, nil)
		w := httptest.NewRecorder()

		handler.Create(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var created model.Fund
		testutil.DecodeResponse(t, w, &created)
		if created.ID == "" {
			t.Error("expected an assigned ID")
		}
		if created.DividendType != "distributing" {
			t.Errorf("expected distributing, got %q", created.DividendType)
		}
	})

	t.Run("rejects a malformed ISIN", func(t *testing.T) {
		handler, _, _ := setupFundHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/funds", request.CreateFundRequest{
			Name:         "Bad ISIN Fund",
			Isin:         "NOTANISIN",
			DividendType: "none",
		}, nil)
		w := httptest.NewRecorder()

		handler.Create(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("rejects an unknown dividend type", func(t *testing.T) {
		handler, _, _ := setupFundHandler(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/funds", request.CreateFundRequest{
			Name:         "Odd Fund",
			Isin:         testutil.MakeISIN("US"),
			DividendType: "quarterly",
		}, nil)
		w := httptest.NewRecorder()

		handler.Create(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestFundHandler_Update(t *testing.T) {
	t.Run("merges partial fields", func(t *testing.T) {
		handler, db, _ := setupFundHandler(t)

		fund := testutil.NewFund().WithName("Before").Build(t, db)

		newName := "After"
		req := testutil.NewJSONRequest(t, http.MethodPut, "/api/funds/"+fund.ID,
			request.UpdateFundRequest{Name: &newName},
			map[string]string{"uuid": fund.ID})
		w := httptest.NewRecorder()

		handler.Update(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var updated model.Fund
		testutil.DecodeResponse(t, w, &updated)
		if updated.Name != "After" {
			t.Errorf("expected name After, got %q", updated.Name)
		}
		if updated.Isin != fund.Isin {
			t.Errorf("expected ISIN untouched, got %q", updated.Isin)
		}
	})
}

func TestFundHandler_Delete(t *testing.T) {
	t.Run("fund in use maps to 409", func(t *testing.T) {
		handler, db, _ := setupFundHandler(t)

		portfolio := testutil.NewPortfolio().Build(t, db)
		fund := testutil.NewFund().Build(t, db)
		testutil.CreateHolding(t, db, portfolio.ID, fund.ID)

		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/funds/"+fund.ID,
			map[string]string{"uuid": fund.ID})
		w := httptest.NewRecorder()

		handler.Delete(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestFundHandler_SetPrice(t *testing.T) {
	t.Run("stores a manual price", func(t *testing.T) {
		handler, db, _ := setupFundHandler(t)

		fund := testutil.NewFund().Build(t, db)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/funds/"+fund.ID+"/prices",
			request.SetPriceRequest{Date: "2024-03-01", Price: 101.5},
			map[string]string{"uuid": fund.ID})
		w := httptest.NewRecorder()

		handler.SetPrice(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var price model.FundPrice
		testutil.DecodeResponse(t, w, &price)
		if price.Price != 101.5 {
			t.Errorf("expected price 101.5, got %v", price.Price)
		}
	})

	t.Run("rejects a non-positive price", func(t *testing.T) {
		handler, db, _ := setupFundHandler(t)

		fund := testutil.NewFund().Build(t, db)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/funds/"+fund.ID+"/prices",
			request.SetPriceRequest{Date: "2024-03-01", Price: 0},
			map[string]string{"uuid": fund.ID})
		w := httptest.NewRecorder()

		handler.SetPrice(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})
}

func TestFundHandler_Sync(t *testing.T) {
	t.Run("reports stored prices", func(t *testing.T) {
		handler, db, _ := setupFundHandler(t)

		fund := testutil.NewFund().Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/funds/"+fund.ID+"/sync",
			map[string]string{"uuid": fund.ID})
		w := httptest.NewRecorder()

		handler.Sync(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var result model.PriceSyncResult
		testutil.DecodeResponse(t, w, &result)
		if result.PricesAdded != 5 {
			t.Errorf("expected 5 prices added, got %d", result.PricesAdded)
		}
	})
}
