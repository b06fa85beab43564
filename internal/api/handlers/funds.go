package handlers

import (
	"net/http"

	"github.com/jmolenaar/fundtracker/internal/api/request"
	"github.com/jmolenaar/fundtracker/internal/api/response"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/validation"
)

// FundHandler handles fund and price HTTP requests.
type FundHandler struct {
	fundService *service.FundService
}

// NewFundHandler creates a new FundHandler.
func NewFundHandler(fundService *service.FundService) *FundHandler {
	return &FundHandler{fundService: fundService}
}

// List returns all funds.
func (h *FundHandler) List(w http.ResponseWriter, r *http.Request) {
	funds, err := h.fundService.List(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, funds)
}

// Get returns one fund.
func (h *FundHandler) Get(w http.ResponseWriter, r *http.Request) {
	fund, err := h.fundService.Get(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, fund)
}

// Create stores a new fund.
func (h *FundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateFundRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateFundFields(req.Name, req.Isin, req.DividendType); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	fund, err := h.fundService.Create(r.Context(), model.Fund{
		Name:           req.Name,
		Isin:           req.Isin,
		Symbol:         req.Symbol,
		Currency:       req.Currency,
		Exchange:       req.Exchange,
		InvestmentType: req.InvestmentType,
		DividendType:   req.DividendType,
	})
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, fund)
}

// Update applies partial changes to a fund.
func (h *FundHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateFundRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fund, err := h.fundService.Get(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}

	if req.Name != nil {
		fund.Name = *req.Name
	}
	if req.Isin != nil {
		fund.Isin = *req.Isin
	}
	if req.Symbol != nil {
		fund.Symbol = *req.Symbol
	}
	if req.Currency != nil {
		fund.Currency = *req.Currency
	}
	if req.Exchange != nil {
		fund.Exchange = *req.Exchange
	}
	if req.InvestmentType != nil {
		fund.InvestmentType = *req.InvestmentType
	}
	if req.DividendType != nil {
		fund.DividendType = *req.DividendType
	}

	if err := validateFundFields(fund.Name, fund.Isin, fund.DividendType); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	updated, err := h.fundService.Update(r.Context(), fund)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// Delete removes a fund not held by any portfolio.
func (h *FundHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.fundService.Delete(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// Usage reports which portfolios hold one fund.
func (h *FundHandler) Usage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.fundService.Usage(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, usage)
}

// Prices returns the stored price history of one fund, newest first.
func (h *FundHandler) Prices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.fundService.Prices(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, prices)
}

// SetPrice stores one manually entered price point.
func (h *FundHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req request.SetPriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := validation.ParseDate(req.Date)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if req.Price <= 0 {
		response.Error(w, http.StatusBadRequest, "validation failed", "price must be positive")
		return
	}

	price, err := h.fundService.SetPrice(r.Context(), urlUUID(r), date, req.Price)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, price)
}

// Sync refreshes one fund's recent prices from Yahoo.
func (h *FundHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.fundService.SyncPrices(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// SyncAll refreshes every fund's recent prices.
func (h *FundHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.fundService.SyncAllPrices(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Backfill fetches and stores historical prices for a date range.
func (h *FundHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	var req request.BackfillPricesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	start, err := validation.ParseDate(req.StartDate)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	end, err := validation.ParseDate(req.EndDate)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.fundService.BackfillPrices(r.Context(), urlUUID(r), start, end)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func validateFundFields(name, isin, dividendType string) error {
	if err := validation.Require("name", name); err != nil {
		return err
	}
	if err := validation.ValidateISIN(isin); err != nil {
		return err
	}
	return validation.ValidateDividendType(dividendType)
}
