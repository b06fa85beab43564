package handlers

import (
	"net/http"

	"github.com/jmolenaar/fundtracker/internal/api/request"
	"github.com/jmolenaar/fundtracker/internal/api/response"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/validation"
)

// DividendHandler handles dividend HTTP requests.
type DividendHandler struct {
	dividendService *service.DividendService
}

// NewDividendHandler creates a new DividendHandler.
func NewDividendHandler(dividendService *service.DividendService) *DividendHandler {
	return &DividendHandler{dividendService: dividendService}
}

// ListByFund returns the dividends of one fund.
func (h *DividendHandler) ListByFund(w http.ResponseWriter, r *http.Request) {
	details, err := h.dividendService.ListByFund(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, details)
}

// ListByPortfolio returns the dividends across one portfolio's holdings.
func (h *DividendHandler) ListByPortfolio(w http.ResponseWriter, r *http.Request) {
	details, err := h.dividendService.ListByPortfolio(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, details)
}

// Create records a dividend payment.
func (h *DividendHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDividendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validation.ValidateUUID(req.HoldingID); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	recordDate, err := validation.ParseDate(req.RecordDate)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	exDate, err := validation.ParseDate(req.ExDividendDate)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if req.DividendPerShare <= 0 && req.TotalAmount <= 0 {
		response.Error(w, http.StatusBadRequest, "validation failed", "dividendPerShare or totalAmount must be positive")
		return
	}

	reinvest, err := parseReinvestment(req.Reinvestment)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	dividend, err := h.dividendService.Create(r.Context(), model.Dividend{
		HoldingID:        req.HoldingID,
		RecordDate:       recordDate,
		ExDividendDate:   exDate,
		SharesOwned:      req.SharesOwned,
		DividendPerShare: req.DividendPerShare,
		TotalAmount:      req.TotalAmount,
	}, reinvest)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, dividend)
}

// Update rewrites a dividend and may complete a pending reinvestment.
func (h *DividendHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateDividendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	recordDate, err := validation.ParseDate(req.RecordDate)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	exDate, err := validation.ParseDate(req.ExDividendDate)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	reinvest, err := parseReinvestment(req.Reinvestment)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	dividend, err := h.dividendService.Update(r.Context(), model.Dividend{
		ID:               urlUUID(r),
		RecordDate:       recordDate,
		ExDividendDate:   exDate,
		SharesOwned:      req.SharesOwned,
		DividendPerShare: req.DividendPerShare,
		TotalAmount:      req.TotalAmount,
	}, reinvest)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, dividend)
}

// Delete removes a dividend and any linked reinvestment transaction.
func (h *DividendHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.dividendService.Delete(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

func parseReinvestment(req *request.ReinvestmentRequest) (*service.Reinvestment, error) {
	if req == nil {
		return nil, nil
	}

	buyOrderDate, err := validation.ParseDate(req.BuyOrderDate)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateTransactionAmounts(model.TransactionDividend, req.Shares, req.CostPerShare); err != nil {
		return nil, err
	}

	return &service.Reinvestment{
		BuyOrderDate: buyOrderDate,
		Shares:       req.Shares,
		CostPerShare: req.CostPerShare,
	}, nil
}
