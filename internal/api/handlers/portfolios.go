package handlers

import (
	"net/http"

	"github.com/jmolenaar/fundtracker/internal/api/request"
	"github.com/jmolenaar/fundtracker/internal/api/response"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/validation"
)

// PortfolioHandler handles portfolio HTTP requests.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	valuationService *service.ValuationService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService *service.PortfolioService, valuationService *service.ValuationService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		valuationService: valuationService,
	}
}

// List returns all portfolios. ?includeArchived=true includes archived ones.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.PortfolioFilter{
		IncludeArchived: r.URL.Query().Get("includeArchived") == "true",
		IncludeExcluded: true,
	}

	portfolios, err := h.portfolioService.List(r.Context(), filter)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, portfolios)
}

// Get returns one portfolio.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.portfolioService.Get(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, portfolio)
}

// Create stores a new portfolio.
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePortfolioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Require("name", req.Name); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	portfolio, err := h.portfolioService.Create(r.Context(), model.Portfolio{
		Name:                req.Name,
		Description:         req.Description,
		ExcludeFromOverview: req.ExcludeFromOverview,
	})
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, portfolio)
}

// Update applies partial changes to a portfolio.
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePortfolioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	portfolio, err := h.portfolioService.Get(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}

	if req.Name != nil {
		portfolio.Name = *req.Name
	}
	if req.Description != nil {
		portfolio.Description = *req.Description
	}
	if req.IsArchived != nil {
		portfolio.IsArchived = *req.IsArchived
	}
	if req.ExcludeFromOverview != nil {
		portfolio.ExcludeFromOverview = *req.ExcludeFromOverview
	}

	updated, err := h.portfolioService.Update(r.Context(), portfolio)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// Archive marks a portfolio archived.
func (h *PortfolioHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.Archive(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// Delete removes a portfolio and its history.
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.Delete(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// Summaries returns today's valuation of every unarchived portfolio that is
// not excluded from the overview.
func (h *PortfolioHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.portfolioService.Summaries(r.Context(), model.PortfolioFilter{})
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, summaries)
}

// Summary returns today's valuation of one portfolio.
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolioService.Summary(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

// historyPoint is the wire shape of one day in a portfolio's history.
type historyPoint struct {
	Date           string  `json:"date"`
	Value          float64 `json:"value"`
	Cost           float64 `json:"cost"`
	RealizedGain   float64 `json:"realizedGain"`
	UnrealizedGain float64 `json:"unrealizedGain"`
	TotalDividends float64 `json:"totalDividends"`
	TotalGainLoss  float64 `json:"totalGainLoss"`
}

// History returns the daily valuation series of one portfolio. Optional
// ?startDate= and ?endDate= narrow the range.
func (h *PortfolioHandler) History(w http.ResponseWriter, r *http.Request) {
	start, err := validation.ParseOptionalDate(r.URL.Query().Get("startDate"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	end, err := validation.ParseOptionalDate(r.URL.Query().Get("endDate"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	snapshots, err := h.valuationService.History(r.Context(), urlUUID(r), start, end)
	if err != nil {
		response.ServiceError(w, err)
		return
	}

	points := make([]historyPoint, len(snapshots))
	for i, s := range snapshots {
		points[i] = historyPoint{
			Date:           s.Date.Format("2006-01-02"),
			Value:          s.Value,
			Cost:           s.Cost,
			RealizedGain:   s.RealizedGain,
			UnrealizedGain: s.UnrealizedGain,
			TotalDividends: s.TotalDividends,
			TotalGainLoss:  s.TotalGainLoss,
		}
	}
	response.JSON(w, http.StatusOK, points)
}

// HoldingHistory returns the per-fund daily breakdown of one portfolio.
func (h *PortfolioHandler) HoldingHistory(w http.ResponseWriter, r *http.Request) {
	start, err := validation.ParseOptionalDate(r.URL.Query().Get("startDate"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	end, err := validation.ParseOptionalDate(r.URL.Query().Get("endDate"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	points, err := h.valuationService.HoldingHistory(r.Context(), urlUUID(r), start, end)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, points)
}

// Holdings returns today's valuation of each holding in one portfolio.
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	details, err := h.portfolioService.Holdings(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, details)
}

// AddHolding links a fund into a portfolio.
func (h *PortfolioHandler) AddHolding(w http.ResponseWriter, r *http.Request) {
	var req request.CreateHoldingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateUUID(req.PortfolioID); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if err := validation.ValidateUUID(req.FundID); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	holding, err := h.portfolioService.AddHolding(r.Context(), req.PortfolioID, req.FundID)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, holding)
}

// RemoveHolding deletes a holding and its transaction history.
func (h *PortfolioHandler) RemoveHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.RemoveHolding(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// Rebuild recomputes the snapshot cache of one portfolio.
func (h *PortfolioHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.valuationService.Rebuild(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}
