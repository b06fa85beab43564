package handlers

import (
	"net/http"

	"github.com/jmolenaar/fundtracker/internal/api/request"
	"github.com/jmolenaar/fundtracker/internal/api/response"
	"github.com/jmolenaar/fundtracker/internal/model"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/validation"
)

// TransactionHandler handles transaction HTTP requests.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// List returns enriched transactions, optionally filtered by ?portfolioId=.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.URL.Query().Get("portfolioId")
	if portfolioID != "" {
		if err := validation.ValidateUUID(portfolioID); err != nil {
			response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
	}

	details, err := h.transactionService.List(r.Context(), portfolioID)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, details)
}

// Get returns one enriched transaction.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.transactionService.Get(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, detail)
}

// Create records a new transaction.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validation.ValidateUUID(req.HoldingID); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	date, err := validation.ParseDate(req.Date)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if err := validation.ValidateTransactionType(req.Type); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if err := validation.ValidateTransactionAmounts(req.Type, req.Shares, req.CostPerShare); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	created, err := h.transactionService.Create(r.Context(), model.Transaction{
		HoldingID:    req.HoldingID,
		Date:         date,
		Type:         req.Type,
		Shares:       req.Shares,
		CostPerShare: req.CostPerShare,
	})
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

// Update applies partial changes to a transaction. Editing history is
// allowed; downstream realized gains and cached valuations are rebuilt.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := h.transactionService.Get(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}

	updated := model.Transaction{
		ID:           existing.ID,
		HoldingID:    existing.HoldingID,
		Date:         existing.Date,
		Type:         existing.Type,
		Shares:       existing.Shares,
		CostPerShare: existing.CostPerShare,
	}

	if req.Date != nil {
		date, err := validation.ParseDate(*req.Date)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		updated.Date = date
	}
	if req.Type != nil {
		updated.Type = *req.Type
	}
	if req.Shares != nil {
		updated.Shares = *req.Shares
	}
	if req.CostPerShare != nil {
		updated.CostPerShare = *req.CostPerShare
	}

	if err := validation.ValidateTransactionType(updated.Type); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if err := validation.ValidateTransactionAmounts(updated.Type, updated.Shares, updated.CostPerShare); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.transactionService.Update(r.Context(), updated)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Delete removes a transaction and rebuilds what depended on it.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.transactionService.Delete(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}
