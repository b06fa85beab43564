package handlers

import (
	"net/http"
	"time"

	"github.com/jmolenaar/fundtracker/internal/api/request"
	"github.com/jmolenaar/fundtracker/internal/api/response"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/validation"
)

// FlexHandler handles the IBKR flex integration HTTP requests.
type FlexHandler struct {
	flexService *service.FlexService
}

// NewFlexHandler creates a new FlexHandler.
func NewFlexHandler(flexService *service.FlexService) *FlexHandler {
	return &FlexHandler{flexService: flexService}
}

// GetConfig returns the flex settings without the token.
func (h *FlexHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.flexService.GetConfig(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, config)
}

// SaveConfig stores the flex credentials and settings.
func (h *FlexHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var req request.SaveFlexConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Require("queryId", req.QueryID); err != nil {
		response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	var expiresAt *time.Time
	if req.TokenExpiresAt != "" {
		parsed, err := validation.ParseDate(req.TokenExpiresAt)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		expiresAt = &parsed
	}

	config, err := h.flexService.SaveConfig(r.Context(),
		req.Token, req.QueryID, expiresAt, req.AutoImportEnabled, req.Enabled, req.DefaultAllocations)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, config)
}

// DeleteConfig removes the flex configuration.
func (h *FlexHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.flexService.DeleteConfig(r.Context()); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// Import downloads the configured flex statement into the inbox.
func (h *FlexHandler) Import(w http.ResponseWriter, r *http.Request) {
	result, err := h.flexService.Import(r.Context())
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Inbox lists imported flex transactions, optionally filtered by ?status=.
func (h *FlexHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.flexService.Inbox(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, transactions)
}

// Eligible reports which portfolios can receive one flex transaction.
func (h *FlexHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	eligible, err := h.flexService.Eligible(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, eligible)
}

// Allocate splits one flex transaction across portfolios.
func (h *FlexHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req request.AllocateFlexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Allocations) == 0 {
		response.Error(w, http.StatusBadRequest, "validation failed", "allocations cannot be empty")
		return
	}
	for _, a := range req.Allocations {
		if err := validation.ValidateUUID(a.PortfolioID); err != nil {
			response.Error(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
	}

	records, err := h.flexService.Allocate(r.Context(), urlUUID(r), req.Allocations)
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, records)
}

// Ignore marks a flex transaction as not relevant.
func (h *FlexHandler) Ignore(w http.ResponseWriter, r *http.Request) {
	if err := h.flexService.Ignore(r.Context(), urlUUID(r)); err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

// Allocations lists the allocation records of one flex transaction.
func (h *FlexHandler) Allocations(w http.ResponseWriter, r *http.Request) {
	records, err := h.flexService.Allocations(r.Context(), urlUUID(r))
	if err != nil {
		response.ServiceError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, records)
}
