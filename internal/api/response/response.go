// Package response provides helpers for sending consistent JSON responses,
// including the mapping from domain errors to HTTP status codes.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmolenaar/fundtracker/internal/apperrors"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSON sends data with the given status code. A nil data sends the status
// code alone.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Error sends a structured error reply.
func Error(w http.ResponseWriter, status int, message, details string) {
	JSON(w, status, ErrorResponse{Error: message, Details: details})
}

// ServiceError maps a service-layer error to its HTTP status. Unrecognised
// errors become 500s with the detail withheld from the client.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrPortfolioNotFound),
		errors.Is(err, apperrors.ErrFundNotFound),
		errors.Is(err, apperrors.ErrFundPriceNotFound),
		errors.Is(err, apperrors.ErrHoldingNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrDividendNotFound),
		errors.Is(err, apperrors.ErrRealizedGainNotFound),
		errors.Is(err, apperrors.ErrFlexConfigNotFound),
		errors.Is(err, apperrors.ErrFlexTransactionNotFound):
		Error(w, http.StatusNotFound, "not found", err.Error())

	case errors.Is(err, apperrors.ErrInsufficientShares),
		errors.Is(err, apperrors.ErrUnknownTransactionType),
		errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrAllocationMismatch):
		Error(w, http.StatusBadRequest, "validation failed", err.Error())

	case errors.Is(err, apperrors.ErrFundInUse),
		errors.Is(err, apperrors.ErrDuplicateEntry):
		Error(w, http.StatusConflict, "conflict", err.Error())

	default:
		slog.Error("internal error", "error", err)
		Error(w, http.StatusInternalServerError, "internal server error", "")
	}
}
