// Package middleware provides HTTP middleware for request processing.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmolenaar/fundtracker/internal/api/response"
	"github.com/jmolenaar/fundtracker/internal/validation"
)

// ValidateUUID rejects requests whose {uuid} URL parameter is missing or
// malformed, before the handler touches the database.
func ValidateUUID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "uuid")

		if id == "" {
			response.Error(w, http.StatusBadRequest, "valid UUID is required", "")
			return
		}

		if err := validation.ValidateUUID(id); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid UUID format", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
