// Package handlers wires HTTP requests to the service layer.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmolenaar/fundtracker/internal/api/response"
)

// decodeJSON reads the request body into dest, replying 400 on malformed
// input. Returns false when the response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// urlUUID reads the {uuid} parameter validated by the ValidateUUID middleware.
func urlUUID(r *http.Request) string {
	return chi.URLParam(r, "uuid")
}
