package handlers

import (
	"database/sql"
	"net/http"

	"github.com/jmolenaar/fundtracker/internal/api/response"
	"github.com/jmolenaar/fundtracker/internal/database"
	"github.com/jmolenaar/fundtracker/internal/model"
)

// AppVersion is stamped at build time via -ldflags.
var AppVersion = "dev"

// SystemHandler handles health and version requests.
type SystemHandler struct {
	db *sql.DB
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db *sql.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health reports database reachability.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := database.HealthCheck(h.db); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version reports the application and schema versions.
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	dbVersion, err := database.Version(h.db)
	if err != nil {
		response.ServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, model.VersionInfo{
		AppVersion: AppVersion,
		DbVersion:  dbVersion,
	})
}
