package request

import "github.com/jmolenaar/fundtracker/internal/model"

// SaveFlexConfigRequest stores the IBKR flex credentials and settings. An
// empty token keeps the previously stored one.
type SaveFlexConfigRequest struct {
	Token              string                 `json:"token"`
	QueryID            string                 `json:"queryId"`
	TokenExpiresAt     string                 `json:"tokenExpiresAt,omitempty"`
	AutoImportEnabled  bool                   `json:"autoImportEnabled"`
	Enabled            bool                   `json:"enabled"`
	DefaultAllocations []model.FlexAllocation `json:"defaultAllocations,omitempty"`
}

// AllocateFlexRequest splits a flex transaction across portfolios.
type AllocateFlexRequest struct {
	Allocations []model.FlexAllocation `json:"allocations"`
}
