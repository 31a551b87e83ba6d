package api

import (
	"net/http"

	"github.com/seenimoa/fintel/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config *config.Config     `json:"config"`
	Keys   []config.KeyStatus `json:"keys"`
}

// handleGetConfig returns the running configuration.
// Credentials are excluded via json:"-" tags; only their masked status is shown.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config: s.cfg,
			Keys:   config.CheckAPIKeys(s.cfg),
		},
	})
}

// handleGetConfigKeys returns the status of the credentials fintel uses.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
