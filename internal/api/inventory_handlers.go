package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Health reports liveness and whether an inventory has been loaded yet.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	builtAt, jobID, loaded := s.Inventory.Info()
	resp := map[string]interface{}{
		"status":           "ok",
		"inventory_loaded": loaded,
	}
	if loaded {
		resp["built_at"] = builtAt
		if jobID != "" {
			resp["job_id"] = jobID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetInventory returns the full inventory envelope, the same document the
// CLI prints for --list.
func (s *Server) GetInventory(w http.ResponseWriter, r *http.Request) {
	inv := s.Inventory.Get()
	if inv == nil {
		writeError(w, http.StatusServiceUnavailable, "inventory not loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// ListGroups returns the group -> hosts map without hostvars.
func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	inv := s.Inventory.Get()
	if inv == nil {
		writeError(w, http.StatusServiceUnavailable, "inventory not loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, inv.Groups)
}

// GetHostVars returns one host's variables.
func (s *Server) GetHostVars(w http.ResponseWriter, r *http.Request) {
	inv := s.Inventory.Get()
	if inv == nil {
		writeError(w, http.StatusServiceUnavailable, "inventory not loaded yet")
		return
	}
	name := chi.URLParam(r, "name")
	vars, ok := inv.Hostvars[name]
	if !ok {
		writeError(w, http.StatusNotFound, "host not found")
		return
	}
	writeJSON(w, http.StatusOK, vars)
}
