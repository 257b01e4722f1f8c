package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rflorenc/foreman-inventory/internal/inventory"
	"github.com/rflorenc/foreman-inventory/internal/models"
)

// Server holds shared state for all API handlers.
type Server struct {
	Inventory *InventoryStore
	Jobs      *models.JobStore

	// Refresh runs one fetch+build cycle, reporting progress through logf.
	// Wired up in main so handlers stay free of client plumbing.
	Refresh func(logf func(string)) (*inventory.Inventory, error)
}

// NewRouter builds the chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Inventory
		r.Get("/inventory", s.GetInventory)
		r.Get("/inventory/groups", s.ListGroups)
		r.Get("/inventory/hosts/{name}", s.GetHostVars)

		// Refresh (async)
		r.Post("/refresh", s.RunRefresh)

		// Jobs
		r.Get("/jobs", s.ListJobs)
		r.Get("/jobs/{id}", s.GetJob)
	})

	// WebSocket (outside /api to avoid JSON content-type assumptions)
	r.Get("/ws/jobs/{id}/logs", s.StreamJobLogs)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
