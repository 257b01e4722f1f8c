package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

// StartRefresh creates a refresh job and runs it in the background. On
// success the fresh inventory is swapped into the store; on failure the job
// records the error and the previous inventory stays live.
func (s *Server) StartRefresh() *models.Job {
	job := s.Jobs.Create()

	go func() {
		inv, err := s.Refresh(job.AppendLog)
		if err != nil {
			job.AppendLog("ERROR: " + err.Error())
			job.Fail(err.Error())
			return
		}
		s.Inventory.Set(inv, job.ID)
		job.Complete()
	}()

	return job
}

func (s *Server) RunRefresh(w http.ResponseWriter, r *http.Request) {
	job := s.StartRefresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.Jobs.List()
	views := make([]models.JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.View())
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	job := s.Jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}
