package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/pipeline"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string                 `json:"status"`
	Runs   pipeline.LimiterStatus `json:"runs"`
}

// FormatInfo describes one registered output format.
type FormatInfo struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Extension string `json:"extension,omitempty"`
	Database  bool   `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ok",
		Runs:   s.runs.LimiterStatus(),
	})
}

// handleListFormats returns every registered output format.
func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	defs := core.All()
	formats := make([]FormatInfo, len(defs))
	for i, def := range defs {
		formats[i] = FormatInfo{
			Key:       def.Key,
			Label:     def.Label,
			Extension: def.Extension,
			Database:  def.WriteDB != nil,
		}
	}
	writeJSON(w, r, http.StatusOK, formats)
}

// handleListRuns returns every run of this process, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.runs.List())
}

// handleStartRun starts a run in the background and returns it with 202.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Start()
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/runs/"+run.ID)
	writeJSON(w, r, http.StatusAccepted, run)
}

// handleGetRun returns one run, including its report once finished.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.Get(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}
