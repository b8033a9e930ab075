package web

import (
	"net/http"

	"github.com/conorfennell/lexihash/internal/storage"
)

type sourceRequest struct {
	Path string `json:"path" validate:"required"`
}

// handleGetSources lists the configured sources.
func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.db.GetAllSources(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if sources == nil {
			sources = []storage.Source{}
		}
		writeJSON(w, r, http.StatusOK, sources)
	}
}

// handlePostSource adds a new local directory or git URL.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		source, err := s.syncer.AddSource(r.Context(), req.Path)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, source)
	}
}

// handleDeleteSource deletes a source. Its cards are kept.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync triggers a manual sync and reports what changed.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.syncer.RunSync(r.Context()) // Run in the foreground to make the user wait
		if err != nil {
			writeError(w, r, err)
			return
		}
		if report.Errors == nil {
			report.Errors = []string{}
		}
		writeJSON(w, r, http.StatusOK, report)
	}
}
