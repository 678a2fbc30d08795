package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// defaultHybridSearchLimit is the per-store result count of a hybrid search.
const defaultHybridSearchLimit = 10

// hybridPaperDetails handles GET /api/hybrid/paper-details/{paperID}.
func (s *Server) hybridPaperDetails(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Hybrid.PaperDetails(r.Context(), chi.URLParam(r, "paperID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: view})
}

// hybridSearch handles GET /api/hybrid/search.
func (s *Server) hybridSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeDomainError(w, domain.NewValidationError("q", "is required"))
		return
	}
	limit := defaultHybridSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = domain.ParseBoundedInt("limit", raw, 1, maxHybridSearchLimit); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	res, err := s.deps.Hybrid.Search(r.Context(), q, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: res})
}

// authorNetwork handles GET /api/hybrid/author-network/{name}.
func (s *Server) authorNetwork(w http.ResponseWriter, r *http.Request) {
	limit, err := rankingLimit(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, err := s.deps.Hybrid.AuthorNetwork(r.Context(), chi.URLParam(r, "name"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: res})
}

// journalAnalysis handles GET /api/hybrid/journal-analysis/{journal}.
func (s *Server) journalAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Hybrid.JournalAnalysis(r.Context(), chi.URLParam(r, "journal"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: res})
}

// syncStatus handles GET /api/hybrid/sync-status.
func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Writes.SyncStatus(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: status})
}
