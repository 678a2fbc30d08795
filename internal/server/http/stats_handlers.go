package httpserver

import (
	"net/http"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/router"
)

// databaseInfo is the body of GET /api/stats/database-info.
type databaseInfo struct {
	Counts  map[domain.Store]int64 `json:"counts"`
	Sync    domain.SyncStatus      `json:"sync"`
	Routing []router.Entry         `json:"routing"`
}

// statsOverview handles GET /api/stats/overview.
func (s *Server) statsOverview(w http.ResponseWriter, r *http.Request) {
	limit, err := rankingLimit(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.Overview(r.Context(), source(r), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, res, route)
}

// topAuthors handles GET /api/stats/authors.
func (s *Server) topAuthors(w http.ResponseWriter, r *http.Request) {
	limit, err := rankingLimit(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.TopAuthors(r.Context(), source(r), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, res, route)
}

// topJournals handles GET /api/stats/journals.
func (s *Server) topJournals(w http.ResponseWriter, r *http.Request) {
	limit, err := rankingLimit(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.TopJournals(r.Context(), source(r), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, res, route)
}

// papersPerYear handles GET /api/stats/papers-per-year.
func (s *Server) papersPerYear(w http.ResponseWriter, r *http.Request) {
	res, route, err := s.deps.Reads.PapersPerYear(r.Context(), source(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, res, route)
}

// covidStats handles GET /api/stats/covid.
func (s *Server) covidStats(w http.ResponseWriter, r *http.Request) {
	res, route, err := s.deps.Reads.CovidStats(r.Context(), source(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, res, route)
}

// databaseInfo handles GET /api/stats/database-info.
func (s *Server) databaseInfo(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Writes.SyncStatus(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: databaseInfo{
		Counts: map[domain.Store]int64{
			domain.StoreRelational: status.RelationalCount,
			domain.StoreDocument:   status.DocumentCount,
		},
		Sync:    status,
		Routing: s.deps.Reads.Router().Entries(),
	}})
}
