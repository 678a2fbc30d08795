package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// paperRequest is the JSON body of a paper create. Bulk items use the same shape.
type paperRequest struct {
	PaperID       string   `json:"paper_id" validate:"omitempty,max=255"`
	Title         string   `json:"title" validate:"required,max=2000"`
	Abstract      string   `json:"abstract"`
	Year          int      `json:"year" validate:"omitempty,min=1000,max=9999"`
	Journal       string   `json:"journal" validate:"max=500"`
	DOI           string   `json:"doi" validate:"max=255"`
	Source        string   `json:"source" validate:"max=100"`
	HasFullText   bool     `json:"has_full_text"`
	IsCovid19     bool     `json:"is_covid19"`
	CitationCount int      `json:"citation_count" validate:"min=0"`
	Keywords      []string `json:"keywords" validate:"max=100,dive,max=200"`
	Authors       []string `json:"authors" validate:"max=500,dive,max=255"`
}

func (p paperRequest) toPaper() domain.Paper {
	return domain.Paper{
		PaperID:       p.PaperID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Year:          p.Year,
		Journal:       p.Journal,
		DOI:           p.DOI,
		Source:        p.Source,
		HasFullText:   p.HasFullText,
		IsCovid19:     p.IsCovid19,
		CitationCount: p.CitationCount,
		Keywords:      p.Keywords,
		Authors:       p.Authors,
	}
}

// listPapers handles GET /api/papers.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	sort, page, err := listParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.List(r.Context(), source(r), sort, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writePage(w, res, page, route)
}

// searchPapers handles GET /api/papers/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	params, err := searchParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.Search(r.Context(), source(r), params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writePage(w, res, params.Page, route)
}

// suggestions handles GET /api/papers/suggestions.
func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	if prefix == "" {
		writeDomainError(w, domain.NewValidationError("q", "is required"))
		return
	}
	typ, err := domain.ParseSuggestionType(r.URL.Query().Get("type"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.Suggestions(r.Context(), source(r), prefix, typ)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, res, route)
}

// filterOptions handles GET /api/papers/filters.
func (s *Server) filterOptions(w http.ResponseWriter, r *http.Request) {
	res, route, err := s.deps.Reads.FilterOptions(r.Context(), source(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, res, route)
}

// getPaper handles GET /api/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paper, route, err := s.deps.Reads.Get(r.Context(), source(r), chi.URLParam(r, "paperID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, paper, route)
}

// papersByYear handles GET /api/papers/year/{year}.
func (s *Server) papersByYear(w http.ResponseWriter, r *http.Request) {
	year, err := domain.ParseBoundedInt("year", chi.URLParam(r, "year"), domain.MinYear, domain.MaxYear)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sort, page, err := listParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.ByYear(r.Context(), source(r), year, sort, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writePage(w, res, page, route)
}

// papersByJournal handles GET /api/papers/journal/{journal}.
func (s *Server) papersByJournal(w http.ResponseWriter, r *http.Request) {
	sort, page, err := listParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.ByJournal(r.Context(), source(r), chi.URLParam(r, "journal"), sort, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writePage(w, res, page, route)
}

// papersByAuthor handles GET /api/papers/author/{author}.
func (s *Server) papersByAuthor(w http.ResponseWriter, r *http.Request) {
	sort, page, err := listParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	res, route, err := s.deps.Reads.ByAuthor(r.Context(), source(r), chi.URLParam(r, "author"), sort, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writePage(w, res, page, route)
}

// createPaper handles POST /api/papers.
func (s *Server) createPaper(w http.ResponseWriter, r *http.Request) {
	var req paperRequest
	if err := decodeJSON(w, r, maxRequestBodySize, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	result, err := s.deps.Writes.CreatePaper(r.Context(), req.toPaper())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: result})
}

// updatePaper handles PUT /api/papers/{paperID}.
func (s *Server) updatePaper(w http.ResponseWriter, r *http.Request) {
	var update domain.PaperUpdate
	if err := decodeBody(w, r, maxRequestBodySize, &update); err != nil {
		writeDomainError(w, err)
		return
	}
	result, err := s.deps.Writes.UpdatePaper(r.Context(), chi.URLParam(r, "paperID"), update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: result})
}

// deletePaper handles DELETE /api/papers/{paperID}.
func (s *Server) deletePaper(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Writes.DeletePaper(r.Context(), chi.URLParam(r, "paperID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: result})
}

// bulkCreatePapers handles POST /api/papers/bulk. The body is a JSON array.
// Items are not validated here so that each bad item is reported per store
// instead of rejecting the batch.
func (s *Server) bulkCreatePapers(w http.ResponseWriter, r *http.Request) {
	var reqs []paperRequest
	if err := decodeBody(w, r, maxBulkBodySize, &reqs); err != nil {
		writeDomainError(w, err)
		return
	}
	papers := make([]domain.Paper, len(reqs))
	for i, req := range reqs {
		papers[i] = req.toPaper()
	}

	result, err := s.deps.Writes.BulkCreate(r.Context(), papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, envelope{Data: result})
}
