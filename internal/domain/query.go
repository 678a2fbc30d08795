package domain

import (
	"strconv"
	"strings"
)

// Pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 1000
	DefaultPage  = 1
)

// PageRequest is a validated limit/offset pair.
type PageRequest struct {
	Limit  int
	Offset int
}

// DefaultPageRequest returns the first page at the default size.
func DefaultPageRequest() PageRequest {
	return PageRequest{Limit: DefaultLimit}
}

// Validate rejects values that must never reach query construction.
func (p PageRequest) Validate() error {
	if p.Limit < 0 || p.Limit > MaxLimit {
		return NewValidationError("limit", "must be an integer between 0 and 1000")
	}
	if p.Offset < 0 {
		return NewValidationError("offset", "must be a non-negative integer")
	}
	return nil
}

// Page returns the 1-based page number the offset falls on.
func (p PageRequest) Page() int {
	if p.Limit <= 0 {
		return DefaultPage
	}
	return p.Offset/p.Limit + 1
}

// ParsePageRequest parses raw limit, page and offset parameters.
// Missing values fall back to defaults; an explicit offset wins over page.
func ParsePageRequest(limitStr, pageStr, offsetStr string) (PageRequest, error) {
	req := DefaultPageRequest()

	if limitStr != "" {
		limit, err := parseInt("limit", limitStr)
		if err != nil {
			return PageRequest{}, err
		}
		req.Limit = limit
	}

	if pageStr != "" {
		page, err := parseInt("page", pageStr)
		if err != nil {
			return PageRequest{}, err
		}
		if page < 1 {
			return PageRequest{}, NewValidationError("page", "must be a positive integer")
		}
		req.Offset = (page - 1) * req.Limit
	}

	if offsetStr != "" {
		offset, err := parseInt("offset", offsetStr)
		if err != nil {
			return PageRequest{}, err
		}
		req.Offset = offset
	}

	if err := req.Validate(); err != nil {
		return PageRequest{}, err
	}
	return req, nil
}

// ParseBoundedInt parses a required integer within [min, max].
func ParseBoundedInt(field, raw string, min, max int) (int, error) {
	n, err := parseInt(field, raw)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, NewValidationError(field, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return n, nil
}

// ParseOptionalInt parses an optional integer within [min, max]. Empty input yields nil.
func ParseOptionalInt(field, raw string, min, max int) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := ParseBoundedInt(field, raw, min, max)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, NewValidationError(field, "must be an integer")
	}
	return n, nil
}

// Pagination is the page metadata returned with every listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination computes page metadata. A zero limit yields zero pages.
func NewPagination(req PageRequest, total int64) Pagination {
	pages := 0
	if req.Limit > 0 {
		pages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return Pagination{
		Page:  req.Page(),
		Limit: req.Limit,
		Total: total,
		Pages: pages,
	}
}

// Year bounds accepted by filters.
const (
	MinYear = 1000
	MaxYear = 9999
)

// SearchParams is the conjunction of optional filters for advanced search.
// The relational store ignores MinCitations, Keywords and DOI.
type SearchParams struct {
	Query        string
	YearFrom     *int
	YearTo       *int
	Journal      string
	Author       string
	MinCitations *int
	Keywords     string
	DOI          string
	Sort         SortKey
	Page         PageRequest
}

// Validate checks ranges and pagination.
func (p *SearchParams) Validate() error {
	if p.YearFrom != nil && p.YearTo != nil && *p.YearFrom > *p.YearTo {
		return NewValidationError("yearFrom", "must not be after yearTo")
	}
	if p.MinCitations != nil && *p.MinCitations < 0 {
		return NewValidationError("minCitations", "must be a non-negative integer")
	}
	if p.Sort == "" {
		p.Sort = SortRecent
		if strings.TrimSpace(p.Query) != "" {
			p.Sort = SortRelevance
		}
	}
	if _, err := ParseSortKey(string(p.Sort)); err != nil {
		return err
	}
	return p.Page.Validate()
}

// SearchResult is one page of matches plus the exact total for the same filter.
type SearchResult struct {
	Papers []Paper `json:"papers"`
	Total  int64   `json:"total"`
}
