package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// maxRequestBodySize limits single-paper and auth request bodies.
const maxRequestBodySize = 1 << 20

// maxBulkBodySize limits bulk create bodies.
const maxBulkBodySize = 32 << 20

// maxHybridSearchLimit caps the per-store results of a hybrid search.
const maxHybridSearchLimit = 100

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// pageParams parses limit, page and offset.
func pageParams(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	return domain.ParsePageRequest(q.Get("limit"), q.Get("page"), q.Get("offset"))
}

// listParams parses sortBy and pagination.
func listParams(r *http.Request) (domain.SortKey, domain.PageRequest, error) {
	sort, err := domain.ParseSortKey(r.URL.Query().Get("sortBy"))
	if err != nil {
		return "", domain.PageRequest{}, err
	}
	page, err := pageParams(r)
	if err != nil {
		return "", domain.PageRequest{}, err
	}
	return sort, page, nil
}

// searchParams parses the advanced search filters. An absent sortBy is left
// empty so that validation can pick relevance for text queries.
func searchParams(r *http.Request) (domain.SearchParams, error) {
	q := r.URL.Query()
	var (
		p   domain.SearchParams
		err error
	)

	p.Query = strings.TrimSpace(q.Get("q"))
	p.Journal = strings.TrimSpace(q.Get("journal"))
	p.Author = strings.TrimSpace(q.Get("author"))
	p.Keywords = strings.TrimSpace(q.Get("keywords"))
	p.DOI = strings.TrimSpace(q.Get("doi"))

	if p.YearFrom, err = domain.ParseOptionalInt("yearFrom", q.Get("yearFrom"), domain.MinYear, domain.MaxYear); err != nil {
		return p, err
	}
	if p.YearTo, err = domain.ParseOptionalInt("yearTo", q.Get("yearTo"), domain.MinYear, domain.MaxYear); err != nil {
		return p, err
	}
	if p.MinCitations, err = domain.ParseOptionalInt("minCitations", q.Get("minCitations"), 0, math.MaxInt32); err != nil {
		return p, err
	}
	if raw := q.Get("sortBy"); raw != "" {
		if p.Sort, err = domain.ParseSortKey(raw); err != nil {
			return p, err
		}
	}
	if p.Page, err = pageParams(r); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// rankingLimit parses a 1..100 limit with a default of 10.
func rankingLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return domain.DefaultRankingLimit, nil
	}
	return domain.ParseBoundedInt("limit", raw, 1, domain.MaxRankingLimit)
}

// source returns the store override parameter.
func source(r *http.Request) string {
	return r.URL.Query().Get("source")
}

// decodeJSON reads a size-limited JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	if err := decodeBody(w, r, limit, v); err != nil {
		return err
	}
	return validateStruct(v)
}

// decodeBody reads a size-limited JSON body into v without validating it.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.NewValidationError("body", "request body too large")
		case errors.Is(err, io.EOF):
			return domain.NewValidationError("body", "request body is required")
		default:
			return domain.NewValidationError("body", "invalid JSON request body")
		}
	}
	return nil
}

// validateStruct runs the struct tag validation of v.
func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.NewValidationError(fe.Field(), "failed "+fe.Tag()+" validation")
		}
		return domain.NewValidationError("body", err.Error())
	}
	return nil
}
