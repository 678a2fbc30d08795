package query

import (
	"context"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/router"
)

// List returns one page of papers.
func (d *Dispatcher) List(ctx context.Context, source string, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, router.Route, error) {
	return dispatch(ctx, d, router.OpPaperMetadataBrowsing, source, func(ctx context.Context, r Reader) (*domain.SearchResult, error) {
		return r.FindAll(ctx, sort, page)
	})
}

// Get returns one paper.
func (d *Dispatcher) Get(ctx context.Context, source, paperID string) (*domain.Paper, router.Route, error) {
	return dispatch(ctx, d, router.OpPaperMetadataBrowsing, source, func(ctx context.Context, r Reader) (*domain.Paper, error) {
		return r.FindByID(ctx, paperID)
	})
}

// Search runs an advanced search.
func (d *Dispatcher) Search(ctx context.Context, source string, params domain.SearchParams) (*domain.SearchResult, router.Route, error) {
	return dispatch(ctx, d, router.OpFlexibleQueries, source, func(ctx context.Context, r Reader) (*domain.SearchResult, error) {
		return r.AdvancedSearch(ctx, params)
	})
}

// SearchText runs a ranked text search.
func (d *Dispatcher) SearchText(ctx context.Context, source, q string, limit int) ([]domain.Paper, router.Route, error) {
	return dispatch(ctx, d, router.OpFullTextSearch, source, func(ctx context.Context, r Reader) ([]domain.Paper, error) {
		return r.SearchText(ctx, q, limit)
	})
}

// ByYear lists papers published in year.
func (d *Dispatcher) ByYear(ctx context.Context, source string, year int, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, router.Route, error) {
	params := domain.SearchParams{YearFrom: &year, YearTo: &year, Sort: sort, Page: page}
	return dispatch(ctx, d, router.OpPaperMetadataBrowsing, source, func(ctx context.Context, r Reader) (*domain.SearchResult, error) {
		return r.AdvancedSearch(ctx, params)
	})
}

// ByJournal lists papers whose journal contains journal.
func (d *Dispatcher) ByJournal(ctx context.Context, source, journal string, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, router.Route, error) {
	params := domain.SearchParams{Journal: journal, Sort: sort, Page: page}
	return dispatch(ctx, d, router.OpPaperMetadataBrowsing, source, func(ctx context.Context, r Reader) (*domain.SearchResult, error) {
		return r.AdvancedSearch(ctx, params)
	})
}

// ByAuthor lists papers with an author whose name contains author.
func (d *Dispatcher) ByAuthor(ctx context.Context, source, author string, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, router.Route, error) {
	params := domain.SearchParams{Author: author, Sort: sort, Page: page}
	return dispatch(ctx, d, router.OpPaperAuthorRelationships, source, func(ctx context.Context, r Reader) (*domain.SearchResult, error) {
		return r.AdvancedSearch(ctx, params)
	})
}

// Suggestions returns autocomplete candidates.
func (d *Dispatcher) Suggestions(ctx context.Context, source, prefix string, typ domain.SuggestionType) (*domain.Suggestions, router.Route, error) {
	return dispatch(ctx, d, router.OpKeywordSearch, source, func(ctx context.Context, r Reader) (*domain.Suggestions, error) {
		return r.Suggestions(ctx, prefix, typ)
	})
}

// FilterOptions returns filter values, served from the cache when present.
func (d *Dispatcher) FilterOptions(ctx context.Context, source string) (*domain.FilterOptions, router.Route, error) {
	route, err := d.router.Route(router.OpPaperMetadataBrowsing, source)
	if err != nil {
		return nil, router.Route{}, err
	}
	if d.cache != nil {
		if opts, ok := d.cache.GetFilterOptions(ctx, route.Store); ok {
			d.metrics.RecordRoute(string(route.Operation), string(route.Store), route.Overridden)
			return opts, route, nil
		}
	}

	opts, route, err := dispatch(ctx, d, router.OpPaperMetadataBrowsing, source, func(ctx context.Context, r Reader) (*domain.FilterOptions, error) {
		return r.FilterOptions(ctx)
	})
	if err != nil {
		return nil, route, err
	}
	if d.cache != nil {
		d.cache.SetFilterOptions(ctx, route.Store, opts)
	}
	return opts, route, nil
}
