// Package query dispatches paper reads to the store chosen by the router.
//
// Every read resolves its operation once through router.Router, looks the
// store up in a dispatch table of adapters, and runs the adapter call under a
// per-operation timeout. Handlers never branch on the store themselves.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/router"
)

// DefaultTimeout bounds an adapter call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// ErrStoreNotImplemented is the cause reported for stores without an adapter.
var ErrStoreNotImplemented = errors.New("store has no adapter")

// Reader is the read surface shared by the relational and document adapters.
type Reader interface {
	FindByID(ctx context.Context, paperID string) (*domain.Paper, error)
	FindAll(ctx context.Context, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, error)
	SearchText(ctx context.Context, query string, limit int) ([]domain.Paper, error)
	AdvancedSearch(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error)
	FilterOptions(ctx context.Context) (*domain.FilterOptions, error)
	Suggestions(ctx context.Context, prefix string, typ domain.SuggestionType) (*domain.Suggestions, error)
	TopAuthors(ctx context.Context, limit int) ([]domain.AuthorStat, error)
	TopJournals(ctx context.Context, limit int) ([]domain.JournalStat, error)
	PapersPerYear(ctx context.Context) ([]domain.YearStat, error)
	CovidStats(ctx context.Context) (*domain.CovidStats, error)
	Stats(ctx context.Context) (*domain.Stats, error)
	Count(ctx context.Context) (int64, error)
}

// FilterCache stores filter options per store.
type FilterCache interface {
	GetFilterOptions(ctx context.Context, store domain.Store) (*domain.FilterOptions, bool)
	SetFilterOptions(ctx context.Context, store domain.Store, opts *domain.FilterOptions)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the per-operation adapter timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Dispatcher) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics records routing decisions and store query outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Dispatcher) { s.metrics = m }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Dispatcher) { s.logger = logger.With().Str("component", "query").Logger() }
}

// WithFilterCache caches filter options.
func WithFilterCache(c FilterCache) Option {
	return func(s *Dispatcher) { s.cache = c }
}

// Dispatcher routes reads to adapters.
type Dispatcher struct {
	router  *router.Router
	readers map[domain.Store]Reader
	timeout time.Duration
	metrics *observability.Metrics
	cache   FilterCache
	logger  zerolog.Logger
}

// NewDispatcher builds a dispatcher over the given adapters. The map is copied.
func NewDispatcher(r *router.Router, readers map[domain.Store]Reader, opts ...Option) *Dispatcher {
	table := make(map[domain.Store]Reader, len(readers))
	for store, reader := range readers {
		table[store] = reader
	}
	d := &Dispatcher{
		router:  r,
		readers: table,
		timeout: DefaultTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Router returns the router the dispatcher resolves against.
func (d *Dispatcher) Router() *router.Router {
	return d.router
}

// Reader returns the adapter for store.
func (d *Dispatcher) Reader(store domain.Store) (Reader, error) {
	reader, ok := d.readers[store]
	if !ok {
		return nil, domain.NewStoreUnavailableError(store, "dispatch", ErrStoreNotImplemented)
	}
	return reader, nil
}

// dispatch resolves op, runs fn against the chosen adapter under the
// per-operation timeout and records the outcome.
func dispatch[T any](ctx context.Context, d *Dispatcher, op router.Operation, source string, fn func(context.Context, Reader) (T, error)) (T, router.Route, error) {
	var zero T

	route, err := d.router.Route(op, source)
	if err != nil {
		return zero, router.Route{}, err
	}
	d.metrics.RecordRoute(string(op), string(route.Store), route.Overridden)

	reader, err := d.Reader(route.Store)
	if err != nil {
		return zero, route, err
	}

	opCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := fn(opCtx, reader)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		err = classify(ctx, opCtx, route.Store, string(op), err)
		d.metrics.RecordStoreQuery(string(route.Store), string(op), outcomeOf(err), elapsed)
		if errors.Is(err, domain.ErrServiceUnavailable) {
			logger := observability.WithStoreContext(d.logger, string(route.Store), string(op))
			logger.Error().Err(err).Msg("store query failed")
		}
		return zero, route, err
	}
	d.metrics.RecordStoreQuery(string(route.Store), string(op), "ok", elapsed)
	return result, route, nil
}

// classify turns context failures into the typed errors callers branch on.
// A caller that went away gets ErrCancelled; an expired operation timeout is
// a store-unavailable failure.
func classify(parent, opCtx context.Context, store domain.Store, op string, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrCancelled, parent.Err()))
	}
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return err
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return domain.NewStoreUnavailableError(store, op, err)
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
