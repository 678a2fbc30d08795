package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/router"
)

// Overview is the dashboard summary of one store.
type Overview struct {
	Stats         *domain.Stats        `json:"stats"`
	PapersPerYear []domain.YearStat    `json:"papers_per_year"`
	TopJournals   []domain.JournalStat `json:"top_journals"`
	TopAuthors    []domain.AuthorStat  `json:"top_authors"`
}

// Stats returns the collection summary.
func (d *Dispatcher) Stats(ctx context.Context, source string) (*domain.Stats, router.Route, error) {
	return dispatch(ctx, d, router.OpAggregationAnalytics, source, func(ctx context.Context, r Reader) (*domain.Stats, error) {
		return r.Stats(ctx)
	})
}

// TopAuthors ranks authors by paper count.
func (d *Dispatcher) TopAuthors(ctx context.Context, source string, limit int) ([]domain.AuthorStat, router.Route, error) {
	return dispatch(ctx, d, router.OpAggregationAnalytics, source, func(ctx context.Context, r Reader) ([]domain.AuthorStat, error) {
		return r.TopAuthors(ctx, limit)
	})
}

// TopJournals ranks journals by paper count.
func (d *Dispatcher) TopJournals(ctx context.Context, source string, limit int) ([]domain.JournalStat, router.Route, error) {
	return dispatch(ctx, d, router.OpAggregationAnalytics, source, func(ctx context.Context, r Reader) ([]domain.JournalStat, error) {
		return r.TopJournals(ctx, limit)
	})
}

// PapersPerYear counts papers per year.
func (d *Dispatcher) PapersPerYear(ctx context.Context, source string) ([]domain.YearStat, router.Route, error) {
	return dispatch(ctx, d, router.OpAggregationAnalytics, source, func(ctx context.Context, r Reader) ([]domain.YearStat, error) {
		return r.PapersPerYear(ctx)
	})
}

// CovidStats breaks down covid-flagged papers.
func (d *Dispatcher) CovidStats(ctx context.Context, source string) (*domain.CovidStats, router.Route, error) {
	return dispatch(ctx, d, router.OpAggregationAnalytics, source, func(ctx context.Context, r Reader) (*domain.CovidStats, error) {
		return r.CovidStats(ctx)
	})
}

// Overview issues the four dashboard queries concurrently against one store
// and joins them. Any failure fails the whole overview.
func (d *Dispatcher) Overview(ctx context.Context, source string, limit int) (*Overview, router.Route, error) {
	if err := domain.ValidateRankingLimit(limit); err != nil {
		return nil, router.Route{}, err
	}

	return dispatch(ctx, d, router.OpAggregationAnalytics, source, func(ctx context.Context, r Reader) (*Overview, error) {
		out := &Overview{}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			out.Stats, err = r.Stats(gctx)
			return err
		})
		g.Go(func() (err error) {
			out.PapersPerYear, err = r.PapersPerYear(gctx)
			return err
		})
		g.Go(func() (err error) {
			out.TopJournals, err = r.TopJournals(gctx, limit)
			return err
		})
		g.Go(func() (err error) {
			out.TopAuthors, err = r.TopAuthors(gctx, limit)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}
