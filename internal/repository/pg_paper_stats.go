package repository

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"golang.org/x/sync/errgroup"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// maxFilterJournals caps the journal list returned with filter options.
const maxFilterJournals = 50

// filterJournalsSQL ranks journals that still have papers by paper count.
const filterJournalsSQL = `
	SELECT j.journal_name
	FROM journals j
	JOIN papers p ON p.journal_id = j.journal_id
	GROUP BY j.journal_name
	ORDER BY COUNT(*) DESC, j.journal_name ASC
	LIMIT $1`

// FilterOptions runs the distinct year, journal and range queries concurrently.
// Journals are the most frequent ones, matching the document store.
// The relational schema has no keywords, so Keywords is always empty.
func (r *PgPaperRepository) FilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	opts := &domain.FilterOptions{
		Years:    []int{},
		Journals: []string{},
		Keywords: []string{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pgxscan.Select(gctx, r.db, &opts.Years,
			`SELECT DISTINCT publish_year FROM papers WHERE publish_year IS NOT NULL ORDER BY publish_year DESC`)
	})
	g.Go(func() error {
		return pgxscan.Select(gctx, r.db, &opts.Journals, filterJournalsSQL, maxFilterJournals)
	})
	g.Go(func() error {
		return r.db.QueryRow(gctx,
			`SELECT MIN(publish_year), MAX(publish_year) FROM papers`,
		).Scan(&opts.MinYear, &opts.MaxYear)
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("filter_options", err)
	}
	return opts, nil
}

// Suggestions returns prefix matches per requested category, each capped at
// domain.MaxSuggestions. Keyword suggestions are a document store feature.
func (r *PgPaperRepository) Suggestions(ctx context.Context, prefix string, typ domain.SuggestionType) (*domain.Suggestions, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, domain.NewValidationError("q", "is required")
	}
	pattern := prefixPattern(prefix)

	out := &domain.Suggestions{}
	g, gctx := errgroup.WithContext(ctx)

	suggest := func(dst *[]string, column, table string) {
		g.Go(func() error {
			query, args, err := psql.Select("DISTINCT "+column).
				From(table).
				Where(squirrel.ILike{column: pattern}).
				OrderBy(column + " ASC").
				Suffix("LIMIT ?", domain.MaxSuggestions).
				ToSql()
			if err != nil {
				return err
			}
			values := []string{}
			if err := pgxscan.Select(gctx, r.db, &values, query, args...); err != nil {
				return err
			}
			*dst = values
			return nil
		})
	}

	if typ.Includes(domain.SuggestTitle) {
		suggest(&out.Titles, "title", "papers")
	}
	if typ.Includes(domain.SuggestJournal) {
		suggest(&out.Journals, "journal_name", "journals")
	}
	if typ.Includes(domain.SuggestAuthor) {
		suggest(&out.Authors, "author_name", "authors")
	}
	if err := g.Wait(); err != nil {
		return nil, storeError("suggestions", err)
	}
	return out, nil
}

type rankingRow struct {
	Name       string `db:"name"`
	PaperCount int64  `db:"paper_count"`
}

// TopAuthors ranks authors by the number of linked papers. Citations are
// not tracked relationally and report as zero.
func (r *PgPaperRepository) TopAuthors(ctx context.Context, limit int) ([]domain.AuthorStat, error) {
	if err := domain.ValidateRankingLimit(limit); err != nil {
		return nil, err
	}

	var rows []rankingRow
	err := pgxscan.Select(ctx, r.db, &rows, `
		SELECT a.author_name AS name, COUNT(pa.paper_id) AS paper_count
		FROM authors a
		JOIN paper_authors pa ON pa.author_id = a.author_id
		GROUP BY a.author_id, a.author_name
		ORDER BY paper_count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, storeError("top_authors", err)
	}

	stats := make([]domain.AuthorStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.AuthorStat{Name: row.Name, PaperCount: row.PaperCount})
	}
	return stats, nil
}

// TopJournals ranks journals by the number of papers.
func (r *PgPaperRepository) TopJournals(ctx context.Context, limit int) ([]domain.JournalStat, error) {
	if err := domain.ValidateRankingLimit(limit); err != nil {
		return nil, err
	}

	var rows []rankingRow
	err := pgxscan.Select(ctx, r.db, &rows, `
		SELECT j.journal_name AS name, COUNT(p.paper_id) AS paper_count
		FROM journals j
		JOIN papers p ON p.journal_id = j.journal_id
		GROUP BY j.journal_id, j.journal_name
		ORDER BY paper_count DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, storeError("top_journals", err)
	}

	stats := make([]domain.JournalStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.JournalStat{Journal: row.Name, PaperCount: row.PaperCount})
	}
	return stats, nil
}

type yearRow struct {
	Year       int   `db:"year"`
	Count      int64 `db:"count"`
	CovidCount int64 `db:"covid_count"`
}

func (r *PgPaperRepository) yearCounts(ctx context.Context, operation, direction string) ([]domain.YearStat, error) {
	var rows []yearRow
	err := pgxscan.Select(ctx, r.db, &rows, `
		SELECT publish_year AS year,
			COUNT(*) AS count,
			COUNT(*) FILTER (WHERE is_covid19) AS covid_count
		FROM papers
		WHERE publish_year IS NOT NULL
		GROUP BY publish_year
		ORDER BY publish_year `+direction)
	if err != nil {
		return nil, storeError(operation, err)
	}

	stats := make([]domain.YearStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.YearStat(row))
	}
	return stats, nil
}

// YearStats counts papers per year, newest first.
func (r *PgPaperRepository) YearStats(ctx context.Context) ([]domain.YearStat, error) {
	return r.yearCounts(ctx, "year_stats", "DESC")
}

// PapersPerYear counts papers per year, oldest first.
func (r *PgPaperRepository) PapersPerYear(ctx context.Context) ([]domain.YearStat, error) {
	return r.yearCounts(ctx, "papers_per_year", "ASC")
}

type statsRow struct {
	TotalPapers    int64 `db:"total_papers"`
	CovidPapers    int64 `db:"covid_papers"`
	FullTextPapers int64 `db:"full_text_papers"`
	UniqueJournals int64 `db:"unique_journals"`
	UniqueAuthors  int64 `db:"unique_authors"`
}

// Stats summarizes the schema in a single round trip.
func (r *PgPaperRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	var row statsRow
	err := pgxscan.Get(ctx, r.db, &row, `
		SELECT COUNT(*) AS total_papers,
			COUNT(*) FILTER (WHERE is_covid19) AS covid_papers,
			COUNT(*) FILTER (WHERE has_full_text) AS full_text_papers,
			COUNT(DISTINCT journal_id) AS unique_journals,
			(SELECT COUNT(*) FROM authors) AS unique_authors
		FROM papers`)
	if err != nil {
		return nil, storeError("stats", err)
	}
	return &domain.Stats{
		TotalPapers:    row.TotalPapers,
		CovidPapers:    row.CovidPapers,
		FullTextPapers: row.FullTextPapers,
		UniqueJournals: row.UniqueJournals,
		UniqueAuthors:  row.UniqueAuthors,
	}, nil
}

// Count returns the number of papers.
func (r *PgPaperRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, storeError("count", err)
	}
	return n, nil
}

// covidBreakdownLimit caps the journal breakdown of covid papers.
const covidBreakdownLimit = 10

// CovidStats breaks down covid-flagged papers by year, journal and source.
func (r *PgPaperRepository) CovidStats(ctx context.Context) (*domain.CovidStats, error) {
	out := &domain.CovidStats{
		ByYear:    []domain.YearStat{},
		ByJournal: []domain.NameCount{},
		BySource:  []domain.NameCount{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.QueryRow(gctx, `SELECT COUNT(*) FROM papers WHERE is_covid19`).Scan(&out.Total)
	})
	g.Go(func() error {
		return pgxscan.Select(gctx, r.db, &out.ByYear, `
			SELECT publish_year AS year, COUNT(*) AS count, COUNT(*) AS covid_count
			FROM papers
			WHERE is_covid19 AND publish_year IS NOT NULL
			GROUP BY publish_year
			ORDER BY publish_year ASC`)
	})
	g.Go(func() error {
		return pgxscan.Select(gctx, r.db, &out.ByJournal, `
			SELECT j.journal_name AS name, COUNT(*) AS count
			FROM papers p
			JOIN journals j ON j.journal_id = p.journal_id
			WHERE p.is_covid19
			GROUP BY j.journal_name
			ORDER BY count DESC
			LIMIT $1`, covidBreakdownLimit)
	})
	g.Go(func() error {
		return pgxscan.Select(gctx, r.db, &out.BySource, `
			SELECT s.source_name AS name, COUNT(*) AS count
			FROM papers p
			JOIN sources s ON s.source_id = p.source_id
			WHERE p.is_covid19
			GROUP BY s.source_name
			ORDER BY count DESC`)
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("covid_stats", err)
	}
	return out, nil
}
