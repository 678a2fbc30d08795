package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

var paperRowColumns = []string{
	"paper_id", "title", "abstract", "publish_year", "journal_name", "source_name",
	"doi", "has_full_text", "is_covid19", "authors", "created_at", "updated_at",
}

func intPtr(v int) *int { return &v }

func newPaperRepo(t *testing.T) (pgxmock.PgxPoolIface, *PgPaperRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgPaperRepository(mock)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_done`, escapeLike("100%_done"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, `%x\%%`, containsPattern("x%"))
	assert.Equal(t, `co\_%`, prefixPattern("co_"))
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not null", &pgconn.PgError{Code: "23502", ColumnName: "doi"}, domain.ErrInvalidInput},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "papers_year_check"}, domain.ErrInvalidInput},
		{"bad value", &pgconn.PgError{Code: "22001"}, domain.ErrInvalidInput},
		{"unique", &pgconn.PgError{Code: pgUniqueViolation}, domain.ErrAlreadyExists},
		{"connection", &pgconn.PgError{Code: "08006"}, domain.ErrServiceUnavailable},
		{"plain", errors.New("conn reset"), domain.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storeError("create", tt.err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.NoError(t, storeError("create", nil))
}

func TestPgPaperRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("splits aggregated authors in order", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT p\.paper_id, p\.title, .+ FROM papers p .+ WHERE p\.paper_id = \$1 GROUP BY`).
			WithArgs("p1").
			WillReturnRows(pgxmock.NewRows(paperRowColumns).
				AddRow("p1", "Vaccines", "An abstract", 2021, "Nature", "cord19", "10.1/x", true, true, "Zed Zhang; Ann Abel", now, now))

		p, err := repo.FindByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Vaccines", p.Title)
		assert.Equal(t, 2021, p.Year)
		assert.Equal(t, []string{"Zed Zhang", "Ann Abel"}, p.Authors)
		assert.Equal(t, []string{}, p.Keywords)
		assert.Zero(t, p.CitationCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		mock.ExpectQuery(`FROM papers p`).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows(paperRowColumns))

		_, err := repo.FindByID(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("driver failure is store unavailable", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		mock.ExpectQuery(`FROM papers p`).
			WithArgs("p1").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.FindByID(ctx, "p1")
		var sue *domain.StoreUnavailableError
		require.True(t, errors.As(err, &sue))
		assert.Equal(t, domain.StoreRelational, sue.Store)
		assert.Equal(t, "find_by_id", sue.Operation)
	})

	t.Run("empty id rejected before querying", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		_, err := repo.FindByID(ctx, "  ")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgPaperRepository_AdvancedSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("count and page share one predicate", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM papers p LEFT JOIN journals j .+ WHERE \(p\.title ILIKE \$1 AND p\.publish_year >= \$2 AND p\.publish_year <= \$3 AND j\.journal_name ILIKE \$4 AND EXISTS .+author_name ILIKE \$5\)\)`).
			WithArgs("%neural%", 2019, 2021, "%nature%", "%smith%").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

		mock.ExpectQuery(`WHERE \(p\.title ILIKE \$1 .+ GROUP BY .+ ORDER BY p\.title ASC, p\.paper_id ASC LIMIT \$6 OFFSET \$7`).
			WithArgs("%neural%", 2019, 2021, "%nature%", "%smith%", 10, 20).
			WillReturnRows(pgxmock.NewRows(paperRowColumns).
				AddRow("p9", "Neural nets", "", 2020, "Nature", "manual", "", false, false, "J Smith", now, now))

		res, err := repo.AdvancedSearch(ctx, domain.SearchParams{
			Query:    "neural",
			YearFrom: intPtr(2019),
			YearTo:   intPtr(2021),
			Journal:  "nature",
			Author:   "smith",
			Sort:     domain.SortTitle,
			Page:     domain.PageRequest{Limit: 10, Offset: 20},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(42), res.Total)
		require.Len(t, res.Papers, 1)
		assert.Equal(t, []string{"J Smith"}, res.Papers[0].Authors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero limit counts without paging", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM papers p`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

		res, err := repo.FindAll(ctx, domain.SortRecent, domain.PageRequest{Limit: 0})
		require.NoError(t, err)
		assert.Equal(t, int64(7), res.Total)
		assert.Empty(t, res.Papers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wildcards in filters are escaped", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\)`).
			WithArgs(`%50\%%`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

		res, err := repo.AdvancedSearch(ctx, domain.SearchParams{Query: "50%", Page: domain.DefaultPageRequest()})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inverted year range rejected", func(t *testing.T) {
		_, repo := newPaperRepo(t)
		_, err := repo.AdvancedSearch(ctx, domain.SearchParams{
			YearFrom: intPtr(2022), YearTo: intPtr(2020), Page: domain.DefaultPageRequest(),
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgPaperRepository_TopAuthors(t *testing.T) {
	ctx := context.Background()

	t.Run("returns rows in rank order", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		rows := pgxmock.NewRows([]string{"name", "paper_count"})
		for i, n := range []int64{9, 7, 7} {
			rows.AddRow([]string{"A", "B", "C"}[i], n)
		}
		mock.ExpectQuery(`FROM authors a\s+JOIN paper_authors pa .+ ORDER BY paper_count DESC\s+LIMIT \$1`).
			WithArgs(3).
			WillReturnRows(rows)

		stats, err := repo.TopAuthors(ctx, 3)
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.Equal(t, int64(9), stats[0].PaperCount)
		assert.Equal(t, "A", stats[0].Name)
		assert.ElementsMatch(t, []string{"B", "C"}, []string{stats[1].Name, stats[2].Name})
		assert.Zero(t, stats[0].AvgCitations)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, repo := newPaperRepo(t)
		_, err := repo.TopAuthors(ctx, 0)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		_, err = repo.TopJournals(ctx, 101)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgPaperRepository_YearStats(t *testing.T) {
	mock, repo := newPaperRepo(t)
	mock.ExpectQuery(`GROUP BY publish_year\s+ORDER BY publish_year DESC`).
		WillReturnRows(pgxmock.NewRows([]string{"year", "count", "covid_count"}).
			AddRow(2021, int64(5), int64(3)).
			AddRow(2019, int64(2), int64(0)))

	stats, err := repo.YearStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.YearStat{{Year: 2021, Count: 5, CovidCount: 3}, {Year: 2019, Count: 2}}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_Stats(t *testing.T) {
	mock, repo := newPaperRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total_papers`).
		WillReturnRows(pgxmock.NewRows([]string{"total_papers", "covid_papers", "full_text_papers", "unique_journals", "unique_authors"}).
			AddRow(int64(10), int64(4), int64(6), int64(3), int64(12)))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{TotalPapers: 10, CovidPapers: 4, FullTextPapers: 6, UniqueJournals: 3, UniqueAuthors: 12}, s)
}

func TestPgPaperRepository_FilterOptions(t *testing.T) {
	mock, repo := newPaperRepo(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery(`SELECT DISTINCT publish_year`).
		WillReturnRows(pgxmock.NewRows([]string{"publish_year"}).AddRow(2021).AddRow(2020))
	mock.ExpectQuery(`SELECT j\.journal_name\s+FROM journals j\s+JOIN papers p .+ORDER BY COUNT\(\*\) DESC, j\.journal_name ASC\s+LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"journal_name"}).AddRow("Cell").AddRow("Nature"))
	mock.ExpectQuery(`SELECT MIN\(publish_year\), MAX\(publish_year\)`).
		WillReturnRows(pgxmock.NewRows([]string{"min", "max"}).AddRow(intPtr(2020), intPtr(2021)))

	opts, err := repo.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2020}, opts.Years)
	assert.Equal(t, []string{"Cell", "Nature"}, opts.Journals)
	assert.Equal(t, []string{}, opts.Keywords)
	require.NotNil(t, opts.MinYear)
	assert.Equal(t, 2020, *opts.MinYear)
	assert.Equal(t, 2021, *opts.MaxYear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_Suggestions(t *testing.T) {
	ctx := context.Background()

	t.Run("only requested category", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		mock.ExpectQuery(`SELECT DISTINCT journal_name FROM journals WHERE journal_name ILIKE \$1 ORDER BY journal_name ASC LIMIT \$2`).
			WithArgs("nat%", domain.MaxSuggestions).
			WillReturnRows(pgxmock.NewRows([]string{"journal_name"}).AddRow("Nature").AddRow("Nature Medicine"))

		s, err := repo.Suggestions(ctx, "nat", domain.SuggestJournal)
		require.NoError(t, err)
		assert.Equal(t, []string{"Nature", "Nature Medicine"}, s.Journals)
		assert.Nil(t, s.Titles)
		assert.Nil(t, s.Keywords)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty prefix rejected", func(t *testing.T) {
		_, repo := newPaperRepo(t)
		_, err := repo.Suggestions(ctx, " ", domain.SuggestAll)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgPaperRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	paper := domain.Paper{
		PaperID:   "p1",
		Title:     "Title",
		Year:      2020,
		Journal:   "Nature",
		Source:    "manual",
		Authors:   []string{"Ann", "Bob"},
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	t.Run("upserts lookups and links authors in order", func(t *testing.T) {
		mock, repo := newPaperRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO journals`).WithArgs("Nature").
			WillReturnRows(pgxmock.NewRows([]string{"journal_id"}).AddRow(int64(3)))
		mock.ExpectQuery(`INSERT INTO sources`).WithArgs("manual").
			WillReturnRows(pgxmock.NewRows([]string{"source_id"}).AddRow(int64(1)))
		mock.ExpectExec(`INSERT INTO papers`).
			WithArgs("p1", "Title", "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				"", false, false, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery(`INSERT INTO authors`).WithArgs("Ann").
			WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow(int64(10)))
		mock.ExpectExec(`INSERT INTO paper_authors`).WithArgs("p1", int64(10), 1).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery(`INSERT INTO authors`).WithArgs("Bob").
			WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow(int64(11)))
		mock.ExpectExec(`INSERT INTO paper_authors`).WithArgs("p1", int64(11), 2).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(ctx, paper))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not null violation is a validation error", func(t *testing.T) {
		mock, repo := newPaperRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO journals`).
			WillReturnRows(pgxmock.NewRows([]string{"journal_id"}).AddRow(int64(3)))
		mock.ExpectQuery(`INSERT INTO sources`).
			WillReturnRows(pgxmock.NewRows([]string{"source_id"}).AddRow(int64(1)))
		mock.ExpectExec(`INSERT INTO papers`).
			WillReturnError(&pgconn.PgError{Code: "23502", ColumnName: "abstract", Message: "null value in column"})
		mock.ExpectRollback()

		err := repo.Create(ctx, paper)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.False(t, errors.Is(err, domain.ErrServiceUnavailable))
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "abstract", verr.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id rolls back", func(t *testing.T) {
		mock, repo := newPaperRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO journals`).
			WillReturnRows(pgxmock.NewRows([]string{"journal_id"}).AddRow(int64(3)))
		mock.ExpectQuery(`INSERT INTO sources`).
			WillReturnRows(pgxmock.NewRows([]string{"source_id"}).AddRow(int64(1)))
		mock.ExpectExec(`INSERT INTO papers`).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
		mock.ExpectRollback()

		err := repo.Create(ctx, paper)
		assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgPaperRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces authors", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		title := "New title"
		authors := []string{"Cy"}

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE papers SET updated_at = NOW\(\), title = \$1 WHERE paper_id = \$2`).
			WithArgs("New title", "p1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`DELETE FROM paper_authors WHERE paper_id = \$1`).WithArgs("p1").
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectQuery(`INSERT INTO authors`).WithArgs("Cy").
			WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow(int64(12)))
		mock.ExpectExec(`INSERT INTO paper_authors`).WithArgs("p1", int64(12), 1).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err := repo.Update(ctx, "p1", domain.PaperUpdate{Title: &title, Authors: &authors})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clearing the abstract binds an empty string", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		empty := ""

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE papers SET updated_at = NOW\(\), abstract = \$1 WHERE paper_id = \$2`).
			WithArgs("", "p1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Update(ctx, "p1", domain.PaperUpdate{Abstract: &empty}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing paper", func(t *testing.T) {
		mock, repo := newPaperRepo(t)
		doi := "10.1/y"

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE papers`).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.Update(ctx, "nope", domain.PaperUpdate{DOI: &doi})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("document-only update rejected", func(t *testing.T) {
		_, repo := newPaperRepo(t)
		cites := 3
		err := repo.Update(ctx, "p1", domain.PaperUpdate{CitationCount: &cites})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgPaperRepository_Delete(t *testing.T) {
	ctx := context.Background()

	mock, repo := newPaperRepo(t)
	mock.ExpectExec(`DELETE FROM papers WHERE paper_id = \$1`).WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM papers WHERE paper_id = \$1`).WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(ctx, "p1"))
	err := repo.Delete(ctx, "p1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_Count(t *testing.T) {
	mock, repo := newPaperRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM papers`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(128)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(128), n)
}
