package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/normalize"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// paperColumns are scanned by scanPaper in this order.
var paperColumns = []string{
	"p.paper_id",
	"p.title",
	"COALESCE(p.abstract, '')",
	"COALESCE(p.publish_year, 0)",
	"COALESCE(j.journal_name, '')",
	"COALESCE(s.source_name, '')",
	"COALESCE(p.doi, '')",
	"p.has_full_text",
	"p.is_covid19",
	"COALESCE(string_agg(a.author_name, '" + normalize.AuthorSeparator + "' ORDER BY pa.author_order, a.author_id), '') AS authors",
	"p.created_at",
	"p.updated_at",
}

// selectPapers joins a paper with its journal, source and aggregated authors.
func selectPapers() squirrel.SelectBuilder {
	return psql.Select(paperColumns...).
		From("papers p").
		LeftJoin("journals j ON j.journal_id = p.journal_id").
		LeftJoin("sources s ON s.source_id = p.source_id").
		LeftJoin("paper_authors pa ON pa.paper_id = p.paper_id").
		LeftJoin("authors a ON a.author_id = pa.author_id").
		GroupBy("p.paper_id", "j.journal_name", "s.source_name")
}

// orderBy maps a sort key to ORDER BY terms. Every ordering ends on paper_id
// so pages are stable. Citation and relevance orderings have no relational
// counterpart and fall back to recency.
func orderBy(sort domain.SortKey) []string {
	switch sort {
	case domain.SortOldest:
		return []string{"p.publish_year ASC NULLS LAST", "p.title ASC", "p.paper_id ASC"}
	case domain.SortTitle:
		return []string{"p.title ASC", "p.paper_id ASC"}
	case domain.SortJournal:
		return []string{"j.journal_name ASC NULLS LAST", "p.publish_year DESC NULLS LAST", "p.paper_id ASC"}
	default:
		return []string{"p.publish_year DESC NULLS LAST", "p.title ASC", "p.paper_id ASC"}
	}
}

func scanPaper(row pgx.Row) (domain.Paper, error) {
	var r normalize.RelationalRow
	err := row.Scan(
		&r.PaperID,
		&r.Title,
		&r.Abstract,
		&r.Year,
		&r.Journal,
		&r.Source,
		&r.DOI,
		&r.HasFullText,
		&r.IsCovid19,
		&r.Authors,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return domain.Paper{}, err
	}
	return normalize.FromRelational(r), nil
}

func (r *PgPaperRepository) queryPapers(ctx context.Context, operation string, b squirrel.SelectBuilder) ([]domain.Paper, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, storeError(operation, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(operation, err)
	}
	defer rows.Close()

	papers := []domain.Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, storeError(operation, err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(operation, err)
	}
	return papers, nil
}

// FindByID returns one paper with its ordered authors.
func (r *PgPaperRepository) FindByID(ctx context.Context, paperID string) (*domain.Paper, error) {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return nil, domain.NewValidationError("paper_id", "is required")
	}

	query, args, err := selectPapers().Where(squirrel.Eq{"p.paper_id": paperID}).ToSql()
	if err != nil {
		return nil, storeError("find_by_id", err)
	}

	p, err := scanPaper(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", paperID)
		}
		return nil, storeError("find_by_id", err)
	}
	return &p, nil
}

// FindAll returns one page of papers in the requested order.
func (r *PgPaperRepository) FindAll(ctx context.Context, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, error) {
	return r.AdvancedSearch(ctx, domain.SearchParams{Sort: sort, Page: page})
}

// SearchText returns the most recent papers whose title contains query.
func (r *PgPaperRepository) SearchText(ctx context.Context, query string, limit int) ([]domain.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("q", "is required")
	}
	if limit < 1 || limit > domain.MaxLimit {
		return nil, domain.NewValidationError("limit", "must be an integer between 1 and 1000")
	}

	b := selectPapers().
		Where(squirrel.ILike{"p.title": containsPattern(query)}).
		OrderBy(orderBy(domain.SortRecent)...).
		Suffix("LIMIT ?", limit)
	return r.queryPapers(ctx, "search_text", b)
}

// searchPredicate builds the filter shared by the count and page queries.
// The author filter is an EXISTS subquery so it never multiplies rows.
func searchPredicate(params domain.SearchParams) squirrel.And {
	pred := squirrel.And{}
	if q := strings.TrimSpace(params.Query); q != "" {
		pred = append(pred, squirrel.ILike{"p.title": containsPattern(q)})
	}
	if params.YearFrom != nil {
		pred = append(pred, squirrel.GtOrEq{"p.publish_year": *params.YearFrom})
	}
	if params.YearTo != nil {
		pred = append(pred, squirrel.LtOrEq{"p.publish_year": *params.YearTo})
	}
	if journal := strings.TrimSpace(params.Journal); journal != "" {
		pred = append(pred, squirrel.ILike{"j.journal_name": containsPattern(journal)})
	}
	if author := strings.TrimSpace(params.Author); author != "" {
		pred = append(pred, squirrel.Expr(
			"EXISTS (SELECT 1 FROM paper_authors fpa JOIN authors fa ON fa.author_id = fpa.author_id"+
				" WHERE fpa.paper_id = p.paper_id AND fa.author_name ILIKE ?)",
			containsPattern(author),
		))
	}
	return pred
}

// AdvancedSearch applies the relational filters and returns one page with the exact total.
// A zero limit returns only the total.
func (r *PgPaperRepository) AdvancedSearch(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	pred := searchPredicate(params)

	countQ := psql.Select("COUNT(*)").
		From("papers p").
		LeftJoin("journals j ON j.journal_id = p.journal_id")
	pageQ := selectPapers()
	if len(pred) > 0 {
		countQ = countQ.Where(pred)
		pageQ = pageQ.Where(pred)
	}

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, storeError("advanced_search", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return nil, storeError("advanced_search", err)
	}

	result := &domain.SearchResult{Papers: []domain.Paper{}, Total: total}
	if params.Page.Limit == 0 || total == 0 {
		return result, nil
	}

	pageQ = pageQ.
		OrderBy(orderBy(params.Sort)...).
		Suffix("LIMIT ? OFFSET ?", params.Page.Limit, params.Page.Offset)
	papers, err := r.queryPapers(ctx, "advanced_search", pageQ)
	if err != nil {
		return nil, err
	}
	result.Papers = papers
	return result, nil
}

// FindAuthorByName looks up an author by exact name.
func (r *PgPaperRepository) FindAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("author", "is required")
	}

	var a domain.Author
	err := r.db.QueryRow(ctx,
		`SELECT author_id, author_name FROM authors WHERE author_name = $1`, name,
	).Scan(&a.AuthorID, &a.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author", name)
		}
		return nil, storeError("find_author", err)
	}
	return &a, nil
}

// PapersByAuthor returns the most recent papers linked to an author.
func (r *PgPaperRepository) PapersByAuthor(ctx context.Context, authorID int64, limit int) ([]domain.Paper, error) {
	if limit < 1 || limit > domain.MaxLimit {
		return nil, domain.NewValidationError("limit", "must be an integer between 1 and 1000")
	}

	b := selectPapers().
		Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM paper_authors fpa WHERE fpa.paper_id = p.paper_id AND fpa.author_id = ?)",
			authorID,
		)).
		OrderBy(orderBy(domain.SortRecent)...).
		Suffix("LIMIT ?", limit)
	return r.queryPapers(ctx, "papers_by_author", b)
}
