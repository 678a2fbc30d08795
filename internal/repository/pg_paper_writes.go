package repository

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/database"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

const (
	upsertJournalSQL = `
		INSERT INTO journals (journal_name) VALUES ($1)
		ON CONFLICT (journal_name) DO UPDATE SET journal_name = EXCLUDED.journal_name
		RETURNING journal_id`

	upsertSourceSQL = `
		INSERT INTO sources (source_name) VALUES ($1)
		ON CONFLICT (source_name) DO UPDATE SET source_name = EXCLUDED.source_name
		RETURNING source_id`

	upsertAuthorSQL = `
		INSERT INTO authors (author_name) VALUES ($1)
		ON CONFLICT (author_name) DO UPDATE SET author_name = EXCLUDED.author_name
		RETURNING author_id`

	linkAuthorSQL = `
		INSERT INTO paper_authors (paper_id, author_id, author_order) VALUES ($1, $2, $3)
		ON CONFLICT (paper_id, author_id) DO NOTHING`

	insertPaperSQL = `
		INSERT INTO papers (
			paper_id, title, abstract, publish_year, journal_id, source_id,
			doi, has_full_text, is_covid19, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
)

// upsertID returns the id of a named lookup row, creating it if needed.
// An empty name yields a nil id.
func upsertID(ctx context.Context, tx pgx.Tx, sql, name string) (*int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var id int64
	if err := tx.QueryRow(ctx, sql, name).Scan(&id); err != nil {
		return nil, err
	}
	return &id, nil
}

// linkAuthors associates authors with a paper in the given order.
func linkAuthors(ctx context.Context, tx pgx.Tx, paperID string, authors []string) error {
	for i, name := range authors {
		authorID, err := upsertID(ctx, tx, upsertAuthorSQL, name)
		if err != nil {
			return err
		}
		if authorID == nil {
			continue
		}
		if _, err := tx.Exec(ctx, linkAuthorSQL, paperID, *authorID, i+1); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a paper with its journal, source and authors in one transaction.
// Citation count and keywords have no relational column and are not written.
func (r *PgPaperRepository) Create(ctx context.Context, paper domain.Paper) error {
	if strings.TrimSpace(paper.PaperID) == "" {
		return domain.NewValidationError("paper_id", "is required")
	}
	if strings.TrimSpace(paper.Title) == "" {
		return domain.NewValidationError("title", "is required")
	}

	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		journalID, err := upsertID(ctx, tx, upsertJournalSQL, paper.Journal)
		if err != nil {
			return err
		}
		sourceID, err := upsertID(ctx, tx, upsertSourceSQL, paper.Source)
		if err != nil {
			return err
		}

		var year *int
		if paper.Year > 0 {
			year = &paper.Year
		}
		_, err = tx.Exec(ctx, insertPaperSQL,
			paper.PaperID,
			paper.Title,
			strings.TrimSpace(paper.Abstract),
			year,
			journalID,
			sourceID,
			strings.TrimSpace(paper.DOI),
			paper.HasFullText,
			paper.IsCovid19,
			paper.CreatedAt,
			paper.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewAlreadyExistsError("paper", paper.PaperID)
			}
			return err
		}

		return linkAuthors(ctx, tx, paper.PaperID, paper.Authors)
	})
	return storeError("create", err)
}

// Update applies the relational fields of a partial update in one transaction.
func (r *PgPaperRepository) Update(ctx context.Context, paperID string, update domain.PaperUpdate) error {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return domain.NewValidationError("paper_id", "is required")
	}
	if err := update.Validate(); err != nil {
		return err
	}
	if !update.HasRelationalFields() {
		return domain.NewValidationError("update", "no relational fields to update")
	}

	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		b := psql.Update("papers").
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"paper_id": paperID})

		if update.Title != nil {
			b = b.Set("title", strings.TrimSpace(*update.Title))
		}
		if update.Abstract != nil {
			b = b.Set("abstract", strings.TrimSpace(*update.Abstract))
		}
		if update.Year != nil {
			var year *int
			if *update.Year > 0 {
				year = update.Year
			}
			b = b.Set("publish_year", year)
		}
		if update.DOI != nil {
			b = b.Set("doi", strings.TrimSpace(*update.DOI))
		}
		if update.HasFullText != nil {
			b = b.Set("has_full_text", *update.HasFullText)
		}
		if update.IsCovid19 != nil {
			b = b.Set("is_covid19", *update.IsCovid19)
		}
		if update.Journal != nil {
			id, err := upsertID(ctx, tx, upsertJournalSQL, *update.Journal)
			if err != nil {
				return err
			}
			b = b.Set("journal_id", id)
		}
		if update.Source != nil {
			id, err := upsertID(ctx, tx, upsertSourceSQL, *update.Source)
			if err != nil {
				return err
			}
			b = b.Set("source_id", id)
		}

		query, args, err := b.ToSql()
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.NewNotFoundError("paper", paperID)
		}

		if update.Authors != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM paper_authors WHERE paper_id = $1`, paperID); err != nil {
				return err
			}
			return linkAuthors(ctx, tx, paperID, *update.Authors)
		}
		return nil
	})
	return storeError("update", err)
}

// Delete removes a paper. Author associations cascade.
func (r *PgPaperRepository) Delete(ctx context.Context, paperID string) error {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return domain.NewValidationError("paper_id", "is required")
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM papers WHERE paper_id = $1`, paperID)
	if err != nil {
		return storeError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", paperID)
	}
	return nil
}
