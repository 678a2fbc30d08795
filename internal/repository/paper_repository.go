package repository

import (
	"context"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// PaperRepository defines the relational store operations on papers.
type PaperRepository interface {
	// FindByID returns one paper with its ordered authors.
	// Returns domain.ErrNotFound if the paper does not exist.
	FindByID(ctx context.Context, paperID string) (*domain.Paper, error)

	// FindAll returns one page of papers in the requested order plus the total count.
	FindAll(ctx context.Context, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, error)

	// SearchText returns papers whose title contains query, case-insensitively.
	SearchText(ctx context.Context, query string, limit int) ([]domain.Paper, error)

	// AdvancedSearch applies the title, year range, journal and author filters.
	// The count and the page share one predicate.
	AdvancedSearch(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error)

	// FilterOptions returns distinct years and journals with the year range.
	FilterOptions(ctx context.Context) (*domain.FilterOptions, error)

	// Suggestions returns up to domain.MaxSuggestions prefix matches per category.
	Suggestions(ctx context.Context, prefix string, typ domain.SuggestionType) (*domain.Suggestions, error)

	// TopAuthors ranks authors by paper count.
	TopAuthors(ctx context.Context, limit int) ([]domain.AuthorStat, error)

	// TopJournals ranks journals by paper count.
	TopJournals(ctx context.Context, limit int) ([]domain.JournalStat, error)

	// YearStats counts papers per year, newest first.
	YearStats(ctx context.Context) ([]domain.YearStat, error)

	// PapersPerYear counts papers per year, oldest first.
	PapersPerYear(ctx context.Context) ([]domain.YearStat, error)

	// CovidStats breaks down covid-flagged papers.
	CovidStats(ctx context.Context) (*domain.CovidStats, error)

	// Stats summarizes the whole schema.
	Stats(ctx context.Context) (*domain.Stats, error)

	// Count returns the number of papers.
	Count(ctx context.Context) (int64, error)

	// FindAuthorByName looks up an author by exact name.
	FindAuthorByName(ctx context.Context, name string) (*domain.Author, error)

	// PapersByAuthor returns the most recent papers linked to an author.
	PapersByAuthor(ctx context.Context, authorID int64, limit int) ([]domain.Paper, error)

	// Create inserts a paper with its journal, source and authors atomically.
	// Returns domain.ErrAlreadyExists if the paper id is taken.
	Create(ctx context.Context, paper domain.Paper) error

	// Update applies the relational fields of a partial update. A supplied
	// author list replaces the existing associations.
	Update(ctx context.Context, paperID string, update domain.PaperUpdate) error

	// Delete removes a paper and its author associations.
	Delete(ctx context.Context, paperID string) error
}
