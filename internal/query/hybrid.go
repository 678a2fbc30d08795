package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/normalize"
)

// hybridSampleSize caps the relational sample of a journal analysis.
const hybridSampleSize = 5

// RelationalReader adds the author lookups only the relational store answers.
type RelationalReader interface {
	Reader
	FindAuthorByName(ctx context.Context, name string) (*domain.Author, error)
	PapersByAuthor(ctx context.Context, authorID int64, limit int) ([]domain.Paper, error)
}

// DocumentReader adds the analytics only the document store answers.
type DocumentReader interface {
	Reader
	CoAuthors(ctx context.Context, name string, limit int) ([]domain.NameCount, error)
	JournalAnalytics(ctx context.Context, journal string) (*domain.JournalAnalytics, error)
}

// HybridSearchResult holds the matches of each store under its own key.
type HybridSearchResult struct {
	Query      string         `json:"query"`
	Relational []domain.Paper `json:"relational"`
	Document   []domain.Paper `json:"document"`
}

// AuthorNetwork combines an author's relational papers with document co-authors.
type AuthorNetwork struct {
	Author    string             `json:"author"`
	AuthorID  *int64             `json:"author_id,omitempty"`
	Papers    []domain.Paper     `json:"papers"`
	CoAuthors []domain.NameCount `json:"co_authors"`
}

// JournalAnalysis combines a relational sample with document citation analytics.
type JournalAnalysis struct {
	Journal          string                   `json:"journal"`
	RelationalPapers int64                    `json:"relational_papers"`
	Sample           []domain.Paper           `json:"sample"`
	Analytics        *domain.JournalAnalytics `json:"analytics"`
}

// Hybrid queries both stores at once and reports each answer separately.
// It bypasses the router.
type Hybrid struct {
	relational RelationalReader
	document   DocumentReader
	timeout    time.Duration
}

// NewHybrid creates a hybrid reader. A zero timeout uses DefaultTimeout.
func NewHybrid(relational RelationalReader, document DocumentReader, timeout time.Duration) *Hybrid {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Hybrid{relational: relational, document: document, timeout: timeout}
}

// PaperDetails fetches id from both stores. A store that lacks the paper
// leaves its side empty; the paper missing from both is not found.
func (h *Hybrid) PaperDetails(ctx context.Context, paperID string) (*normalize.HybridView, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var rel, doc *domain.Paper
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := h.relational.FindByID(gctx, paperID)
		rel, err = p, ignoreNotFound(err)
		return err
	})
	g.Go(func() error {
		p, err := h.document.FindByID(gctx, paperID)
		doc, err = p, ignoreNotFound(err)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if rel == nil && doc == nil {
		return nil, domain.NewNotFoundError("paper", paperID)
	}

	view := normalize.Hybrid(paperID, rel, doc)
	return &view, nil
}

// Search runs the text search of both stores.
func (h *Hybrid) Search(ctx context.Context, q string, limit int) (*HybridSearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	out := &HybridSearchResult{Query: q}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Relational, err = h.relational.SearchText(gctx, q, limit)
		return err
	})
	g.Go(func() (err error) {
		out.Document, err = h.document.SearchText(gctx, q, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// AuthorNetwork looks name up relationally and counts its document co-authors.
func (h *Hybrid) AuthorNetwork(ctx context.Context, name string, limit int) (*AuthorNetwork, error) {
	if err := domain.ValidateRankingLimit(limit); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	out := &AuthorNetwork{Author: name, Papers: []domain.Paper{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		author, err := h.relational.FindAuthorByName(gctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out.AuthorID = &author.AuthorID
		out.Papers, err = h.relational.PapersByAuthor(gctx, author.AuthorID, limit)
		return err
	})
	g.Go(func() (err error) {
		out.CoAuthors, err = h.document.CoAuthors(gctx, name, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if out.AuthorID == nil && len(out.CoAuthors) == 0 {
		return nil, domain.NewNotFoundError("author", name)
	}
	if out.CoAuthors == nil {
		out.CoAuthors = []domain.NameCount{}
	}
	return out, nil
}

// JournalAnalysis samples journal relationally and summarizes its citations.
func (h *Hybrid) JournalAnalysis(ctx context.Context, journal string) (*JournalAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	out := &JournalAnalysis{Journal: journal}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := h.relational.AdvancedSearch(gctx, domain.SearchParams{
			Journal: journal,
			Sort:    domain.SortRecent,
			Page:    domain.PageRequest{Limit: hybridSampleSize},
		})
		if err != nil {
			return err
		}
		out.RelationalPapers = res.Total
		out.Sample = res.Papers
		if out.Sample == nil {
			out.Sample = []domain.Paper{}
		}
		return nil
	})
	g.Go(func() (err error) {
		out.Analytics, err = h.document.JournalAnalytics(gctx, journal)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if out.RelationalPapers == 0 && out.Analytics.PaperCount == 0 {
		return nil, domain.NewNotFoundError("journal", journal)
	}
	return out, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
