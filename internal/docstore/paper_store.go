package docstore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/normalize"
)

// PaperStore defines the document store operations on papers.
type PaperStore interface {
	// FindByID returns one paper. Returns domain.ErrNotFound if absent.
	FindByID(ctx context.Context, paperID string) (*domain.Paper, error)

	// FindAll returns one page of papers in the requested order plus the total count.
	FindAll(ctx context.Context, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, error)

	// SearchText ranks papers by text score, falling back to an unranked
	// case-insensitive match on title and abstract when text search fails.
	SearchText(ctx context.Context, query string, limit int) ([]domain.Paper, error)

	// AdvancedSearch applies every filter in params; count and page share one filter.
	AdvancedSearch(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error)

	// FilterOptions returns distinct years, frequent journals and keywords, and the year range.
	FilterOptions(ctx context.Context) (*domain.FilterOptions, error)

	// Suggestions returns up to domain.MaxSuggestions prefix matches per category.
	Suggestions(ctx context.Context, prefix string, typ domain.SuggestionType) (*domain.Suggestions, error)

	// TopAuthors ranks embedded author names by occurrence.
	TopAuthors(ctx context.Context, limit int) ([]domain.AuthorStat, error)

	// TopJournals ranks journals by occurrence.
	TopJournals(ctx context.Context, limit int) ([]domain.JournalStat, error)

	// PapersPerYear counts papers per year, oldest first.
	PapersPerYear(ctx context.Context) ([]domain.YearStat, error)

	// CovidStats breaks down covid-flagged papers.
	CovidStats(ctx context.Context) (*domain.CovidStats, error)

	// Stats summarizes the collection in one aggregation.
	Stats(ctx context.Context) (*domain.Stats, error)

	// CoAuthors counts the authors who share papers with name.
	CoAuthors(ctx context.Context, name string, limit int) ([]domain.NameCount, error)

	// JournalAnalytics summarizes the citations of one journal.
	JournalAnalytics(ctx context.Context, journal string) (*domain.JournalAnalytics, error)

	// Count returns the number of paper documents.
	Count(ctx context.Context) (int64, error)

	// Create inserts a paper document.
	// Returns domain.ErrAlreadyExists if the paper id is taken.
	Create(ctx context.Context, paper domain.Paper) error

	// Update sets the fields present in update.
	Update(ctx context.Context, paperID string, update domain.PaperUpdate) error

	// Delete removes a paper document.
	Delete(ctx context.Context, paperID string) error
}

// Compile-time interface verification.
var _ PaperStore = (*MongoPaperStore)(nil)

// MongoPaperStore is a MongoDB implementation of PaperStore.
type MongoPaperStore struct {
	coll *mongo.Collection
}

// NewMongoPaperStore creates a paper store over coll.
func NewMongoPaperStore(coll *mongo.Collection) *MongoPaperStore {
	return &MongoPaperStore{coll: coll}
}

// containsRegex matches s anywhere, case-insensitively. s is quoted so user
// input never acts as a pattern.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// prefixRegex matches values starting with s, case-insensitively.
func prefixRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s), Options: "i"}
}

// textScoreSort orders by text relevance.
var textScoreSort = bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}

// sortDoc maps a sort key to a sort document ending on paper_id so pages are
// stable. Relevance needs a text query and degrades to recency without one.
func sortDoc(sort domain.SortKey, textQuery bool) bson.D {
	switch sort {
	case domain.SortOldest:
		return bson.D{{Key: "year", Value: 1}, {Key: "title", Value: 1}, {Key: "paper_id", Value: 1}}
	case domain.SortTitle:
		return bson.D{{Key: "title", Value: 1}, {Key: "paper_id", Value: 1}}
	case domain.SortJournal:
		return bson.D{{Key: "journal", Value: 1}, {Key: "year", Value: -1}, {Key: "paper_id", Value: 1}}
	case domain.SortCitations:
		return bson.D{{Key: "citation_count", Value: -1}, {Key: "paper_id", Value: 1}}
	case domain.SortRelevance:
		if textQuery {
			return append(textScoreSort, bson.E{Key: "paper_id", Value: 1})
		}
	}
	return bson.D{{Key: "year", Value: -1}, {Key: "title", Value: 1}, {Key: "paper_id", Value: 1}}
}

func (s *MongoPaperStore) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]domain.Paper, error) {
	defer cur.Close(ctx)

	papers := []domain.Paper{}
	for cur.Next(ctx) {
		var doc normalize.Document
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		papers = append(papers, normalize.FromDocument(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return papers, nil
}

func (s *MongoPaperStore) find(ctx context.Context, filter any, opts *options.FindOptions) ([]domain.Paper, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return s.decodeAll(ctx, cur)
}

// FindByID returns one paper.
func (s *MongoPaperStore) FindByID(ctx context.Context, paperID string) (*domain.Paper, error) {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return nil, domain.NewValidationError("paper_id", "is required")
	}

	var doc normalize.Document
	err := s.coll.FindOne(ctx, bson.M{"paper_id": paperID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("paper", paperID)
		}
		return nil, storeError("find_by_id", err)
	}
	p := normalize.FromDocument(doc)
	return &p, nil
}

// FindAll returns one page of papers in the requested order.
func (s *MongoPaperStore) FindAll(ctx context.Context, sort domain.SortKey, page domain.PageRequest) (*domain.SearchResult, error) {
	return s.AdvancedSearch(ctx, domain.SearchParams{Sort: sort, Page: page})
}

// textSearchFailed reports whether err came from the text query itself rather
// than from the caller giving up.
func textSearchFailed(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() == nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func regexTextFilter(query string) bson.M {
	re := containsRegex(query)
	return bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"abstract": re},
	}}
}

// SearchText ranks matches by text score. If the text query fails, for
// example because the text index is missing, it retries as an unranked
// case-insensitive match on title and abstract.
func (s *MongoPaperStore) SearchText(ctx context.Context, query string, limit int) ([]domain.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("q", "is required")
	}
	if limit < 1 || limit > domain.MaxLimit {
		return nil, domain.NewValidationError("limit", "must be an integer between 1 and 1000")
	}

	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(textScoreSort).
		SetLimit(int64(limit))
	papers, err := s.find(ctx, bson.M{"$text": bson.M{"$search": query}}, opts)
	if err == nil {
		return papers, nil
	}
	if !textSearchFailed(ctx, err) {
		return nil, storeError("search_text", err)
	}

	papers, err = s.find(ctx, regexTextFilter(query), options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, storeError("search_text", err)
	}
	return papers, nil
}

// searchFilter builds the filter shared by the count and page queries.
func searchFilter(params domain.SearchParams, useText bool) bson.D {
	filter := bson.D{}
	if q := strings.TrimSpace(params.Query); q != "" {
		if useText {
			filter = append(filter, bson.E{Key: "$text", Value: bson.M{"$search": q}})
		} else {
			filter = append(filter, bson.E{Key: "$or", Value: regexTextFilter(q)["$or"]})
		}
	}
	if params.YearFrom != nil || params.YearTo != nil {
		years := bson.M{}
		if params.YearFrom != nil {
			years["$gte"] = *params.YearFrom
		}
		if params.YearTo != nil {
			years["$lte"] = *params.YearTo
		}
		filter = append(filter, bson.E{Key: "year", Value: years})
	}
	if journal := strings.TrimSpace(params.Journal); journal != "" {
		filter = append(filter, bson.E{Key: "journal", Value: containsRegex(journal)})
	}
	if author := strings.TrimSpace(params.Author); author != "" {
		filter = append(filter, bson.E{Key: "authors", Value: containsRegex(author)})
	}
	if params.MinCitations != nil {
		filter = append(filter, bson.E{Key: "citation_count", Value: bson.M{"$gte": *params.MinCitations}})
	}
	if keywords := strings.TrimSpace(params.Keywords); keywords != "" {
		filter = append(filter, bson.E{Key: "keywords", Value: containsRegex(keywords)})
	}
	if doi := strings.TrimSpace(params.DOI); doi != "" {
		filter = append(filter, bson.E{Key: "doi", Value: doi})
	}
	return filter
}

// AdvancedSearch applies every filter and returns one page with the exact total.
// A query uses the text index; if that fails the search is retried with a
// substring match and relevance ordering degrades to recency.
func (s *MongoPaperStore) AdvancedSearch(ctx context.Context, params domain.SearchParams) (*domain.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hasQuery := strings.TrimSpace(params.Query) != ""
	result, err := s.search(ctx, params, hasQuery)
	if err != nil && hasQuery && textSearchFailed(ctx, err) {
		result, err = s.search(ctx, params, false)
	}
	if err != nil {
		return nil, storeError("advanced_search", err)
	}
	return result, nil
}

func (s *MongoPaperStore) search(ctx context.Context, params domain.SearchParams, useText bool) (*domain.SearchResult, error) {
	filter := searchFilter(params, useText)

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &domain.SearchResult{Papers: []domain.Paper{}, Total: total}
	// A zero limit means unlimited to the driver, so the page query is skipped.
	if params.Page.Limit == 0 || total == 0 {
		return result, nil
	}

	opts := options.Find().
		SetSort(sortDoc(params.Sort, useText)).
		SetSkip(int64(params.Page.Offset)).
		SetLimit(int64(params.Page.Limit))
	if useText && params.Sort == domain.SortRelevance {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
	}

	papers, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	result.Papers = papers
	return result, nil
}
