package docstore

import (
	"context"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// maxFilterValues caps the journal and keyword lists of filter options.
const maxFilterValues = 50

// covidBreakdownLimit caps the journal breakdown of covid papers.
const covidBreakdownLimit = 10

// citationsOrZero treats a missing citation count as zero.
var citationsOrZero = bson.M{"$ifNull": bson.A{"$citation_count", 0}}

// nonEmpty matches documents whose field is present and not blank.
func nonEmpty(field string) bson.D {
	return bson.D{{Key: "$match", Value: bson.M{field: bson.M{"$nin": bson.A{nil, ""}}}}}
}

// roundedMean is total/count rounded to two decimals, or zero for an empty group.
func roundedMean(total, count string) bson.M {
	return bson.M{"$round": bson.A{
		bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{count, 0}},
			0,
			bson.M{"$divide": bson.A{total, count}},
		}},
		2,
	}}
}

func aggregateAll[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type facetCount struct {
	Count int64 `bson:"count"`
}

type statsFacet struct {
	Totals []struct {
		TotalPapers    int64   `bson:"total_papers"`
		CovidPapers    int64   `bson:"covid_papers"`
		FullTextPapers int64   `bson:"full_text_papers"`
		AvgCitations   float64 `bson:"avg_citations"`
	} `bson:"totals"`
	Journals []facetCount `bson:"unique_journals"`
	Authors  []facetCount `bson:"unique_authors"`
}

// Stats summarizes the collection in a single faceted aggregation. Authors are
// unwound before counting, so a name shared by many papers counts once.
func (s *MongoPaperStore) Stats(ctx context.Context) (*domain.Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"totals": bson.A{
				bson.M{"$group": bson.M{
					"_id":              nil,
					"total_papers":     bson.M{"$sum": 1},
					"covid_papers":     bson.M{"$sum": bson.M{"$cond": bson.A{"$is_covid19", 1, 0}}},
					"full_text_papers": bson.M{"$sum": bson.M{"$cond": bson.A{"$has_full_text", 1, 0}}},
					"avg_citations":    bson.M{"$avg": citationsOrZero},
				}},
			},
			"unique_journals": bson.A{
				bson.M{"$match": bson.M{"journal": bson.M{"$nin": bson.A{nil, ""}}}},
				bson.M{"$group": bson.M{"_id": "$journal"}},
				bson.M{"$count": "count"},
			},
			"unique_authors": bson.A{
				bson.M{"$unwind": "$authors"},
				bson.M{"$group": bson.M{"_id": "$authors"}},
				bson.M{"$count": "count"},
			},
		}}},
	}

	facets, err := aggregateAll[statsFacet](ctx, s.coll, pipeline)
	if err != nil {
		return nil, storeError("stats", err)
	}

	stats := &domain.Stats{}
	if len(facets) == 0 {
		return stats, nil
	}
	f := facets[0]
	if len(f.Totals) > 0 {
		stats.TotalPapers = f.Totals[0].TotalPapers
		stats.CovidPapers = f.Totals[0].CovidPapers
		stats.FullTextPapers = f.Totals[0].FullTextPapers
		stats.AvgCitations = domain.RoundTo2(f.Totals[0].AvgCitations)
	}
	if len(f.Journals) > 0 {
		stats.UniqueJournals = f.Journals[0].Count
	}
	if len(f.Authors) > 0 {
		stats.UniqueAuthors = f.Authors[0].Count
	}
	return stats, nil
}

type rankingDoc struct {
	Name           string  `bson:"name"`
	PaperCount     int64   `bson:"paper_count"`
	TotalCitations int64   `bson:"total_citations"`
	AvgCitations   float64 `bson:"avg_citations"`
}

// rankingPipeline groups by field, sorts by occurrence and truncates to limit.
// Tied counts keep the server's grouping order.
func rankingPipeline(pre []bson.D, field string, limit int) mongo.Pipeline {
	pipeline := mongo.Pipeline(pre)
	return append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{
			"_id":             "$" + field,
			"paper_count":     bson.M{"$sum": 1},
			"total_citations": bson.M{"$sum": citationsOrZero},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"paper_count": -1}}},
		bson.D{{Key: "$limit", Value: limit}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":             0,
			"name":            "$_id",
			"paper_count":     1,
			"total_citations": 1,
			"avg_citations":   roundedMean("$total_citations", "$paper_count"),
		}}},
	)
}

// TopAuthors ranks embedded author names by the number of papers listing them.
func (s *MongoPaperStore) TopAuthors(ctx context.Context, limit int) ([]domain.AuthorStat, error) {
	if err := domain.ValidateRankingLimit(limit); err != nil {
		return nil, err
	}

	pipeline := rankingPipeline([]bson.D{{{Key: "$unwind", Value: "$authors"}}}, "authors", limit)
	rows, err := aggregateAll[rankingDoc](ctx, s.coll, pipeline)
	if err != nil {
		return nil, storeError("top_authors", err)
	}

	stats := make([]domain.AuthorStat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, domain.AuthorStat{
			Name:           r.Name,
			PaperCount:     r.PaperCount,
			TotalCitations: r.TotalCitations,
			AvgCitations:   r.AvgCitations,
		})
	}
	return stats, nil
}

// TopJournals ranks journals by the number of papers.
func (s *MongoPaperStore) TopJournals(ctx context.Context, limit int) ([]domain.JournalStat, error) {
	if err := domain.ValidateRankingLimit(limit); err != nil {
		return nil, err
	}

	pipeline := rankingPipeline([]bson.D{nonEmpty("journal")}, "journal", limit)
	rows, err := aggregateAll[rankingDoc](ctx, s.coll, pipeline)
	if err != nil {
		return nil, storeError("top_journals", err)
	}

	stats := make([]domain.JournalStat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, domain.JournalStat{
			Journal:        r.Name,
			PaperCount:     r.PaperCount,
			TotalCitations: r.TotalCitations,
			AvgCitations:   r.AvgCitations,
		})
	}
	return stats, nil
}

type yearDoc struct {
	Year       int   `bson:"year"`
	Count      int64 `bson:"count"`
	CovidCount int64 `bson:"covid_count"`
}

func yearPipeline(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$year",
			"count":       bson.M{"$sum": 1},
			"covid_count": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_covid19", 1, 0}}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "year": "$_id", "count": 1, "covid_count": 1}}},
	}
}

func toYearStats(rows []yearDoc) []domain.YearStat {
	stats := make([]domain.YearStat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, domain.YearStat(r))
	}
	return stats
}

// PapersPerYear counts papers per year, oldest first, with the covid count of each year.
func (s *MongoPaperStore) PapersPerYear(ctx context.Context) ([]domain.YearStat, error) {
	rows, err := aggregateAll[yearDoc](ctx, s.coll, yearPipeline(bson.M{"year": bson.M{"$ne": nil}}))
	if err != nil {
		return nil, storeError("papers_per_year", err)
	}
	return toYearStats(rows), nil
}

type covidFacet struct {
	Total     []facetCount       `bson:"total"`
	ByYear    []yearDoc          `bson:"by_year"`
	ByJournal []domain.NameCount `bson:"by_journal"`
	BySource  []domain.NameCount `bson:"by_source"`
}

// facet turns pipeline stages into a $facet branch.
func facet(stages []bson.D) bson.A {
	branch := make(bson.A, 0, len(stages))
	for _, stage := range stages {
		branch = append(branch, stage)
	}
	return branch
}

// countByStages groups by field and reports name/count pairs, most frequent
// first. A non-positive limit keeps every group.
func countByStages(field string, limit int) []bson.D {
	stages := []bson.D{
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	}
	if limit > 0 {
		stages = append(stages, bson.D{{Key: "$limit", Value: limit}})
	}
	return append(stages, bson.D{{Key: "$project", Value: bson.M{"_id": 0, "name": "$_id", "count": 1}}})
}

// CovidStats breaks down covid-flagged papers by year, journal and source.
func (s *MongoPaperStore) CovidStats(ctx context.Context) (*domain.CovidStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_covid19": true}}},
		{{Key: "$facet", Value: bson.M{
			"total":      bson.A{bson.M{"$count": "count"}},
			"by_year":    facet(yearPipeline(bson.M{"year": bson.M{"$ne": nil}})),
			"by_journal": facet(countByStages("journal", covidBreakdownLimit)),
			"by_source":  facet(countByStages("source", 0)),
		}}},
	}

	facets, err := aggregateAll[covidFacet](ctx, s.coll, pipeline)
	if err != nil {
		return nil, storeError("covid_stats", err)
	}

	out := &domain.CovidStats{
		ByYear:    []domain.YearStat{},
		ByJournal: []domain.NameCount{},
		BySource:  []domain.NameCount{},
	}
	if len(facets) == 0 {
		return out, nil
	}
	f := facets[0]
	if len(f.Total) > 0 {
		out.Total = f.Total[0].Count
	}
	out.ByYear = toYearStats(f.ByYear)
	if f.ByJournal != nil {
		out.ByJournal = f.ByJournal
	}
	if f.BySource != nil {
		out.BySource = f.BySource
	}
	return out, nil
}

// distinctYears returns the non-null years, newest first.
func (s *MongoPaperStore) distinctYears(ctx context.Context) ([]int, error) {
	values, err := s.coll.Distinct(ctx, "year", bson.M{"year": bson.M{"$ne": nil}})
	if err != nil {
		return nil, err
	}

	years := make([]int, 0, len(values))
	for _, v := range values {
		switch y := v.(type) {
		case int32:
			years = append(years, int(y))
		case int64:
			years = append(years, int(y))
		case float64:
			years = append(years, int(y))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

type valueDoc struct {
	Value string `bson:"_id"`
}

// frequentValues returns the most common values of field. Array fields are unwound first.
func (s *MongoPaperStore) frequentValues(ctx context.Context, field string, unwind bool, limit int) ([]string, error) {
	pipeline := mongo.Pipeline{}
	if unwind {
		pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: "$" + field}})
	}
	pipeline = append(pipeline,
		nonEmpty(field),
		bson.D{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	)

	rows, err := aggregateAll[valueDoc](ctx, s.coll, pipeline)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.Value)
	}
	return values, nil
}

type yearRange struct {
	Min *int `bson:"min"`
	Max *int `bson:"max"`
}

// yearRange returns the smallest and largest year, nil when the collection is empty.
func (s *MongoPaperStore) yearRange(ctx context.Context) (*int, *int, error) {
	rows, err := aggregateAll[yearRange](ctx, s.coll, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": nil, "min": bson.M{"$min": "$year"}, "max": bson.M{"$max": "$year"}}}},
	})
	if err != nil || len(rows) == 0 {
		return nil, nil, err
	}
	return rows[0].Min, rows[0].Max, nil
}

// FilterOptions runs its four independent queries concurrently.
func (s *MongoPaperStore) FilterOptions(ctx context.Context) (*domain.FilterOptions, error) {
	opts := &domain.FilterOptions{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		opts.Years, err = s.distinctYears(gctx)
		return err
	})
	g.Go(func() (err error) {
		opts.Journals, err = s.frequentValues(gctx, "journal", false, maxFilterValues)
		return err
	})
	g.Go(func() (err error) {
		opts.Keywords, err = s.frequentValues(gctx, "keywords", true, maxFilterValues)
		return err
	})
	g.Go(func() (err error) {
		opts.MinYear, opts.MaxYear, err = s.yearRange(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("filter_options", err)
	}
	return opts, nil
}

// suggest returns distinct prefix matches of field. Array fields are unwound
// and re-matched so only the matching element is reported.
func (s *MongoPaperStore) suggest(ctx context.Context, field string, unwind bool, prefix string) ([]string, error) {
	match := bson.D{{Key: "$match", Value: bson.M{field: prefixRegex(prefix)}}}
	pipeline := mongo.Pipeline{match}
	if unwind {
		pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: "$" + field}}, match)
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{"_id": "$" + field}}},
		bson.D{{Key: "$sort", Value: bson.M{"_id": 1}}},
		bson.D{{Key: "$limit", Value: domain.MaxSuggestions}},
	)

	rows, err := aggregateAll[valueDoc](ctx, s.coll, pipeline)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.Value)
	}
	return values, nil
}

// Suggestions returns prefix matches per requested category.
func (s *MongoPaperStore) Suggestions(ctx context.Context, prefix string, typ domain.SuggestionType) (*domain.Suggestions, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, domain.NewValidationError("q", "is required")
	}

	out := &domain.Suggestions{}
	g, gctx := errgroup.WithContext(ctx)
	add := func(c domain.SuggestionType, dst *[]string, field string, unwind bool) {
		if !typ.Includes(c) {
			return
		}
		g.Go(func() (err error) {
			*dst, err = s.suggest(gctx, field, unwind, prefix)
			return err
		})
	}
	add(domain.SuggestTitle, &out.Titles, "title", false)
	add(domain.SuggestJournal, &out.Journals, "journal", false)
	add(domain.SuggestAuthor, &out.Authors, "authors", true)
	add(domain.SuggestKeyword, &out.Keywords, "keywords", true)
	if err := g.Wait(); err != nil {
		return nil, storeError("suggestions", err)
	}
	return out, nil
}

// CoAuthors counts the authors who appear on papers together with name.
func (s *MongoPaperStore) CoAuthors(ctx context.Context, name string, limit int) ([]domain.NameCount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("author", "is required")
	}
	if err := domain.ValidateRankingLimit(limit); err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"authors": name}}},
		{{Key: "$unwind", Value: "$authors"}},
		{{Key: "$match", Value: bson.M{"authors": bson.M{"$ne": name}}}},
	}
	pipeline = append(pipeline, countByStages("authors", limit)...)

	rows, err := aggregateAll[domain.NameCount](ctx, s.coll, pipeline)
	if err != nil {
		return nil, storeError("co_authors", err)
	}
	return rows, nil
}

type journalDoc struct {
	PaperCount     int64   `bson:"paper_count"`
	TotalCitations int64   `bson:"total_citations"`
	AvgCitations   float64 `bson:"avg_citations"`
	CovidPapers    int64   `bson:"covid_papers"`
	FirstYear      int     `bson:"first_year"`
	LastYear       int     `bson:"last_year"`
}

// JournalAnalytics summarizes the citations of papers whose journal matches exactly.
// A journal with no papers yields zero counts rather than an error.
func (s *MongoPaperStore) JournalAnalytics(ctx context.Context, journal string) (*domain.JournalAnalytics, error) {
	journal = strings.TrimSpace(journal)
	if journal == "" {
		return nil, domain.NewValidationError("journal", "is required")
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"journal": journal}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"paper_count":     bson.M{"$sum": 1},
			"total_citations": bson.M{"$sum": citationsOrZero},
			"covid_papers":    bson.M{"$sum": bson.M{"$cond": bson.A{"$is_covid19", 1, 0}}},
			"first_year":      bson.M{"$min": "$year"},
			"last_year":       bson.M{"$max": "$year"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":             0,
			"paper_count":     1,
			"total_citations": 1,
			"covid_papers":    1,
			"first_year":      1,
			"last_year":       1,
			"avg_citations":   roundedMean("$total_citations", "$paper_count"),
		}}},
	}

	rows, err := aggregateAll[journalDoc](ctx, s.coll, pipeline)
	if err != nil {
		return nil, storeError("journal_analytics", err)
	}

	out := &domain.JournalAnalytics{Journal: journal}
	if len(rows) > 0 {
		r := rows[0]
		out.PaperCount = r.PaperCount
		out.TotalCitations = r.TotalCitations
		out.AvgCitations = r.AvgCitations
		out.CovidPapers = r.CovidPapers
		out.FirstYear = r.FirstYear
		out.LastYear = r.LastYear
	}
	return out, nil
}
