package domain

import (
	"math"
	"time"
)

// Stats is the collection-wide summary.
type Stats struct {
	TotalPapers    int64   `json:"total_papers"`
	CovidPapers    int64   `json:"covid_papers"`
	FullTextPapers int64   `json:"full_text_papers"`
	AvgCitations   float64 `json:"avg_citations"`
	UniqueJournals int64   `json:"unique_journals"`
	UniqueAuthors  int64   `json:"unique_authors"`
}

// AuthorStat is one row of the top authors ranking.
type AuthorStat struct {
	Name           string  `json:"name"`
	PaperCount     int64   `json:"paper_count"`
	TotalCitations int64   `json:"total_citations"`
	AvgCitations   float64 `json:"avg_citations"`
}

// JournalStat is one row of the top journals ranking.
type JournalStat struct {
	Journal        string  `json:"journal"`
	PaperCount     int64   `json:"paper_count"`
	TotalCitations int64   `json:"total_citations"`
	AvgCitations   float64 `json:"avg_citations"`
}

// YearStat counts papers published in one year.
type YearStat struct {
	Year       int   `json:"year"`
	Count      int64 `json:"count"`
	CovidCount int64 `json:"covid_count"`
}

// Ranking bounds for top authors and journals.
const (
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100
)

// ValidateRankingLimit rejects limits outside 1..MaxRankingLimit.
func ValidateRankingLimit(limit int) error {
	if limit < 1 || limit > MaxRankingLimit {
		return NewValidationError("limit", "must be an integer between 1 and 100")
	}
	return nil
}

// SyncStatus compares paper counts across stores.
type SyncStatus struct {
	RelationalCount int64     `json:"relational_count"`
	DocumentCount   int64     `json:"document_count"`
	Discrepancy     int64     `json:"discrepancy"`
	SyncRequired    bool      `json:"sync_required"`
	CheckedAt       time.Time `json:"checked_at"`
}

// NewSyncStatus computes the absolute discrepancy between two counts.
func NewSyncStatus(relational, document int64, at time.Time) SyncStatus {
	diff := relational - document
	if diff < 0 {
		diff = -diff
	}
	return SyncStatus{
		RelationalCount: relational,
		DocumentCount:   document,
		Discrepancy:     diff,
		SyncRequired:    diff > 0,
		CheckedAt:       at,
	}
}

// NameCount is one group of a breakdown.
type NameCount struct {
	Name  string `json:"name" bson:"name"`
	Count int64  `json:"count" bson:"count"`
}

// CovidStats breaks down the covid-flagged papers.
type CovidStats struct {
	Total     int64       `json:"total"`
	ByYear    []YearStat  `json:"by_year"`
	ByJournal []NameCount `json:"by_journal"`
	BySource  []NameCount `json:"by_source"`
}

// JournalAnalytics summarizes the papers of one journal.
type JournalAnalytics struct {
	Journal        string  `json:"journal"`
	PaperCount     int64   `json:"paper_count"`
	TotalCitations int64   `json:"total_citations"`
	AvgCitations   float64 `json:"avg_citations"`
	CovidPapers    int64   `json:"covid_papers"`
	FirstYear      int     `json:"first_year,omitempty"`
	LastYear       int     `json:"last_year,omitempty"`
}

// RoundTo2 rounds a mean to two decimals for reporting.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
