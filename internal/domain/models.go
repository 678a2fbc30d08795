// Package domain provides the canonical models shared by both paper stores.
package domain

import "strings"

// Store identifies a backing store that can answer an operation.
type Store string

const (
	// StoreRelational is the normalized PostgreSQL schema.
	StoreRelational Store = "relational"
	// StoreDocument is the MongoDB paper collection.
	StoreDocument Store = "document"
	// StoreAnalytical is reserved for a future analytics store and has no adapter.
	StoreAnalytical Store = "analytical"
	// StoreGraph is reserved for a future graph store and has no adapter.
	StoreGraph Store = "graph"
)

// IsImplemented reports whether an adapter exists for the store.
func (s Store) IsImplemented() bool {
	return s == StoreRelational || s == StoreDocument
}

// ParseStore maps a user-supplied source parameter to a store.
// Legacy engine names are accepted alongside the store names.
func ParseStore(source string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "relational", "sql", "mysql", "postgres", "postgresql":
		return StoreRelational, nil
	case "document", "mongo", "mongodb":
		return StoreDocument, nil
	case "analytical":
		return StoreAnalytical, nil
	case "graph", "neo4j":
		return StoreGraph, nil
	default:
		return "", NewValidationError("source", "must be one of relational, document")
	}
}

// SortKey selects the ordering of paper listings.
type SortKey string

const (
	SortRecent    SortKey = "recent"
	SortOldest    SortKey = "oldest"
	SortTitle     SortKey = "title"
	SortJournal   SortKey = "journal"
	SortCitations SortKey = "citations"
	// SortRelevance ranks by text score when a query is present and
	// degrades to SortRecent otherwise.
	SortRelevance SortKey = "relevance"
)

// ParseSortKey validates a sortBy parameter. An empty value yields the default.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortRecent, nil
	}
	switch k := SortKey(strings.ToLower(s)); k {
	case SortRecent, SortOldest, SortTitle, SortJournal, SortCitations, SortRelevance:
		return k, nil
	default:
		return "", NewValidationError("sortBy", "must be one of recent, oldest, title, journal, citations, relevance")
	}
}

// SuggestionType is the category of an autocomplete request.
type SuggestionType string

const (
	SuggestTitle   SuggestionType = "title"
	SuggestJournal SuggestionType = "journal"
	SuggestAuthor  SuggestionType = "author"
	SuggestKeyword SuggestionType = "keyword"
	SuggestAll     SuggestionType = "all"
)

// MaxSuggestions caps every suggestion category.
const MaxSuggestions = 5

// ParseSuggestionType validates a suggestion type. An empty value yields SuggestAll.
func ParseSuggestionType(s string) (SuggestionType, error) {
	if s == "" {
		return SuggestAll, nil
	}
	switch t := SuggestionType(strings.ToLower(s)); t {
	case SuggestTitle, SuggestJournal, SuggestAuthor, SuggestKeyword, SuggestAll:
		return t, nil
	default:
		return "", NewValidationError("type", "must be one of title, journal, author, keyword, all")
	}
}

// Includes reports whether a request of type t should produce category c.
func (t SuggestionType) Includes(c SuggestionType) bool {
	return t == SuggestAll || t == c
}

// Suggestions holds prefix matches per category.
type Suggestions struct {
	Titles   []string `json:"titles,omitempty"`
	Journals []string `json:"journals,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// FilterOptions holds distinct values for building search filters.
type FilterOptions struct {
	Years    []int    `json:"years"`
	Journals []string `json:"journals"`
	Keywords []string `json:"keywords"`
	MinYear  *int     `json:"min_year"`
	MaxYear  *int     `json:"max_year"`
}
