// Package router maps logical read operations to the store that serves them.
//
// The table is fixed at construction and never mutated, so a Router is safe
// for concurrent use without locking. Operations absent from the table
// resolve to the document store.
package router

import (
	"sort"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// Operation is a logical operation identifier.
type Operation string

// Relational operations.
const (
	OpUserAuthentication       Operation = "user-authentication"
	OpUserManagement           Operation = "user-management"
	OpPaperAuthorRelationships Operation = "paper-author-relationships"
	OpReferentialIntegrity     Operation = "referential-integrity"
	OpTransactionalOperations  Operation = "transactional-operations"
	OpEntityManagement         Operation = "entity-management"
)

// Document operations.
const (
	OpFullTextSearch        Operation = "full-text-search"
	OpPaperMetadataBrowsing Operation = "paper-metadata-browsing"
	OpKeywordSearch         Operation = "keyword-search"
	OpAbstractSearch        Operation = "abstract-search"
	OpFlexibleQueries       Operation = "flexible-queries"
	OpLargeDocumentStorage  Operation = "large-document-storage"
	OpAggregationAnalytics  Operation = "aggregation-analytics"
)

// Analytical operations. No adapter serves these yet.
const (
	OpComplexAnalytics   Operation = "complex-analytics"
	OpTrendAnalysis      Operation = "trend-analysis"
	OpStatisticalQuery   Operation = "statistical-queries"
	OpReportingDashboard Operation = "reporting-dashboards"
)

// Graph operations. No adapter serves these yet.
const (
	OpCollaborationNetworks Operation = "collaboration-networks"
	OpCitationGraphs        Operation = "citation-graphs"
	OpAuthorRelationships   Operation = "author-relationships"
	OpResearchCommunities   Operation = "research-communities"
)

// DefaultStore answers every operation the table does not list.
const DefaultStore = domain.StoreDocument

// DefaultTable returns the standard classification of operations by store.
func DefaultTable() map[domain.Store][]Operation {
	return map[domain.Store][]Operation{
		domain.StoreRelational: {
			OpUserAuthentication,
			OpUserManagement,
			OpPaperAuthorRelationships,
			OpReferentialIntegrity,
			OpTransactionalOperations,
			OpEntityManagement,
		},
		domain.StoreDocument: {
			OpFullTextSearch,
			OpPaperMetadataBrowsing,
			OpKeywordSearch,
			OpAbstractSearch,
			OpFlexibleQueries,
			OpLargeDocumentStorage,
			OpAggregationAnalytics,
		},
		domain.StoreAnalytical: {
			OpComplexAnalytics,
			OpTrendAnalysis,
			OpStatisticalQuery,
			OpReportingDashboard,
		},
		domain.StoreGraph: {
			OpCollaborationNetworks,
			OpCitationGraphs,
			OpAuthorRelationships,
			OpResearchCommunities,
		},
	}
}

// Route is the outcome of resolving one request.
type Route struct {
	Operation  Operation    `json:"operation"`
	Store      domain.Store `json:"store"`
	Overridden bool         `json:"overridden"`
}

// Router resolves operations against an immutable table.
type Router struct {
	table map[Operation]domain.Store
}

// New builds a router over DefaultTable.
func New() *Router {
	return NewWithTable(DefaultTable())
}

// NewWithTable builds a router from a store→operations classification.
// When an operation is listed under several stores the relational listing wins,
// then document, analytical and graph.
func NewWithTable(byStore map[domain.Store][]Operation) *Router {
	table := make(map[Operation]domain.Store)
	precedence := []domain.Store{domain.StoreGraph, domain.StoreAnalytical, domain.StoreDocument, domain.StoreRelational}
	for _, store := range precedence {
		for _, op := range byStore[store] {
			table[op] = store
		}
	}
	return &Router{table: table}
}

// Resolve returns the store for op. It is total: unknown operations yield DefaultStore.
func (r *Router) Resolve(op Operation) domain.Store {
	if store, ok := r.table[op]; ok {
		return store
	}
	return DefaultStore
}

// Route resolves op, letting a non-empty source parameter override the table.
// An unrecognized source is a validation error.
func (r *Router) Route(op Operation, source string) (Route, error) {
	if source == "" {
		return Route{Operation: op, Store: r.Resolve(op)}, nil
	}
	store, err := domain.ParseStore(source)
	if err != nil {
		return Route{}, err
	}
	return Route{Operation: op, Store: store, Overridden: true}, nil
}

// Entry is one row of the routing table.
type Entry struct {
	Operation Operation    `json:"operation"`
	Store     domain.Store `json:"store"`
	// Implemented is false for stores that have no adapter yet.
	Implemented bool `json:"implemented"`
}

// Entries returns a sorted copy of the table.
func (r *Router) Entries() []Entry {
	out := make([]Entry, 0, len(r.table))
	for op, store := range r.table {
		out = append(out, Entry{Operation: op, Store: store, Implemented: store.IsImplemented()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}
