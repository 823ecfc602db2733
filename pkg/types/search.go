// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the lexsearch engine:
// queries, result sets, documents, citation validations, and configuration.
package types

import (
	"fmt"
	"strings"
	"time"
)

// SearchMode selects how a provider interprets the query text.
type SearchMode string

const (
	// ModeBoolean treats the text as a boolean expression (AND/OR/NOT connectors).
	ModeBoolean SearchMode = "boolean"

	// ModeNatural treats the text as a natural-language question.
	ModeNatural SearchMode = "natural"

	// ModeCitation treats the text as a citation to resolve.
	ModeCitation SearchMode = "citation"

	// ModeTopic is a provider headnote/topic search. Set by the query
	// optimizer when the text carries provider trigger syntax; callers
	// do not request it directly.
	ModeTopic SearchMode = "topic"
)

// SortOrder selects result ordering within a provider.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortDateDesc  SortOrder = "date_desc"
	SortDateAsc   SortOrder = "date_asc"
)

// Query holds the parameters of one legal research search. A Query is
// immutable once constructed: the engine and the cache keying both read
// it, neither mutates it.
type Query struct {
	// Text is the free-text search string.
	Text string `json:"text" yaml:"text"`

	// Mode selects boolean, natural-language, or citation search.
	Mode SearchMode `json:"mode" yaml:"mode"`

	// DocumentTypes restricts results to the given types (e.g. "case",
	// "statute", "regulation"). Empty means all types.
	DocumentTypes []string `json:"document_types,omitempty" yaml:"document_types,omitempty"`

	// Jurisdictions restricts results to the given jurisdictions
	// (e.g. "US", "CA", "NY"). Empty means all jurisdictions.
	Jurisdictions []string `json:"jurisdictions,omitempty" yaml:"jurisdictions,omitempty"`

	// DateFrom and DateTo bound the decision/publication date. Zero
	// values leave the corresponding bound open.
	DateFrom time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`

	// MaxResults caps the number of results returned to the caller.
	// Zero uses the configured default.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Sort selects result ordering. Empty means relevance.
	Sort SortOrder `json:"sort,omitempty" yaml:"sort,omitempty"`

	// PracticeArea tags the query with a practice area (e.g.
	// "contracts", "employment"). Informational; passed to providers
	// that support topic scoping.
	PracticeArea string `json:"practice_area,omitempty" yaml:"practice_area,omitempty"`

	// Providers names the providers to query. Empty means all
	// configured providers.
	Providers []string `json:"providers,omitempty" yaml:"providers,omitempty"`
}

// Validate checks the query before any cache or provider work begins.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query text is empty", ErrInvalidQuery)
	}
	if q.MaxResults < 0 {
		return fmt.Errorf("%w: max results is negative (%d)", ErrInvalidQuery, q.MaxResults)
	}
	switch q.Mode {
	case "", ModeBoolean, ModeNatural, ModeCitation:
	default:
		return fmt.Errorf("%w: unknown search mode %q", ErrInvalidQuery, q.Mode)
	}
	switch q.Sort {
	case "", SortRelevance, SortDateDesc, SortDateAsc:
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidQuery, q.Sort)
	}
	return nil
}

// ErrInvalidQuery marks a malformed query rejected before dispatch.
var ErrInvalidQuery = fmt.Errorf("invalid query")

// ResultItem is one search hit from a provider. Equality for
// deduplication purposes is similarity, not identity: two items from
// different providers describing the same authority are merged by the
// fusion stage.
type ResultItem struct {
	// Provider identifies which backend returned this item
	// (e.g. "westlaw", "lexisnexis").
	Provider string `json:"provider" yaml:"provider"`

	// Citation is the normalized citation string (e.g.
	// "410 U.S. 113"). Primary dedup signal.
	Citation string `json:"citation" yaml:"citation"`

	// Title is the case or document title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Court is the deciding court, if known.
	Court string `json:"court,omitempty" yaml:"court,omitempty"`

	// Jurisdiction is the provider-reported jurisdiction code.
	Jurisdiction string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`

	// DocumentType tags the item (case, statute, regulation, ...).
	DocumentType string `json:"document_type,omitempty" yaml:"document_type,omitempty"`

	// Date is the decision or publication date.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// RelevanceScore is the provider's relevance value in [0, 1].
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Metadata carries provider-specific fields (KeyCite flags,
	// Shepard's signals, headnote references) opaquely.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FacetCounts aggregates result counts by bucket.
type FacetCounts struct {
	Jurisdiction map[string]int `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	Court        map[string]int `json:"court,omitempty" yaml:"court,omitempty"`
	Year         map[string]int `json:"year,omitempty" yaml:"year,omitempty"`
	DocumentType map[string]int `json:"document_type,omitempty" yaml:"document_type,omitempty"`
}

// ResultSet is the fused output of one search. Immutable after fusion:
// a cached ResultSet is never updated in place, a fresh fetch builds a
// new one.
type ResultSet struct {
	// Results is the ranked, deduplicated item sequence.
	Results []ResultItem `json:"results" yaml:"results"`

	// TotalAvailable is the sum of the providers' reported totals,
	// which may exceed len(Results).
	TotalAvailable int `json:"total_available" yaml:"total_available"`

	// ProviderCounts maps provider name to the number of items it
	// contributed after dedup. A provider that failed or returned
	// nothing maps to 0.
	ProviderCounts map[string]int `json:"provider_counts" yaml:"provider_counts"`

	// ProvidersSearched lists the providers that returned successfully,
	// in dispatch order.
	ProvidersSearched []string `json:"providers_searched" yaml:"providers_searched"`

	// Facets aggregates counts by jurisdiction, court, year, and type.
	Facets FacetCounts `json:"facets" yaml:"facets"`

	// HasMore is true if any provider reported more results available.
	HasMore bool `json:"has_more" yaml:"has_more"`

	// Latency is the wall time of the search that produced this set.
	Latency time.Duration `json:"latency" yaml:"latency"`

	// FromCache is true when the set was served from the cache rather
	// than fresh provider calls.
	FromCache bool `json:"from_cache" yaml:"from_cache"`
}

// Document is a full document fetched from a provider.
type Document struct {
	// ID is the provider's document identifier.
	ID string `json:"id" yaml:"id"`

	// Provider identifies the backend the document came from.
	Provider string `json:"provider" yaml:"provider"`

	Citation     string    `json:"citation,omitempty" yaml:"citation,omitempty"`
	Title        string    `json:"title" yaml:"title"`
	Court        string    `json:"court,omitempty" yaml:"court,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	DocumentType string    `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	Date         time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// Content is the document body text.
	Content string `json:"content" yaml:"content"`

	// Metadata carries provider-specific fields opaquely.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// CitationValidation is the outcome of checking a citation against a
// provider's citator service.
type CitationValidation struct {
	// Citation is the input as given by the caller.
	Citation string `json:"citation" yaml:"citation"`

	// Normalized is the canonical form of the citation.
	Normalized string `json:"normalized" yaml:"normalized"`

	// Valid reports whether the provider recognizes the citation.
	Valid bool `json:"valid" yaml:"valid"`

	// Provider identifies the backend that performed the check.
	Provider string `json:"provider" yaml:"provider"`

	// Treatment is the provider's citator signal (KeyCite flag,
	// Shepard's treatment), carried opaquely.
	Treatment string `json:"treatment,omitempty" yaml:"treatment,omitempty"`

	// Message carries a human-readable note from the provider.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}
