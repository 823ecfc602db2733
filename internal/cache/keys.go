// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements the two-tier research cache: a bounded
// in-process map in front of a shared Redis tier, with TTL expiry,
// pluggable eviction, deterministic keying, and hit/miss metrics.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meshintell/lexsearch/pkg/types"
)

// Category namespaces cache entries by the kind of payload they hold.
type Category string

const (
	CategorySearch   Category = "search"
	CategoryDocument Category = "document"
	CategoryCitation Category = "citation"
)

// AllProviders is the provider scope for entries that aggregate every
// provider's output (fused search results).
const AllProviders = "all"

// keyHashLen is the number of hex characters kept from the SHA-256
// digest. 32 hex chars (128 bits) keeps collisions out of reach while
// keeping Redis keys short.
const keyHashLen = 32

const dateFormat = "2006-01-02"

// SearchKey returns the cache key for a query scoped to provider.
// Keying is deterministic and order-independent: queries that differ
// only in set ordering or in case/whitespace of the text hash to the
// same key.
func SearchKey(q types.Query, provider string) string {
	parts := []string{
		"text=" + normalizeText(q.Text),
		"mode=" + string(q.Mode),
		"doctypes=" + canonicalSet(q.DocumentTypes),
		"jurisdictions=" + canonicalSet(q.Jurisdictions),
		"from=" + formatDate(q.DateFrom),
		"to=" + formatDate(q.DateTo),
		fmt.Sprintf("max=%d", q.MaxResults),
		"sort=" + string(q.Sort),
		"practice=" + normalizeText(q.PracticeArea),
	}
	return buildKey(CategorySearch, provider, strings.Join(parts, "|"))
}

// DocumentKey returns the cache key for a document id scoped to provider.
func DocumentKey(id, provider string) string {
	return buildKey(CategoryDocument, provider, normalizeText(id))
}

// CitationKey returns the cache key for a citation string scoped to
// provider. The citation is normalized so spacing and case variants of
// the same citation share one entry.
func CitationKey(citation, provider string) string {
	return buildKey(CategoryCitation, provider, normalizeText(citation))
}

// Prefix returns the key-space prefix for a category, optionally
// narrowed to one provider. Used for pattern invalidation.
func Prefix(category Category, provider string) string {
	if provider == "" {
		return string(category) + ":"
	}
	return string(category) + ":" + provider + ":"
}

func buildKey(category Category, provider, canonical string) string {
	if provider == "" {
		provider = AllProviders
	}
	sum := sha256.Sum256([]byte(canonical))
	return string(category) + ":" + provider + ":" + hex.EncodeToString(sum[:])[:keyHashLen]
}

// normalizeText lowercases and collapses whitespace so that trivially
// different spellings of the same text hash identically.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// canonicalSet sorts a copy of values case-insensitively and joins
// them, so list ordering never changes the key.
func canonicalSet(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]string, len(values))
	for i, v := range values {
		sorted[i] = normalizeText(v)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}
