// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by provider adapters.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "lexsearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RateLimitConfig holds a provider's request-rate budget. Requests
// beyond the budget wait for capacity rather than failing.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per Window.
	Requests int `json:"requests" yaml:"requests"`

	// Window is the measurement window (default 1m).
	Window time.Duration `json:"window" yaml:"window"`
}

// ProviderConfig holds settings for one search provider.
type ProviderConfig struct {
	// Enabled controls whether the provider is queried.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// APIKey authenticates against the provider. Usually loaded from
	// .secrets/ rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults is the provider-side result cap. Query caps above
	// this value are clamped before dispatch.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Weight scales the provider's relevance scores during score-based
	// fusion (default 1.0).
	Weight float64 `json:"weight" yaml:"weight"`

	// CostPerSearch is the estimated spend per search call in USD,
	// used for budget metrics.
	CostPerSearch float64 `json:"cost_per_search" yaml:"cost_per_search"`

	// RateLimit is the provider's request budget.
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// Timeout is the per-call deadline for this provider. A provider
	// that exceeds it is treated like a failed provider; the others'
	// results are still fused.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// EvictionPolicy selects how the in-memory cache tier sheds entries
// under size pressure.
type EvictionPolicy string

const (
	// EvictLRU removes the entries with the oldest last-access time.
	EvictLRU EvictionPolicy = "lru"

	// EvictLFU removes the entries with the lowest access count.
	EvictLFU EvictionPolicy = "lfu"

	// EvictSoonestExpiry removes the entries closest to expiry.
	EvictSoonestExpiry EvictionPolicy = "soonest_expiry"
)

// CacheConfig holds settings for the two-tier research cache.
type CacheConfig struct {
	// RedisAddr is the shared tier's address (host:port). Empty
	// disables the shared tier; the cache runs memory-only.
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`

	// RedisPassword authenticates against the shared tier.
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`

	// RedisDB selects the Redis database number.
	RedisDB int `json:"redis_db" yaml:"redis_db"`

	// MemoryMaxEntries is the in-process tier's entry-count ceiling
	// (default 1000).
	MemoryMaxEntries int `json:"memory_max_entries" yaml:"memory_max_entries"`

	// MemoryMaxBytes is the in-process tier's payload-byte ceiling.
	// Zero disables the byte ceiling; the entry-count ceiling still
	// applies.
	MemoryMaxBytes int64 `json:"memory_max_bytes" yaml:"memory_max_bytes"`

	// MemoryItemLimit is the largest serialized payload admitted to
	// the in-process tier (default 256 KiB). Larger payloads are
	// written to the shared tier only.
	MemoryItemLimit int `json:"memory_item_limit" yaml:"memory_item_limit"`

	// Eviction selects the policy for shedding entries under size
	// pressure: lru, lfu, or soonest_expiry (default lru).
	Eviction EvictionPolicy `json:"eviction" yaml:"eviction"`

	// SweepInterval is how often the background sweep reaps expired
	// entries and re-checks ceilings (default 1m).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`

	// SearchTTL, DocumentTTL, and CitationTTL set the lifetime of
	// cached entries per category (defaults 30m, 24h, 7d).
	SearchTTL   time.Duration `json:"search_ttl" yaml:"search_ttl"`
	DocumentTTL time.Duration `json:"document_ttl" yaml:"document_ttl"`
	CitationTTL time.Duration `json:"citation_ttl" yaml:"citation_ttl"`
}

// MergeStrategy selects how fusion orders items from multiple providers.
type MergeStrategy string

const (
	// MergeRoundRobin takes one item from each provider's list in
	// turn, cycling until all are exhausted.
	MergeRoundRobin MergeStrategy = "round_robin"

	// MergeInterleave alternates strictly 1:1 between two providers.
	MergeInterleave MergeStrategy = "interleave"

	// MergeScore flattens all unique items and sorts by
	// weight-adjusted relevance score.
	MergeScore MergeStrategy = "score"
)

// FusionConfig holds settings for merging provider result sets.
type FusionConfig struct {
	// DedupThreshold is the similarity score at or above which two
	// items are considered the same authority (default 0.85).
	DedupThreshold float64 `json:"dedup_threshold" yaml:"dedup_threshold"`

	// Strategy selects the merge ordering (default score).
	Strategy MergeStrategy `json:"strategy" yaml:"strategy"`

	// MaxResults caps the fused list (default 20). Applied after
	// dedup, never before.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// EngineConfig groups all settings for the unified search engine.
type EngineConfig struct {
	HTTPConfig `yaml:",inline"`

	// Westlaw and LexisNexis configure the two provider adapters.
	Westlaw    ProviderConfig `json:"westlaw" yaml:"westlaw"`
	LexisNexis ProviderConfig `json:"lexisnexis" yaml:"lexisnexis"`

	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Fusion FusionConfig `json:"fusion" yaml:"fusion"`

	// Sequential disables concurrent provider dispatch and queries
	// providers one at a time in configuration order. For constrained
	// environments; concurrent dispatch is the default.
	Sequential bool `json:"sequential" yaml:"sequential"`

	// DocumentsDir is the base directory for the local document
	// archive (contains index/). Empty disables the archive.
	DocumentsDir string `json:"documents_dir,omitempty" yaml:"documents_dir,omitempty"`
}

// WithDefaults returns a copy of cfg with zero values replaced by
// documented defaults.
func (c CacheConfig) WithDefaults() CacheConfig {
	if c.MemoryMaxEntries <= 0 {
		c.MemoryMaxEntries = 1000
	}
	if c.MemoryMaxBytes < 0 {
		c.MemoryMaxBytes = 0
	}
	if c.MemoryItemLimit <= 0 {
		c.MemoryItemLimit = 256 * 1024
	}
	if c.Eviction == "" {
		c.Eviction = EvictLRU
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.SearchTTL <= 0 {
		c.SearchTTL = 30 * time.Minute
	}
	if c.DocumentTTL <= 0 {
		c.DocumentTTL = 24 * time.Hour
	}
	if c.CitationTTL <= 0 {
		c.CitationTTL = 7 * 24 * time.Hour
	}
	return c
}

// WithDefaults returns a copy of cfg with zero values replaced by
// documented defaults.
func (f FusionConfig) WithDefaults() FusionConfig {
	if f.DedupThreshold <= 0 {
		f.DedupThreshold = 0.85
	}
	if f.Strategy == "" {
		f.Strategy = MergeScore
	}
	if f.MaxResults <= 0 {
		f.MaxResults = 20
	}
	return f
}
