// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meshintell/lexsearch/pkg/types"
)

// Outcome tags the result of a cache lookup so callers can tell a
// clean miss from a degraded one (shared tier unreachable) without an
// error value.
type Outcome int

const (
	// OutcomeMiss: not present in either tier.
	OutcomeMiss Outcome = iota

	// OutcomeHitMemory: served from the in-process tier.
	OutcomeHitMemory

	// OutcomeHitShared: served from the shared tier and promoted.
	OutcomeHitShared

	// OutcomeMissDegraded: not in memory and the shared tier was
	// unreachable; the entry may exist there.
	OutcomeMissDegraded
)

// Hit reports whether the outcome carried a payload.
func (o Outcome) Hit() bool { return o == OutcomeHitMemory || o == OutcomeHitShared }

// Store is the two-tier research cache. Reads check the in-process
// tier first and promote shared-tier hits into it; writes go through
// to the shared tier and, for small payloads, into memory as well.
// Shared-tier failures degrade to memory-only operation and are never
// surfaced to callers.
type Store struct {
	mem     *memoryTier
	remote  *redisTier // nil when running memory-only
	metrics *Recorder
	logger  *zap.Logger
	cfg     types.CacheConfig
}

// New builds the store. When cfg.RedisAddr is empty or the connection
// fails, the store runs memory-only; a connection failure is logged,
// not returned.
func New(ctx context.Context, cfg types.CacheConfig, metrics *Recorder, logger *zap.Logger) *Store {
	cfg = cfg.WithDefaults()
	s := &Store{
		mem:     newMemoryTier(cfg),
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	if cfg.RedisAddr != "" {
		remote, err := newRedisTier(ctx, cfg)
		if err != nil {
			logger.Warn("shared cache tier unavailable, running memory-only",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			s.remote = remote
		}
	}
	return s
}

// TTL returns the configured lifetime for a category.
func (s *Store) TTL(category Category) time.Duration {
	switch category {
	case CategoryDocument:
		return s.cfg.DocumentTTL
	case CategoryCitation:
		return s.cfg.CitationTTL
	default:
		return s.cfg.SearchTTL
	}
}

// Get looks key up in both tiers. A shared-tier hit is promoted into
// the memory tier with its remaining TTL. Shared-tier errors count as
// a degraded miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, Outcome) {
	start := time.Now()
	now := start

	if payload, ok := s.mem.get(key, now); ok {
		s.metrics.RecordHit(time.Since(start))
		return payload, OutcomeHitMemory
	}

	if s.remote == nil {
		s.metrics.RecordMiss(time.Since(start))
		return nil, OutcomeMiss
	}

	payload, found, err := s.remote.get(ctx, key)
	if err != nil {
		s.logger.Warn("shared cache tier read failed", zap.String("key", key), zap.Error(err))
		s.metrics.RecordMiss(time.Since(start))
		return nil, OutcomeMissDegraded
	}
	if !found {
		s.metrics.RecordMiss(time.Since(start))
		return nil, OutcomeMiss
	}

	s.promote(ctx, key, payload)
	s.metrics.RecordHit(time.Since(start))
	return payload, OutcomeHitShared
}

// promote copies a shared-tier hit into the memory tier with its
// remaining TTL so repeat reads skip the network.
func (s *Store) promote(ctx context.Context, key string, payload []byte) {
	ttl, ok, err := s.remote.ttl(ctx, key)
	if err != nil || !ok || ttl <= 0 {
		return
	}
	if s.mem.set(key, payload, categoryOf(key), ttl, time.Now()) {
		s.metrics.RecordEvictions(s.mem.evictOverCeiling())
	}
}

// Set writes payload through to the shared tier with the given TTL
// and, when the payload is under the item size limit, into the memory
// tier. Overwrites reset expiry and access stats. Shared-tier write
// failures are logged and absorbed.
func (s *Store) Set(ctx context.Context, key string, payload []byte, category Category, ttl time.Duration) {
	start := time.Now()

	if s.remote != nil {
		if err := s.remote.set(ctx, key, payload, ttl); err != nil {
			s.logger.Warn("shared cache tier write failed", zap.String("key", key), zap.Error(err))
		}
	}

	if s.mem.set(key, payload, category, ttl, start) {
		s.metrics.RecordEvictions(s.mem.evictOverCeiling())
	}
	s.metrics.RecordStore(time.Since(start))
}

// Delete removes one key from both tiers. Used when a cached payload
// turns out to be unparseable.
func (s *Store) Delete(ctx context.Context, key string) {
	s.mem.delete(key)
	if s.remote != nil {
		if _, err := s.remote.deletePattern(ctx, key); err != nil {
			s.logger.Warn("shared cache tier delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Invalidate removes all keys matching the glob pattern and/or
// category from both tiers, returning the larger per-tier count
// removed. No matches is not an error.
func (s *Store) Invalidate(ctx context.Context, pattern string, category Category) int {
	remotePattern := pattern
	if remotePattern == "" {
		if category != "" {
			remotePattern = Prefix(category, "") + "*"
		} else {
			remotePattern = "*"
		}
	}

	removed := s.mem.invalidate(pattern, category)
	if s.remote != nil {
		n, err := s.remote.deletePattern(ctx, remotePattern)
		if err != nil {
			s.logger.Warn("shared cache tier invalidate failed",
				zap.String("pattern", remotePattern), zap.Error(err))
		} else if n > removed {
			removed = n
		}
	}
	return removed
}

// Stats returns the metrics snapshot with the memory tier's current
// occupancy filled in.
func (s *Store) Stats() Snapshot {
	snap := s.metrics.Snapshot()
	snap.MemoryEntries = s.mem.len()
	snap.MemoryBytes = s.mem.bytes()
	return snap
}

// StartSweep launches the background sweep: every SweepInterval it
// reaps expired entries and re-checks the ceilings. The goroutine
// exits when ctx is cancelled. Locks are held only for the short map
// passes, never across network calls.
func (s *Store) StartSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reaped := s.mem.reapExpired(time.Now())
				s.metrics.RecordExpiredReaps(reaped)
				s.metrics.RecordEvictions(s.mem.evictOverCeiling())
				if reaped > 0 {
					s.logger.Debug("cache sweep reaped expired entries", zap.Int("count", reaped))
				}
			}
		}
	}()
}

// Close releases the shared tier connection.
func (s *Store) Close() error {
	if s.remote != nil {
		return s.remote.close()
	}
	return nil
}

// categoryOf recovers the category from a key's prefix. Keys are
// always built by this package, so an unknown prefix only appears if
// someone hand-writes a key; treat it as search.
func categoryOf(key string) Category {
	for _, c := range []Category{CategorySearch, CategoryDocument, CategoryCitation} {
		if len(key) > len(c) && key[:len(c)] == string(c) && key[len(c)] == ':' {
			return c
		}
	}
	return CategorySearch
}
