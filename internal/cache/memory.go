// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"path"
	"strings"
	"sync"
	"time"

	"github.com/meshintell/lexsearch/pkg/types"
)

// entry is one in-process cache record. Expiry is absolute wall-clock
// time fixed at write; lastAccess and accessCount exist only for
// eviction ordering and never extend an entry's life.
type entry struct {
	payload     []byte
	category    Category
	createdAt   time.Time
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount uint64
}

// memoryTier is the bounded in-process tier. One mutex guards the map,
// the access bookkeeping, eviction, and the sweep alike; every
// critical section is short and never spans a network call.
type memoryTier struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	totalBytes int64

	maxEntries int
	maxBytes   int64
	itemLimit  int
	policy     types.EvictionPolicy
}

func newMemoryTier(cfg types.CacheConfig) *memoryTier {
	return &memoryTier{
		entries:    make(map[string]*entry),
		maxEntries: cfg.MemoryMaxEntries,
		maxBytes:   cfg.MemoryMaxBytes,
		itemLimit:  cfg.MemoryItemLimit,
		policy:     cfg.Eviction,
	}
}

// get returns the payload for key if present and unexpired, updating
// the access bookkeeping. An expired entry is purged on the spot and
// reported via the second return as a miss.
func (m *memoryTier) get(key string, now time.Time) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-check under the write lock: a sweep or overwrite may have
	// intervened since the read lock was dropped.
	e, ok = m.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		m.removeLocked(key, e)
		return nil, false
	}
	e.lastAccess = now
	e.accessCount++
	return e.payload, true
}

// set stores payload under key with an absolute expiry of now+ttl.
// Overwriting an existing key resets its expiry and access stats.
// Payloads above the item size limit are refused (false) and belong to
// the shared tier only.
func (m *memoryTier) set(key string, payload []byte, category Category, ttl time.Duration, now time.Time) bool {
	if m.itemLimit > 0 && len(payload) > m.itemLimit {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[key]; ok {
		m.totalBytes -= int64(len(old.payload))
	}
	m.entries[key] = &entry{
		payload:    payload,
		category:   category,
		createdAt:  now,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	m.totalBytes += int64(len(payload))
	return true
}

func (m *memoryTier) delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return false
	}
	m.removeLocked(key, e)
	return true
}

// invalidate removes every entry whose key matches the glob pattern
// and/or belongs to category, returning the count removed. An empty
// pattern matches all keys; an empty category matches all categories.
func (m *memoryTier) invalidate(pattern string, category Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.entries {
		if category != "" && e.category != category {
			continue
		}
		if pattern != "" && !globMatch(pattern, key) {
			continue
		}
		m.removeLocked(key, e)
		removed++
	}
	return removed
}

func (m *memoryTier) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memoryTier) bytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalBytes
}

// removeLocked deletes key; callers hold the write lock.
func (m *memoryTier) removeLocked(key string, e *entry) {
	m.totalBytes -= int64(len(e.payload))
	delete(m.entries, key)
}

// globMatch matches a Redis-style glob pattern (*, ?, [...]) against a
// key. Colons in keys are ordinary characters, so path.Match's
// semantics fit after guarding against separator-free patterns.
func globMatch(pattern, key string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == key
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}
