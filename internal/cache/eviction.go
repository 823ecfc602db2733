// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"sort"
	"time"

	"github.com/meshintell/lexsearch/pkg/types"
)

// evictBatchFraction is the extra share of entries evicted beyond the
// minimum needed, to avoid evicting one entry per write under
// sustained pressure.
const evictBatchFraction = 0.10

// evictOverCeiling brings the tier back under its entry and byte
// ceilings, returning the number of entries evicted. Called after each
// write and from the periodic sweep. Victims are chosen by the
// configured policy; expiry correctness is untouched, an entry can be
// evicted early for space but eviction never extends a lifetime.
func (m *memoryTier) evictOverCeiling() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	overEntries := 0
	if m.maxEntries > 0 && len(m.entries) > m.maxEntries {
		overEntries = len(m.entries) - m.maxEntries
	}
	overBytes := m.maxBytes > 0 && m.totalBytes > m.maxBytes
	if overEntries == 0 && !overBytes {
		return 0
	}

	victims := m.rankVictimsLocked()

	need := overEntries + int(float64(m.maxEntries)*evictBatchFraction)
	evicted := 0
	for _, key := range victims {
		entriesOK := m.maxEntries <= 0 || len(m.entries) <= m.maxEntries
		bytesOK := m.maxBytes <= 0 || m.totalBytes <= m.maxBytes
		if evicted >= need && entriesOK && bytesOK {
			break
		}
		e, ok := m.entries[key]
		if !ok {
			continue
		}
		m.removeLocked(key, e)
		evicted++
	}
	return evicted
}

// rankVictimsLocked returns all keys ordered most-evictable first
// under the active policy. Ties break on key so eviction order is
// reproducible.
func (m *memoryTier) rankVictimsLocked() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}

	less := func(a, b *entry) bool { return a.lastAccess.Before(b.lastAccess) }
	switch m.policy {
	case types.EvictLFU:
		less = func(a, b *entry) bool { return a.accessCount < b.accessCount }
	case types.EvictSoonestExpiry:
		less = func(a, b *entry) bool { return a.expiresAt.Before(b.expiresAt) }
	}

	sort.Slice(keys, func(i, j int) bool {
		ei, ej := m.entries[keys[i]], m.entries[keys[j]]
		if less(ei, ej) {
			return true
		}
		if less(ej, ei) {
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

// reapExpired purges every entry whose absolute expiry has passed,
// returning the count. Distinct from eviction-for-space in the
// metrics.
func (m *memoryTier) reapExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	reaped := 0
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			m.removeLocked(key, e)
			reaped++
		}
	}
	return reaped
}
