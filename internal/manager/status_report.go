package manager

import (
	"time"

	"modelyaml/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, StoreVersion: m.store.Snapshot().Version(), Err: m.lastErr}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	snap := m.store.Snapshot()
	m.mu.RLock()
	lastErr := m.lastErr
	m.mu.RUnlock()
	now := time.Now()
	return types.StatusResponse{
		Definitions:        snap.Len(),
		StoreVersion:       snap.Version(),
		CacheEntries:       m.cache.len(),
		CacheCapacity:      m.cacheSize,
		CacheHits:          m.hits.Load(),
		CacheMisses:        m.misses.Load(),
		EvictionsTotal:     m.evictions.Load(),
		InvalidationsTotal: m.invalidations.Load(),
		ResolutionsTotal:   m.resolutions.Load(),
		LastError:          lastErr,
		UptimeSeconds:      int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:     now.Unix(),
	}
}
