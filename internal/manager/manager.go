package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"modelyaml/internal/registry"
	"modelyaml/pkg/types"
)

type Manager struct {
	store *registry.Store
	cache *cache
	group singleflight.Group

	supportedFormats []string
	budgetMB         int
	marginMB         int
	cacheSize        int
	parallelism      int

	log       zerolog.Logger
	publisher EventPublisher

	mu      sync.RWMutex
	state   State
	lastErr string

	hits          atomic.Uint64
	misses        atomic.Uint64
	evictions     atomic.Uint64
	invalidations atomic.Uint64
	resolutions   atomic.Uint64

	startTime time.Time
}

// New builds a Manager over store with default tunables.
func New(store *registry.Store, supportedFormats []string, budgetMB, marginMB int) *Manager {
	// Delegate to NewWithConfig to centralize defaults
	return NewWithConfig(ManagerConfig{
		Store:            store,
		SupportedFormats: supportedFormats,
		BudgetMB:         budgetMB,
		MarginMB:         marginMB,
	})
}

// Ready reports whether definitions have been loaded without error.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady
}

// Store exposes the underlying definition store.
func (m *Manager) Store() *registry.Store { return m.store }

// SetEventPublisher replaces the event sink. nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

// ListModels returns one summary per definition, sorted by id.
func (m *Manager) ListModels() []types.ModelSummary {
	snap := m.store.Snapshot()
	out := make([]types.ModelSummary, 0, snap.Len())
	for _, id := range snap.IDs() {
		d, _ := snap.Get(id)
		s := types.ModelSummary{ID: id}
		if d.Base.IsReference() {
			s.Base = d.Base.Ref
		} else {
			for _, cb := range d.Base.Concrete {
				s.Concrete = append(s.Concrete, cb.Key)
			}
		}
		out = append(out, s)
	}
	return out
}

// Get returns a copy of the stored definition.
func (m *Manager) Get(id string) (types.ModelDefinition, error) {
	d, ok := m.store.Snapshot().Get(id)
	if !ok {
		return types.ModelDefinition{}, ErrModelNotFound(id)
	}
	return d.Clone(), nil
}

// DefaultCapabilities are used for requests that do not describe their environment.
func (m *Manager) DefaultCapabilities() types.Capabilities {
	caps := types.Capabilities{SupportedFormats: append([]string(nil), m.supportedFormats...)}
	if m.budgetMB > 0 {
		avail := m.budgetMB - m.marginMB
		if avail < 0 {
			avail = 0
		}
		caps.AvailableMemoryBytes = int64(avail) * 1024 * 1024
	}
	return caps
}

func (m *Manager) events() EventPublisher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publisher
}

func (m *Manager) setState(s State, err error) {
	m.mu.Lock()
	m.state = s
	if err != nil {
		m.lastErr = err.Error()
	}
	m.mu.Unlock()
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}
