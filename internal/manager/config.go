package manager

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"modelyaml/internal/registry"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultCacheSize   = 256
	defaultParallelism = 0 // GOMAXPROCS
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Store holds the definitions. A new empty store is created when nil.
	Store *registry.Store
	// CacheSize bounds the number of memoized resolutions.
	CacheSize int
	// Capabilities used when a request carries none.
	SupportedFormats []string
	BudgetMB         int
	MarginMB         int
	// Parallelism bounds ResolveMany; <= 0 means GOMAXPROCS.
	Parallelism int
	Logger      zerolog.Logger
	Publisher   EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		store:            cfg.Store,
		supportedFormats: append([]string(nil), cfg.SupportedFormats...),
		budgetMB:         cfg.BudgetMB,
		marginMB:         cfg.MarginMB,
		log:              cfg.Logger,
		publisher:        cfg.Publisher,
		state:            StateLoading,
		startTime:        time.Now(),
	}
	if m.store == nil {
		m.store, _ = registry.NewStore()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	// Apply defaults if unset
	m.cacheSize = cfg.CacheSize
	if m.cacheSize <= 0 {
		m.cacheSize = defaultCacheSize
	}
	m.parallelism = cfg.Parallelism
	if m.parallelism <= defaultParallelism {
		m.parallelism = runtime.GOMAXPROCS(0)
	}
	m.cache = newCache(m.cacheSize, m.onEvict)
	if m.store.Snapshot().Len() > 0 {
		m.state = StateReady
	}
	return m
}
