// Package manager is the resolution service that sits between the definition
// store and its callers (HTTP API, CLI). It is structured into small files by
// concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: lifecycle state and cache entry types.
//   - errors.go: error types and helpers (IsModelNotFound, IsInvalidDefinition).
//   - resolve.go: Resolve and ResolveMany, memoization and call coalescing.
//   - cache.go: memo keys, entry validation, eviction and invalidation.
//   - ops.go: definition writes (Put, Delete, Reload, LoadDir, Watch) and validation.
//   - events.go, eventpub_memory.go: lifecycle events for observers and tests.
//   - metrics.go: prometheus collectors for resolutions and the cache.
//   - status_report.go: Status/Snapshot reporting helpers.
//
// Resolution itself lives in package resolver and is pure; this package adds
// state: the current snapshot, a bounded LRU of resolved models keyed by
// (model, capabilities, overrides), and coalescing of identical concurrent
// requests. A cached result is served only while every definition on its
// ancestry path is still the one it was computed from.
//
// External packages should treat this package as the orchestration layer and use
// public methods only. Internal types are subject to change.
package manager
