package manager

import (
	"modelyaml/pkg/types"
)

// State represents the lifecycle state of the manager.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State        State
	StoreVersion uint64
	Err          string
}

// entry is one memoized resolution together with the definitions it was
// computed from, in path order.
type entry struct {
	model *types.ResolvedModel
	defs  []*types.ModelDefinition
	// canonical capabilities and overrides the result was computed for
	request []byte
}

// BatchResult is one outcome of ResolveMany; exactly one field is set.
type BatchResult struct {
	Model *types.ResolvedModel
	Err   error
}
