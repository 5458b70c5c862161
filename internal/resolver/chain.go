package resolver

import (
	"slices"

	"modelyaml/pkg/types"
)

// Definitions is the read side of the definition store.
type Definitions interface {
	Get(id string) (*types.ModelDefinition, bool)
}

// Chain follows base references from id until it reaches a definition with a
// concrete base. It returns the ancestry ordered from that terminal definition
// (first) to id (last), which is also the merge precedence order.
func Chain(defs Definitions, id string) ([]string, error) {
	def, ok := defs.Get(id)
	if !ok {
		return nil, &EmptyChainError{ID: id}
	}
	walk := []string{id}
	seen := map[string]struct{}{id: {}}
	for def.Base.IsReference() {
		next := def.Base.Ref
		if _, dup := seen[next]; dup {
			return nil, &CycleError{Path: append(walk, next)}
		}
		nd, ok := defs.Get(next)
		if !ok {
			return nil, &UnknownReferenceError{ID: next, ReferencedBy: def.Model}
		}
		seen[next] = struct{}{}
		walk = append(walk, next)
		def = nd
	}
	slices.Reverse(walk)
	return walk, nil
}

// Lookup returns the definitions for an ancestry path, in order.
func Lookup(defs Definitions, path []string) ([]*types.ModelDefinition, error) {
	out := make([]*types.ModelDefinition, 0, len(path))
	for _, id := range path {
		d, ok := defs.Get(id)
		if !ok {
			return nil, &EmptyChainError{ID: id}
		}
		out = append(out, d)
	}
	return out, nil
}
