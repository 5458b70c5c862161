package registry

import (
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"modelyaml/pkg/types"
)

// Snapshot is an immutable view of the definition store. Readers hold on to a
// snapshot for the duration of a resolution and never observe later writes.
type Snapshot struct {
	version  uint64
	defs     map[string]*types.ModelDefinition
	baseKeys map[string]string // concrete base key -> owning model id
}

var emptySnapshot = &Snapshot{
	defs:     map[string]*types.ModelDefinition{},
	baseKeys: map[string]string{},
}

// Version increments with every successful write.
func (s *Snapshot) Version() uint64 { return s.version }

// Get returns the definition for id. The returned value must not be mutated.
func (s *Snapshot) Get(id string) (*types.ModelDefinition, bool) {
	d, ok := s.defs[id]
	return d, ok
}

// Len returns the number of definitions.
func (s *Snapshot) Len() int { return len(s.defs) }

// IDs returns all model ids in sorted order.
func (s *Snapshot) IDs() []string {
	return slices.Sorted(maps.Keys(s.defs))
}

// Owner returns the model id declaring the concrete base key.
func (s *Snapshot) Owner(baseKey string) (string, bool) {
	id, ok := s.baseKeys[baseKey]
	return id, ok
}

// Store holds the known model definitions. Writes are serialized and publish a
// new snapshot (copy-on-write); reads are lock-free.
type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[Snapshot]
}

// NewStore creates a store seeded with defs.
func NewStore(defs ...types.ModelDefinition) (*Store, error) {
	s := &Store{}
	s.cur.Store(emptySnapshot)
	if len(defs) > 0 {
		if _, err := s.PutAll(defs); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot { return s.cur.Load() }

// Put adds or replaces a single definition.
func (s *Store) Put(def types.ModelDefinition) (*Snapshot, error) {
	return s.PutAll([]types.ModelDefinition{def})
}

// PutAll adds or replaces defs atomically: either all are published or none.
func (s *Store) PutAll(defs []types.ModelDefinition) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cur.Load()
	next := old.clone()
	for _, d := range defs {
		if err := next.put(d); err != nil {
			return old, err
		}
	}
	next.version = old.version + 1
	s.cur.Store(next)
	return next, nil
}

// Delete removes a definition. It reports whether the id was present.
func (s *Store) Delete(id string) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cur.Load()
	if _, ok := old.defs[id]; !ok {
		return old, false
	}
	next := old.clone()
	next.remove(id)
	next.version = old.version + 1
	s.cur.Store(next)
	return next, true
}

// Replace swaps the whole content of the store for defs and returns the ids
// that were added, changed or removed, sorted.
func (s *Store) Replace(defs []types.ModelDefinition) (*Snapshot, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cur.Load()
	next := &Snapshot{
		defs:     make(map[string]*types.ModelDefinition, len(defs)),
		baseKeys: make(map[string]string),
	}
	for _, d := range defs {
		if err := next.put(d); err != nil {
			return old, nil, err
		}
	}
	var changed []string
	for id, d := range next.defs {
		if prev, ok := old.defs[id]; !ok || !reflect.DeepEqual(prev, d) {
			changed = append(changed, id)
		} else {
			// keep the old pointer so memoized results stay valid
			next.defs[id] = prev
		}
	}
	for id := range old.defs {
		if _, ok := next.defs[id]; !ok {
			changed = append(changed, id)
		}
	}
	slices.Sort(changed)
	if len(changed) == 0 {
		return old, nil, nil
	}
	next.version = old.version + 1
	s.cur.Store(next)
	return next, changed, nil
}

func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		version:  s.version,
		defs:     maps.Clone(s.defs),
		baseKeys: maps.Clone(s.baseKeys),
	}
}

func (s *Snapshot) put(def types.ModelDefinition) error {
	if !ValidModelID(def.Model) {
		return invalidModelIDError{id: def.Model}
	}
	if !def.Base.IsReference() {
		for _, cb := range def.Base.Concrete {
			if owner, ok := s.baseKeys[cb.Key]; ok && owner != def.Model {
				return &DuplicateBaseKeyError{Key: cb.Key, Owner: owner, Model: def.Model}
			}
		}
	}
	s.remove(def.Model)
	c := def.Clone()
	s.defs[def.Model] = &c
	if !c.Base.IsReference() {
		for _, cb := range c.Base.Concrete {
			s.baseKeys[cb.Key] = c.Model
		}
	}
	return nil
}

func (s *Snapshot) remove(id string) {
	prev, ok := s.defs[id]
	if !ok {
		return
	}
	delete(s.defs, id)
	if !prev.Base.IsReference() {
		for _, cb := range prev.Base.Concrete {
			if s.baseKeys[cb.Key] == id {
				delete(s.baseKeys, cb.Key)
			}
		}
	}
}

// ValidModelID reports whether id has the form org/name.
func ValidModelID(id string) bool {
	org, name, ok := strings.Cut(id, "/")
	if !ok || org == "" || name == "" || strings.Contains(name, "/") {
		return false
	}
	return !strings.ContainsAny(id, " \t\r\n")
}
