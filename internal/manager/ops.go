package manager

import (
	"context"
	"time"

	"modelyaml/internal/registry"
	"modelyaml/internal/validate"
	"modelyaml/pkg/types"
)

// Put validates def against the current definitions and stores it, replacing
// any definition with the same id. It returns the new store version.
func (m *Manager) Put(def types.ModelDefinition) (uint64, error) {
	if problems := validate.Definition(def, m.store.Snapshot()); len(problems) > 0 {
		return 0, invalidDefinitionError{model: def.Model, problems: problems}
	}
	snap, err := m.store.Put(def)
	if err != nil {
		return 0, err
	}
	m.invalidate([]string{def.Model})
	definitionsGauge.Set(float64(snap.Len()))
	m.setState(StateReady, nil)
	m.log.Info().Str("model", def.Model).Uint64("version", snap.Version()).Msg("definition stored")
	m.publish(EventDefinitionPut, def.Model, map[string]any{"version": snap.Version()})
	return snap.Version(), nil
}

// Delete removes the definition with the given id.
func (m *Manager) Delete(id string) (uint64, error) {
	snap, ok := m.store.Delete(id)
	if !ok {
		return 0, ErrModelNotFound(id)
	}
	m.invalidate([]string{id})
	definitionsGauge.Set(float64(snap.Len()))
	m.log.Info().Str("model", id).Uint64("version", snap.Version()).Msg("definition deleted")
	m.publish(EventDefinitionDel, id, map[string]any{"version": snap.Version()})
	return snap.Version(), nil
}

// Reload replaces the whole definition set and returns the ids that changed.
// Memoized results depending on a changed id are dropped.
func (m *Manager) Reload(defs []types.ModelDefinition) ([]string, error) {
	snap, changed, err := m.store.Replace(defs)
	if err != nil {
		m.recordError(err)
		return nil, err
	}
	m.invalidate(changed)
	definitionsGauge.Set(float64(snap.Len()))
	for _, id := range changed {
		d, ok := snap.Get(id)
		if !ok {
			continue
		}
		for _, p := range validate.Definition(*d, snap) {
			m.log.Warn().Str("model", id).Str("path", p.Path).Msg(p.Message)
		}
	}
	m.setState(StateReady, nil)
	m.log.Info().Int("definitions", snap.Len()).Int("changed", len(changed)).Uint64("version", snap.Version()).Msg("definitions reloaded")
	m.publish(EventReload, "", map[string]any{"changed": changed, "version": snap.Version()})
	return changed, nil
}

// LoadDir reads every definition under dir and reloads the store with them.
// On failure the previously loaded definitions stay in place.
func (m *Manager) LoadDir(dir string) ([]string, error) {
	defs, err := registry.LoadDir(dir)
	if err != nil {
		m.log.Error().Err(err).Str("dir", dir).Msg("load definitions")
		if m.Ready() {
			m.recordError(err)
		} else {
			m.setState(StateError, err)
		}
		return nil, err
	}
	return m.Reload(defs)
}

// Watch reloads dir whenever definition files change, until ctx is done.
func (m *Manager) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	m.log.Info().Str("dir", dir).Msg("watching definitions")
	return registry.Watch(ctx, dir, debounce, func() {
		_, _ = m.LoadDir(dir)
	})
}

// Validate checks def against the currently stored definitions without storing it.
func (m *Manager) Validate(def types.ModelDefinition) []types.Problem {
	return validate.Definition(def, m.store.Snapshot())
}

// ValidateDocument checks a generically decoded definition document against
// the currently stored definitions.
func (m *Manager) ValidateDocument(doc any) []types.Problem {
	return validate.Document(doc, m.store.Snapshot())
}
