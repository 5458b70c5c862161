package manager

import (
	"github.com/google/uuid"

	"modelyaml/internal/resolver"
)

// Event names published by the manager besides per-stage resolution events.
const (
	EventCacheHit      = "cache_hit"
	EventCacheEvict    = "cache_evict"
	EventInvalidate    = "cache_invalidate"
	EventDefinitionPut = "definition_put"
	EventDefinitionDel = "definition_delete"
	EventReload        = "definitions_reload"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
// Resolutions publish one event per stage, named "resolve_<stage>", all
// sharing the same ID.
type Event struct {
	ID      string
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// stageObserver forwards resolver stage transitions as events.
func stageObserver(pub EventPublisher) resolver.Observer {
	id := uuid.NewString()
	return resolver.ObserverFunc(func(model string, stage resolver.Stage, err error) {
		ev := Event{ID: id, Name: "resolve_" + string(stage), ModelID: model, Fields: map[string]any{}}
		if err != nil {
			ev.Fields["error"] = err.Error()
			if kind := resolver.Kind(err); kind != "" {
				ev.Fields["kind"] = kind
			}
		}
		pub.Publish(ev)
	})
}

func (m *Manager) publish(name, model string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	m.events().Publish(Event{ID: uuid.NewString(), Name: name, ModelID: model, Fields: fields})
}
