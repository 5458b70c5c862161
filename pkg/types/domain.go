package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// ModelDefinition is one published model definition. A definition either
// references another definition through Base.Ref (a virtual model) or carries
// concrete artifact variants in Base.Concrete (a terminal node).
type ModelDefinition struct {
	// Globally unique identifier in the form org/name.
	// example: qwen/qwen3-8b
	Model string `json:"model" example:"qwen/qwen3-8b"`
	// Either a model id string or a list of concrete bases.
	Base Base `json:"base"`
	// Metadata fields replacing those inherited from the base chain.
	MetadataOverrides MetadataOverrides `json:"metadataOverrides,omitzero"`
	// Config fields keyed by dotted path.
	Config ConfigFieldSet `json:"config,omitempty"`
	// User customizable fields.
	CustomFields []CustomField `json:"customFields,omitempty"`
	// Conditional recommendations. A nil slice means "inherit".
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Clone returns a deep copy of the definition so the copy can be published
// without sharing mutable state with the caller.
func (d ModelDefinition) Clone() ModelDefinition {
	out := d
	out.Base = d.Base.clone()
	out.MetadataOverrides = d.MetadataOverrides.Clone()
	out.Config = d.Config.Clone()
	if d.CustomFields != nil {
		out.CustomFields = make([]CustomField, len(d.CustomFields))
		for i, f := range d.CustomFields {
			out.CustomFields[i] = f.clone()
		}
	}
	if d.Suggestions != nil {
		out.Suggestions = make([]Suggestion, len(d.Suggestions))
		for i, s := range d.Suggestions {
			out.Suggestions[i] = s.Clone()
		}
	}
	return out
}

// Base is the union of a reference to another definition and a list of concrete bases.
type Base struct {
	Ref      string
	Concrete []ConcreteBase
}

// Reference builds a Base pointing at another model id.
func Reference(id string) Base { return Base{Ref: id} }

// Concrete builds a terminal Base.
func Concrete(bases ...ConcreteBase) Base { return Base{Concrete: bases} }

// IsReference reports whether the base names another definition.
func (b Base) IsReference() bool { return b.Ref != "" }

func (b Base) clone() Base {
	out := Base{Ref: b.Ref}
	if b.Concrete != nil {
		out.Concrete = make([]ConcreteBase, len(b.Concrete))
		for i, c := range b.Concrete {
			out.Concrete[i] = c.clone()
		}
	}
	return out
}

// MarshalJSON implements [json.Marshaler].
func (b Base) MarshalJSON() ([]byte, error) {
	if b.IsReference() {
		return json.Marshal(b.Ref)
	}
	if b.Concrete == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.Concrete)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (b *Base) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*b = Base{}
	switch {
	case len(data) == 0 || string(data) == "null":
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &b.Ref)
	case data[0] == '[':
		b.Concrete = []ConcreteBase{}
		return json.Unmarshal(data, &b.Concrete)
	default:
		return fmt.Errorf("base must be a model id or a list of concrete bases")
	}
}

// ConcreteBase is one downloadable artifact variant.
type ConcreteBase struct {
	// Unique artifact identifier.
	// example: lmstudio-community/Qwen3-8B-GGUF
	Key     string   `json:"key" example:"lmstudio-community/Qwen3-8B-GGUF"`
	Sources []Source `json:"sources"`
}

func (c ConcreteBase) clone() ConcreteBase {
	out := ConcreteBase{Key: c.Key}
	if c.Sources != nil {
		out.Sources = make([]Source, len(c.Sources))
		for i, s := range c.Sources {
			out.Sources[i] = Source{Tagged: s.Tagged.Clone()}
		}
	}
	return out
}

// Tagged is an element of an open set of kinds: a type tag plus the raw
// payload it was declared with. Consumers decode the payload for kinds they
// understand and ignore the rest.
type Tagged struct {
	Type    string
	Payload map[string]any
}

// NewTagged builds a Tagged value; the type tag is also stored in the payload.
func NewTagged(typ string, payload map[string]any) Tagged {
	p := make(map[string]any, len(payload)+1)
	maps.Copy(p, payload)
	p["type"] = typ
	return Tagged{Type: typ, Payload: p}
}

// Get returns a payload field.
func (t Tagged) Get(key string) (any, bool) {
	v, ok := t.Payload[key]
	return v, ok
}

// Clone returns a copy with its own payload map. Nested values are shared.
func (t Tagged) Clone() Tagged {
	return Tagged{Type: t.Type, Payload: maps.Clone(t.Payload)}
}

// MarshalJSON implements [json.Marshaler].
func (t Tagged) MarshalJSON() ([]byte, error) {
	p := make(map[string]any, len(t.Payload)+1)
	maps.Copy(p, t.Payload)
	p["type"] = t.Type
	return json.Marshal(p)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (t *Tagged) UnmarshalJSON(data []byte) error {
	var p map[string]any
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	typ, _ := p["type"].(string)
	t.Type = typ
	t.Payload = p
	return nil
}

// Source is a place an artifact can be fetched from. Known types are decoded
// by the source selector; unknown types are skipped.
type Source struct{ Tagged }

// NewSource builds a Source of the given type.
func NewSource(typ string, payload map[string]any) Source {
	return Source{Tagged: NewTagged(typ, payload)}
}

// Effect is an action a custom field applies to derived runtime state.
type Effect struct{ Tagged }

// NewEffect builds an Effect of the given type.
func NewEffect(typ string, payload map[string]any) Effect {
	return Effect{Tagged: NewTagged(typ, payload)}
}

// TriState is a boolean that may also be "mixed".
type TriState string

const (
	TriFalse TriState = "false"
	TriTrue  TriState = "true"
	TriMixed TriState = "mixed"
)

// MarshalJSON encodes true/false as JSON booleans and mixed as a string.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case TriTrue:
		return []byte("true"), nil
	case TriFalse:
		return []byte("false"), nil
	default:
		return json.Marshal(string(t))
	}
}

// UnmarshalJSON accepts booleans and the strings "true", "false" and "mixed".
func (t *TriState) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*t = TriTrue
		} else {
			*t = TriFalse
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tri-state must be a boolean or \"mixed\"")
	}
	switch TriState(s) {
	case TriTrue, TriFalse, TriMixed:
		*t = TriState(s)
		return nil
	}
	return fmt.Errorf("invalid tri-state value %q", s)
}

// MetadataOverrides describes the model. Every field is optional; a present
// field replaces the inherited value wholesale.
type MetadataOverrides struct {
	Domain              Optional[string]   `json:"domain,omitzero"`
	Architectures       Optional[[]string] `json:"architectures,omitzero"`
	CompatibilityTypes  Optional[[]string] `json:"compatibilityTypes,omitzero"`
	ParamsStrings       Optional[[]string] `json:"paramsStrings,omitzero"`
	MinMemoryUsageBytes Optional[int64]    `json:"minMemoryUsageBytes,omitzero"`
	ContextLengths      Optional[[]int]    `json:"contextLengths,omitzero"`
	TrainedForToolUse   Optional[TriState] `json:"trainedForToolUse,omitzero"`
	Vision              Optional[TriState] `json:"vision,omitzero"`
}

// IsZero reports whether no field is present.
func (m MetadataOverrides) IsZero() bool {
	return !m.Domain.IsSet() && !m.Architectures.IsSet() && !m.CompatibilityTypes.IsSet() &&
		!m.ParamsStrings.IsSet() && !m.MinMemoryUsageBytes.IsSet() && !m.ContextLengths.IsSet() &&
		!m.TrainedForToolUse.IsSet() && !m.Vision.IsSet()
}

// Clone copies the slice-valued fields.
func (m MetadataOverrides) Clone() MetadataOverrides {
	out := m
	if v, ok := m.Architectures.Get(); ok {
		out.Architectures = Some(slices.Clone(v))
	}
	if v, ok := m.CompatibilityTypes.Get(); ok {
		out.CompatibilityTypes = Some(slices.Clone(v))
	}
	if v, ok := m.ParamsStrings.Get(); ok {
		out.ParamsStrings = Some(slices.Clone(v))
	}
	if v, ok := m.ContextLengths.Get(); ok {
		out.ContextLengths = Some(slices.Clone(v))
	}
	return out
}

// ConfigValue is either a plain scalar or an optionally-enabled setting
// ({checked, value}).
type ConfigValue struct {
	Value   any
	Checked *bool
}

// Scalar builds a plain ConfigValue.
func Scalar(v any) ConfigValue { return ConfigValue{Value: v} }

// Toggle builds a {checked, value} ConfigValue.
func Toggle(checked bool, v any) ConfigValue { return ConfigValue{Value: v, Checked: &checked} }

// IsToggle reports whether the value is a {checked, value} record.
func (c ConfigValue) IsToggle() bool { return c.Checked != nil }

// MarshalJSON implements [json.Marshaler].
func (c ConfigValue) MarshalJSON() ([]byte, error) {
	if c.Checked != nil {
		return json.Marshal(struct {
			Checked bool `json:"checked"`
			Value   any  `json:"value"`
		}{*c.Checked, c.Value})
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (c *ConfigValue) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = ConfigValue{Value: v}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	checked, ok := m["checked"].(bool)
	if !ok {
		return nil
	}
	c.Checked = &checked
	c.Value = m["value"]
	return nil
}

// ConfigFieldSet maps dotted keys such as llm.prediction.temperature to values.
// Keys merge by exact string match.
type ConfigFieldSet map[string]ConfigValue

// Clone returns a shallow copy of the set.
func (s ConfigFieldSet) Clone() ConfigFieldSet {
	if s == nil {
		return nil
	}
	out := make(ConfigFieldSet, len(s))
	for k, v := range s {
		if v.Checked != nil {
			c := *v.Checked
			v.Checked = &c
		}
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (s ConfigFieldSet) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// UnmarshalJSON accepts the flat mapping form and the grouped form
// {"operation": {"fields": [{"key", "value"}]}, "load": {...}}.
func (s *ConfigFieldSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ConfigFieldSet, len(raw))
	if isGroupedConfig(raw) {
		for _, group := range []string{"load", "operation"} {
			body, ok := raw[group]
			if !ok {
				continue
			}
			var g struct {
				Fields []FieldValue `json:"fields"`
			}
			if err := json.Unmarshal(body, &g); err != nil {
				return fmt.Errorf("config.%s: %w", group, err)
			}
			for _, f := range g.Fields {
				out[f.Key] = f.Value
			}
		}
		*s = out
		return nil
	}
	for k, body := range raw {
		var v ConfigValue
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("config.%s: %w", k, err)
		}
		out[k] = v
	}
	*s = out
	return nil
}

func isGroupedConfig(raw map[string]json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	for k, body := range raw {
		if k != "load" && k != "operation" {
			return false
		}
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(body, &probe); err != nil {
			return false
		}
		if _, ok := probe["fields"]; !ok {
			return false
		}
	}
	return true
}

// FieldValue is a {key, value} pair recommending a config override.
type FieldValue struct {
	Key   string      `json:"key"`
	Value ConfigValue `json:"value"`
}

// FieldType is the value type of a custom field.
type FieldType string

const (
	FieldBoolean FieldType = "boolean"
	FieldString  FieldType = "string"
)

// CustomField is a user-facing knob whose value drives effects.
type CustomField struct {
	// Unique within a definition and stable across inheritance.
	// example: enableThinking
	Key          string    `json:"key" example:"enableThinking"`
	DisplayName  string    `json:"displayName,omitempty"`
	Description  string    `json:"description,omitempty"`
	Type         FieldType `json:"type"`
	DefaultValue any       `json:"defaultValue"`
	Effects      []Effect  `json:"effects,omitempty"`
}

func (f CustomField) clone() CustomField {
	out := f
	if f.Effects != nil {
		out.Effects = make([]Effect, len(f.Effects))
		for i, e := range f.Effects {
			out.Effects[i] = Effect{Tagged: e.Tagged.Clone()}
		}
	}
	return out
}

// Condition is one predicate of a suggestion. Key is a $-rooted path.
type Condition struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Suggestion is a recommended set of config overrides that applies when all
// of its conditions hold.
type Suggestion struct {
	Message    string       `json:"message"`
	Conditions []Condition  `json:"conditions,omitempty"`
	Fields     []FieldValue `json:"fields,omitempty"`
}

// Clone copies the slices of the suggestion.
func (s Suggestion) Clone() Suggestion {
	return Suggestion{
		Message:    s.Message,
		Conditions: slices.Clone(s.Conditions),
		Fields:     slices.Clone(s.Fields),
	}
}
