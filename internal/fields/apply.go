// Package fields computes effective custom field values and applies their
// effects to a per-resolution binding namespace.
package fields

import (
	"fmt"
	"maps"
	"slices"

	"modelyaml/pkg/types"
)

// Result is the output of Apply.
type Result struct {
	Fields      []types.ResolvedField
	Bindings    Bindings
	Diagnostics []types.Diagnostic
}

// Values returns effective values keyed by field key.
func (r Result) Values() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Key] = f.Value
	}
	return out
}

// Apply resolves every field against overrides and then runs effects in
// declaration order. Each call starts from an empty namespace, so repeated
// calls with the same input yield the same bindings.
func Apply(fields []types.CustomField, overrides map[string]any) Result {
	res := Result{
		Fields:   make([]types.ResolvedField, 0, len(fields)),
		Bindings: Bindings{},
	}
	declared := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		declared[f.Key] = struct{}{}
		rf := types.ResolvedField{
			Key:          f.Key,
			DisplayName:  f.DisplayName,
			Description:  f.Description,
			Type:         f.Type,
			DefaultValue: f.DefaultValue,
			Value:        f.DefaultValue,
		}
		if !knownType(f.Type) {
			res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
				Kind:    types.DiagUnknownFieldType,
				Key:     f.Key,
				Message: fmt.Sprintf("field type %q is not supported; using default", f.Type),
			})
		} else if !matchesType(f.Type, f.DefaultValue) {
			rf.Value = zeroValue(f.Type)
			res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
				Kind:    types.DiagInvalidFieldValue,
				Key:     f.Key,
				Message: fmt.Sprintf("default value %v is not a %s", f.DefaultValue, f.Type),
			})
		}
		if v, ok := overrides[f.Key]; ok {
			if knownType(f.Type) && matchesType(f.Type, v) {
				rf.Value = v
				rf.Overridden = true
			} else {
				res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
					Kind:    types.DiagInvalidFieldValue,
					Key:     f.Key,
					Message: fmt.Sprintf("override %v (%T) rejected for %s field; using default", v, v, f.Type),
				})
			}
		}
		res.Fields = append(res.Fields, rf)
	}

	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		if _, ok := declared[k]; !ok {
			res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
				Kind:    types.DiagUnknownFieldOverride,
				Key:     k,
				Message: "override does not name a declared custom field; ignored",
			})
		}
	}

	for i, f := range fields {
		value := res.Fields[i].Value
		for j, raw := range f.Effects {
			eff, err := DecodeEffect(raw)
			if err != nil {
				res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
					Kind:    types.DiagInvalidEffect,
					Key:     fmt.Sprintf("%s.effects[%d]", f.Key, j),
					Message: err.Error(),
				})
				continue
			}
			if u, ok := eff.(UnknownEffect); ok {
				res.Diagnostics = append(res.Diagnostics, types.Diagnostic{
					Kind:    types.DiagUnknownEffectType,
					Key:     fmt.Sprintf("%s.effects[%d]", f.Key, j),
					Message: fmt.Sprintf("effect type %q is not supported; ignored", u.Type),
				})
			}
			eff.Apply(res.Bindings, value)
		}
	}
	return res
}

func knownType(t types.FieldType) bool {
	return t == types.FieldBoolean || t == types.FieldString
}

func matchesType(t types.FieldType, v any) bool {
	switch t {
	case types.FieldBoolean:
		_, ok := v.(bool)
		return ok
	case types.FieldString:
		_, ok := v.(string)
		return ok
	}
	return false
}

func zeroValue(t types.FieldType) any {
	if t == types.FieldBoolean {
		return false
	}
	return ""
}
