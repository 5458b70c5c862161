package suggest

import (
	"fmt"
	"strings"

	"modelyaml/pkg/types"
)

// State is a flat, read-only view of resolved state addressed by dotted keys.
type State map[string]any

// NewState builds the view. On key collisions custom field values win over
// config values, which win over metadata. A toggle key k also exposes k.checked
// and k.value unless the config declares those keys itself. Metadata is also reachable under a
// "metadata." prefix and config under a "config." prefix.
func NewState(meta types.MetadataOverrides, config types.ConfigFieldSet, fieldValues map[string]any) State {
	s := State{}
	for k, v := range metadataView(meta) {
		s[k] = v
		s["metadata."+k] = v
	}
	put := func(key string, val any) {
		s[key] = val
		s["config."+key] = val
	}
	// toggle sub-keys first so a literal config key of the same name wins
	for _, k := range config.Keys() {
		if v := config[k]; v.Checked != nil {
			put(k+".checked", *v.Checked)
			put(k+".value", v.Value)
		}
	}
	for _, k := range config.Keys() {
		put(k, config[k].Value)
	}
	for k, v := range fieldValues {
		s[k] = v
	}
	return s
}

// ParsePath validates a $-rooted path and returns the key it addresses.
func ParsePath(expr string) (string, error) {
	key, ok := strings.CutPrefix(strings.TrimSpace(expr), "$.")
	if !ok {
		return "", fmt.Errorf("path %q must start with $.", expr)
	}
	if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
		return "", fmt.Errorf("path %q has an empty segment", expr)
	}
	if strings.ContainsAny(key, " \t\r\n[]") {
		return "", fmt.Errorf("path %q contains unsupported characters", expr)
	}
	return key, nil
}

// Lookup resolves a $-rooted path. A malformed path returns an error; a
// well-formed path that addresses nothing returns ok == false.
func (s State) Lookup(expr string) (value any, ok bool, err error) {
	key, err := ParsePath(expr)
	if err != nil {
		return nil, false, err
	}
	v, ok := s[key]
	return v, ok, nil
}

func metadataView(m types.MetadataOverrides) map[string]any {
	out := map[string]any{}
	if v, ok := m.Domain.Get(); ok {
		out["domain"] = v
	}
	if v, ok := m.Architectures.Get(); ok {
		out["architectures"] = v
	}
	if v, ok := m.CompatibilityTypes.Get(); ok {
		out["compatibilityTypes"] = v
	}
	if v, ok := m.ParamsStrings.Get(); ok {
		out["paramsStrings"] = v
	}
	if v, ok := m.MinMemoryUsageBytes.Get(); ok {
		out["minMemoryUsageBytes"] = v
	}
	if v, ok := m.ContextLengths.Get(); ok {
		out["contextLengths"] = v
	}
	if v, ok := m.TrainedForToolUse.Get(); ok {
		out["trainedForToolUse"] = triValue(v)
	}
	if v, ok := m.Vision.Get(); ok {
		out["vision"] = triValue(v)
	}
	return out
}

func triValue(t types.TriState) any {
	switch t {
	case types.TriTrue:
		return true
	case types.TriFalse:
		return false
	}
	return string(t)
}
