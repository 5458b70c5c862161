package resolver

import (
	"modelyaml/pkg/types"
)

// Merged is the result of folding an ancestry path.
type Merged struct {
	Metadata     types.MetadataOverrides
	Config       types.ConfigFieldSet
	CustomFields []types.CustomField
	Suggestions  []types.Suggestion
	// Concrete bases of the terminal definition.
	Bases []types.ConcreteBase
}

// Merge folds defs from first (root, lowest precedence) to last (leaf,
// highest precedence). It does not modify its input.
func Merge(defs []*types.ModelDefinition) Merged {
	var out Merged
	out.Config = types.ConfigFieldSet{}
	for i, d := range defs {
		if i == 0 && !d.Base.IsReference() {
			out.Bases = d.Base.Concrete
		}
		out.Metadata = MergeMetadata(out.Metadata, d.MetadataOverrides)
		for k, v := range d.Config {
			out.Config[k] = v
		}
		out.CustomFields = mergeCustomFields(out.CustomFields, d.CustomFields)
		if d.Suggestions != nil {
			out.Suggestions = d.Suggestions
		}
	}
	// Hand out copies so callers can never reach into stored definitions.
	out.Metadata = out.Metadata.Clone()
	out.Config = out.Config.Clone()
	suggestions := make([]types.Suggestion, len(out.Suggestions))
	for i, s := range out.Suggestions {
		suggestions[i] = s.Clone()
	}
	out.Suggestions = suggestions
	return out
}

// MergeMetadata overlays every present field of over onto base.
func MergeMetadata(base, over types.MetadataOverrides) types.MetadataOverrides {
	out := base
	if over.Domain.IsSet() {
		out.Domain = over.Domain
	}
	if over.Architectures.IsSet() {
		out.Architectures = over.Architectures
	}
	if over.CompatibilityTypes.IsSet() {
		out.CompatibilityTypes = over.CompatibilityTypes
	}
	if over.ParamsStrings.IsSet() {
		out.ParamsStrings = over.ParamsStrings
	}
	if over.MinMemoryUsageBytes.IsSet() {
		out.MinMemoryUsageBytes = over.MinMemoryUsageBytes
	}
	if over.ContextLengths.IsSet() {
		out.ContextLengths = over.ContextLengths
	}
	if over.TrainedForToolUse.IsSet() {
		out.TrainedForToolUse = over.TrainedForToolUse
	}
	if over.Vision.IsSet() {
		out.Vision = over.Vision
	}
	return out
}

// mergeCustomFields replaces inherited fields with the same key in place and
// appends new keys in declaration order.
func mergeCustomFields(base, over []types.CustomField) []types.CustomField {
	if len(over) == 0 {
		return base
	}
	out := make([]types.CustomField, len(base), len(base)+len(over))
	copy(out, base)
	idx := make(map[string]int, len(out))
	for i, f := range out {
		idx[f.Key] = i
	}
	for _, f := range over {
		if i, ok := idx[f.Key]; ok {
			out[i] = f
			continue
		}
		idx[f.Key] = len(out)
		out = append(out, f)
	}
	return out
}
