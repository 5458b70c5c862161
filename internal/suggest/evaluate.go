// Package suggest evaluates suggestion conditions against resolved state.
package suggest

import (
	"fmt"

	"modelyaml/pkg/types"
)

// Known condition types.
const (
	CondEquals    = "equals"
	CondNotEquals = "notEquals"
)

// Evaluate returns the suggestions whose conditions all hold, in declaration
// order. Conditions that cannot be evaluated count as not matching and are
// reported as diagnostics. state is never modified.
func Evaluate(suggestions []types.Suggestion, state State) ([]types.Suggestion, []types.Diagnostic) {
	out := []types.Suggestion{}
	var diags []types.Diagnostic
	for i, s := range suggestions {
		matched := true
		for j, c := range s.Conditions {
			ok, diag := Match(c, state)
			if diag != nil {
				diag.Key = fmt.Sprintf("suggestions[%d].conditions[%d]", i, j)
				diags = append(diags, *diag)
			}
			matched = matched && ok
		}
		if matched {
			out = append(out, s.Clone())
		}
	}
	return out, diags
}

// Match evaluates a single condition.
func Match(c types.Condition, state State) (bool, *types.Diagnostic) {
	switch c.Type {
	case CondEquals, CondNotEquals:
	default:
		return false, &types.Diagnostic{
			Kind:    types.DiagUnknownConditionType,
			Message: fmt.Sprintf("condition type %q is not supported; treated as not matching", c.Type),
		}
	}
	v, found, err := state.Lookup(c.Key)
	if err != nil {
		return false, &types.Diagnostic{Kind: types.DiagInvalidConditionPath, Message: err.Error()}
	}
	if !found {
		return false, nil
	}
	eq := Equal(v, c.Value)
	if c.Type == CondNotEquals {
		return !eq, nil
	}
	return eq, nil
}
