// Package resolver turns a model id, a definition snapshot and a runtime
// environment into a fully resolved model.
//
// A resolution moves through fixed stages:
//
//	Requested -> ChainResolving -> Merging -> SourceSelecting ->
//	ApplyingCustomFields -> EvaluatingSuggestions -> Resolved
//
// Structural problems (cycles, unknown references, unknown model) end the
// resolution in Failed. Everything else, including the absence of a
// compatible source, is recorded as a diagnostic on the result.
package resolver

import (
	"context"
	"maps"

	"modelyaml/internal/fields"
	"modelyaml/internal/selector"
	"modelyaml/internal/suggest"
	"modelyaml/pkg/types"
)

// Stage is a step of the resolution state machine.
type Stage string

const (
	StageRequested             Stage = "requested"
	StageChainResolving        Stage = "chain_resolving"
	StageMerging               Stage = "merging"
	StageSourceSelecting       Stage = "source_selecting"
	StageApplyingCustomFields  Stage = "applying_custom_fields"
	StageEvaluatingSuggestions Stage = "evaluating_suggestions"
	StageResolved              Stage = "resolved"
	StageFailed                Stage = "failed"
)

// Observer receives stage transitions. Implementations must be cheap and must not block.
type Observer interface {
	Transition(model string, stage Stage, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(model string, stage Stage, err error)

func (f ObserverFunc) Transition(model string, stage Stage, err error) { f(model, stage, err) }

type noopObserver struct{}

func (noopObserver) Transition(string, Stage, error) {}

// Request is one resolution request.
type Request struct {
	Model        string
	Capabilities types.Capabilities
	Overrides    map[string]any
}

// Engine runs resolutions. The zero value is ready to use. An Engine holds no
// mutable state and may be shared between goroutines.
type Engine struct {
	Observer Observer
}

// Resolve computes the resolved model for req against defs. The returned
// error is a *ResolutionError for structural failures, or ctx.Err() if the
// caller gave up between stages.
func (e *Engine) Resolve(ctx context.Context, defs Definitions, req Request) (*types.ResolvedModel, error) {
	obs := e.Observer
	if obs == nil {
		obs = noopObserver{}
	}
	fail := func(stage Stage, err error) (*types.ResolvedModel, error) {
		rerr := &ResolutionError{Stage: stage, Err: err}
		obs.Transition(req.Model, StageFailed, rerr)
		return nil, rerr
	}
	obs.Transition(req.Model, StageRequested, nil)

	obs.Transition(req.Model, StageChainResolving, nil)
	path, err := Chain(defs, req.Model)
	if err != nil {
		return fail(StageChainResolving, err)
	}
	chain, err := Lookup(defs, path)
	if err != nil {
		return fail(StageChainResolving, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obs.Transition(req.Model, StageMerging, nil)
	merged := Merge(chain)

	obs.Transition(req.Model, StageSourceSelecting, nil)
	sel, diags := selector.Select(merged.Bases, merged.Metadata, req.Capabilities)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	obs.Transition(req.Model, StageApplyingCustomFields, nil)
	applied := fields.Apply(merged.CustomFields, req.Overrides)
	diags = append(diags, applied.Diagnostics...)

	obs.Transition(req.Model, StageEvaluatingSuggestions, nil)
	state := suggest.NewState(merged.Metadata, merged.Config, applied.Values())
	suggestions, sdiags := suggest.Evaluate(merged.Suggestions, state)
	diags = append(diags, sdiags...)

	if diags == nil {
		diags = []types.Diagnostic{}
	}
	out := &types.ResolvedModel{
		Model:        req.Model,
		Path:         path,
		Metadata:     merged.Metadata,
		Config:       merged.Config,
		Source:       sel,
		CustomFields: applied.Fields,
		Bindings:     maps.Clone(map[string]any(applied.Bindings)),
		Suggestions:  suggestions,
		Diagnostics:  diags,
	}
	obs.Transition(req.Model, StageResolved, nil)
	return out, nil
}

// Resolve is a convenience wrapper around a zero Engine.
func Resolve(ctx context.Context, defs Definitions, req Request) (*types.ResolvedModel, error) {
	var e Engine
	return e.Resolve(ctx, defs, req)
}
