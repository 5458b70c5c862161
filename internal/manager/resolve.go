package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"modelyaml/internal/registry"
	"modelyaml/internal/resolver"
	"modelyaml/pkg/types"
)

// Resolve returns the resolved model for req. Requests without capabilities
// use DefaultCapabilities. Results may be shared between callers and must not
// be modified.
//
// Identical requests are served from the memo cache while the definitions on
// their path are unchanged; identical concurrent misses run the engine once.
func (m *Manager) Resolve(ctx context.Context, req types.ResolveRequest) (*types.ResolvedModel, error) {
	caps := m.DefaultCapabilities()
	if req.Capabilities != nil {
		caps = *req.Capabilities
	}
	rreq := resolver.Request{Model: req.Model, Capabilities: caps, Overrides: req.Overrides}
	snap := m.store.Snapshot()

	key, canon, err := memoKey(req.Model, caps, req.Overrides)
	if err != nil {
		// unhashable overrides: resolve without memoization
		m.misses.Add(1)
		cacheMissesTotal.Inc()
		return m.compute(ctx, snap, "", nil, rreq)
	}
	if e, ok := m.cache.get(key); ok {
		if e.matches(canon) && e.valid(snap) {
			m.hits.Add(1)
			cacheHitsTotal.Inc()
			m.publish(EventCacheHit, req.Model, nil)
			return e.model, nil
		}
		m.cache.remove(key)
	}
	m.misses.Add(1)
	cacheMissesTotal.Inc()

	flight := fmt.Sprintf("%s\x00%s@%d", req.Model, canon, snap.Version())
	ch := m.group.DoChan(flight, func() (any, error) {
		// shared by every waiter, so one caller giving up must not cancel it
		return m.compute(context.WithoutCancel(ctx), snap, key, canon, rreq)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.ResolvedModel), nil
	}
}

func (m *Manager) compute(ctx context.Context, snap *registry.Snapshot, key string, canon []byte, req resolver.Request) (*types.ResolvedModel, error) {
	eng := resolver.Engine{Observer: stageObserver(m.events())}
	start := time.Now()
	rm, err := eng.Resolve(ctx, snap, req)
	resolutionDuration.Observe(time.Since(start).Seconds())
	m.resolutions.Add(1)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		} else {
			m.recordError(err)
		}
		resolutionsTotal.WithLabelValues(outcome).Inc()
		m.log.Warn().Err(err).Str("model", req.Model).Str("kind", resolver.Kind(err)).Msg("resolve failed")
		return nil, err
	}
	resolutionsTotal.WithLabelValues("resolved").Inc()
	for _, d := range rm.Diagnostics {
		diagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
	}
	if key != "" {
		if defs, err := resolver.Lookup(snap, rm.Path); err == nil {
			m.cache.put(key, entry{model: rm, defs: defs, request: canon})
		}
	}
	ev := m.log.Debug().Str("model", req.Model).Int("diagnostics", len(rm.Diagnostics)).Dur("took", time.Since(start))
	if rm.Source != nil {
		ev = ev.Str("base_key", rm.Source.BaseKey).Str("format", rm.Source.Format)
	}
	ev.Msg("resolved")
	return rm, nil
}

// ResolveMany resolves reqs concurrently and returns one result per request,
// in request order. A failing request does not affect the others.
func (m *Manager) ResolveMany(ctx context.Context, reqs []types.ResolveRequest) []BatchResult {
	out := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(m.parallelism)
	for i, r := range reqs {
		g.Go(func() error {
			rm, err := m.Resolve(ctx, r)
			out[i] = BatchResult{Model: rm, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
