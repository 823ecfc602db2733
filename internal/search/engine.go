// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/meshintell/lexsearch/internal/cache"
	"github.com/meshintell/lexsearch/internal/docstore"
	"github.com/meshintell/lexsearch/pkg/types"
)

// Engine orchestrates one search: cache check, concurrent provider
// dispatch, fusion, write-through. Phases are strictly sequential per
// call; only the provider calls inside the dispatch phase run in
// parallel.
type Engine struct {
	providers []Provider // dispatch order is construction order
	cfgs      map[string]types.ProviderConfig
	store     *cache.Store
	metrics   *cache.Recorder
	fusion    *Fusion
	logger    *zap.Logger

	// archive is the optional local document archive. Nil disables
	// archiving; reads then always go to cache or provider.
	archive *docstore.Store

	sequential bool
}

// NewEngine wires the engine from configuration. Disabled providers
// are not constructed. The caller owns the store, recorder, and
// archive lifetimes.
func NewEngine(cfg types.EngineConfig, store *cache.Store, metrics *cache.Recorder, archive *docstore.Store, logger *zap.Logger) *Engine {
	client := &http.Client{Timeout: cfg.Timeout}

	e := &Engine{
		cfgs:       make(map[string]types.ProviderConfig),
		store:      store,
		metrics:    metrics,
		logger:     logger,
		archive:    archive,
		sequential: cfg.Sequential,
	}
	if cfg.Westlaw.Enabled {
		e.providers = append(e.providers, NewWestlaw(client, cfg.Westlaw, cfg.HTTPConfig))
		e.cfgs[ProviderWestlaw] = cfg.Westlaw
	}
	if cfg.LexisNexis.Enabled {
		e.providers = append(e.providers, NewLexisNexis(client, cfg.LexisNexis, cfg.HTTPConfig))
		e.cfgs[ProviderLexisNexis] = cfg.LexisNexis
	}

	weights := make(map[string]float64, len(e.cfgs))
	for name, pc := range e.cfgs {
		weights[name] = pc.Weight
	}
	e.fusion = NewFusion(cfg.Fusion, weights)
	return e
}

// Providers returns the configured provider names in dispatch order.
func (e *Engine) Providers() []string {
	names := make([]string, len(e.providers))
	for i, p := range e.providers {
		names[i] = p.Name()
	}
	return names
}

// Search serves a query from the cache or, on a miss, fans out to the
// providers, fuses their results, and writes the fused set through.
// A single provider failure is absorbed as long as another provider
// succeeds; when every provider fails the call returns
// *SearchFailedError rather than an empty set.
func (e *Engine) Search(ctx context.Context, q types.Query) (types.ResultSet, error) {
	if err := q.Validate(); err != nil {
		return types.ResultSet{}, err
	}
	if len(e.providers) == 0 {
		return types.ResultSet{}, fmt.Errorf("no search providers configured")
	}

	start := time.Now()
	key := cache.SearchKey(q, cache.AllProviders)

	if payload, outcome := e.store.Get(ctx, key); outcome.Hit() {
		var cached types.ResultSet
		if err := json.Unmarshal(payload, &cached); err != nil {
			// A corrupt payload is a miss; drop it so the next write
			// replaces it.
			e.logger.Warn("corrupt cached result set", zap.String("key", key), zap.Error(err))
			e.store.Delete(ctx, key)
		} else {
			cached.FromCache = true
			cached.Latency = time.Since(start)
			return cached, nil
		}
	}

	dispatch := e.selectProviders(q)
	if len(dispatch) == 0 {
		return types.ResultSet{}, fmt.Errorf("%w: no configured provider matches %v", types.ErrInvalidQuery, q.Providers)
	}

	inputs, errs, err := e.dispatch(ctx, q, dispatch)
	if err != nil {
		return types.ResultSet{}, err
	}
	if len(inputs) == 0 {
		return types.ResultSet{}, &SearchFailedError{Causes: errs}
	}

	fused := e.fusion.Merge(inputs)
	fused.Latency = time.Since(start)

	// A cancelled caller gets no cache write: the STORE phase only
	// runs for a search that completed normally.
	if ctx.Err() == nil {
		if payload, err := json.Marshal(fused); err == nil {
			e.store.Set(ctx, key, payload, cache.CategorySearch, e.store.TTL(cache.CategorySearch))
		}
	}
	return fused, nil
}

// selectProviders intersects the configured providers with the query's
// requested subset, preserving dispatch order. An empty request means
// all configured providers.
func (e *Engine) selectProviders(q types.Query) []Provider {
	if len(q.Providers) == 0 {
		return e.providers
	}
	requested := make(map[string]bool, len(q.Providers))
	for _, name := range q.Providers {
		requested[name] = true
	}
	var out []Provider
	for _, p := range e.providers {
		if requested[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

type providerOutcome struct {
	idx int
	set types.ResultSet
	err error
}

// dispatch runs the optimized query against each provider, in parallel
// by default or one at a time in sequential mode. Successful sets come
// back in dispatch order so fusion output is reproducible. A cancelled
// parent context abandons in-flight calls and returns ctx.Err();
// nothing is fused or written in that case.
func (e *Engine) dispatch(ctx context.Context, q types.Query, providers []Provider) ([]ProviderResults, []error, error) {
	outcomes := make([]providerOutcome, len(providers))

	if e.sequential {
		for i, p := range providers {
			set, err := e.callProvider(ctx, p, q)
			// Cancellation surfaces the same way as the parallel path,
			// not as an all-providers-failed error.
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			outcomes[i] = providerOutcome{idx: i, set: set, err: err}
		}
	} else {
		ch := make(chan providerOutcome, len(providers))
		for i, p := range providers {
			go func(i int, p Provider) {
				set, err := e.callProvider(ctx, p, q)
				ch <- providerOutcome{idx: i, set: set, err: err}
			}(i, p)
		}
		for range providers {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case out := <-ch:
				outcomes[out.idx] = out
			}
		}
	}

	var inputs []ProviderResults
	var errs []error
	for i, out := range outcomes {
		name := providers[i].Name()
		if out.err != nil {
			e.logger.Warn("provider search failed", zap.String("provider", name), zap.Error(out.err))
			errs = append(errs, out.err)
			continue
		}
		inputs = append(inputs, ProviderResults{Provider: name, Set: out.set})
	}
	return inputs, errs, nil
}

// callProvider optimizes the query for one provider and runs the call
// under the provider's deadline, recording latency and spend.
func (e *Engine) callProvider(ctx context.Context, p Provider, q types.Query) (types.ResultSet, error) {
	cfg := e.cfgs[p.Name()]
	optimized := Optimize(q, p.Name(), cfg)

	callCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	set, err := p.Search(callCtx, optimized)
	e.metrics.RecordProviderCall(p.Name(), time.Since(start), cfg.CostPerSearch, err != nil)
	return set, err
}

// GetDocument returns a document by id, consulting the document cache
// first. An empty provider name tries each configured provider in
// order until one succeeds.
func (e *Engine) GetDocument(ctx context.Context, id, provider string) (types.Document, error) {
	if id == "" {
		return types.Document{}, fmt.Errorf("%w: document id is empty", types.ErrInvalidQuery)
	}
	if len(e.providers) == 0 {
		return types.Document{}, fmt.Errorf("no search providers configured")
	}

	candidates := e.providers
	if provider != "" {
		p := e.providerByName(provider)
		if p == nil {
			return types.Document{}, fmt.Errorf("%w: unknown provider %q", types.ErrInvalidQuery, provider)
		}
		candidates = []Provider{p}
	}

	for _, p := range candidates {
		key := cache.DocumentKey(id, p.Name())
		if payload, outcome := e.store.Get(ctx, key); outcome.Hit() {
			var doc types.Document
			if err := json.Unmarshal(payload, &doc); err == nil {
				return doc, nil
			}
			e.store.Delete(ctx, key)
		}
	}

	// The local archive outlives cache TTLs; a hit there skips the
	// provider call entirely.
	if e.archive != nil {
		for _, p := range candidates {
			doc, found, err := e.archive.GetDocument(ctx, p.Name(), id)
			if err != nil {
				e.logger.Warn("document archive read failed", zap.String("id", id), zap.Error(err))
				break
			}
			if found {
				return doc, nil
			}
		}
	}

	var firstErr error
	for _, p := range candidates {
		doc, err := p.GetDocument(ctx, id)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		key := cache.DocumentKey(id, p.Name())
		if payload, err := json.Marshal(doc); err == nil {
			e.store.Set(ctx, key, payload, cache.CategoryDocument, e.store.TTL(cache.CategoryDocument))
		}
		if e.archive != nil {
			if err := e.archive.SaveDocument(ctx, doc); err != nil {
				e.logger.Warn("document archive write failed", zap.String("id", doc.ID), zap.Error(err))
			}
		}
		return doc, nil
	}
	return types.Document{}, firstErr
}

// ValidateCitation checks a citation, consulting the citation cache
// first. An empty provider name uses the first configured provider.
func (e *Engine) ValidateCitation(ctx context.Context, citation, provider string) (types.CitationValidation, error) {
	if citation == "" {
		return types.CitationValidation{}, fmt.Errorf("%w: citation is empty", types.ErrInvalidQuery)
	}
	if len(e.providers) == 0 {
		return types.CitationValidation{}, fmt.Errorf("no search providers configured")
	}

	p := e.providers[0]
	if provider != "" {
		if p = e.providerByName(provider); p == nil {
			return types.CitationValidation{}, fmt.Errorf("%w: unknown provider %q", types.ErrInvalidQuery, provider)
		}
	}

	key := cache.CitationKey(citation, p.Name())
	if payload, outcome := e.store.Get(ctx, key); outcome.Hit() {
		var v types.CitationValidation
		if err := json.Unmarshal(payload, &v); err == nil {
			return v, nil
		}
		e.store.Delete(ctx, key)
	}

	v, err := p.ValidateCitation(ctx, citation)
	if err != nil {
		return types.CitationValidation{}, err
	}
	if payload, err := json.Marshal(v); err == nil {
		e.store.Set(ctx, key, payload, cache.CategoryCitation, e.store.TTL(cache.CategoryCitation))
	}
	if e.archive != nil {
		if err := e.archive.SaveCitation(ctx, v); err != nil {
			e.logger.Warn("citation archive write failed", zap.String("citation", citation), zap.Error(err))
		}
	}
	return v, nil
}

// InvalidateCache removes cached entries matching the glob pattern
// and/or category, returning the count removed.
func (e *Engine) InvalidateCache(ctx context.Context, pattern, category string) (int, error) {
	var cat cache.Category
	switch category {
	case "":
	case string(cache.CategorySearch), string(cache.CategoryDocument), string(cache.CategoryCitation):
		cat = cache.Category(category)
	default:
		return 0, fmt.Errorf("unknown cache category %q", category)
	}
	return e.store.Invalidate(ctx, pattern, cat), nil
}

// CacheStatistics returns the current cache metrics snapshot.
func (e *Engine) CacheStatistics() cache.Snapshot {
	return e.store.Stats()
}

func (e *Engine) providerByName(name string) Provider {
	for _, p := range e.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}
