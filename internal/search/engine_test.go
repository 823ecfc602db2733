// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meshintell/lexsearch/internal/cache"
	"github.com/meshintell/lexsearch/pkg/types"
)

// mockProvider is an in-memory Provider for engine tests. It counts
// calls so cache behavior is observable.
type mockProvider struct {
	name     string
	set      types.ResultSet
	doc      types.Document
	citation types.CitationValidation
	err      error
	block    bool // wait for ctx cancellation instead of returning

	searchCalls atomic.Int64
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, _ types.Query) (types.ResultSet, error) {
	m.searchCalls.Add(1)
	if m.block {
		<-ctx.Done()
		return types.ResultSet{}, &ProviderError{Provider: m.name, Kind: KindTimeout, Err: ctx.Err()}
	}
	if m.err != nil {
		return types.ResultSet{}, m.err
	}
	return m.set, nil
}

func (m *mockProvider) GetDocument(_ context.Context, _ string) (types.Document, error) {
	if m.err != nil {
		return types.Document{}, m.err
	}
	return m.doc, nil
}

func (m *mockProvider) ValidateCitation(_ context.Context, _ string) (types.CitationValidation, error) {
	if m.err != nil {
		return types.CitationValidation{}, m.err
	}
	return m.citation, nil
}

func testEngine(t *testing.T, providers ...Provider) *Engine {
	t.Helper()
	rec := cache.NewRecorder()
	store := cache.New(context.Background(), types.CacheConfig{}, rec, zap.NewNop())
	t.Cleanup(func() { store.Close() })

	cfgs := make(map[string]types.ProviderConfig, len(providers))
	for _, p := range providers {
		cfgs[p.Name()] = types.ProviderConfig{MaxResults: 50}
	}
	return &Engine{
		providers: providers,
		cfgs:      cfgs,
		store:     store,
		metrics:   rec,
		fusion:    NewFusion(types.FusionConfig{}, nil),
		logger:    zap.NewNop(),
	}
}

func resultsFor(provider string, n int) types.ResultSet {
	set := types.ResultSet{TotalAvailable: n}
	for i := 0; i < n; i++ {
		set.Results = append(set.Results, types.ResultItem{
			Provider:       provider,
			Citation:       fmt.Sprintf("%s-cite-%d", provider, i),
			Title:          fmt.Sprintf("%s case %d", provider, i),
			RelevanceScore: 1.0 - float64(i)*0.1,
		})
	}
	return set
}

func TestSearchInvalidQuery(t *testing.T) {
	e := testEngine(t, &mockProvider{name: ProviderWestlaw})
	_, err := e.Search(context.Background(), types.Query{})
	if !errors.Is(err, types.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearchNoProviders(t *testing.T) {
	e := testEngine(t)
	_, err := e.Search(context.Background(), types.Query{Text: "x"})
	if err == nil {
		t.Error("expected an error with no providers configured")
	}
}

func TestSearchFusesBothProviders(t *testing.T) {
	wl := &mockProvider{name: ProviderWestlaw, set: resultsFor(ProviderWestlaw, 2)}
	ln := &mockProvider{name: ProviderLexisNexis, set: resultsFor(ProviderLexisNexis, 3)}
	e := testEngine(t, wl, ln)

	out, err := e.Search(context.Background(), types.Query{Text: "adverse possession"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out.Results) != 5 {
		t.Errorf("len(Results) = %d, want 5", len(out.Results))
	}
	if out.ProviderCounts[ProviderWestlaw] != 2 || out.ProviderCounts[ProviderLexisNexis] != 3 {
		t.Errorf("ProviderCounts = %v", out.ProviderCounts)
	}
	if out.FromCache {
		t.Error("first search must not report FromCache")
	}
	if out.TotalAvailable != 5 {
		t.Errorf("TotalAvailable = %d, want 5", out.TotalAvailable)
	}
}

func TestSearchSurvivesOneProviderFailure(t *testing.T) {
	failing := &mockProvider{
		name: ProviderWestlaw,
		err:  &ProviderError{Provider: ProviderWestlaw, Kind: KindNetwork, Err: errors.New("connection refused")},
	}
	working := &mockProvider{name: ProviderLexisNexis, set: resultsFor(ProviderLexisNexis, 2)}
	e := testEngine(t, failing, working)

	out, err := e.Search(context.Background(), types.Query{Text: "x"})
	if err != nil {
		t.Fatalf("Search should absorb a single failure: %v", err)
	}
	if len(out.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(out.Results))
	}
	if out.ProviderCounts[ProviderLexisNexis] != 2 {
		t.Errorf("ProviderCounts = %v", out.ProviderCounts)
	}
}

func TestSearchAllProvidersFail(t *testing.T) {
	mkErr := func(name string) error {
		return &ProviderError{Provider: name, Kind: KindUnavailable, Err: errors.New("down")}
	}
	e := testEngine(t,
		&mockProvider{name: ProviderWestlaw, err: mkErr(ProviderWestlaw)},
		&mockProvider{name: ProviderLexisNexis, err: mkErr(ProviderLexisNexis)},
	)

	_, err := e.Search(context.Background(), types.Query{Text: "x"})
	var failed *SearchFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *SearchFailedError, got %v", err)
	}
	if len(failed.Causes) != 2 {
		t.Errorf("len(Causes) = %d, want 2", len(failed.Causes))
	}
}

func TestSearchCachesFusedResults(t *testing.T) {
	wl := &mockProvider{name: ProviderWestlaw, set: resultsFor(ProviderWestlaw, 2)}
	e := testEngine(t, wl)
	ctx := context.Background()
	q := types.Query{Text: "adverse possession", Jurisdictions: []string{"NY", "CA"}}

	first, err := e.Search(ctx, q)
	if err != nil {
		t.Fatalf("first Search: %v", err)
	}

	// Same query, different set ordering: served from cache with zero
	// new provider calls.
	q2 := q
	q2.Jurisdictions = []string{"CA", "NY"}
	second, err := e.Search(ctx, q2)
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if !second.FromCache {
		t.Error("second search should come from cache")
	}
	if got := wl.searchCalls.Load(); got != 1 {
		t.Errorf("provider called %d times, want 1", got)
	}
	if len(second.Results) != len(first.Results) {
		t.Errorf("cached result count %d != original %d", len(second.Results), len(first.Results))
	}
}

func TestSearchCorruptCacheTreatedAsMiss(t *testing.T) {
	wl := &mockProvider{name: ProviderWestlaw, set: resultsFor(ProviderWestlaw, 1)}
	e := testEngine(t, wl)
	ctx := context.Background()
	q := types.Query{Text: "x"}

	key := cache.SearchKey(q, cache.AllProviders)
	e.store.Set(ctx, key, []byte("{not json"), cache.CategorySearch, time.Minute)

	out, err := e.Search(ctx, q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if out.FromCache {
		t.Error("corrupt entry must be treated as a miss")
	}
	if wl.searchCalls.Load() != 1 {
		t.Error("provider should have been dispatched after the corrupt hit")
	}

	// The corrupt payload was replaced by the fresh write.
	out2, err := e.Search(ctx, q)
	if err != nil {
		t.Fatalf("repeat Search: %v", err)
	}
	if !out2.FromCache {
		t.Error("fresh result should have been cached")
	}
}

func TestSearchProviderSubset(t *testing.T) {
	wl := &mockProvider{name: ProviderWestlaw, set: resultsFor(ProviderWestlaw, 1)}
	ln := &mockProvider{name: ProviderLexisNexis, set: resultsFor(ProviderLexisNexis, 1)}
	e := testEngine(t, wl, ln)

	out, err := e.Search(context.Background(), types.Query{Text: "x", Providers: []string{ProviderLexisNexis}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if wl.searchCalls.Load() != 0 {
		t.Error("westlaw should not have been dispatched")
	}
	if ln.searchCalls.Load() != 1 {
		t.Error("lexisnexis should have been dispatched")
	}
	if len(out.ProvidersSearched) != 1 || out.ProvidersSearched[0] != ProviderLexisNexis {
		t.Errorf("ProvidersSearched = %v", out.ProvidersSearched)
	}
}

func TestSearchUnknownProviderSubset(t *testing.T) {
	e := testEngine(t, &mockProvider{name: ProviderWestlaw})
	_, err := e.Search(context.Background(), types.Query{Text: "x", Providers: []string{"bloomberg"}})
	if !errors.Is(err, types.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for unknown provider subset, got %v", err)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	blocking := &mockProvider{name: ProviderWestlaw, block: true}
	e := testEngine(t, blocking)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	q := types.Query{Text: "x"}
	_, err := e.Search(ctx, q)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// No cache write happened for the abandoned search.
	key := cache.SearchKey(q, cache.AllProviders)
	if _, outcome := e.store.Get(context.Background(), key); outcome.Hit() {
		t.Error("cancelled search must not write to the cache")
	}
}

func TestSearchSequentialCancelledContext(t *testing.T) {
	// Sequential dispatch reports cancellation as ctx.Err(), same as
	// the parallel path, not as an all-providers-failed error.
	blocking := &mockProvider{name: ProviderWestlaw, block: true}
	e := testEngine(t, blocking)
	e.sequential = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	q := types.Query{Text: "x"}
	_, err := e.Search(ctx, q)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var failed *SearchFailedError
	if errors.As(err, &failed) {
		t.Errorf("cancellation surfaced as %T, want the bare context error", failed)
	}

	key := cache.SearchKey(q, cache.AllProviders)
	if _, outcome := e.store.Get(context.Background(), key); outcome.Hit() {
		t.Error("cancelled search must not write to the cache")
	}
}

func TestSearchSequentialMode(t *testing.T) {
	wl := &mockProvider{name: ProviderWestlaw, set: resultsFor(ProviderWestlaw, 1)}
	ln := &mockProvider{name: ProviderLexisNexis, set: resultsFor(ProviderLexisNexis, 1)}
	e := testEngine(t, wl, ln)
	e.sequential = true

	out, err := e.Search(context.Background(), types.Query{Text: "x"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(out.Results))
	}
}

func TestGetDocumentWriteThrough(t *testing.T) {
	doc := types.Document{ID: "doc-1", Provider: ProviderWestlaw, Title: "Roe v. Wade", Content: "text"}
	wl := &mockProvider{name: ProviderWestlaw, doc: doc}
	e := testEngine(t, wl)
	ctx := context.Background()

	got, err := e.GetDocument(ctx, "doc-1", ProviderWestlaw)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.ID != "doc-1" {
		t.Errorf("ID = %q", got.ID)
	}

	// The second read hits the document cache.
	key := cache.DocumentKey("doc-1", ProviderWestlaw)
	if _, outcome := e.store.Get(ctx, key); !outcome.Hit() {
		t.Error("document was not written through to the cache")
	}
}

func TestGetDocumentFallsAcrossProviders(t *testing.T) {
	missing := &mockProvider{
		name: ProviderWestlaw,
		err:  &ProviderError{Provider: ProviderWestlaw, Kind: KindNotFound, Err: ErrDocumentNotFound},
	}
	having := &mockProvider{
		name: ProviderLexisNexis,
		doc:  types.Document{ID: "doc-2", Provider: ProviderLexisNexis, Title: "Found"},
	}
	e := testEngine(t, missing, having)

	got, err := e.GetDocument(context.Background(), "doc-2", "")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Provider != ProviderLexisNexis {
		t.Errorf("Provider = %q, want lexisnexis fallback", got.Provider)
	}
}

func TestGetDocumentNotFoundAnywhere(t *testing.T) {
	notFound := &ProviderError{Provider: ProviderWestlaw, Kind: KindNotFound, Err: ErrDocumentNotFound}
	e := testEngine(t, &mockProvider{name: ProviderWestlaw, err: notFound})

	_, err := e.GetDocument(context.Background(), "ghost", "")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetDocumentUnknownProvider(t *testing.T) {
	e := testEngine(t, &mockProvider{name: ProviderWestlaw})
	_, err := e.GetDocument(context.Background(), "doc-1", "bloomberg")
	if !errors.Is(err, types.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestValidateCitationCached(t *testing.T) {
	v := types.CitationValidation{Citation: "410 U.S. 113", Valid: true, Treatment: "questioned"}
	wl := &mockProvider{name: ProviderWestlaw, citation: v}
	e := testEngine(t, wl)
	ctx := context.Background()

	first, err := e.ValidateCitation(ctx, "410 U.S. 113", "")
	if err != nil {
		t.Fatalf("ValidateCitation: %v", err)
	}
	if !first.Valid {
		t.Error("expected a valid citation")
	}

	// Spacing variants share the cache entry.
	wl.err = errors.New("provider must not be called again")
	second, err := e.ValidateCitation(ctx, "410  u.s.  113", "")
	if err != nil {
		t.Fatalf("cached ValidateCitation: %v", err)
	}
	if second.Treatment != "questioned" {
		t.Errorf("Treatment = %q", second.Treatment)
	}
}

func TestInvalidateCache(t *testing.T) {
	wl := &mockProvider{name: ProviderWestlaw, set: resultsFor(ProviderWestlaw, 1)}
	e := testEngine(t, wl)
	ctx := context.Background()

	if _, err := e.Search(ctx, types.Query{Text: "x"}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	n, err := e.InvalidateCache(ctx, "", string(cache.CategorySearch))
	if err != nil {
		t.Fatalf("InvalidateCache: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}

	if _, err := e.InvalidateCache(ctx, "", "bogus"); err == nil {
		t.Error("expected an error for an unknown category")
	}
}

func TestCacheStatistics(t *testing.T) {
	wl := &mockProvider{name: ProviderWestlaw, set: resultsFor(ProviderWestlaw, 1)}
	e := testEngine(t, wl)
	ctx := context.Background()

	e.Search(ctx, types.Query{Text: "x"}) // miss then store
	e.Search(ctx, types.Query{Text: "x"}) // hit

	snap := e.CacheStatistics()
	if snap.Hits != 1 || snap.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", snap.Hits, snap.Misses)
	}
	if snap.Providers[ProviderWestlaw].Calls != 1 {
		t.Errorf("provider calls = %d, want 1", snap.Providers[ProviderWestlaw].Calls)
	}
}

func TestProviders(t *testing.T) {
	e := testEngine(t,
		&mockProvider{name: ProviderWestlaw},
		&mockProvider{name: ProviderLexisNexis},
	)
	got := e.Providers()
	if len(got) != 2 || got[0] != ProviderWestlaw || got[1] != ProviderLexisNexis {
		t.Errorf("Providers() = %v", got)
	}
}
