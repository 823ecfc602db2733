// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/meshintell/lexsearch/pkg/types"
)

func fusionCfg(strategy types.MergeStrategy) types.FusionConfig {
	return types.FusionConfig{
		DedupThreshold: 0.85,
		Strategy:       strategy,
		MaxResults:     20,
	}
}

func roeWestlaw() types.ResultItem {
	return types.ResultItem{
		Provider:       ProviderWestlaw,
		Citation:       "410 U.S. 113",
		Title:          "Roe v. Wade",
		Court:          "Supreme Court of the United States",
		Date:           time.Date(1973, 1, 22, 0, 0, 0, 0, time.UTC),
		RelevanceScore: 0.92,
	}
}

func roeLexis() types.ResultItem {
	r := roeWestlaw()
	r.Provider = ProviderLexisNexis
	r.Citation = "410 US 113"
	r.RelevanceScore = 0.88
	return r
}

// --- Similarity ---

func TestSimilarityIdentical(t *testing.T) {
	a := roeWestlaw()
	if got := Similarity(a, a); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Similarity(a, a) = %f, want 1.0", got)
	}
}

func TestSimilarityCitationVariants(t *testing.T) {
	// Period and spacing variants of one citation score as duplicates.
	got := Similarity(roeWestlaw(), roeLexis())
	if got < 0.85 {
		t.Errorf("Similarity across citation variants = %f, want >= 0.85", got)
	}
}

func TestSimilarityUnrelated(t *testing.T) {
	a := roeWestlaw()
	b := types.ResultItem{
		Citation: "347 U.S. 483",
		Title:    "Brown v. Board of Education",
		Court:    "Supreme Court of the United States",
		Date:     time.Date(1954, 5, 17, 0, 0, 0, 0, time.UTC),
	}
	if got := Similarity(a, b); got >= 0.85 {
		t.Errorf("Similarity of unrelated cases = %f, want < 0.85", got)
	}
}

func TestSimilarityMissingFields(t *testing.T) {
	a := types.ResultItem{Title: "In re Estate of Smith"}
	b := types.ResultItem{Title: "In re Estate of Smith"}
	// No citation, court, or date: only the title term contributes.
	if got := Similarity(a, b); got != simWeightTitle {
		t.Errorf("title-only Similarity = %f, want %f", got, simWeightTitle)
	}
}

func TestNormalizeCitation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"410 U.S. 113", "410 us 113"},
		{"410  US  113", "410 us 113"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeCitation(tt.in); got != tt.want {
			t.Errorf("normalizeCitation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- dedup ---

func TestMergeDedupAcrossProviders(t *testing.T) {
	// Three results from one provider, the same three as citation
	// variants plus two unique from the other: five uniques survive
	// the three duplicate pairs.
	shared1w, shared1l := roeWestlaw(), roeLexis()
	shared2w := types.ResultItem{
		Provider: ProviderWestlaw, Citation: "347 U.S. 483",
		Title: "Brown v. Board of Education", RelevanceScore: 0.85,
	}
	shared2l := shared2w
	shared2l.Provider = ProviderLexisNexis
	shared2l.Citation = "347 US 483"
	shared2l.RelevanceScore = 0.90
	shared3w := types.ResultItem{
		Provider: ProviderWestlaw, Citation: "5 U.S. 137",
		Title: "Marbury v. Madison", RelevanceScore: 0.70,
	}
	shared3l := shared3w
	shared3l.Provider = ProviderLexisNexis
	shared3l.Citation = "5 US 137"
	shared3l.RelevanceScore = 0.65

	f := NewFusion(fusionCfg(types.MergeScore), nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{
			Results:        []types.ResultItem{shared1w, shared2w, shared3w},
			TotalAvailable: 3,
		}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{
			Results: []types.ResultItem{
				shared1l, shared2l, shared3l,
				{Provider: ProviderLexisNexis, Citation: "17 U.S. 316", Title: "McCulloch v. Maryland", RelevanceScore: 0.6},
				{Provider: ProviderLexisNexis, Citation: "22 U.S. 1", Title: "Gibbons v. Ogden", RelevanceScore: 0.5},
			},
			TotalAvailable: 5,
		}},
	})

	if len(out.Results) != 5 {
		t.Fatalf("len(Results) = %d, want 5 unique", len(out.Results))
	}
	if out.TotalAvailable != 8 {
		t.Errorf("TotalAvailable = %d, want the raw sum 8", out.TotalAvailable)
	}
	// The higher-scoring copy of each duplicate pair survives.
	for _, item := range out.Results {
		switch normalizeCitation(item.Citation) {
		case "410 us 113":
			if item.Provider != ProviderWestlaw {
				t.Errorf("Roe survivor from %s, want the higher-scoring westlaw copy", item.Provider)
			}
		case "347 us 483":
			if item.Provider != ProviderLexisNexis {
				t.Errorf("Brown survivor from %s, want the higher-scoring lexisnexis copy", item.Provider)
			}
		case "5 us 137":
			if item.Provider != ProviderWestlaw {
				t.Errorf("Marbury survivor from %s, want the higher-scoring westlaw copy", item.Provider)
			}
		}
	}
	// ProviderCounts reflect post-dedup attribution: westlaw keeps Roe
	// and Marbury, lexisnexis keeps Brown and its two unique items.
	if out.ProviderCounts[ProviderWestlaw] != 2 {
		t.Errorf("westlaw count = %d, want 2", out.ProviderCounts[ProviderWestlaw])
	}
	if out.ProviderCounts[ProviderLexisNexis] != 3 {
		t.Errorf("lexisnexis count = %d, want 3", out.ProviderCounts[ProviderLexisNexis])
	}
}

func TestMergeDedupTieKeepsFirst(t *testing.T) {
	a, b := roeWestlaw(), roeLexis()
	b.RelevanceScore = a.RelevanceScore

	f := NewFusion(fusionCfg(types.MergeScore), nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: []types.ResultItem{a}}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{Results: []types.ResultItem{b}}},
	})
	if len(out.Results) != 1 {
		t.Fatalf("len(Results) = %d, want 1", len(out.Results))
	}
	if out.Results[0].Provider != ProviderWestlaw {
		t.Errorf("tie survivor from %s, want the first encountered", out.Results[0].Provider)
	}
}

func TestMergeSingleProviderPassthrough(t *testing.T) {
	items := []types.ResultItem{
		{Provider: ProviderWestlaw, Citation: "c1", Title: "A", RelevanceScore: 0.9},
		{Provider: ProviderWestlaw, Citation: "c2", Title: "B", RelevanceScore: 0.8},
	}
	f := NewFusion(fusionCfg(types.MergeScore), nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: items}},
	})
	if len(out.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(out.Results))
	}
	if !reflect.DeepEqual(out.ProvidersSearched, []string{ProviderWestlaw}) {
		t.Errorf("ProvidersSearched = %v", out.ProvidersSearched)
	}
}

// --- strategies ---

func TestMergeByScoreOrdersDescending(t *testing.T) {
	f := NewFusion(fusionCfg(types.MergeScore), nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: []types.ResultItem{
			{Provider: ProviderWestlaw, Citation: "c1", Title: "A", RelevanceScore: 0.3},
			{Provider: ProviderWestlaw, Citation: "c2", Title: "B", RelevanceScore: 0.9},
		}}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{Results: []types.ResultItem{
			{Provider: ProviderLexisNexis, Citation: "c3", Title: "C", RelevanceScore: 0.6},
		}}},
	})
	for i := 1; i < len(out.Results); i++ {
		if out.Results[i].RelevanceScore > out.Results[i-1].RelevanceScore {
			t.Errorf("results not sorted at %d: %f > %f",
				i, out.Results[i].RelevanceScore, out.Results[i-1].RelevanceScore)
		}
	}
}

func TestMergeByScoreAppliesProviderWeight(t *testing.T) {
	weights := map[string]float64{ProviderLexisNexis: 2.0}
	f := NewFusion(fusionCfg(types.MergeScore), weights)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: []types.ResultItem{
			{Provider: ProviderWestlaw, Citation: "c1", Title: "A", RelevanceScore: 0.9},
		}}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{Results: []types.ResultItem{
			{Provider: ProviderLexisNexis, Citation: "c2", Title: "B", RelevanceScore: 0.6},
		}}},
	})
	// 0.6 * 2.0 beats 0.9 * 1.0.
	if out.Results[0].Provider != ProviderLexisNexis {
		t.Errorf("top result from %s, want weighted lexisnexis", out.Results[0].Provider)
	}
}

func TestMergeRoundRobinAlternates(t *testing.T) {
	wl := []types.ResultItem{
		{Provider: ProviderWestlaw, Citation: "w1", Title: "W1", RelevanceScore: 0.9},
		{Provider: ProviderWestlaw, Citation: "w2", Title: "W2", RelevanceScore: 0.8},
		{Provider: ProviderWestlaw, Citation: "w3", Title: "W3", RelevanceScore: 0.7},
	}
	ln := []types.ResultItem{
		{Provider: ProviderLexisNexis, Citation: "l1", Title: "L1", RelevanceScore: 0.95},
	}
	f := NewFusion(fusionCfg(types.MergeRoundRobin), nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: wl}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{Results: ln}},
	})

	want := []string{"w1", "l1", "w2", "w3"}
	for i, item := range out.Results {
		if item.Citation != want[i] {
			t.Errorf("position %d = %s, want %s", i, item.Citation, want[i])
		}
	}
}

func TestMergeInterleaveIsStrictWithTwoProviders(t *testing.T) {
	wl := []types.ResultItem{
		{Provider: ProviderWestlaw, Citation: "w1", Title: "W1"},
		{Provider: ProviderWestlaw, Citation: "w2", Title: "W2"},
	}
	ln := []types.ResultItem{
		{Provider: ProviderLexisNexis, Citation: "l1", Title: "L1"},
		{Provider: ProviderLexisNexis, Citation: "l2", Title: "L2"},
	}
	f := NewFusion(fusionCfg(types.MergeInterleave), nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: wl}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{Results: ln}},
	})

	want := []string{"w1", "l1", "w2", "l2"}
	for i, item := range out.Results {
		if item.Citation != want[i] {
			t.Errorf("position %d = %s, want %s", i, item.Citation, want[i])
		}
	}
}

func TestMergeCapAfterDedup(t *testing.T) {
	// Duplicates never consume cap slots that unique items could fill.
	cfg := fusionCfg(types.MergeScore)
	cfg.MaxResults = 3

	dup := roeLexis()
	var wl []types.ResultItem
	for i := 0; i < 3; i++ {
		wl = append(wl, types.ResultItem{
			Provider:       ProviderWestlaw,
			Citation:       fmt.Sprintf("c%d", i),
			Title:          fmt.Sprintf("Case %d", i),
			RelevanceScore: 0.9 - float64(i)*0.1,
		})
	}
	wl = append(wl, roeWestlaw())

	f := NewFusion(cfg, nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: wl}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{Results: []types.ResultItem{dup}}},
	})
	if len(out.Results) != 3 {
		t.Errorf("len(Results) = %d, want the cap of 3", len(out.Results))
	}
}

func TestMergeDeterministic(t *testing.T) {
	inputs := []ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{Results: []types.ResultItem{
			{Provider: ProviderWestlaw, Citation: "a", Title: "A", RelevanceScore: 0.5},
			{Provider: ProviderWestlaw, Citation: "b", Title: "B", RelevanceScore: 0.5},
		}}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{Results: []types.ResultItem{
			{Provider: ProviderLexisNexis, Citation: "c", Title: "C", RelevanceScore: 0.5},
		}}},
	}
	f := NewFusion(fusionCfg(types.MergeScore), nil)
	first := f.Merge(inputs)
	for i := 0; i < 10; i++ {
		if got := f.Merge(inputs); !reflect.DeepEqual(got.Results, first.Results) {
			t.Fatalf("merge order changed on run %d", i)
		}
	}
}

func TestMergeAggregatesFacetsAndTotals(t *testing.T) {
	f := NewFusion(fusionCfg(types.MergeScore), nil)
	out := f.Merge([]ProviderResults{
		{Provider: ProviderWestlaw, Set: types.ResultSet{
			Results:        []types.ResultItem{{Provider: ProviderWestlaw, Citation: "c1", Title: "A"}},
			TotalAvailable: 120,
			HasMore:        true,
			Facets: types.FacetCounts{
				Jurisdiction: map[string]int{"NY": 40},
				Court:        map[string]int{"ny app div": 10},
				Year:         map[string]int{"2023": 7},
				DocumentType: map[string]int{"case": 120},
			},
		}},
		{Provider: ProviderLexisNexis, Set: types.ResultSet{
			Results:        []types.ResultItem{{Provider: ProviderLexisNexis, Citation: "c2", Title: "B"}},
			TotalAvailable: 80,
			Facets: types.FacetCounts{
				Jurisdiction: map[string]int{"NY": 25, "CA": 5},
				DocumentType: map[string]int{"case": 80},
			},
		}},
	})

	if out.TotalAvailable != 200 {
		t.Errorf("TotalAvailable = %d, want 200", out.TotalAvailable)
	}
	if !out.HasMore {
		t.Error("HasMore should be true when any provider reports more")
	}
	if out.Facets.Jurisdiction["NY"] != 65 {
		t.Errorf("NY facet = %d, want 65", out.Facets.Jurisdiction["NY"])
	}
	if out.Facets.DocumentType["case"] != 200 {
		t.Errorf("case facet = %d, want 200", out.Facets.DocumentType["case"])
	}
}

func TestTitleJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Roe v. Wade", "Roe v. Wade", 1.0},
		{"case and punctuation", "roe v wade", "Roe v. Wade", 1.0},
		{"disjoint", "Roe v. Wade", "Brown v. Board", 1.0 / 5.0},
		{"empty", "", "Roe v. Wade", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titleJaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("titleJaccard(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
