// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"sort"
	"strings"

	"github.com/meshintell/lexsearch/pkg/types"
)

// Similarity weights. Normalized-citation equality dominates; title
// token overlap, court match, and date match contribute the rest.
const (
	simWeightCitation = 0.5
	simWeightTitle    = 0.3
	simWeightCourt    = 0.1
	simWeightDate     = 0.1
)

// ProviderResults pairs one provider's name with the set it returned.
type ProviderResults struct {
	Provider string
	Set      types.ResultSet
}

// Fusion merges per-provider result sets into one ranked, deduplicated,
// capped set. Output ordering is exactly reproducible for fixed inputs,
// strategy, and weights: every order-sensitive step iterates slices,
// never maps.
type Fusion struct {
	cfg     types.FusionConfig
	weights map[string]float64
}

// NewFusion builds a fusion stage. weights maps provider name to its
// score multiplier for the score strategy; missing providers weigh 1.0.
func NewFusion(cfg types.FusionConfig, weights map[string]float64) *Fusion {
	return &Fusion{cfg: cfg.WithDefaults(), weights: weights}
}

// Merge fuses the inputs: similarity dedup first, then the configured
// merge ordering, then the cap. Truncation happens after dedup so a
// unique late item is never dropped in favor of a duplicate early one.
func (f *Fusion) Merge(inputs []ProviderResults) types.ResultSet {
	unique := f.dedup(inputs)

	var merged []types.ResultItem
	switch f.cfg.Strategy {
	case types.MergeRoundRobin, types.MergeInterleave:
		// Interleave is the strict two-provider case of round robin;
		// both cycle the provider lists in dispatch order.
		merged = roundRobin(unique, providerOrder(inputs))
	default:
		merged = f.byScore(unique)
	}

	if len(merged) > f.cfg.MaxResults {
		merged = merged[:f.cfg.MaxResults]
	}

	out := types.ResultSet{
		Results:        merged,
		ProviderCounts: make(map[string]int, len(inputs)),
		Facets: types.FacetCounts{
			Jurisdiction: make(map[string]int),
			Court:        make(map[string]int),
			Year:         make(map[string]int),
			DocumentType: make(map[string]int),
		},
	}
	for _, in := range inputs {
		out.ProvidersSearched = append(out.ProvidersSearched, in.Provider)
		out.TotalAvailable += in.Set.TotalAvailable
		out.HasMore = out.HasMore || in.Set.HasMore
		sumFacets(out.Facets.Jurisdiction, in.Set.Facets.Jurisdiction)
		sumFacets(out.Facets.Court, in.Set.Facets.Court)
		sumFacets(out.Facets.Year, in.Set.Facets.Year)
		sumFacets(out.Facets.DocumentType, in.Set.Facets.DocumentType)
		out.ProviderCounts[in.Provider] = 0
	}
	for _, item := range merged {
		out.ProviderCounts[item.Provider]++
	}
	return out
}

// dedup flattens the inputs in order and drops items whose similarity
// to an already-kept item reaches the threshold. The higher-scoring of
// a duplicate pair survives; on a tie the first encountered stays.
func (f *Fusion) dedup(inputs []ProviderResults) []types.ResultItem {
	var kept []types.ResultItem
	byCitation := make(map[string]int)

	for _, in := range inputs {
		for _, item := range in.Set.Results {
			dupIdx := -1
			if c := normalizeCitation(item.Citation); c != "" {
				if idx, ok := byCitation[c]; ok {
					dupIdx = idx
				}
			}
			if dupIdx < 0 {
				for i := range kept {
					if Similarity(kept[i], item) >= f.cfg.DedupThreshold {
						dupIdx = i
						break
					}
				}
			}

			if dupIdx >= 0 {
				if item.RelevanceScore > kept[dupIdx].RelevanceScore {
					kept[dupIdx] = item
				}
				continue
			}

			kept = append(kept, item)
			if c := normalizeCitation(item.Citation); c != "" {
				byCitation[c] = len(kept) - 1
			}
		}
	}
	return kept
}

// byScore sorts unique items by weight-adjusted relevance, descending.
// Ties break on citation then title so the order never depends on
// sort-internal instability.
func (f *Fusion) byScore(items []types.ResultItem) []types.ResultItem {
	out := make([]types.ResultItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		si := out[i].RelevanceScore * f.weight(out[i].Provider)
		sj := out[j].RelevanceScore * f.weight(out[j].Provider)
		if si != sj {
			return si > sj
		}
		if out[i].Citation != out[j].Citation {
			return out[i].Citation < out[j].Citation
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func (f *Fusion) weight(provider string) float64 {
	if w, ok := f.weights[provider]; ok && w > 0 {
		return w
	}
	return 1.0
}

// roundRobin takes one item from each provider's surviving list in
// turn, cycling in the given provider order until all are exhausted.
// With exactly two providers this is a strict 1:1 interleave.
func roundRobin(items []types.ResultItem, order []string) []types.ResultItem {
	lists := make(map[string][]types.ResultItem, len(order))
	for _, item := range items {
		lists[item.Provider] = append(lists[item.Provider], item)
	}

	out := make([]types.ResultItem, 0, len(items))
	for len(out) < len(items) {
		took := false
		for _, p := range order {
			if list := lists[p]; len(list) > 0 {
				out = append(out, list[0])
				lists[p] = list[1:]
				took = true
			}
		}
		if !took {
			// Items whose provider is not in order (merged survivors
			// from a provider outside the dispatch set) go last.
			for _, p := range order {
				delete(lists, p)
			}
			var rest []string
			for p := range lists {
				rest = append(rest, p)
			}
			sort.Strings(rest)
			for _, p := range rest {
				out = append(out, lists[p]...)
			}
			break
		}
	}
	return out
}

func providerOrder(inputs []ProviderResults) []string {
	order := make([]string, len(inputs))
	for i, in := range inputs {
		order[i] = in.Provider
	}
	return order
}

// Similarity scores how likely a and b describe the same authority, in
// [0, 1]. A normalized-citation match dominates; title token overlap
// (Jaccard), court equality, and same-day dates contribute the rest.
func Similarity(a, b types.ResultItem) float64 {
	score := 0.0

	ca, cb := normalizeCitation(a.Citation), normalizeCitation(b.Citation)
	if ca != "" && ca == cb {
		score += simWeightCitation
	}

	score += simWeightTitle * titleJaccard(a.Title, b.Title)

	if a.Court != "" && strings.EqualFold(a.Court, b.Court) {
		score += simWeightCourt
	}
	if !a.Date.IsZero() && !b.Date.IsZero() {
		ya, ma, da := a.Date.Date()
		yb, mb, db := b.Date.Date()
		if ya == yb && ma == mb && da == db {
			score += simWeightDate
		}
	}
	return score
}

// normalizeCitation lowercases a citation, strips periods, and
// collapses whitespace, so "410 U.S. 113" and "410 US 113" compare
// equal.
func normalizeCitation(c string) string {
	c = strings.ToLower(strings.ReplaceAll(c, ".", ""))
	return strings.Join(strings.Fields(c), " ")
}

// titleJaccard computes token-set Jaccard overlap of two titles.
func titleJaccard(a, b string) float64 {
	ta, tb := titleTokens(a), titleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(title)) {
		field = strings.Trim(field, ".,;:()[]\"'")
		if field != "" {
			tokens[field] = true
		}
	}
	return tokens
}

func sumFacets(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}
