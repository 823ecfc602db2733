// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/meshintell/lexsearch/pkg/types"
)

// FormatTable writes a fused result set as a human-readable table to w.
func FormatTable(set types.ResultSet, w io.Writer) {
	if len(set.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-24s  %-44s  %-18s  %-6s  %s\n",
		"Rank", "Citation", "Title", "Court", "Score", "Provider")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	for i, r := range set.Results {
		title := r.Title
		if len(title) > 44 {
			title = title[:41] + "..."
		}
		court := r.Court
		if len(court) > 18 {
			court = court[:15] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-24s  %-44s  %-18s  %-6.2f  %s\n",
			i+1, truncate(r.Citation, 24), title, court, r.RelevanceScore, r.Provider)
	}

	fmt.Fprintf(w, "\n%d results (of %d available)", len(set.Results), set.TotalAvailable)
	if set.FromCache {
		fmt.Fprint(w, " [cached]")
	}
	fmt.Fprintln(w)

	if len(set.ProviderCounts) > 0 {
		var parts []string
		for _, name := range set.ProvidersSearched {
			parts = append(parts, fmt.Sprintf("%s: %d", name, set.ProviderCounts[name]))
		}
		fmt.Fprintln(w, strings.Join(parts, ", "))
	}
}

// FormatJSON writes a result set as indented JSON to w.
func FormatJSON(set types.ResultSet, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
