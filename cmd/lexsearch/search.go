// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshintell/lexsearch/internal/search"
	"github.com/meshintell/lexsearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search legal research providers for authorities",
	Long: `Search queries the configured providers (Westlaw, LexisNexis) for cases,
statutes, and regulations matching a query. Results are deduplicated across
providers, merged by the configured strategy, and cached; an identical repeat
query is served from the cache without provider calls.

Use --save to write the query and results to a YAML file, or --load to replay
a saved query through the engine.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query", "", "search text (boolean connectors or natural language)")
	searchCmd.Flags().String("mode", "natural", "search mode: boolean, natural, or citation")
	searchCmd.Flags().String("types", "", "document types (comma-separated: case,statute,regulation)")
	searchCmd.Flags().String("jurisdictions", "", "jurisdictions (comma-separated: US,NY,CA)")
	searchCmd.Flags().String("from", "", "decision date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "decision date range end (YYYY-MM-DD)")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (0 uses the configured default)")
	searchCmd.Flags().String("sort", "", "sort order: relevance, date_desc, or date_asc")
	searchCmd.Flags().String("practice-area", "", "practice area tag")
	searchCmd.Flags().String("providers", "", "providers to query (comma-separated; default all)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "save the query and results to a YAML file")
	searchCmd.Flags().String("load", "", "replay a saved query file instead of reading flags")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	var q types.Query
	if loadPath, _ := cmd.Flags().GetString("load"); loadPath != "" {
		qf, err := search.ReadQueryFile(loadPath)
		if err != nil {
			return err
		}
		q, err = qf.Query.ToQuery()
		if err != nil {
			return err
		}
	} else {
		var err error
		q, err = queryFromFlags(cmd)
		if err != nil {
			return err
		}
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	set, err := a.engine.Search(context.Background(), q)
	if err != nil {
		return err
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := search.WriteQueryFile(savePath, q, set); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved query and results to %s\n", savePath)
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return search.FormatJSON(set, os.Stdout)
	}
	search.FormatTable(set, os.Stdout)
	return nil
}

func queryFromFlags(cmd *cobra.Command) (types.Query, error) {
	text, _ := cmd.Flags().GetString("query")
	mode, _ := cmd.Flags().GetString("mode")
	sortBy, _ := cmd.Flags().GetString("sort")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	practiceArea, _ := cmd.Flags().GetString("practice-area")

	q := types.Query{
		Text:          text,
		Mode:          types.SearchMode(mode),
		DocumentTypes: splitCSV(cmd, "types"),
		Jurisdictions: splitCSV(cmd, "jurisdictions"),
		MaxResults:    maxResults,
		Sort:          types.SortOrder(sortBy),
		PracticeArea:  practiceArea,
		Providers:     splitCSV(cmd, "providers"),
	}

	var err error
	parseDate := func(flag string, dst *time.Time) error {
		raw, _ := cmd.Flags().GetString(flag)
		if raw == "" {
			return nil
		}
		t, parseErr := time.Parse("2006-01-02", raw)
		if parseErr != nil {
			return fmt.Errorf("invalid --%s date %q: %w", flag, raw, parseErr)
		}
		*dst = t
		return nil
	}
	if err = parseDate("from", &q.DateFrom); err != nil {
		return q, err
	}
	if err = parseDate("to", &q.DateTo); err != nil {
		return q, err
	}
	return q, nil
}

func splitCSV(cmd *cobra.Command, flag string) []string {
	raw, _ := cmd.Flags().GetString(flag)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
