// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/meshintell/lexsearch/pkg/types"
)

// QueryFile is the on-disk representation of a search and its fused
// results. A researcher can save a search to a file and reload it
// later, or replay it to warm the cache, without re-spending provider
// quota.
type QueryFile struct {
	Query   QueryParams        `yaml:"query"`
	Results []types.ResultItem `yaml:"results"`
	Summary QuerySummary       `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text          string   `yaml:"text"`
	Mode          string   `yaml:"mode,omitempty"`
	DocumentTypes []string `yaml:"document_types,omitempty"`
	Jurisdictions []string `yaml:"jurisdictions,omitempty"`
	DateFrom      string   `yaml:"date_from,omitempty"`
	DateTo        string   `yaml:"date_to,omitempty"`
	MaxResults    int      `yaml:"max_results,omitempty"`
	Sort          string   `yaml:"sort,omitempty"`
	PracticeArea  string   `yaml:"practice_area,omitempty"`
	Providers     []string `yaml:"providers,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total             int            `yaml:"total"`
	TotalAvailable    int            `yaml:"total_available"`
	ProviderCounts    map[string]int `yaml:"provider_counts,omitempty"`
	ProvidersSearched []string       `yaml:"providers_searched,omitempty"`
	FromCache         bool           `yaml:"from_cache"`
	Timestamp         time.Time      `yaml:"timestamp"`
}

const queryDateFmt = "2006-01-02"

// WriteQueryFile saves a query and its fused results to a YAML file.
func WriteQueryFile(path string, q types.Query, set types.ResultSet) error {
	qf := QueryFile{
		Query:   toQueryParams(q),
		Results: set.Results,
		Summary: QuerySummary{
			Total:             len(set.Results),
			TotalAvailable:    set.TotalAvailable,
			ProviderCounts:    set.ProviderCounts,
			ProvidersSearched: set.ProvidersSearched,
			FromCache:         set.FromCache,
			Timestamp:         time.Now(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

func toQueryParams(q types.Query) QueryParams {
	p := QueryParams{
		Text:          q.Text,
		Mode:          string(q.Mode),
		DocumentTypes: q.DocumentTypes,
		Jurisdictions: q.Jurisdictions,
		MaxResults:    q.MaxResults,
		Sort:          string(q.Sort),
		PracticeArea:  q.PracticeArea,
		Providers:     q.Providers,
	}
	if !q.DateFrom.IsZero() {
		p.DateFrom = q.DateFrom.Format(queryDateFmt)
	}
	if !q.DateTo.IsZero() {
		p.DateTo = q.DateTo.Format(queryDateFmt)
	}
	return p
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() (types.Query, error) {
	q := types.Query{
		Text:          p.Text,
		Mode:          types.SearchMode(p.Mode),
		DocumentTypes: p.DocumentTypes,
		Jurisdictions: p.Jurisdictions,
		MaxResults:    p.MaxResults,
		Sort:          types.SortOrder(p.Sort),
		PracticeArea:  p.PracticeArea,
		Providers:     p.Providers,
	}
	if p.DateFrom != "" {
		t, err := time.Parse(queryDateFmt, p.DateFrom)
		if err != nil {
			return q, fmt.Errorf("invalid date_from %q: %w", p.DateFrom, err)
		}
		q.DateFrom = t
	}
	if p.DateTo != "" {
		t, err := time.Parse(queryDateFmt, p.DateTo)
		if err != nil {
			return q, fmt.Errorf("invalid date_to %q: %w", p.DateTo, err)
		}
		q.DateTo = t
	}
	return q, nil
}
