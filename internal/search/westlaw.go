// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meshintell/lexsearch/internal/httputil"
	"github.com/meshintell/lexsearch/pkg/types"
)

// Provider names used across the engine, the optimizer, and the config.
const (
	ProviderWestlaw    = "westlaw"
	ProviderLexisNexis = "lexisnexis"
)

// westlawAPIBase is the Westlaw research endpoint. Declared as a var so
// tests can substitute an httptest server.
var westlawAPIBase = "https://api.westlaw.example.com/v1"

// WestlawProvider queries the Westlaw research API.
type WestlawProvider struct {
	client *http.Client
	cfg    types.ProviderConfig
	http   types.HTTPConfig
	guard  *guard
}

// NewWestlaw builds the Westlaw adapter with its own rate limiter and
// circuit breaker.
func NewWestlaw(client *http.Client, cfg types.ProviderConfig, httpCfg types.HTTPConfig) *WestlawProvider {
	return &WestlawProvider{
		client: client,
		cfg:    cfg,
		http:   httpCfg,
		guard:  newGuard(ProviderWestlaw, cfg.RateLimit),
	}
}

// Name returns the provider identifier.
func (p *WestlawProvider) Name() string { return ProviderWestlaw }

// Search runs an already-optimized query against Westlaw.
func (p *WestlawProvider) Search(ctx context.Context, q types.Query) (types.ResultSet, error) {
	params := url.Values{
		"query": {q.Text},
		"mode":  {string(q.Mode)},
		"limit": {strconv.Itoa(q.MaxResults)},
	}
	if len(q.Jurisdictions) > 0 {
		params.Set("jurisdictions", strings.Join(q.Jurisdictions, ","))
	}
	if len(q.DocumentTypes) > 0 {
		params.Set("types", strings.Join(q.DocumentTypes, ","))
	}
	if !q.DateFrom.IsZero() {
		params.Set("date_from", q.DateFrom.Format("2006-01-02"))
	}
	if !q.DateTo.IsZero() {
		params.Set("date_to", q.DateTo.Format("2006-01-02"))
	}
	if q.Sort != "" {
		params.Set("sort", string(q.Sort))
	}
	if q.PracticeArea != "" {
		params.Set("practice_area", q.PracticeArea)
	}

	var wr westlawSearchResponse
	err := p.getJSON(ctx, westlawAPIBase+"/search?"+params.Encode(), &wr)
	if err != nil {
		return types.ResultSet{}, err
	}

	total := len(wr.Results)
	var items []types.ResultItem
	for i, res := range wr.Results {
		item := types.ResultItem{
			Provider:       ProviderWestlaw,
			Citation:       res.Citation,
			Title:          strings.TrimSpace(res.Title),
			Court:          res.Court,
			Jurisdiction:   res.Jurisdiction,
			DocumentType:   res.Type,
			RelevanceScore: res.Score,
		}
		if res.DocumentID != "" {
			item.Metadata = map[string]string{"document_id": res.DocumentID}
		}
		if res.KeyCite != "" {
			if item.Metadata == nil {
				item.Metadata = make(map[string]string)
			}
			item.Metadata["keycite"] = res.KeyCite
		}
		if t, parseErr := time.Parse("2006-01-02", res.Date); parseErr == nil {
			item.Date = t
		}
		// Position-based score when the provider omits one.
		if item.RelevanceScore == 0 {
			if total > 1 {
				item.RelevanceScore = 1.0 - float64(i)/float64(total-1)*0.9
			} else {
				item.RelevanceScore = 1.0
			}
		}
		items = append(items, item)
	}

	return types.ResultSet{
		Results:        items,
		TotalAvailable: wr.Total,
		HasMore:        wr.HasMore,
		Facets:         facetsFromItems(items),
	}, nil
}

// GetDocument fetches one full document by Westlaw id.
func (p *WestlawProvider) GetDocument(ctx context.Context, id string) (types.Document, error) {
	var dr westlawDocumentResponse
	err := p.getJSON(ctx, westlawAPIBase+"/documents/"+url.PathEscape(id), &dr)
	if err != nil {
		return types.Document{}, err
	}

	doc := types.Document{
		ID:           dr.ID,
		Provider:     ProviderWestlaw,
		Citation:     dr.Citation,
		Title:        dr.Title,
		Court:        dr.Court,
		Jurisdiction: dr.Jurisdiction,
		DocumentType: dr.Type,
		Content:      dr.Content,
	}
	if t, parseErr := time.Parse("2006-01-02", dr.Date); parseErr == nil {
		doc.Date = t
	}
	if dr.KeyCite != "" {
		doc.Metadata = map[string]string{"keycite": dr.KeyCite}
	}
	return doc, nil
}

// ValidateCitation checks a citation against KeyCite.
func (p *WestlawProvider) ValidateCitation(ctx context.Context, citation string) (types.CitationValidation, error) {
	params := url.Values{"citation": {citation}}
	var vr westlawCitationResponse
	err := p.getJSON(ctx, westlawAPIBase+"/citations/validate?"+params.Encode(), &vr)
	if err != nil {
		return types.CitationValidation{}, err
	}
	return types.CitationValidation{
		Citation:   citation,
		Normalized: vr.Normalized,
		Valid:      vr.Valid,
		Provider:   ProviderWestlaw,
		Treatment:  vr.KeyCite,
		Message:    vr.Message,
	}, nil
}

// getJSON performs an authenticated GET under the rate limiter and
// breaker, decoding the response into out. Non-success statuses and
// transport failures come back as classified ProviderErrors.
func (p *WestlawProvider) getJSON(ctx context.Context, reqURL string, out any) error {
	return p.guard.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return &ProviderError{Provider: ProviderWestlaw, Kind: KindNetwork, Err: err}
		}
		req.Header.Set("User-Agent", p.http.UserAgent)
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

		resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
		if err != nil {
			kind := KindNetwork
			if errors.Is(err, context.DeadlineExceeded) {
				kind = KindTimeout
			}
			return &ProviderError{Provider: ProviderWestlaw, Kind: kind, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			cause := fmt.Errorf("westlaw API returned HTTP %d", resp.StatusCode)
			if resp.StatusCode == http.StatusNotFound {
				cause = fmt.Errorf("westlaw API returned HTTP 404: %w", ErrDocumentNotFound)
			}
			return &ProviderError{
				Provider: ProviderWestlaw,
				Kind:     classifyHTTPStatus(resp.StatusCode),
				Err:      cause,
			}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &ProviderError{
				Provider: ProviderWestlaw,
				Kind:     KindStatus,
				Err:      fmt.Errorf("parsing westlaw response: %w", err),
			}
		}
		return nil
	})
}

// Westlaw response shapes.
type westlawSearchResponse struct {
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
	Results []westlawResult `json:"results"`
}

type westlawResult struct {
	DocumentID   string  `json:"document_id"`
	Citation     string  `json:"citation"`
	Title        string  `json:"title"`
	Court        string  `json:"court"`
	Jurisdiction string  `json:"jurisdiction"`
	Type         string  `json:"type"`
	Date         string  `json:"date"`
	Score        float64 `json:"score"`
	KeyCite      string  `json:"keycite"`
}

type westlawDocumentResponse struct {
	ID           string `json:"id"`
	Citation     string `json:"citation"`
	Title        string `json:"title"`
	Court        string `json:"court"`
	Jurisdiction string `json:"jurisdiction"`
	Type         string `json:"type"`
	Date         string `json:"date"`
	Content      string `json:"content"`
	KeyCite      string `json:"keycite"`
}

type westlawCitationResponse struct {
	Normalized string `json:"normalized"`
	Valid      bool   `json:"valid"`
	KeyCite    string `json:"keycite"`
	Message    string `json:"message"`
}

// facetsFromItems builds provider-local facet counts from a result
// list. Fusion sums these per bucket key across providers.
func facetsFromItems(items []types.ResultItem) types.FacetCounts {
	f := types.FacetCounts{
		Jurisdiction: make(map[string]int),
		Court:        make(map[string]int),
		Year:         make(map[string]int),
		DocumentType: make(map[string]int),
	}
	for _, item := range items {
		if item.Jurisdiction != "" {
			f.Jurisdiction[item.Jurisdiction]++
		}
		if item.Court != "" {
			f.Court[item.Court]++
		}
		if !item.Date.IsZero() {
			f.Year[strconv.Itoa(item.Date.Year())]++
		}
		if item.DocumentType != "" {
			f.DocumentType[item.DocumentType]++
		}
	}
	return f
}
