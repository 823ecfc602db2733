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

// lexisAPIBase is the LexisNexis research endpoint. Declared as a var
// so tests can substitute an httptest server.
var lexisAPIBase = "https://api.lexisnexis.example.com/v2"

// LexisNexisProvider queries the LexisNexis research API.
type LexisNexisProvider struct {
	client *http.Client
	cfg    types.ProviderConfig
	http   types.HTTPConfig
	guard  *guard
}

// NewLexisNexis builds the LexisNexis adapter with its own rate
// limiter and circuit breaker.
func NewLexisNexis(client *http.Client, cfg types.ProviderConfig, httpCfg types.HTTPConfig) *LexisNexisProvider {
	return &LexisNexisProvider{
		client: client,
		cfg:    cfg,
		http:   httpCfg,
		guard:  newGuard(ProviderLexisNexis, cfg.RateLimit),
	}
}

// Name returns the provider identifier.
func (p *LexisNexisProvider) Name() string { return ProviderLexisNexis }

// Search runs an already-optimized query against LexisNexis.
func (p *LexisNexisProvider) Search(ctx context.Context, q types.Query) (types.ResultSet, error) {
	params := url.Values{
		"q":          {q.Text},
		"searchType": {string(q.Mode)},
		"pageSize":   {strconv.Itoa(q.MaxResults)},
	}
	if len(q.Jurisdictions) > 0 {
		params.Set("jurisdiction", strings.Join(q.Jurisdictions, ";"))
	}
	if len(q.DocumentTypes) > 0 {
		params.Set("contentType", strings.Join(q.DocumentTypes, ";"))
	}
	if !q.DateFrom.IsZero() {
		params.Set("dateAfter", q.DateFrom.Format("2006-01-02"))
	}
	if !q.DateTo.IsZero() {
		params.Set("dateBefore", q.DateTo.Format("2006-01-02"))
	}
	if q.Sort != "" {
		params.Set("sortBy", string(q.Sort))
	}

	var lr lexisSearchResponse
	if err := p.getJSON(ctx, lexisAPIBase+"/search?"+params.Encode(), &lr); err != nil {
		return types.ResultSet{}, err
	}

	total := len(lr.Documents)
	var items []types.ResultItem
	for i, doc := range lr.Documents {
		item := types.ResultItem{
			Provider:       ProviderLexisNexis,
			Citation:       doc.Citation,
			Title:          strings.TrimSpace(doc.Name),
			Court:          doc.Court,
			Jurisdiction:   doc.Jurisdiction,
			DocumentType:   doc.ContentType,
			RelevanceScore: doc.Relevance,
		}
		if doc.DocumentID != "" {
			item.Metadata = map[string]string{"document_id": doc.DocumentID}
		}
		if doc.ShepardsSignal != "" {
			if item.Metadata == nil {
				item.Metadata = make(map[string]string)
			}
			item.Metadata["shepards"] = doc.ShepardsSignal
		}
		if t, parseErr := time.Parse("2006-01-02", doc.Date); parseErr == nil {
			item.Date = t
		}
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
		TotalAvailable: lr.TotalCount,
		HasMore:        lr.More,
		Facets:         facetsFromItems(items),
	}, nil
}

// GetDocument fetches one full document by LexisNexis id.
func (p *LexisNexisProvider) GetDocument(ctx context.Context, id string) (types.Document, error) {
	var dr lexisDocumentResponse
	if err := p.getJSON(ctx, lexisAPIBase+"/documents/"+url.PathEscape(id), &dr); err != nil {
		return types.Document{}, err
	}

	doc := types.Document{
		ID:           dr.DocumentID,
		Provider:     ProviderLexisNexis,
		Citation:     dr.Citation,
		Title:        dr.Name,
		Court:        dr.Court,
		Jurisdiction: dr.Jurisdiction,
		DocumentType: dr.ContentType,
		Content:      dr.FullText,
	}
	if t, parseErr := time.Parse("2006-01-02", dr.Date); parseErr == nil {
		doc.Date = t
	}
	if dr.ShepardsSignal != "" {
		doc.Metadata = map[string]string{"shepards": dr.ShepardsSignal}
	}
	return doc, nil
}

// ValidateCitation checks a citation against Shepard's.
func (p *LexisNexisProvider) ValidateCitation(ctx context.Context, citation string) (types.CitationValidation, error) {
	params := url.Values{"cite": {citation}}
	var vr lexisCitationResponse
	if err := p.getJSON(ctx, lexisAPIBase+"/shepards?"+params.Encode(), &vr); err != nil {
		return types.CitationValidation{}, err
	}
	return types.CitationValidation{
		Citation:   citation,
		Normalized: vr.NormalizedCite,
		Valid:      vr.Recognized,
		Provider:   ProviderLexisNexis,
		Treatment:  vr.Signal,
		Message:    vr.Note,
	}, nil
}

func (p *LexisNexisProvider) getJSON(ctx context.Context, reqURL string, out any) error {
	return p.guard.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return &ProviderError{Provider: ProviderLexisNexis, Kind: KindNetwork, Err: err}
		}
		req.Header.Set("User-Agent", p.http.UserAgent)
		req.Header.Set("X-API-Key", p.cfg.APIKey)

		resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
		if err != nil {
			kind := KindNetwork
			if errors.Is(err, context.DeadlineExceeded) {
				kind = KindTimeout
			}
			return &ProviderError{Provider: ProviderLexisNexis, Kind: kind, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			cause := fmt.Errorf("lexisnexis API returned HTTP %d", resp.StatusCode)
			if resp.StatusCode == http.StatusNotFound {
				cause = fmt.Errorf("lexisnexis API returned HTTP 404: %w", ErrDocumentNotFound)
			}
			return &ProviderError{
				Provider: ProviderLexisNexis,
				Kind:     classifyHTTPStatus(resp.StatusCode),
				Err:      cause,
			}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &ProviderError{
				Provider: ProviderLexisNexis,
				Kind:     KindStatus,
				Err:      fmt.Errorf("parsing lexisnexis response: %w", err),
			}
		}
		return nil
	})
}

// LexisNexis response shapes.
type lexisSearchResponse struct {
	TotalCount int             `json:"totalCount"`
	More       bool            `json:"more"`
	Documents  []lexisDocument `json:"documents"`
}

type lexisDocument struct {
	DocumentID     string  `json:"documentId"`
	Citation       string  `json:"citation"`
	Name           string  `json:"name"`
	Court          string  `json:"court"`
	Jurisdiction   string  `json:"jurisdiction"`
	ContentType    string  `json:"contentType"`
	Date           string  `json:"date"`
	Relevance      float64 `json:"relevance"`
	ShepardsSignal string  `json:"shepardsSignal"`
}

type lexisDocumentResponse struct {
	DocumentID     string `json:"documentId"`
	Citation       string `json:"citation"`
	Name           string `json:"name"`
	Court          string `json:"court"`
	Jurisdiction   string `json:"jurisdiction"`
	ContentType    string `json:"contentType"`
	Date           string `json:"date"`
	FullText       string `json:"fullText"`
	ShepardsSignal string `json:"shepardsSignal"`
}

type lexisCitationResponse struct {
	NormalizedCite string `json:"normalizedCite"`
	Recognized     bool   `json:"recognized"`
	Signal         string `json:"signal"`
	Note           string `json:"note"`
}
