// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search implements the unified legal research engine: provider
// adapters for Westlaw and LexisNexis behind one interface, per-provider
// query optimization, multi-provider result fusion, and the
// cache-then-dispatch orchestration.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/meshintell/lexsearch/pkg/types"
)

// Provider is the uniform contract each legal research backend
// implements. Calls may block on the network and on the provider's
// internal rate limiter. A provider failure is a typed error, never a
// silently empty result set.
type Provider interface {
	Name() string
	Search(ctx context.Context, q types.Query) (types.ResultSet, error)
	GetDocument(ctx context.Context, id string) (types.Document, error)
	ValidateCitation(ctx context.Context, citation string) (types.CitationValidation, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindNetwork     ErrorKind = "network"
	KindStatus      ErrorKind = "status"
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindUnavailable ErrorKind = "unavailable"
	KindNotFound    ErrorKind = "not_found"
)

// ProviderError wraps a failure from one provider with its origin and
// classification.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SearchFailedError is returned when every dispatched provider failed.
// Individual provider failures are recovered as long as at least one
// provider succeeds.
type SearchFailedError struct {
	Causes []error
}

func (e *SearchFailedError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return "all providers failed: " + strings.Join(msgs, "; ")
}

// ErrDocumentNotFound marks a document id the provider does not know.
var ErrDocumentNotFound = errors.New("document not found")

// guard applies a provider's request-rate budget and circuit breaker
// around each outbound call. The limiter suspends callers until
// capacity frees (the per-call deadline still applies through ctx); an
// open breaker fails fast with KindUnavailable.
type guard struct {
	provider string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

func newGuard(provider string, cfg types.RateLimitConfig) *guard {
	requests := cfg.Requests
	if requests <= 0 {
		requests = 60
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return &guard{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(float64(requests)/window.Seconds()), requests),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: provider,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			Timeout: 30 * time.Second,
		}),
	}
}

// do runs fn under the rate limiter and breaker, classifying wait and
// breaker failures. fn's own error is passed through untouched so the
// adapter keeps control of its classification.
func (g *guard) do(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		kind := KindTimeout
		if ctx.Err() == context.Canceled {
			kind = KindNetwork
		}
		return &ProviderError{Provider: g.provider, Kind: kind, Err: err}
	}

	_, err := g.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &ProviderError{Provider: g.provider, Kind: KindUnavailable, Err: err}
	}
	return err
}

// classifyHTTPStatus maps a non-success status to an error kind.
func classifyHTTPStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	default:
		return KindStatus
	}
}
