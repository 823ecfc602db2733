// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"

	"github.com/meshintell/lexsearch/pkg/types"
)

// Optimize rewrites a generic query into a provider's dialect: boolean
// connectors are translated, the result cap is clamped to the
// provider's maximum, and the mode may switch when the text carries
// provider trigger syntax. Pure and deterministic; no I/O.
func Optimize(q types.Query, provider string, cfg types.ProviderConfig) types.Query {
	switch provider {
	case ProviderWestlaw:
		q = optimizeWestlaw(q)
	case ProviderLexisNexis:
		q = optimizeLexisNexis(q)
	}

	if cfg.MaxResults > 0 && (q.MaxResults <= 0 || q.MaxResults > cfg.MaxResults) {
		q.MaxResults = cfg.MaxResults
	}
	return q
}

// optimizeWestlaw translates connectors into Westlaw Terms &
// Connectors syntax: AND becomes "&", NOT becomes "%", OR stays.
// Proximity connectors (/s, /p) force boolean mode; key-number or
// headnote functions (k(...), he(...)) switch to topic mode.
func optimizeWestlaw(q types.Query) types.Query {
	if q.Mode == types.ModeBoolean || hasConnectorTokens(q.Text) {
		q.Text = rewriteConnectors(q.Text, "&", "OR", "%")
		q.Mode = types.ModeBoolean
	}
	lower := strings.ToLower(q.Text)
	if strings.Contains(lower, "/s") || strings.Contains(lower, "/p") {
		q.Mode = types.ModeBoolean
	}
	if strings.Contains(lower, "k(") || strings.Contains(lower, "he(") {
		q.Mode = types.ModeTopic
	}
	return q
}

// optimizeLexisNexis uppercases connectors (AND, OR, AND NOT) and
// switches to citation mode on a shep: prefix (Shepard's lookup).
func optimizeLexisNexis(q types.Query) types.Query {
	if q.Mode == types.ModeBoolean || hasConnectorTokens(q.Text) {
		q.Text = rewriteConnectors(q.Text, "AND", "OR", "AND NOT")
		q.Mode = types.ModeBoolean
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(q.Text)), "shep:") {
		q.Text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(q.Text), "shep:"))
		q.Mode = types.ModeCitation
	}
	return q
}

// hasConnectorTokens reports whether the text uses explicit boolean
// connectors (case-insensitive whole words).
func hasConnectorTokens(text string) bool {
	for _, field := range strings.Fields(text) {
		switch strings.ToUpper(field) {
		case "AND", "OR", "NOT", "&", "%":
			return true
		}
	}
	return false
}

// rewriteConnectors replaces whole-word AND/OR/NOT tokens (and the
// symbols & / %) with the given dialect operators, preserving every
// other token verbatim.
func rewriteConnectors(text, and, or, not string) string {
	fields := strings.Fields(text)
	for i, field := range fields {
		switch strings.ToUpper(field) {
		case "AND", "&":
			fields[i] = and
		case "OR":
			fields[i] = or
		case "NOT", "%":
			fields[i] = not
		}
	}
	return strings.Join(fields, " ")
}
