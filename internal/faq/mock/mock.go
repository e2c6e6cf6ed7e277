// Package mock provides an in-memory mock implementation of [faq.Matcher]
// for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/lastminutejob75/standardiste/internal/faq"
)

// Compile-time interface assertion.
var _ faq.Matcher = (*Matcher)(nil)

// Matcher is a mock implementation of [faq.Matcher].
type Matcher struct {
	mu sync.Mutex

	// MatchResult is returned by [Matcher.Match].
	MatchResult faq.Match

	// MatchError is the error returned by [Matcher.Match].
	MatchError error

	// MatchCalls records the queries passed to Match.
	MatchCalls []string
}

// Match implements [faq.Matcher].
func (m *Matcher) Match(_ context.Context, _ string, query string) (faq.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchCalls = append(m.MatchCalls, query)
	return m.MatchResult, m.MatchError
}
