// Package faq defines the FAQ matcher contract and the default lexical
// implementation. Matching is deterministic: normalised token overlap plus
// Jaro-Winkler string similarity, no learned models.
package faq

import "context"

// Entry is one canonical question/answer pair for a tenant. Patterns are
// alternative phrasings of the same question; the matcher scores the user
// query against the question and every pattern and keeps the best.
type Entry struct {
	ID       string   `yaml:"id"`
	Question string   `yaml:"question"`
	Patterns []string `yaml:"patterns,omitempty"`
	Answer   string   `yaml:"answer"`
}

// Match is a scored result. Score is in [0, 1]; the engine compares it
// against the tenant's configured threshold.
type Match struct {
	ID     string
	Answer string
	Score  float64
}

// Matcher scores a user query against a tenant's FAQ entries. Implementations
// must be non-blocking (in-memory) and safe for concurrent use.
type Matcher interface {
	Match(ctx context.Context, tenantID, query string) (Match, error)
}
