package faq

import (
	"context"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/lastminutejob75/standardiste/internal/frtext"
)

// Compile-time assertion that Lexical satisfies the Matcher interface.
var _ Matcher = (*Lexical)(nil)

// Lexical is the default deterministic matcher. Scoring blends token-set
// overlap (which tolerates word reordering) with Jaro-Winkler similarity on
// the normalised full strings (which tolerates small misspellings and STT
// noise). Entries are indexed per tenant at construction time and the
// matcher is immutable afterwards.
type Lexical struct {
	byTenant map[string][]indexedEntry
}

type indexedEntry struct {
	entry    Entry
	forms    []string            // normalised question + patterns
	tokenSet map[string]struct{} // union of all form tokens
}

// stopTokens are high-frequency French function words excluded from token
// overlap so that "quels sont vos horaires" and "vos horaires" score alike.
var stopTokens = map[string]struct{}{
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {},
	"de": {}, "du": {}, "a": {}, "au": {}, "aux": {}, "et": {}, "ou": {},
	"est": {}, "sont": {}, "vous": {}, "votre": {}, "vos": {}, "je": {},
	"que": {}, "quel": {}, "quels": {}, "quelle": {}, "quelles": {},
	"ce": {}, "c": {}, "qu": {}, "pour": {}, "il": {}, "on": {},
}

// NewLexical indexes entries per tenant.
func NewLexical(entries map[string][]Entry) *Lexical {
	idx := make(map[string][]indexedEntry, len(entries))
	for tenant, list := range entries {
		indexed := make([]indexedEntry, 0, len(list))
		for _, e := range list {
			ie := indexedEntry{
				entry:    e,
				tokenSet: make(map[string]struct{}),
			}
			for _, raw := range append([]string{e.Question}, e.Patterns...) {
				form := frtext.Normalize(raw)
				if form == "" {
					continue
				}
				ie.forms = append(ie.forms, form)
				for _, t := range strings.Fields(form) {
					if _, stop := stopTokens[t]; !stop {
						ie.tokenSet[t] = struct{}{}
					}
				}
			}
			indexed = append(indexed, ie)
		}
		idx[tenant] = indexed
	}
	return &Lexical{byTenant: idx}
}

// Match implements [Matcher]. A tenant with no entries scores zero; it is
// not an error.
func (l *Lexical) Match(_ context.Context, tenantID, query string) (Match, error) {
	norm := frtext.Normalize(query)
	if norm == "" {
		return Match{}, nil
	}
	queryTokens := contentTokens(norm)

	var best Match
	for _, ie := range l.byTenant[tenantID] {
		score := l.score(norm, queryTokens, ie)
		if score > best.Score {
			best = Match{ID: ie.entry.ID, Answer: ie.entry.Answer, Score: score}
		}
	}
	return best, nil
}

// score is the max over all entry forms of a 60/40 blend of token overlap
// and Jaro-Winkler similarity. longTolerance is false for standard scoring.
func (l *Lexical) score(queryNorm string, queryTokens []string, ie indexedEntry) float64 {
	overlap := tokenOverlap(queryTokens, ie.tokenSet)

	var jw float64
	for _, form := range ie.forms {
		if s := matchr.JaroWinkler(queryNorm, form, false); s > jw {
			jw = s
		}
	}

	return 0.6*overlap + 0.4*jw
}

// tokenOverlap is the fraction of query content tokens present in the
// entry's token set. An empty query token list contributes nothing.
func tokenOverlap(queryTokens []string, entrySet map[string]struct{}) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range queryTokens {
		if _, ok := entrySet[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

func contentTokens(norm string) []string {
	fields := strings.Fields(norm)
	out := fields[:0]
	for _, t := range fields {
		if _, stop := stopTokens[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}
