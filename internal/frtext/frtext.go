// Package frtext provides deterministic normalisation helpers for French
// user utterances. All intent, extraction, and FAQ matching in the engine
// operates on the normalised form so that accents, case, and elision never
// affect routing decisions.
package frtext

import "strings"

// diacriticFold maps the accented characters that occur in French input to
// their base letters. The set is closed: anything outside it passes through
// unchanged.
var diacriticFold = map[rune]rune{
	'à': 'a', 'â': 'a', 'ä': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'î': 'i', 'ï': 'i',
	'ô': 'o', 'ö': 'o',
	'ù': 'u', 'û': 'u', 'ü': 'u',
	'ç': 'c',
	'À': 'a', 'Â': 'a', 'Ä': 'a',
	'É': 'e', 'È': 'e', 'Ê': 'e', 'Ë': 'e',
	'Î': 'i', 'Ï': 'i',
	'Ô': 'o', 'Ö': 'o',
	'Ù': 'u', 'Û': 'u', 'Ü': 'u',
	'Ç': 'c',
}

// Normalize lowercases s and folds French diacritics to their base letters.
// Apostrophes (both ' and ’) are replaced by spaces so that elided forms
// ("j'aimerais") tokenise cleanly.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := diacriticFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		if r == '\'' || r == '’' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(unicodeLower(r))
	}
	return b.String()
}

// Tokens returns the whitespace- and punctuation-separated tokens of the
// normalised form of s.
func Tokens(s string) []string {
	norm := Normalize(s)
	return strings.FieldsFunc(norm, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', '.', ';', ':', '!', '?', '(', ')', '"':
			return true
		}
		return false
	})
}

// HasToken reports whether the normalised form of s contains token as a
// whole word.
func HasToken(s, token string) bool {
	for _, t := range Tokens(s) {
		if t == token {
			return true
		}
	}
	return false
}

// ContainsPhrase reports whether the normalised form of s contains the
// normalised form of phrase as a substring. This is fixed-string search —
// no regular expressions are involved anywhere in the matching path.
func ContainsPhrase(s, phrase string) bool {
	return strings.Contains(Normalize(s), Normalize(phrase))
}

// unicodeLower lowercases ASCII letters without pulling in the full Unicode
// case tables; non-ASCII runes not covered by the fold map pass through.
func unicodeLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
