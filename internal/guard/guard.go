// Package guard implements the input validators that run at the head of the
// message pipeline: emptiness, length cap, language detection, and
// spam/abuse screening. All functions are pure — they never touch session
// state and return booleans or strings only.
package guard

import (
	"strings"

	"github.com/lastminutejob75/standardiste/internal/frtext"
)

// DefaultMaxMessageLength is the strict character cap applied when the
// tenant configuration does not override it.
const DefaultMaxMessageLength = 500

// IsEmpty reports whether text contains no non-whitespace characters.
func IsEmpty(text string) bool {
	return strings.TrimSpace(text) == ""
}

// IsTooLong reports whether text exceeds max characters (runes, not bytes,
// so accented input is not penalised). A non-positive max falls back to
// [DefaultMaxMessageLength].
func IsTooLong(text string, max int) bool {
	if max <= 0 {
		max = DefaultMaxMessageLength
	}
	return len([]rune(text)) > max
}

// frenchMarkers are high-frequency French function words. One hit is enough
// to accept the utterance as French.
var frenchMarkers = []string{
	"le", "la", "les", "un", "une", "des", "de", "du", "je", "tu", "il",
	"elle", "nous", "vous", "ils", "on", "est", "suis", "pas", "oui", "non",
	"bonjour", "merci", "pour", "avec", "demain", "matin", "midi", "soir",
	"rendez-vous", "rdv", "annuler", "reserver", "voudrais", "aimerais",
	"monsieur", "madame", "euh", "ca", "c", "j", "d", "l", "s", "qu",
}

// englishOnlyMarkers are words that, in the absence of any French marker,
// indicate the caller is not speaking French.
var englishOnlyMarkers = []string{
	"the", "hello", "please", "appointment", "book", "cancel", "would",
	"want", "need", "thanks", "thank", "speak", "english", "can", "you",
}

// IsFrench heuristically detects the utterance language. It returns false
// only with high confidence of non-French input: the text must contain no
// French marker token and at least two English marker tokens, or be written
// predominantly in a non-Latin script. Short or ambiguous input is accepted
// as French — the downstream recovery machinery handles it better than a
// false language rejection would.
func IsFrench(text string) bool {
	tokens := frtext.Tokens(text)
	if len(tokens) == 0 {
		return true
	}

	nonLatin := 0
	total := 0
	for _, r := range text {
		if r == ' ' {
			continue
		}
		total++
		if r > 0x024F { // beyond Latin Extended-B
			nonLatin++
		}
	}
	if total > 0 && nonLatin*2 > total {
		return false
	}

	english := 0
	for _, t := range tokens {
		for _, m := range frenchMarkers {
			if t == m {
				return true
			}
		}
		for _, m := range englishOnlyMarkers {
			if t == m {
				english++
				break
			}
		}
	}
	return english < 2
}

// abuseBlocklist holds normalised substrings that trigger a silent transfer.
// Kept short on purpose: false positives hang up real callers.
var abuseBlocklist = []string{
	"connard", "connasse", "encule", "salope", "pute", "nique", "ta gueule",
	"fdp", "batard",
}

// IsSpamOrAbuse reports whether text trips the block-list or the structural
// spam heuristics (extreme repetition, URL floods, non-textual noise).
func IsSpamOrAbuse(text string) bool {
	norm := frtext.Normalize(text)

	for _, w := range abuseBlocklist {
		if strings.Contains(norm, w) {
			return true
		}
	}

	// URL flood.
	if strings.Count(norm, "http://")+strings.Count(norm, "https://") >= 2 {
		return true
	}

	// Single character repeated to absurdity ("aaaaaaaaaaaaaaaa…").
	if runLength(norm) >= 20 {
		return true
	}

	// Mostly non-letter noise in a long message.
	letters, total := 0, 0
	for _, r := range norm {
		if r == ' ' {
			continue
		}
		total++
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			letters++
		}
	}
	if total >= 40 && letters*2 < total {
		return true
	}

	return false
}

// vocalFillers are hesitation tokens stripped from voice-channel names
// before extraction.
var vocalFillers = map[string]struct{}{
	"euh": {}, "heu": {}, "hum": {}, "hmm": {}, "bah": {}, "ben": {},
	"alors": {}, "voila": {}, "donc": {}, "bon": {},
}

// CleanVocalName strips filler tokens and lowercases text diacritic-aware,
// returning the cleaned utterance for name extraction. The result keeps
// token order and single spaces.
func CleanVocalName(text string) string {
	var kept []string
	for _, t := range frtext.Tokens(text) {
		if _, filler := vocalFillers[t]; filler {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

// runLength returns the length of the longest run of a single repeated rune.
func runLength(s string) int {
	var prev rune
	run, best := 0, 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > best {
			best = run
		}
	}
	return best
}
