// Package extract implements surface-level deterministic parsing of user
// utterances: names, phone numbers (including digit-by-digit French
// dictation), time-of-day preferences, and slot choices. Every extractor
// fails closed — when the input is ambiguous, it returns the zero value and
// false rather than guessing.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/frtext"
	"github.com/lastminutejob75/standardiste/internal/guard"
)

// nameMarkers introduce a self-identification ("je suis Jean Dupont").
var nameMarkers = [][]string{
	{"je", "m", "appelle"},
	{"je", "suis"},
	{"moi", "c", "est"},
	{"c", "est"},
	{"mon", "nom", "est"},
	{"de", "la", "part", "de"},
}

// nameStopwords are tokens that disqualify a candidate name token.
var nameStopwords = map[string]struct{}{
	"monsieur": {}, "madame": {}, "mademoiselle": {}, "docteur": {},
	"bonjour": {}, "bonsoir": {}, "merci": {}, "oui": {}, "non": {},
	"rendez-vous": {}, "rdv": {}, "le": {}, "la": {}, "un": {}, "une": {},
	"pour": {}, "avec": {}, "je": {}, "moi": {},
}

// Name conservatively extracts a two-token full name from text. It accepts
// either a marker pattern ("je m'appelle X Y", "c'est X Y") or a bare
// utterance of exactly two well-formed tokens ("Jean Dupont"). Anything
// else returns ("", false).
func Name(text string) (string, bool) {
	cleaned := guard.CleanVocalName(text)
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return "", false
	}

	// Marker pattern: take the two tokens that follow the marker.
	for _, marker := range nameMarkers {
		if idx := indexOfSeq(tokens, marker); idx >= 0 {
			rest := tokens[idx+len(marker):]
			if name, ok := wellFormedName(rest, 2); ok {
				return name, true
			}
		}
	}

	// Bare pattern: the whole utterance is exactly the name.
	if len(tokens) == 2 {
		if name, ok := wellFormedName(tokens, 2); ok {
			return name, true
		}
	}

	return "", false
}

// wellFormedName validates the first want tokens of candidates as name
// tokens (alphabetic, length ≥ 2, not stopwords) and returns them
// title-cased.
func wellFormedName(candidates []string, want int) (string, bool) {
	if len(candidates) < want {
		return "", false
	}
	parts := make([]string, 0, want)
	for _, t := range candidates[:want] {
		if !alphabetic(t) || len(t) < 2 {
			return "", false
		}
		if _, stop := nameStopwords[t]; stop {
			return "", false
		}
		parts = append(parts, titleCase(t))
	}
	return strings.Join(parts, " "), true
}

// digitWords maps spoken French number words to their numeric value.
// Composite forms ("soixante-douze", "quatre-vingt-trois") are assembled by
// the parser from these atoms.
var digitWords = map[string]int{
	"zero": 0, "un": 1, "deux": 2, "trois": 3, "quatre": 4,
	"cinq": 5, "six": 6, "sept": 7, "huit": 8, "neuf": 9,
	"dix": 10, "onze": 11, "douze": 12, "treize": 13, "quatorze": 14,
	"quinze": 15, "seize": 16,
	"vingt": 20, "trente": 30, "quarante": 40, "cinquante": 50,
	"soixante": 60,
}

// Phone extracts and normalises a phone number from text. It accepts mixed
// digits and French digit-word dictation ("zéro six, douze, trente-quatre…")
// and returns an E.164-like string ("+33612345678"). The extractor fails
// closed on anything that does not resolve to a valid French number shape.
func Phone(text string) (string, bool) {
	var digits strings.Builder

	tokens := frtext.Tokens(strings.ReplaceAll(text, "-", " "))
	i := 0
	for i < len(tokens) {
		t := tokens[i]

		// Literal digit groups ("06", "12", "0612345678").
		if numeric(t) {
			digits.WriteString(t)
			i++
			continue
		}

		v, ok := digitWords[t]
		if !ok {
			i++
			continue
		}

		// Compose "quatre vingt(s)" → 80, then optional trailing unit/teen.
		if t == "quatre" && i+1 < len(tokens) && strings.TrimSuffix(tokens[i+1], "s") == "vingt" {
			v = 80
			i++
		}
		// Tens followed by a unit or teen ("soixante douze" → 72). A bare
		// "dix" may itself carry a trailing unit ("soixante dix huit" → 78).
		if v >= 20 && i+1 < len(tokens) {
			if u, uok := digitWords[tokens[i+1]]; uok && u < 20 && u > 0 {
				v += u
				i++
				if u == 10 && i+1 < len(tokens) {
					if u2, u2ok := digitWords[tokens[i+1]]; u2ok && u2 < 10 && u2 > 0 {
						v += u2
						i++
					}
				}
			}
		}

		if v < 10 {
			fmt.Fprintf(&digits, "%d", v)
		} else {
			fmt.Fprintf(&digits, "%02d", v)
		}
		i++
	}

	return normalizePhone(digits.String())
}

// normalizePhone validates a raw digit string and renders it E.164-like.
func normalizePhone(raw string) (string, bool) {
	switch {
	case len(raw) == 10 && raw[0] == '0':
		return "+33" + raw[1:], true
	case len(raw) == 11 && strings.HasPrefix(raw, "33"):
		return "+" + raw, true
	case len(raw) == 9: // dictation that dropped the leading zero
		return "", false
	default:
		return "", false
	}
}

// TimePreference maps text to a [calendar.Preference]. The second return is
// false when the utterance carries no recognisable preference at all;
// "peu importe" and friends resolve to Unspecified with true.
func TimePreference(text string) (calendar.Preference, bool) {
	norm := frtext.Normalize(text)

	switch {
	case strings.Contains(norm, "matin"):
		return calendar.Morning, true
	case strings.Contains(norm, "apres midi"),
		strings.Contains(norm, "apres-midi"),
		frtext.HasToken(text, "aprem"):
		return calendar.Afternoon, true
	case strings.Contains(norm, "peu importe"),
		strings.Contains(norm, "n importe"),
		strings.Contains(norm, "comme vous voulez"),
		strings.Contains(norm, "quand vous voulez"),
		frtext.HasToken(text, "indifferent"):
		return calendar.Unspecified, true
	}
	return calendar.Unspecified, false
}

// choiceWords maps cardinal and ordinal tokens to a 1-based slot index.
var choiceWords = map[string]int{
	"un": 1, "1": 1, "premier": 1, "premiere": 1,
	"deux": 2, "2": 2, "deuxieme": 2, "second": 2, "seconde": 2,
	"trois": 3, "3": 3, "troisieme": 3, "dernier": 3,
}

// dayNames are the normalised French weekday names, indexed Sunday-first to
// align with time.Weekday.
var dayNames = [7]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

// SlotChoice resolves text to a slot index 1–3 against the offered slots.
// It recognises cardinals ("deux"), ordinals ("le premier"), day-based
// references ("celui de mardi") when exactly one slot falls on that day,
// and explicit hour references ("14h") when exactly one slot starts at that
// hour. Conflicting or ambiguous signals return 0.
func SlotChoice(text string, slots []calendar.SlotOffer) int {
	tokens := frtext.Tokens(text)

	picked := 0
	for _, t := range tokens {
		idx, ok := choiceWords[t]
		if !ok {
			continue
		}
		if idx > len(slots) {
			return 0
		}
		if picked != 0 && picked != idx {
			return 0 // two different numbers in one reply
		}
		picked = idx
	}
	if picked != 0 {
		return picked
	}

	// Day hint ("celui de mardi").
	for _, t := range tokens {
		for d, day := range dayNames {
			if t != day {
				continue
			}
			match := 0
			for _, s := range slots {
				if int(s.Start.Weekday()) == d {
					if match != 0 {
						return 0 // two offers on the same day
					}
					match = s.Index
				}
			}
			if match != 0 {
				return match
			}
		}
	}

	// Hour hint ("14h", "14 heures").
	if hour, ok := hourReference(tokens); ok {
		match := 0
		for _, s := range slots {
			if s.Start.Hour() == hour {
				if match != 0 {
					return 0
				}
				match = s.Index
			}
		}
		return match
	}

	return 0
}

// hourReference scans tokens for "14h", "14h30", or "14 heures" forms.
func hourReference(tokens []string) (int, bool) {
	for i, t := range tokens {
		if h, ok := parseHourToken(t); ok {
			return h, true
		}
		if numeric(t) && i+1 < len(tokens) {
			next := strings.TrimSuffix(tokens[i+1], "s")
			if next == "heure" {
				if h, err := strconv.Atoi(t); err == nil && h >= 0 && h <= 23 {
					return h, true
				}
			}
		}
	}
	return 0, false
}

// parseHourToken parses "14h" or "9h30" into the hour component.
func parseHourToken(t string) (int, bool) {
	hIdx := strings.IndexByte(t, 'h')
	if hIdx <= 0 {
		return 0, false
	}
	head := t[:hIdx]
	tail := t[hIdx+1:]
	if !numeric(head) || (tail != "" && !numeric(tail)) {
		return 0, false
	}
	h, err := strconv.Atoi(head)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

func alphabetic(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return s != ""
}

func numeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// indexOfSeq returns the index where seq begins inside tokens, or -1.
func indexOfSeq(tokens, seq []string) int {
	if len(seq) == 0 || len(tokens) < len(seq) {
		return -1
	}
	for i := 0; i+len(seq) <= len(tokens); i++ {
		match := true
		for j := range seq {
			if tokens[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
