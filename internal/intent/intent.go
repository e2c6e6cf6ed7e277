// Package intent implements the deterministic intent detector: a
// case-insensitive, diacritic-normalised fixed-string match over a closed
// vocabulary. There is no learned classifier and no regular-expression
// backtracking anywhere in this package — every pattern is a plain substring
// or whole-token comparison via [frtext].
package intent

import "github.com/lastminutejob75/standardiste/internal/frtext"

// Intent is one of the closed set of intent tags.
type Intent string

const (
	None     Intent = ""
	Yes      Intent = "YES"
	No       Intent = "NO"
	Booking  Intent = "BOOKING"
	Cancel   Intent = "CANCEL"
	Modify   Intent = "MODIFY"
	Transfer Intent = "TRANSFER"
	Abandon  Intent = "ABANDON"
	FAQ      Intent = "FAQ"
)

// MinTransferLength is the minimum utterance length (in runes, trimmed) for
// a TRANSFER pattern to count as a strong intent. Short barge-in fragments
// like "humain" are clarification-worthy, not an escalation order.
const MinTransferLength = 14

// Strong reports whether i can preempt the current dialogue.
func (i Intent) Strong() bool {
	return i == Cancel || i == Modify || i == Transfer
}

// Phrase tables. Matching is fixed-string on the normalised utterance;
// single-word entries are matched as whole tokens to avoid substring
// accidents ("non" inside "nonante").
var (
	cancelPhrases = []string{
		"annuler", "annulation", "j annule", "je veux plus", "ne venez plus",
		"supprimer mon rendez-vous", "supprimer le rendez-vous", "decommander",
	}
	modifyPhrases = []string{
		"modifier", "deplacer", "changer mon rendez-vous", "changer le rendez-vous",
		"reporter", "changer l heure", "changer la date", "un autre creneau",
	}
	transferPhrases = []string{
		"humain", "conseiller", "quelqu un", "une personne", "un agent",
		"parler a quelqu un", "secretaire", "standard", "operateur", "operatrice",
	}
	abandonPhrases = []string{
		"laisse tomber", "laissez tomber", "tant pis", "au revoir", "a plus",
		"bonne journee", "c est bon merci", "rien merci",
	}
	bookingPhrases = []string{
		"rendez-vous", "rendez vous", "rdv", "reserver", "reservation",
		"prendre rendez", "un creneau", "une consultation", "prendre date",
	}
	yesTokens = []string{
		"oui", "ouais", "ouaip", "yes", "ok", "d accord", "dac", "volontiers",
		"parfait", "exactement", "tout a fait", "bien sur", "absolument", "voila",
		"c est ca", "affirmatif",
	}
	noTokens = []string{
		"non", "nan", "pas du tout", "jamais", "negatif", "surtout pas",
		"non merci", "pas question",
	}
	correctionPhrases = []string{
		"attendez", "attends", "recommencez", "recommence", "c est pas ca",
		"non pas ca", "je me suis trompe", "erreur", "pardon je voulais dire",
		"en fait non",
	}
	faqPhrases = []string{
		"quels sont vos horaires", "vous etes ouverts", "ou etes-vous",
		"ou etes vous", "quelle adresse", "combien ca coute", "quel est le prix",
		"vous prenez la carte", "est-ce que vous", "est ce que vous",
		"c est combien", "quels sont les tarifs",
	}
)

// Detect returns the single strongest intent found in text, or [None].
// Precedence: strong intents first (they can preempt anything), then
// abandon, booking, FAQ, and finally the short yes/no acknowledgements.
func Detect(text string) Intent {
	if matchAny(text, cancelPhrases) {
		return Cancel
	}
	if matchAny(text, modifyPhrases) {
		return Modify
	}
	if matchAny(text, transferPhrases) {
		return Transfer
	}
	if matchAny(text, abandonPhrases) {
		return Abandon
	}
	if matchAny(text, bookingPhrases) {
		return Booking
	}
	if matchAny(text, faqPhrases) {
		return FAQ
	}
	if matchAny(text, yesTokens) {
		return Yes
	}
	if matchAny(text, noTokens) {
		return No
	}
	return None
}

// DetectStrong returns CANCEL, MODIFY, or TRANSFER when text carries one,
// applying the TRANSFER length guard, and [None] otherwise.
func DetectStrong(text string) Intent {
	switch {
	case matchAny(text, cancelPhrases):
		return Cancel
	case matchAny(text, modifyPhrases):
		return Modify
	case matchAny(text, transferPhrases):
		if utteranceLen(text) < MinTransferLength {
			return None
		}
		return Transfer
	}
	return None
}

// IsCorrection reports whether text is a correction request ("attendez",
// "c'est pas ça"). Correction is orthogonal to the intent tags: the engine
// replays the last question instead of advancing state.
func IsCorrection(text string) bool {
	return matchAny(text, correctionPhrases)
}

// matchAny tests text against a phrase table. Multi-word entries use
// normalised substring search; single-word entries must match a whole token.
func matchAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if containsSpace(p) {
			if frtext.ContainsPhrase(text, p) {
				return true
			}
		} else if frtext.HasToken(text, p) {
			return true
		}
	}
	return false
}

func containsSpace(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '-' {
			return true
		}
	}
	return false
}

// utteranceLen counts runes of the trimmed utterance.
func utteranceLen(text string) int {
	n := 0
	started := false
	pending := 0
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if started {
				pending++
			}
			continue
		}
		n += pending + 1
		pending = 0
		started = true
	}
	return n
}
