// Package prompt is the single source of truth for every user-visible
// string. Handlers never build user-facing text by hand; they name a [Key],
// pass placeholder values, and the catalog renders the channel-appropriate
// template. Keeping all phrasing here makes the engine's output auditable
// and lets a tenant review the whole script in one place.
package prompt

import (
	"strings"

	"github.com/lastminutejob75/standardiste/internal/session"
)

// Key identifies one catalog entry.
type Key string

// System notices.
const (
	KeyEmptyInput   Key = "system.empty_input"
	KeyTooLong      Key = "system.too_long"
	KeyFrenchOnly   Key = "system.french_only"
	KeyExpired      Key = "system.session_expired"
	KeyClosed       Key = "system.conversation_closed"
	KeySafeReply    Key = "system.safe_reply"
	KeyInternalFail Key = "system.internal_fail"
)

// Greeting and qualification.
const (
	KeyGreeting      Key = "greeting"
	KeyAskName       Key = "qualif.ask_name"
	KeyAskMotif      Key = "qualif.ask_motif"
	KeyAskPreference Key = "qualif.ask_preference"
	KeyAskContact    Key = "qualif.ask_contact"
	KeyConfirmNumber Key = "qualif.confirm_number"
	KeyConfirmPref   Key = "qualif.confirm_preference"
)

// Slot proposal and booking outcome.
const (
	KeySlots1        Key = "slots.one"
	KeySlots2        Key = "slots.two"
	KeySlots3        Key = "slots.three"
	KeyNoSlots       Key = "slots.none"
	KeyBookingDone   Key = "booking.confirmed"
	KeySlotTaken     Key = "booking.slot_taken"
	KeyFallbackNote  Key = "booking.fallback_note"
)

// Cancel and modify flows.
const (
	KeyCancelAskName  Key = "cancel.ask_name"
	KeyCancelConfirm  Key = "cancel.confirm"
	KeyCancelDone     Key = "cancel.done"
	KeyCancelKept     Key = "cancel.kept"
	KeyCancelNotFound Key = "cancel.not_found"
	KeyCancelRetry    Key = "cancel.not_found_retry"
	KeyModifyAskName  Key = "modify.ask_name"
	KeyModifyConfirm  Key = "modify.confirm"
	KeyModifyProceed  Key = "modify.proceed"
	KeyModifyKept     Key = "modify.kept"
	KeyModifyNotFound Key = "modify.not_found"
	KeyModifyRetry    Key = "modify.not_found_retry"
)

// Clarification, FAQ, router, transfer.
const (
	KeyClarify1     Key = "clarify.level1"
	KeyClarify2     Key = "clarify.level2"
	KeyStillUnclear Key = "clarify.still_unclear"
	KeyFAQAnswer    Key = "faq.answer"
	KeyFAQMiss      Key = "faq.miss"
	KeyGoodbye      Key = "faq.goodbye"
	KeyRouterMenu   Key = "router.menu"
	KeyRouterRetry  Key = "router.retry"
	KeyRouterBook   Key = "router.to_booking"
	KeyRouterCancel Key = "router.to_cancel"
	KeyRouterFAQ    Key = "router.to_faq"
	KeyTransfer     Key = "transfer"
)

// SafeReplyText is the last-line fallback utterance. It is also reachable
// through [KeySafeReply]; the constant exists so the barrier never depends
// on catalog lookup succeeding.
const SafeReplyText = "D'accord. Je vous écoute."

// variants holds the per-channel renderings of one template. An empty text
// variant means "same as voice".
type variants struct {
	voice string
	text  string
}

func (v variants) forChannel(ch session.Channel) string {
	if ch == session.ChannelText && v.text != "" {
		return v.text
	}
	return v.voice
}

var templates = map[Key]variants{
	KeyEmptyInput: {
		voice: "Je ne vous ai pas entendu. Pouvez-vous répéter ?",
		text:  "Je n'ai pas reçu votre message. Pouvez-vous réessayer ?",
	},
	KeyTooLong: {
		voice: "Votre message est trop long. Pouvez-vous reformuler plus simplement ?",
	},
	KeyFrenchOnly: {
		voice: "Je suis désolé, je ne parle que français. Pouvez-vous reformuler en français ?",
	},
	KeyExpired: {
		voice: "Notre échange précédent a expiré. Reprenons depuis le début : que puis-je faire pour vous ?",
	},
	KeyClosed: {
		voice: "Cette conversation est terminée. Merci de votre appel et à bientôt.",
		text:  "Cette conversation est terminée. Merci et à bientôt.",
	},
	KeySafeReply: {
		voice: SafeReplyText,
	},
	KeyInternalFail: {
		voice: "Je rencontre un problème technique. Je vous mets en relation avec un conseiller.",
	},

	KeyGreeting: {
		voice: "{business_name}, bonjour ! Souhaitez-vous prendre un rendez-vous ?",
		text:  "Bienvenue chez {business_name}. Souhaitez-vous prendre un rendez-vous ?",
	},
	KeyAskName: {
		voice: "Très bien. Quel est votre nom et prénom ?",
	},
	KeyAskMotif: {
		voice: "Merci {first_name}. Quel est le motif de votre rendez-vous ?",
	},
	KeyAskPreference: {
		voice: "Préférez-vous le matin ou l'après-midi ?",
	},
	KeyAskContact: {
		voice: "À quel numéro peut-on vous joindre ?",
	},
	KeyConfirmNumber: {
		voice: "Votre numéro est bien le {phone} ?",
	},
	KeyConfirmPref: {
		voice: "Vous préférez donc {preference_label}, c'est bien ça ?",
	},

	KeySlots1: {
		voice: "J'ai un créneau disponible : {slot1}. Dites oui pour le réserver, ou non.",
	},
	KeySlots2: {
		voice: "J'ai deux créneaux. Un : {slot1}. Deux : {slot2}. Dites un ou deux.",
	},
	KeySlots3: {
		voice: "J'ai trois créneaux. Un : {slot1}. Deux : {slot2}. Trois : {slot3}. Dites un, deux ou trois.",
	},
	KeyNoSlots: {
		voice: "Je n'ai aucun créneau disponible sur cette période.",
	},
	KeyBookingDone: {
		voice: "C'est noté {first_name}, votre rendez-vous est confirmé pour {slot_label}. À bientôt !",
	},
	KeySlotTaken: {
		voice: "Ce créneau vient d'être réservé par quelqu'un d'autre.",
	},
	KeyFallbackNote: {
		voice: "C'est noté {first_name}, votre demande pour {slot_label} est enregistrée. Nous vous confirmerons le rendez-vous très vite.",
	},

	KeyCancelAskName: {
		voice: "Bien sûr. À quel nom est le rendez-vous à annuler ?",
	},
	KeyCancelConfirm: {
		voice: "J'ai trouvé un rendez-vous {slot_label}. Confirmez-vous l'annulation ?",
	},
	KeyCancelDone: {
		voice: "Votre rendez-vous est annulé. Merci de votre appel.",
	},
	KeyCancelKept: {
		voice: "Très bien, votre rendez-vous est maintenu. Puis-je faire autre chose pour vous ?",
	},
	KeyCancelNotFound: {
		voice: "Je ne trouve pas de rendez-vous à ce nom. Pouvez-vous répéter le nom ?",
	},
	KeyCancelRetry: {
		voice: "Toujours aucun rendez-vous à ce nom. Épelez-le, par exemple : Dupont, D-U-P-O-N-T.",
	},
	KeyModifyAskName: {
		voice: "D'accord. À quel nom est le rendez-vous à modifier ?",
	},
	KeyModifyConfirm: {
		voice: "J'ai trouvé un rendez-vous {slot_label}. Confirmez-vous vouloir le déplacer ?",
	},
	KeyModifyProceed: {
		voice: "Très bien, reprenons. Préférez-vous le matin ou l'après-midi ?",
	},
	KeyModifyKept: {
		voice: "Très bien, votre rendez-vous reste inchangé. Puis-je faire autre chose pour vous ?",
	},
	KeyModifyNotFound: {
		voice: "Je ne trouve pas de rendez-vous à ce nom. Pouvez-vous répéter le nom ?",
	},
	KeyModifyRetry: {
		voice: "Toujours aucun rendez-vous à ce nom. Épelez-le, par exemple : Dupont, D-U-P-O-N-T.",
	},

	KeyClarify1: {
		voice: "Je n'ai pas bien compris. Pouvez-vous reformuler ?",
	},
	KeyClarify2: {
		voice: "Désolé, je n'ai toujours pas compris. Par exemple, dites : je voudrais un rendez-vous.",
	},
	KeyStillUnclear: {
		voice: "Je suis désolé de ne pas vous comprendre. Je vous mets en relation avec un conseiller.",
	},
	KeyFAQAnswer: {
		voice: "{answer} Souhaitez-vous autre chose, par exemple prendre un rendez-vous ?",
	},
	KeyFAQMiss: {
		voice: "Je ne suis pas sûr d'avoir la réponse. Pouvez-vous poser votre question autrement ?",
	},
	KeyGoodbye: {
		voice: "Très bien. Merci de votre appel et bonne journée !",
		text:  "Très bien. Merci et bonne journée !",
	},
	KeyRouterMenu: {
		voice: "Reprenons simplement. Dites : un, pour prendre un rendez-vous. Deux, pour annuler ou modifier un rendez-vous. Trois, pour poser une question. Quatre, pour parler à un conseiller.",
		text:  "Reprenons simplement. Répondez : 1 pour prendre un rendez-vous, 2 pour annuler ou modifier, 3 pour poser une question, 4 pour parler à un conseiller.",
	},
	KeyRouterRetry: {
		voice: "Dites simplement : un, deux, trois ou quatre.",
		text:  "Répondez simplement 1, 2, 3 ou 4.",
	},
	KeyRouterBook: {
		voice: "Parfait, prenons un rendez-vous. Quel est votre nom et prénom ?",
	},
	KeyRouterCancel: {
		voice: "D'accord. À quel nom est le rendez-vous concerné ?",
	},
	KeyRouterFAQ: {
		voice: "Je vous écoute, quelle est votre question ?",
	},
	KeyTransfer: {
		voice: "Je vous mets en relation avec un conseiller, merci de patienter.",
		text:  "Un conseiller va prendre le relais, merci de patienter.",
	},
}

// clarifications maps (recovery context, fail level) to the graduated
// re-ask prompts. Level 3 has no entry: the caller escalates instead.
var clarifications = map[session.FailContext]map[int]variants{
	session.FailSlotChoice: {
		1: {voice: "Je n'ai pas compris votre choix. Dites un, deux ou trois."},
		2: {voice: "Pour choisir un créneau, dites par exemple : le premier, ou le deux."},
	},
	session.FailName: {
		1: {voice: "Je n'ai pas bien saisi votre nom. Pouvez-vous le répéter ?"},
		2: {voice: "Donnez-moi votre prénom puis votre nom, par exemple : Jean Dupont."},
	},
	session.FailPhone: {
		1: {voice: "Je n'ai pas bien noté votre numéro. Pouvez-vous le répéter ?"},
		2: {voice: "Dictez votre numéro chiffre par chiffre, par exemple : zéro six, douze, trente-quatre, cinquante-six, soixante-dix-huit."},
	},
	session.FailPreference: {
		1: {voice: "Préférez-vous plutôt le matin ou l'après-midi ?"},
		2: {voice: "Dites simplement : le matin, l'après-midi, ou peu importe."},
	},
	session.FailContactConfirm: {
		1: {voice: "Ce numéro est-il le bon ? Répondez par oui ou par non."},
		2: {voice: "Dites oui si ce numéro est correct, ou non pour en donner un autre."},
	},
}

// Catalog renders templates for one tenant. It is immutable after creation
// and safe for concurrent use.
type Catalog struct {
	businessName string
}

// NewCatalog returns a catalog bound to the tenant's business name, which
// is interpolated into any template carrying {business_name}.
func NewCatalog(businessName string) *Catalog {
	return &Catalog{businessName: businessName}
}

// Render produces the final string for key on channel ch, substituting the
// given placeholder values. Unknown keys render empty; the engine's
// safe-reply barrier turns that into the fallback utterance.
func (c *Catalog) Render(key Key, ch session.Channel, vars map[string]string) string {
	v, ok := templates[key]
	if !ok {
		return ""
	}
	return c.substitute(v.forChannel(ch), vars)
}

// Clarification returns the graduated re-ask for (context, level), already
// rendered. ok is false when the level is exhausted and the caller must
// escalate.
func (c *Catalog) Clarification(fc session.FailContext, level int, ch session.Channel) (string, bool) {
	levels, ok := clarifications[fc]
	if !ok {
		return "", false
	}
	v, ok := levels[level]
	if !ok {
		return "", false
	}
	return c.substitute(v.forChannel(ch), nil), true
}

// Has reports whether key exists in the catalog. Test helper.
func (c *Catalog) Has(key Key) bool {
	_, ok := templates[key]
	return ok
}

func (c *Catalog) substitute(tpl string, vars map[string]string) string {
	if !strings.ContainsRune(tpl, '{') {
		return tpl
	}
	pairs := make([]string, 0, 2*(len(vars)+1))
	pairs = append(pairs, "{business_name}", c.businessName)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Vars is a convenience constructor for placeholder maps.
func Vars(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}
