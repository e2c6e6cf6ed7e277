// Package fsm defines the conversation states and the transition whitelist.
//
// The whitelist is the single authority on which state changes are legal.
// Handlers propose a target state; the engine validates the change through
// [Allowed] and treats any rejected transition as an internal fault (the
// session is escalated to [Transferred], never left in limbo).
//
// The table is immutable at runtime and safe for concurrent reads.
package fsm

// State is a conversation state. The set is closed; see the constants below.
type State string

const (
	Start            State = "START"
	QualifName       State = "QUALIF_NAME"
	QualifMotif      State = "QUALIF_MOTIF"
	QualifPref       State = "QUALIF_PREF"
	QualifContact    State = "QUALIF_CONTACT"
	ContactConfirm   State = "CONTACT_CONFIRM"
	WaitConfirm      State = "WAIT_CONFIRM"
	CancelName       State = "CANCEL_NAME"
	CancelConfirm    State = "CANCEL_CONFIRM"
	ModifyName       State = "MODIFY_NAME"
	ModifyConfirm    State = "MODIFY_CONFIRM"
	Clarify          State = "CLARIFY"
	FAQAnswered      State = "FAQ_ANSWERED"
	PreferenceConfirm State = "PREFERENCE_CONFIRM"
	IntentRouter     State = "INTENT_ROUTER"
	Confirmed        State = "CONFIRMED"
	Transferred      State = "TRANSFERRED"
)

// States lists every state, terminal states last.
var States = []State{
	Start, QualifName, QualifMotif, QualifPref, QualifContact,
	ContactConfirm, WaitConfirm, CancelName, CancelConfirm,
	ModifyName, ModifyConfirm, Clarify, FAQAnswered, PreferenceConfirm,
	IntentRouter, Confirmed, Transferred,
}

// Valid reports whether s is a recognised state.
func (s State) Valid() bool {
	for _, st := range States {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a terminal state. Once a session reaches a
// terminal state, every subsequent turn returns the fixed conversation-closed
// notice without side effects.
func (s State) Terminal() bool {
	return s == Confirmed || s == Transferred
}

// transitions is the per-state whitelist. Universal escapes (strong-intent
// overrides and intent-router entry from any non-terminal state) are handled
// by [Allowed] directly rather than repeated per row.
var transitions = map[State][]State{
	Start:            {QualifName, Clarify, FAQAnswered, Confirmed},
	Clarify:          {QualifName, FAQAnswered, Clarify, Confirmed},
	QualifName:       {QualifMotif, QualifPref},
	QualifMotif:      {QualifPref},
	QualifPref:       {QualifContact, WaitConfirm, ContactConfirm, PreferenceConfirm},
	PreferenceConfirm: {QualifContact, WaitConfirm, ContactConfirm, QualifPref},
	QualifContact:    {ContactConfirm, WaitConfirm},
	ContactConfirm:   {WaitConfirm, QualifContact},
	WaitConfirm:      {Confirmed},
	CancelName:       {CancelConfirm},
	CancelConfirm:    {Confirmed, Start},
	ModifyName:       {ModifyConfirm},
	ModifyConfirm:    {QualifPref, Start},
	FAQAnswered:      {QualifName, FAQAnswered, Confirmed},
	IntentRouter:     {QualifName, CancelName, Start},
}

// universalTargets may be entered from any non-terminal state: the strong
// intents (cancel, modify, transfer) and the intent-router stabilisation
// state.
var universalTargets = map[State]struct{}{
	CancelName:  {},
	ModifyName:  {},
	Transferred: {},
	IntentRouter: {},
}

// Allowed reports whether the transition from → to is in the whitelist.
// Staying in the same state is not a transition and is always permitted.
// Nothing leaves a terminal state.
func Allowed(from, to State) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if _, ok := universalTargets[to]; ok {
		return true
	}
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
