package fsm

import "testing"

func TestValid(t *testing.T) {
	for _, s := range States {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if State("BOGUS").Valid() {
		t.Error("unknown state should be invalid")
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range States {
		want := s == Confirmed || s == Transferred
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"happy path start", Start, QualifName, true},
		{"name to motif", QualifName, QualifMotif, true},
		{"name skips motif on voice", QualifName, QualifPref, true},
		{"pref to contact", QualifPref, QualifContact, true},
		{"pref to tentative confirm", QualifPref, PreferenceConfirm, true},
		{"contact readback", QualifContact, ContactConfirm, true},
		{"readback to slots", ContactConfirm, WaitConfirm, true},
		{"booking done", WaitConfirm, Confirmed, true},
		{"cancel flow", CancelName, CancelConfirm, true},
		{"cancel kept", CancelConfirm, Start, true},
		{"modify rebooks", ModifyConfirm, QualifPref, true},
		{"router to booking", IntentRouter, QualifName, true},
		{"router to cancel", IntentRouter, CancelName, true},

		// Universal escapes.
		{"cancel override mid-booking", WaitConfirm, CancelName, true},
		{"modify override mid-faq", FAQAnswered, ModifyName, true},
		{"transfer from anywhere", QualifMotif, Transferred, true},
		{"router from anywhere", QualifContact, IntentRouter, true},

		// Self-transitions are not transitions.
		{"stay put", WaitConfirm, WaitConfirm, true},
		{"terminal stay put", Confirmed, Confirmed, true},

		// Forbidden jumps.
		{"start cannot book directly", Start, WaitConfirm, false},
		{"no skipping to confirmed", QualifName, Confirmed, false},
		{"backwards jump", WaitConfirm, QualifName, false},

		// Nothing leaves a terminal state.
		{"confirmed is final", Confirmed, Start, false},
		{"transferred is final", Transferred, IntentRouter, false},
		{"transferred no re-transfer", Transferred, CancelName, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(tc.from, tc.to); got != tc.want {
				t.Errorf("Allowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestAllowed_EveryTargetIsValidState(t *testing.T) {
	for from, targets := range transitions {
		if !from.Valid() {
			t.Errorf("transition source %q is not a declared state", from)
		}
		for _, to := range targets {
			if !to.Valid() {
				t.Errorf("transition target %q (from %s) is not a declared state", to, from)
			}
			if to.Terminal() && to != Confirmed {
				t.Errorf("only CONFIRMED may appear as an explicit target, got %s", to)
			}
		}
	}
}
