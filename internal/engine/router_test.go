package engine

import (
	"testing"

	"github.com/lastminutejob75/standardiste/internal/fsm"
)

func TestRouterChoice(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"1", 1},
		{"un", 1},
		{"le premier", 1},
		{"deux", 2},
		{"2 s il vous plait", 2},
		{"trois", 3},
		{"quatre", 4},

		// Intent vocabulary is accepted as a menu answer.
		{"je voudrais un rendez-vous", 1},
		{"oui", 1},
		{"je veux annuler", 2},
		{"modifier", 2},
		{"quels sont vos horaires", 3},
		{"conseiller", 4},

		// Ambiguous or off-menu replies resolve to nothing.
		{"un ou deux", 0},
		{"deux trois", 0},
		{"pourquoi", 0},
		{"", 0},
	}
	for _, tc := range tests {
		if got := routerChoice(tc.text); got != tc.want {
			t.Errorf("routerChoice(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

// toRouter forces the stabilisation sub-dialog with three empty messages.
func (h *harness) toRouter() {
	h.t.Helper()
	h.open()
	h.send("")
	h.send("")
	h.send("")
	h.wantState(fsm.IntentRouter)
}

func TestRouter_MenuOptions(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantState fsm.State
		wantFrag  string
	}{
		{"booking", "un", fsm.QualifName, "nom"},
		{"cancel", "deux", fsm.CancelName, "nom"},
		{"faq", "trois", fsm.Start, "question"},
		{"human", "quatre", fsm.Transferred, "conseiller"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.toRouter()

			events := h.send(tc.reply)
			wantContains(t, lastText(events), tc.wantFrag)
			h.wantState(tc.wantState)
		})
	}
}

func TestRouter_RetryThenExhausted(t *testing.T) {
	h := newHarness(t, Options{})
	h.toRouter()

	for i := 0; i < 2; i++ {
		events := h.send("pourquoi")
		wantContains(t, lastText(events), "un, deux, trois ou quatre")
		h.wantState(fsm.IntentRouter)
	}

	events := h.send("pourquoi")
	if events[len(events)-1].Kind != EventTransfer {
		t.Errorf("last event kind = %s, want transfer", events[len(events)-1].Kind)
	}
	h.wantState(fsm.Transferred)
}
