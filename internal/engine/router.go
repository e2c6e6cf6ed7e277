package engine

import (
	"context"

	"github.com/lastminutejob75/standardiste/internal/frtext"
	"github.com/lastminutejob75/standardiste/internal/fsm"
	"github.com/lastminutejob75/standardiste/internal/intent"
	"github.com/lastminutejob75/standardiste/internal/prompt"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// routerMenuWords maps direct menu replies to their option number.
var routerMenuWords = map[string]int{
	"1": 1, "un": 1, "premier": 1,
	"2": 2, "deux": 2, "deuxieme": 2,
	"3": 3, "trois": 3, "troisieme": 3,
	"4": 4, "quatre": 4, "quatrieme": 4,
}

// routerChoice resolves a reply inside the router menu to an option 1-4, or
// 0 when nothing matches. Numbered answers win; otherwise the regular intent
// vocabulary is accepted ("je veux annuler" picks option 2).
func routerChoice(text string) int {
	picked := 0
	for _, tok := range frtext.Tokens(text) {
		n, ok := routerMenuWords[tok]
		if !ok {
			continue
		}
		if picked != 0 && picked != n {
			return 0 // two different numbers in one reply
		}
		picked = n
	}
	if picked != 0 {
		return picked
	}

	switch intent.Detect(text) {
	case intent.Booking, intent.Yes:
		return 1
	case intent.Cancel, intent.Modify:
		return 2
	case intent.FAQ:
		return 3
	case intent.Transfer:
		return 4
	}
	return 0
}

// handleRouter runs the stabilisation sub-dialog: a closed four-choice menu,
// no data collection, at most three attempts before handing over to a human.
func (t *turn) handleRouter(ctx context.Context, text string) {
	switch routerChoice(text) {
	case 1:
		if t.transition(ctx, fsm.QualifName, "router_booking") {
			t.say(EventFinal, prompt.KeyRouterBook, nil)
		}
	case 2:
		if t.transition(ctx, fsm.CancelName, "router_cancel") {
			t.say(EventFinal, prompt.KeyRouterCancel, nil)
		}
	case 3:
		if t.transition(ctx, fsm.Start, "router_faq") {
			t.say(EventFinal, prompt.KeyRouterFAQ, nil)
		}
	case 4:
		t.transfer(ctx, "router_human")
	default:
		t.s.RouterFails++
		if t.s.RouterFails >= session.MaxRouterFails {
			t.transfer(ctx, "router_exhausted")
			return
		}
		t.say(EventFinal, prompt.KeyRouterRetry, nil)
	}
}
