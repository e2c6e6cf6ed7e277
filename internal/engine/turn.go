package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/lastminutejob75/standardiste/internal/audit"
	"github.com/lastminutejob75/standardiste/internal/fsm"
	"github.com/lastminutejob75/standardiste/internal/intent"
	"github.com/lastminutejob75/standardiste/internal/prompt"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// turn carries the mutable state of one HandleMessage call: the session, the
// accumulated events, and the rendering context. All handler logic runs
// through its methods.
type turn struct {
	e   *Engine
	s   *session.Session
	msg Message
	now time.Time
	cat *prompt.Catalog

	events []Event

	// skipHistory suppresses history and journal writes for turns that must
	// be side-effect free (terminal gate).
	skipHistory bool
}

// say renders key for the session channel and appends it as an event.
func (t *turn) say(kind EventKind, key prompt.Key, vars map[string]string) {
	t.sayText(kind, t.cat.Render(key, t.msg.Channel, vars))
}

// sayText appends a pre-rendered event. Used for replaying the last question
// and for graduated clarifications, which are rendered by the catalog too.
func (t *turn) sayText(kind EventKind, text string) {
	t.events = append(t.events, Event{Kind: kind, Text: text})
}

// transition moves the session to a new state after checking the whitelist.
// An attempt outside the whitelist is a programming error: it is logged at
// ERROR and the session escalates to TRANSFERRED instead.
func (t *turn) transition(ctx context.Context, to fsm.State, reason string) bool {
	from := t.s.State
	if !fsm.Allowed(from, to) {
		slog.Error("engine: transition outside whitelist",
			"tenant_id", t.s.TenantID, "conv_id", t.s.ConvID,
			"from", from, "to", to, "reason", reason)
		t.audit(ctx, "invalid_transition", from, string(from)+"->"+string(to))
		t.s.State = fsm.Transferred
		t.events = nil
		t.say(EventPartial, prompt.KeyInternalFail, nil)
		t.say(EventTransfer, prompt.KeyTransfer, nil)
		t.e.deps.Metrics.RecordTransfer(ctx, "invalid_transition")
		t.sessionClosed(ctx)
		return false
	}
	if from != to {
		t.s.State = to
		t.s.Counters.ConfirmRetries = 0
		t.e.deps.Metrics.RecordTransition(ctx, string(from), string(to))
		t.audit(ctx, "transition", from, reason)
		if to.Terminal() {
			t.sessionClosed(ctx)
		}
	}
	return true
}

// transfer escalates the session to a human.
func (t *turn) transfer(ctx context.Context, reason string) {
	if t.transition(ctx, fsm.Transferred, reason) {
		t.say(EventTransfer, prompt.KeyTransfer, nil)
		t.e.deps.Metrics.RecordTransfer(ctx, reason)
	}
}

// enterRouter switches to the stabilisation sub-dialog: log the design
// signal, reset every conversation counter, clear pending work, present the
// fixed menu.
func (t *turn) enterRouter(ctx context.Context, reason string) {
	s := t.s
	rec := audit.Record{
		TenantID:      s.TenantID,
		ConvID:        s.ConvID,
		EventName:     "intent_router_triggered",
		PreviousState: s.State,
		Reason:        reason,
		Counters:      s.Counters.Snapshot(),
		UserMessage:   audit.Truncate(t.msg.Text),
		Timestamp:     t.now,
	}
	rec.Counters["missing_name"] = boolAsInt(s.Qualification.Name == "")
	rec.Counters["missing_preference"] = boolAsInt(s.Qualification.Preference == "")
	rec.Counters["missing_contact"] = boolAsInt(s.Qualification.Contact == "")
	t.e.appendAudit(ctx, rec)
	slog.Info("intent router triggered",
		"tenant_id", s.TenantID, "conv_id", s.ConvID,
		"previous_state", s.State, "reason", reason)

	if !t.transition(ctx, fsm.IntentRouter, reason) {
		return
	}
	s.Reset()
	s.LastQuestion = ""
	s.PendingSlots = nil
	t.e.deps.Metrics.RecordRouterEntry(ctx, reason)
	t.say(EventFinal, prompt.KeyRouterMenu, nil)
}

// sessionClosed decrements the live-session gauge exactly once, on the
// transition into a terminal state.
func (t *turn) sessionClosed(ctx context.Context) {
	t.e.deps.Metrics.ActiveSessions.Add(ctx, -1)
}

// audit buffers one record through the sink, best-effort.
func (t *turn) audit(ctx context.Context, eventName string, previous fsm.State, reason string) {
	t.e.appendAudit(ctx, audit.Record{
		TenantID:      t.s.TenantID,
		ConvID:        t.s.ConvID,
		EventName:     eventName,
		PreviousState: previous,
		Reason:        reason,
		Counters:      t.s.Counters.Snapshot(),
		UserMessage:   audit.Truncate(t.msg.Text),
		Timestamp:     t.now,
	})
}

// tryStrongOverride executes a strong-intent preemption when the guard
// conditions hold: a CANCEL/MODIFY/TRANSFER utterance, not already in the
// matching flow, and different from the last strong intent (anti-ping-pong).
func (t *turn) tryStrongOverride(ctx context.Context, text string) bool {
	s := t.s
	it := intent.DetectStrong(text)
	if it == intent.None || it == s.LastIntent {
		return false
	}

	switch it {
	case intent.Cancel:
		if s.State == fsm.CancelName || s.State == fsm.CancelConfirm {
			return false
		}
		s.LastIntent = it
		if t.transition(ctx, fsm.CancelName, "strong_cancel") {
			t.say(EventFinal, prompt.KeyCancelAskName, nil)
		}
		return true

	case intent.Modify:
		if s.State == fsm.ModifyName || s.State == fsm.ModifyConfirm {
			return false
		}
		s.LastIntent = it
		if t.transition(ctx, fsm.ModifyName, "strong_modify") {
			t.say(EventFinal, prompt.KeyModifyAskName, nil)
		}
		return true

	case intent.Transfer:
		s.LastIntent = it
		t.transfer(ctx, "strong_transfer")
		return true
	}
	return false
}

// tryCorrection replays the last question on a correction utterance
// ("attendez", "c'est pas ça") without advancing state. The third correction
// in a row hands over to the router.
func (t *turn) tryCorrection(ctx context.Context, text string) bool {
	s := t.s
	if !intent.IsCorrection(text) || s.LastQuestion == "" {
		return false
	}
	s.Counters.Corrections++
	if s.Counters.Corrections >= session.MaxCorrections {
		t.enterRouter(ctx, "corrections_repeated")
		return true
	}
	t.sayText(EventFinal, s.LastQuestion)
	return true
}

func boolAsInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
