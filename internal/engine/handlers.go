package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/extract"
	"github.com/lastminutejob75/standardiste/internal/faq"
	"github.com/lastminutejob75/standardiste/internal/frtext"
	"github.com/lastminutejob75/standardiste/internal/fsm"
	"github.com/lastminutejob75/standardiste/internal/intent"
	"github.com/lastminutejob75/standardiste/internal/prompt"
	"github.com/lastminutejob75/standardiste/internal/recovery"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// dispatch routes the message to the handler for the current state. Terminal
// states never reach here (the terminal gate runs first).
func (t *turn) dispatch(ctx context.Context, text string) {
	switch t.s.State {
	case fsm.Start:
		t.handleStart(ctx, text)
	case fsm.QualifName:
		t.handleQualifName(ctx, text)
	case fsm.QualifMotif:
		t.handleQualifMotif(ctx, text)
	case fsm.QualifPref:
		t.handleQualifPref(ctx, text)
	case fsm.PreferenceConfirm:
		t.handlePreferenceConfirm(ctx, text)
	case fsm.QualifContact:
		t.handleQualifContact(ctx, text)
	case fsm.ContactConfirm:
		t.handleContactConfirm(ctx, text)
	case fsm.WaitConfirm:
		t.handleWaitConfirm(ctx, text)
	case fsm.CancelName:
		t.handleCancelName(ctx, text)
	case fsm.CancelConfirm:
		t.handleCancelConfirm(ctx, text)
	case fsm.ModifyName:
		t.handleModifyName(ctx, text)
	case fsm.ModifyConfirm:
		t.handleModifyConfirm(ctx, text)
	case fsm.Clarify:
		t.handleClarify(ctx, text)
	case fsm.FAQAnswered:
		t.handleFAQAnswered(ctx, text)
	case fsm.IntentRouter:
		t.handleRouter(ctx, text)
	default:
		slog.Error("engine: no handler for state",
			"tenant_id", t.s.TenantID, "conv_id", t.s.ConvID, "state", t.s.State)
		t.transfer(ctx, "unknown_state")
	}
}

// failStep applies the graduated recovery for one qualification context:
// each miss below the configured bound re-asks with increasing detail, the
// bound itself hands over to the intent router.
func (t *turn) failStep(ctx context.Context, fc session.FailContext) {
	count := recovery.Increment(t.s, fc)
	if count >= t.e.opts.MaxContextFails {
		t.enterRouter(ctx, string(fc)+"_escalation")
		return
	}
	if text, ok := recovery.ClarificationFor(t.cat, fc, count, t.msg.Channel); ok {
		t.sayText(EventFinal, text)
		return
	}
	t.enterRouter(ctx, string(fc)+"_exhausted")
}

// retryConfirm handles an answer to a yes/no confirmation question that is
// neither: the question is repeated verbatim up to the configured retry
// bound, then the miss feeds the graduated recovery like any other.
func (t *turn) retryConfirm(ctx context.Context, fc session.FailContext) {
	if t.s.Counters.ConfirmRetries < t.e.opts.ConfirmRetryMax && t.s.LastQuestion != "" {
		t.s.Counters.ConfirmRetries++
		t.sayText(EventFinal, t.s.LastQuestion)
		return
	}
	t.failStep(ctx, fc)
}

// ─── opening and FAQ ─────────────────────────────────────────────────────────

func (t *turn) handleStart(ctx context.Context, text string) {
	switch it := intent.Detect(text); it {
	case intent.Yes, intent.Booking:
		if t.transition(ctx, fsm.QualifName, "booking_intent") {
			t.say(EventFinal, prompt.KeyAskName, nil)
		}
	case intent.No:
		if t.transition(ctx, fsm.Clarify, "declined") {
			t.say(EventFinal, prompt.KeyClarify1, nil)
		}
	case intent.Abandon:
		t.say(EventFinal, prompt.KeyGoodbye, nil)
		t.transition(ctx, fsm.Confirmed, "abandon")
	default:
		t.tryFAQ(ctx, text)
	}
}

// tryFAQ scores text against the tenant FAQ. A hit answers and moves to
// FAQ_ANSWERED; a miss asks for a rephrase via CLARIFY (the second miss is
// handled there).
func (t *turn) tryFAQ(ctx context.Context, text string) {
	m := t.matchFAQ(ctx, text)
	if m.Score >= t.e.opts.FAQThreshold {
		if t.transition(ctx, fsm.FAQAnswered, "faq_match") {
			t.sayAnswer(m)
			t.audit(ctx, "faq_answered", fsm.Start, m.ID)
		}
		return
	}
	if t.transition(ctx, fsm.Clarify, "faq_miss") {
		t.say(EventFinal, prompt.KeyFAQMiss, nil)
	}
}

// sayAnswer emits the canonical FAQ answer, tagging the event with the
// entry it came from.
func (t *turn) sayAnswer(m faq.Match) {
	t.say(EventFinal, prompt.KeyFAQAnswer, prompt.Vars("answer", m.Answer))
	t.events[len(t.events)-1].Source = m.ID
}

func (t *turn) matchFAQ(ctx context.Context, text string) faq.Match {
	m, err := t.e.deps.FAQ.Match(ctx, t.s.TenantID, text)
	if err != nil {
		slog.Warn("engine: faq match failed",
			"tenant_id", t.s.TenantID, "conv_id", t.s.ConvID, "error", err)
		return faq.Match{}
	}
	return m
}

func (t *turn) handleClarify(ctx context.Context, text string) {
	switch it := intent.Detect(text); it {
	case intent.Yes, intent.Booking:
		if t.transition(ctx, fsm.QualifName, "booking_intent") {
			t.say(EventFinal, prompt.KeyAskName, nil)
		}
	case intent.Abandon:
		t.say(EventFinal, prompt.KeyGoodbye, nil)
		t.transition(ctx, fsm.Confirmed, "abandon")
	default:
		// Second chance for the FAQ; a second miss escalates.
		m := t.matchFAQ(ctx, text)
		if m.Score >= t.e.opts.FAQThreshold {
			if t.transition(ctx, fsm.FAQAnswered, "faq_match") {
				t.sayAnswer(m)
				t.audit(ctx, "faq_answered", fsm.Clarify, m.ID)
			}
			return
		}
		t.say(EventPartial, prompt.KeyStillUnclear, nil)
		t.transfer(ctx, "still_unclear")
	}
}

func (t *turn) handleFAQAnswered(ctx context.Context, text string) {
	switch it := intent.Detect(text); it {
	case intent.Yes, intent.Booking:
		if t.transition(ctx, fsm.QualifName, "booking_intent") {
			t.say(EventFinal, prompt.KeyAskName, nil)
		}
	case intent.No, intent.Abandon:
		t.say(EventFinal, prompt.KeyGoodbye, nil)
		t.transition(ctx, fsm.Confirmed, "goodbye")
	default:
		// Another question: answer again or ask for a rephrase, staying put.
		m := t.matchFAQ(ctx, text)
		if m.Score >= t.e.opts.FAQThreshold {
			t.sayAnswer(m)
			t.audit(ctx, "faq_answered", fsm.FAQAnswered, m.ID)
			return
		}
		t.say(EventFinal, prompt.KeyFAQMiss, nil)
	}
}

// ─── booking qualification ───────────────────────────────────────────────────

func (t *turn) handleQualifName(ctx context.Context, text string) {
	name, ok := extract.Name(text)
	if !ok {
		t.failStep(ctx, session.FailName)
		return
	}
	t.s.Qualification.Name = name

	// Text callers type a motif comfortably; voice callers skip straight to
	// the preference question.
	if t.s.Channel == session.ChannelText {
		if t.transition(ctx, fsm.QualifMotif, "name_collected") {
			t.say(EventFinal, prompt.KeyAskMotif, prompt.Vars("first_name", t.s.FirstName()))
		}
		return
	}
	if t.transition(ctx, fsm.QualifPref, "name_collected") {
		t.say(EventFinal, prompt.KeyAskPreference, nil)
	}
}

func (t *turn) handleQualifMotif(ctx context.Context, text string) {
	t.s.Qualification.Motif = strings.TrimSpace(text)
	if t.transition(ctx, fsm.QualifPref, "motif_collected") {
		t.say(EventFinal, prompt.KeyAskPreference, nil)
	}
}

func (t *turn) handleQualifPref(ctx context.Context, text string) {
	pref, ok := extract.TimePreference(text)
	if ok {
		t.s.Qualification.Preference = string(pref)
		t.afterPreference(ctx)
		return
	}

	// Evening requests are off-grid; the closest offer is the afternoon, but
	// only with the caller's explicit agreement.
	if frtext.HasToken(text, "soir") || frtext.HasToken(text, "soiree") {
		t.s.Qualification.Preference = string(calendar.Afternoon)
		if t.transition(ctx, fsm.PreferenceConfirm, "evening_requested") {
			t.say(EventFinal, prompt.KeyConfirmPref,
				prompt.Vars("preference_label", "l'après-midi"))
		}
		return
	}

	t.failStep(ctx, session.FailPreference)
}

func (t *turn) handlePreferenceConfirm(ctx context.Context, text string) {
	switch intent.Detect(text) {
	case intent.Yes:
		t.afterPreference(ctx)
	case intent.No:
		t.s.Qualification.Preference = ""
		if t.transition(ctx, fsm.QualifPref, "preference_retry") {
			t.say(EventFinal, prompt.KeyAskPreference, nil)
		}
	default:
		t.retryConfirm(ctx, session.FailPreference)
	}
}

// afterPreference decides the contact step: known caller ID is either used
// directly (skip_contact_confirm) or read back for confirmation; otherwise
// the number is asked for.
func (t *turn) afterPreference(ctx context.Context) {
	s := t.s
	switch {
	case s.CallerID != "" && t.e.opts.SkipContactConfirm:
		s.Qualification.Contact = s.CallerID
		s.Qualification.ContactType = "phone"
		t.proposeSlots(ctx)
	case s.CallerID != "":
		if t.transition(ctx, fsm.ContactConfirm, "caller_id_known") {
			t.say(EventFinal, prompt.KeyConfirmNumber, prompt.Vars("phone", s.CallerID))
		}
	default:
		if t.transition(ctx, fsm.QualifContact, "preference_collected") {
			t.say(EventFinal, prompt.KeyAskContact, nil)
		}
	}
}

func (t *turn) handleQualifContact(ctx context.Context, text string) {
	phone, ok := extract.Phone(text)
	if !ok {
		t.failStep(ctx, session.FailPhone)
		return
	}
	t.s.Qualification.Contact = phone
	t.s.Qualification.ContactType = "phone"
	if t.transition(ctx, fsm.ContactConfirm, "phone_collected") {
		t.say(EventFinal, prompt.KeyConfirmNumber, prompt.Vars("phone", phone))
	}
}

func (t *turn) handleContactConfirm(ctx context.Context, text string) {
	switch intent.Detect(text) {
	case intent.Yes:
		if t.s.Qualification.Contact == "" {
			t.s.Qualification.Contact = t.s.CallerID
			t.s.Qualification.ContactType = "phone"
		}
		t.proposeSlots(ctx)
	case intent.No:
		t.s.Qualification.Contact = ""
		t.s.Qualification.ContactType = ""
		if t.transition(ctx, fsm.QualifContact, "number_rejected") {
			t.say(EventFinal, prompt.KeyAskContact, nil)
		}
	default:
		t.retryConfirm(ctx, session.FailContactConfirm)
	}
}

// ─── slot proposal and booking ───────────────────────────────────────────────

// proposeSlots fetches up to MaxSlots free slots matching the collected
// preference, stores them with stable 1-based indices, and reads them out.
func (t *turn) proposeSlots(ctx context.Context) {
	s := t.s
	pref := calendar.Preference(s.Qualification.Preference)
	if pref == "" {
		pref = calendar.Unspecified
	}

	slots, err := t.e.deps.Calendar.FreeSlots(ctx, s.TenantID, pref, t.e.opts.MaxSlots)
	if err != nil || len(slots) == 0 {
		if err != nil {
			slog.Warn("engine: free slots failed",
				"tenant_id", s.TenantID, "conv_id", s.ConvID, "error", err)
		}
		t.say(EventPartial, prompt.KeyNoSlots, nil)
		t.transfer(ctx, "no_slots")
		return
	}

	for i := range slots {
		slots[i].Index = i + 1
		if slots[i].Label == "" {
			slots[i].Label = calendar.FormatLabel(slots[i].Start)
		}
	}
	s.PendingSlots = slots

	if !t.transition(ctx, fsm.WaitConfirm, "slots_proposed") {
		return
	}
	vars := map[string]string{}
	keys := [...]prompt.Key{prompt.KeySlots1, prompt.KeySlots2, prompt.KeySlots3}
	for i, slot := range slots {
		vars["slot"+string(rune('1'+i))] = slot.Label
	}
	t.say(EventFinal, keys[len(slots)-1], vars)
}

func (t *turn) handleWaitConfirm(ctx context.Context, text string) {
	s := t.s
	choice := extract.SlotChoice(text, s.PendingSlots)
	if choice == 0 && len(s.PendingSlots) == 1 && intent.Detect(text) == intent.Yes {
		choice = 1
	}
	if choice == 0 || choice > len(s.PendingSlots) {
		t.failStep(ctx, session.FailSlotChoice)
		return
	}
	t.book(ctx, s.PendingSlots[choice-1])
}

func (t *turn) book(ctx context.Context, slot calendar.SlotOffer) {
	s := t.s
	b := calendar.Booking{
		Name:    s.Qualification.Name,
		Motif:   s.Qualification.Motif,
		Contact: s.Qualification.Contact,
	}

	eventID, err := t.e.deps.Calendar.Book(ctx, s.TenantID, slot, b)
	switch {
	case err == nil:
		s.PendingSlots = nil
		key, status := prompt.KeyBookingDone, "confirmed"
		if calendar.IsFallbackEvent(eventID) {
			key, status = prompt.KeyFallbackNote, "fallback"
		}
		if t.transition(ctx, fsm.Confirmed, "booking_success") {
			t.say(EventFinal, key,
				prompt.Vars("first_name", s.FirstName(), "slot_label", slot.Label))
			t.e.deps.Metrics.RecordBookingOutcome(ctx, status)
			t.audit(ctx, "booking_confirmed", fsm.WaitConfirm, eventID)
		}

	case errors.Is(err, calendar.ErrSlotTaken):
		s.PendingSlots = nil
		t.e.deps.Metrics.RecordBookingOutcome(ctx, "slot_taken")
		t.say(EventPartial, prompt.KeySlotTaken, nil)
		t.transfer(ctx, "slot_taken")

	case errors.Is(err, calendar.ErrUnavailable):
		s.PendingSlots = nil
		t.e.deps.Metrics.RecordBookingOutcome(ctx, "unavailable")
		t.transfer(ctx, "calendar_unavailable")

	default:
		slog.Error("engine: booking failed",
			"tenant_id", s.TenantID, "conv_id", s.ConvID, "error", err)
		s.PendingSlots = nil
		t.transfer(ctx, "calendar_error")
	}
}

// ─── cancel and modify ───────────────────────────────────────────────────────

// lookupByName is the shared cancel/modify name step. Lookup failures get
// two graduated not-found prompts (the second asks the caller to spell the
// name); the third hands over to the router.
func (t *turn) lookupByName(ctx context.Context, text string, confirmState fsm.State, confirmKey, notFound, retry prompt.Key) {
	s := t.s
	name, ok := extract.Name(text)
	if !ok {
		t.failStep(ctx, session.FailName)
		return
	}

	label, err := t.e.deps.Calendar.Find(ctx, s.TenantID, name)
	switch {
	case err == nil:
		s.Qualification.Name = name
		if t.transition(ctx, confirmState, "appointment_found") {
			t.say(EventFinal, confirmKey, prompt.Vars("slot_label", label))
		}

	case errors.Is(err, calendar.ErrNotFound):
		switch count := recovery.Increment(s, session.FailName); {
		case count == 1:
			t.say(EventFinal, notFound, nil)
		case count == 2:
			t.say(EventFinal, retry, nil)
		default:
			t.enterRouter(ctx, "name_lookup_failed")
		}

	case errors.Is(err, calendar.ErrUnavailable):
		t.transfer(ctx, "calendar_unavailable")

	default:
		slog.Error("engine: appointment lookup failed",
			"tenant_id", s.TenantID, "conv_id", s.ConvID, "error", err)
		t.transfer(ctx, "calendar_error")
	}
}

func (t *turn) handleCancelName(ctx context.Context, text string) {
	t.lookupByName(ctx, text, fsm.CancelConfirm,
		prompt.KeyCancelConfirm, prompt.KeyCancelNotFound, prompt.KeyCancelRetry)
}

func (t *turn) handleCancelConfirm(ctx context.Context, text string) {
	s := t.s
	switch intent.Detect(text) {
	case intent.Yes:
		if _, err := t.e.deps.Calendar.Cancel(ctx, s.TenantID, s.Qualification.Name); err != nil {
			slog.Error("engine: cancellation failed",
				"tenant_id", s.TenantID, "conv_id", s.ConvID, "error", err)
			t.transfer(ctx, "cancel_failed")
			return
		}
		t.say(EventFinal, prompt.KeyCancelDone, nil)
		t.transition(ctx, fsm.Confirmed, "cancelled")
		t.audit(ctx, "booking_cancelled", fsm.CancelConfirm, "")
	case intent.No:
		if t.transition(ctx, fsm.Start, "cancel_kept") {
			t.say(EventFinal, prompt.KeyCancelKept, nil)
		}
	default:
		t.retryConfirm(ctx, session.FailContactConfirm)
	}
}

func (t *turn) handleModifyName(ctx context.Context, text string) {
	t.lookupByName(ctx, text, fsm.ModifyConfirm,
		prompt.KeyModifyConfirm, prompt.KeyModifyNotFound, prompt.KeyModifyRetry)
}

func (t *turn) handleModifyConfirm(ctx context.Context, text string) {
	s := t.s
	switch intent.Detect(text) {
	case intent.Yes:
		// Modification is cancel-then-rebook: drop the old slot, then
		// collect a fresh preference.
		if _, err := t.e.deps.Calendar.Cancel(ctx, s.TenantID, s.Qualification.Name); err != nil {
			slog.Error("engine: modify cancellation failed",
				"tenant_id", s.TenantID, "conv_id", s.ConvID, "error", err)
			t.transfer(ctx, "modify_failed")
			return
		}
		t.audit(ctx, "booking_cancelled", fsm.ModifyConfirm, "modify_rebook")
		if t.transition(ctx, fsm.QualifPref, "modify_rebook") {
			t.say(EventFinal, prompt.KeyModifyProceed, nil)
		}
	case intent.No:
		if t.transition(ctx, fsm.Start, "modify_kept") {
			t.say(EventFinal, prompt.KeyModifyKept, nil)
		}
	default:
		t.retryConfirm(ctx, session.FailContactConfirm)
	}
}
