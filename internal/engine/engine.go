// Package engine implements the deterministic conversation engine. The
// single public operation is [Engine.HandleMessage]: it runs every inbound
// message through a strict pipeline (terminal gate, anti-loop guard,
// strong-intent override, input guards, expiry check, correction and router
// triggers, state handler, safe-reply barrier) and persists the session
// before returning.
//
// All messages for one conversation are serialised on a per-conversation
// lock; the session is only ever mutated inside that critical section.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/lastminutejob75/standardiste/internal/audit"
	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/clock"
	"github.com/lastminutejob75/standardiste/internal/faq"
	"github.com/lastminutejob75/standardiste/internal/fsm"
	"github.com/lastminutejob75/standardiste/internal/guard"
	"github.com/lastminutejob75/standardiste/internal/observe"
	"github.com/lastminutejob75/standardiste/internal/prompt"
	"github.com/lastminutejob75/standardiste/internal/recovery"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// Options carries the per-deployment tuning knobs. Zero values fall back to
// the documented defaults.
type Options struct {
	// SessionTTL is the inactivity window before a session restarts.
	// Default: [session.DefaultTTL].
	SessionTTL time.Duration

	// FAQThreshold is the minimum match score for an FAQ answer.
	// Default: 0.80.
	FAQThreshold float64

	// MaxMessageLength caps inbound message length in runes.
	// Default: [guard.DefaultMaxMessageLength].
	MaxMessageLength int

	// MaxSlots is how many slots are proposed at once. Default: 3.
	MaxSlots int

	// MaxTurns is the anti-loop ceiling on processed turns per
	// conversation. Default: [session.MaxTurns].
	MaxTurns int

	// MaxContextFails bounds each qualification step's recovery counter.
	// Default: [session.MaxContextFails].
	MaxContextFails int

	// ConfirmRetryMax is how many times a yes/no confirmation question is
	// repeated verbatim on an unrecognised answer before the graduated
	// recovery takes over. Default: 1.
	ConfirmRetryMax int

	// SkipContactConfirm books directly against the caller ID instead of
	// asking "is your number X?" first.
	SkipContactConfirm bool
}

func (o *Options) applyDefaults() {
	if o.SessionTTL <= 0 {
		o.SessionTTL = session.DefaultTTL
	}
	if o.FAQThreshold <= 0 {
		o.FAQThreshold = 0.80
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = guard.DefaultMaxMessageLength
	}
	if o.MaxSlots <= 0 {
		o.MaxSlots = 3
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = session.MaxTurns
	}
	if o.MaxContextFails <= 0 {
		o.MaxContextFails = session.MaxContextFails
	}
	if o.ConfirmRetryMax <= 0 {
		o.ConfirmRetryMax = 1
	}
}

// Deps groups the engine's collaborators. Store, Calendar and FAQ are
// required; Journal, Sink, Metrics and Clock have working defaults.
type Deps struct {
	Store    session.Store
	Journal  session.Journal // optional turn log
	Calendar calendar.Backend
	FAQ      faq.Matcher
	Sink     audit.Sink
	Clock    clock.Clock
	Metrics  *observe.Metrics
}

// Engine is the conversation engine. Safe for concurrent use; see
// [Engine.HandleMessage] for the per-conversation serialisation contract.
type Engine struct {
	opts     Options
	deps     Deps
	catalogs map[string]*prompt.Catalog
	fallback *prompt.Catalog
	locks    *convLocks
}

// New builds an engine. catalogs maps tenant IDs to their prompt catalogs;
// tenants without an entry use a catalog with the tenant ID as business
// name.
func New(deps Deps, opts Options, catalogs map[string]*prompt.Catalog) *Engine {
	opts.applyDefaults()
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Sink == nil {
		deps.Sink = audit.NewMemSink(0)
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	if catalogs == nil {
		catalogs = make(map[string]*prompt.Catalog)
	}
	return &Engine{
		opts:     opts,
		deps:     deps,
		catalogs: catalogs,
		locks:    newConvLocks(),
	}
}

func (e *Engine) catalogFor(tenantID string) *prompt.Catalog {
	if cat, ok := e.catalogs[tenantID]; ok {
		return cat
	}
	return prompt.NewCatalog(tenantID)
}

// Greet opens a conversation: it creates the session, records the caller ID
// when the adapter knows it, and returns the tenant greeting. Calling it for
// an existing conversation just replays the greeting without side effects.
func (e *Engine) Greet(ctx context.Context, msg Message) ([]Event, error) {
	release := e.locks.acquire(msg.TenantID + "/" + msg.ConvID)
	defer release()

	now := e.deps.Clock.Now()
	s, created, err := e.deps.Store.GetOrCreate(ctx, msg.TenantID, msg.ConvID, msg.Channel, now)
	if err != nil {
		return nil, fmt.Errorf("engine: greet: %w", err)
	}
	cat := e.catalogFor(msg.TenantID)
	greeting := cat.Render(prompt.KeyGreeting, msg.Channel, nil)

	if created {
		s.CallerID = msg.CallerID
		s.LastQuestion = greeting
		s.AppendTurn(session.RoleAgent, greeting, now)
		e.deps.Metrics.ActiveSessions.Add(ctx, 1)
		if err := e.deps.Store.Save(ctx, s); err != nil {
			return nil, fmt.Errorf("engine: greet save: %w", err)
		}
		e.appendAudit(ctx, audit.Record{
			TenantID:      s.TenantID,
			ConvID:        s.ConvID,
			EventName:     "conversation_started",
			PreviousState: s.State,
			Timestamp:     now,
		})
	}
	return []Event{{Kind: EventFinal, Text: greeting, NewState: s.State}}, nil
}

// HandleMessage processes one inbound message and returns the events to
// render. The returned slice always contains at least one event with
// non-empty text; internal failures surface as a transfer event, never as a
// bare error to the adapter.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) (events []Event, err error) {
	started := time.Now()
	release := e.locks.acquire(msg.TenantID + "/" + msg.ConvID)
	defer release()

	now := e.deps.Clock.Now()
	s, created, err := e.deps.Store.GetOrCreate(ctx, msg.TenantID, msg.ConvID, msg.Channel, now)
	if err != nil {
		slog.Error("engine: session load failed", "tenant_id", msg.TenantID,
			"conv_id", msg.ConvID, "error", err)
		cat := e.catalogFor(msg.TenantID)
		return []Event{{
			Kind:     EventTransfer,
			Text:     cat.Render(prompt.KeyTransfer, msg.Channel, nil),
			NewState: fsm.Transferred,
		}}, nil
	}
	if created {
		if msg.CallerID != "" {
			s.CallerID = msg.CallerID
		}
		// Sessions opened implicitly, without a Greet, count as live too;
		// the gauge is decremented on the terminal transition either way.
		e.deps.Metrics.ActiveSessions.Add(ctx, 1)
	}

	t := &turn{
		e:   e,
		s:   s,
		msg: msg,
		now: now,
		cat: e.catalogFor(msg.TenantID),
	}

	// A panicking handler must not take the process down or leave the
	// caller without an answer.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: handler panic",
				"tenant_id", s.TenantID, "conv_id", s.ConvID,
				"state", s.State, "panic", r, "stack", string(debug.Stack()))
			s.State = fsm.Transferred
			t.events = []Event{
				{Kind: EventPartial, Text: t.cat.Render(prompt.KeyInternalFail, msg.Channel, nil)},
				{Kind: EventTransfer, Text: t.cat.Render(prompt.KeyTransfer, msg.Channel, nil)},
			}
			e.deps.Metrics.RecordTransfer(ctx, "handler_panic")
			events = t.finish(ctx)
			err = nil
		}
	}()

	e.deps.Metrics.RecordMessage(ctx, msg.TenantID, string(msg.Channel))
	defer func() {
		e.deps.Metrics.HandleDuration.Record(ctx, time.Since(started).Seconds(),
			metric.WithAttributes(observe.Attr("tenant", msg.TenantID), observe.Attr("channel", string(msg.Channel))))
	}()

	e.pipeline(ctx, t, created)
	return t.finish(ctx), nil
}

// pipeline runs the strict eight-step processing order.
func (e *Engine) pipeline(ctx context.Context, t *turn, created bool) {
	s := t.s
	text := t.msg.Text

	// 1. Terminal gate.
	if s.State.Terminal() {
		t.say(EventFinal, prompt.KeyClosed, nil)
		t.skipHistory = true
		return
	}

	// 2. Anti-loop guard.
	s.Counters.Turns++
	if s.Counters.Turns > e.opts.MaxTurns {
		t.enterRouter(ctx, "anti_loop_25")
		return
	}

	// 3. Strong-intent override.
	if t.tryStrongOverride(ctx, text) {
		return
	}

	// 4. Basic guards.
	if guard.IsEmpty(text) {
		s.Counters.EmptyMessages++
		if s.Counters.EmptyMessages >= session.MaxEmptyMessages {
			t.enterRouter(ctx, "empty_repeated")
			return
		}
		t.say(EventFinal, prompt.KeyEmptyInput, nil)
		return
	}
	s.Counters.EmptyMessages = 0
	if guard.IsTooLong(text, e.opts.MaxMessageLength) {
		t.say(EventFinal, prompt.KeyTooLong, nil)
		return
	}
	if !guard.IsFrench(text) {
		t.say(EventFinal, prompt.KeyFrenchOnly, nil)
		return
	}
	if guard.IsSpamOrAbuse(text) {
		t.transfer(ctx, "spam_or_abuse")
		return
	}

	// 5. Session-expiry check.
	if !created && s.Expired(t.now, e.opts.SessionTTL) {
		s.Restart(t.now)
		t.audit(ctx, "session_expired", s.State, "ttl")
		t.say(EventFinal, prompt.KeyExpired, nil)
		return
	}

	// 6. Correction and unified recovery triggers.
	if t.tryCorrection(ctx, text) {
		return
	}
	if reason, yes := recovery.ShouldTriggerRouter(s); yes {
		t.enterRouter(ctx, reason)
		return
	}

	// 7. State handler dispatch.
	t.dispatch(ctx, text)
}

// appendAudit writes one record through the sink, best-effort.
func (e *Engine) appendAudit(ctx context.Context, rec audit.Record) {
	if err := e.deps.Sink.Append(ctx, rec); err != nil {
		slog.Warn("engine: audit append failed", "event", rec.EventName, "error", err)
	}
}

// finish applies the safe-reply barrier and persists the session. It is the
// single exit path for every handled message.
func (t *turn) finish(ctx context.Context) []Event {
	e, s := t.e, t.s

	// 8. Safe-reply barrier.
	if !hasSpokenText(t.events) {
		t.events = []Event{{Kind: EventFinal, Text: prompt.SafeReplyText}}
		slog.Warn("safe_reply_triggered",
			"tenant_id", s.TenantID, "conv_id", s.ConvID, "state", s.State)
		e.deps.Metrics.SafeReplies.Add(ctx, 1)
		t.audit(ctx, "safe_reply_triggered", s.State, "empty_handler_output")
	}

	// Stamp the final state onto every event.
	for i := range t.events {
		t.events[i].NewState = s.State
	}

	// History, last-question tracking, and the consecutive-question counter:
	// an agent turn ending in a question keeps the pressure counter growing;
	// any other agent turn is progress and clears it.
	last := t.events[len(t.events)-1]
	if !t.skipHistory {
		s.AppendTurn(session.RoleUser, t.msg.Text, t.now)
		for _, ev := range t.events {
			s.AppendTurn(session.RoleAgent, ev.Text, t.now)
		}
		if strings.HasSuffix(strings.TrimSpace(last.Text), "?") {
			s.Counters.ConsecutiveQuestions++
			s.LastQuestion = last.Text
		} else {
			s.Counters.ConsecutiveQuestions = 0
		}
		s.LastSeenAt = t.now
	}

	if err := e.deps.Store.Save(ctx, s); err != nil {
		slog.Error("engine: session save failed",
			"tenant_id", s.TenantID, "conv_id", s.ConvID, "error", err)
	}
	if e.deps.Journal != nil && !t.skipHistory {
		if err := e.deps.Journal.AppendJournal(ctx, s.TenantID, s.ConvID, session.RoleUser, t.msg.Text, t.now); err != nil {
			slog.Warn("engine: journal append failed", "error", err)
		}
		for _, ev := range t.events {
			if err := e.deps.Journal.AppendJournal(ctx, s.TenantID, s.ConvID, session.RoleAgent, ev.Text, t.now); err != nil {
				slog.Warn("engine: journal append failed", "error", err)
			}
		}
	}
	return t.events
}

func hasSpokenText(events []Event) bool {
	for _, ev := range events {
		if strings.TrimSpace(ev.Text) != "" {
			return true
		}
	}
	return false
}
