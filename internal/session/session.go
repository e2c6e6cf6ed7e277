// Package session holds the per-conversation state record and the store
// contract. A [Session] is the central entity of the engine, keyed by
// (tenant ID, conversation ID). It is mutated only inside the engine's
// per-conversation critical section, so the struct itself carries no lock.
package session

import (
	"time"

	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/fsm"
	"github.com/lastminutejob75/standardiste/internal/intent"
)

// Channel identifies how the caller reached the agent. Voice prompts are
// phrased for ears, text prompts for eyes; everything else is identical.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelText  Channel = "text"
)

// Role identifies the author of a history turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// MaxHistoryTurns bounds the per-session history; oldest turns are evicted
// first.
const MaxHistoryTurns = 10

// Hard bounds on the conversation counters (§ recovery design).
const (
	MaxTurns                = 25
	MaxConsecutiveQuestions = 7
	MaxGlobalRecoveryFails  = 3
	MaxCorrections          = 3
	MaxEmptyMessages        = 3
	MaxContextFails         = 3
	MaxRouterFails          = 3
)

// DefaultTTL is the inactivity window after which a session is considered
// expired and restarted on the next message.
const DefaultTTL = 15 * time.Minute

// FailContext tags which qualification step a recovery counter belongs to.
type FailContext string

const (
	FailSlotChoice     FailContext = "slot_choice"
	FailName           FailContext = "name"
	FailPhone          FailContext = "phone"
	FailPreference     FailContext = "preference"
	FailContactConfirm FailContext = "contact_confirm"
)

// FailContexts lists every recovery context tag.
var FailContexts = []FailContext{
	FailSlotChoice, FailName, FailPhone, FailPreference, FailContactConfirm,
}

// Turn is one exchange in the bounded history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Qualification is the caller profile collected during booking. Empty
// strings mean "not collected yet".
type Qualification struct {
	Name        string `json:"name,omitempty"`
	Motif       string `json:"motif,omitempty"`
	Preference  string `json:"preference,omitempty"`
	Contact     string `json:"contact,omitempty"`
	ContactType string `json:"contact_type,omitempty"`
}

// Counters groups every bounded conversation counter. All fields are
// non-negative, increase monotonically, and are zeroed wholesale by
// [Session.Reset] — never decremented individually, with two documented
// exceptions: EmptyMessages counts *consecutive* empty inputs and restarts
// at zero on any non-empty message, and ConfirmRetries counts verbatim
// repeats of the current confirmation question and restarts at zero on
// every state transition.
type Counters struct {
	Turns                int                 `json:"turns"`
	ConsecutiveQuestions int                 `json:"consecutive_questions"`
	GlobalRecoveryFails  int                 `json:"global_recovery_fails"`
	Corrections          int                 `json:"corrections"`
	EmptyMessages        int                 `json:"empty_messages"`
	ConfirmRetries       int                 `json:"confirm_retries"`
	ContextFails         map[FailContext]int `json:"context_fails"`
}

// Snapshot returns a flat copy of all counters for audit records.
func (c *Counters) Snapshot() map[string]int {
	snap := map[string]int{
		"turns":                 c.Turns,
		"consecutive_questions": c.ConsecutiveQuestions,
		"global_recovery_fails": c.GlobalRecoveryFails,
		"corrections":           c.Corrections,
		"empty_messages":        c.EmptyMessages,
		"confirm_retries":       c.ConfirmRetries,
	}
	for tag, n := range c.ContextFails {
		snap[string(tag)+"_fails"] = n
	}
	return snap
}

// Session is the per-conversation state record. Every counter is declared
// up-front and initialised to zero; optional fields are empty strings, not
// absent.
type Session struct {
	TenantID string  `json:"tenant_id"`
	ConvID   string  `json:"conv_id"`
	State    fsm.State `json:"state"`
	Channel  Channel `json:"channel"`

	Qualification Qualification        `json:"qualification"`
	PendingSlots  []calendar.SlotOffer `json:"pending_slots,omitempty"`
	CallerID      string               `json:"caller_id,omitempty"`

	History      []Turn        `json:"history"`
	LastQuestion string        `json:"last_question,omitempty"`
	LastIntent   intent.Intent `json:"last_intent,omitempty"`

	Counters    Counters `json:"counters"`
	RouterFails int      `json:"router_fails"`

	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// New returns a fresh session in the START state with zeroed counters.
func New(tenantID, convID string, ch Channel, now time.Time) *Session {
	s := &Session{
		TenantID:  tenantID,
		ConvID:    convID,
		State:     fsm.Start,
		Channel:   ch,
		CreatedAt: now,
		LastSeenAt: now,
	}
	s.Reset()
	return s
}

// Reset zeroes every conversation counter and the router sub-dialog
// counter. It is called exactly at session start and on entry to the
// intent-router recovery state.
func (s *Session) Reset() {
	s.Counters = Counters{
		ContextFails: make(map[FailContext]int, len(FailContexts)),
	}
	s.RouterFails = 0
}

// AppendTurn records a turn in the bounded history, evicting the oldest
// entry once [MaxHistoryTurns] is reached.
func (s *Session) AppendTurn(role Role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: at})
	if len(s.History) > MaxHistoryTurns {
		s.History = s.History[len(s.History)-MaxHistoryTurns:]
	}
}

// Expired reports whether the session has been inactive longer than ttl.
// A non-positive ttl falls back to [DefaultTTL].
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Sub(s.LastSeenAt) > ttl
}

// Restart rewinds the session to a fresh START state, preserving identity
// (tenant, conversation, channel, caller ID) but dropping qualification,
// slots, history, and counters. Used on TTL expiry.
func (s *Session) Restart(now time.Time) {
	s.State = fsm.Start
	s.Qualification = Qualification{}
	s.PendingSlots = nil
	s.History = nil
	s.LastQuestion = ""
	s.LastIntent = intent.None
	s.CreatedAt = now
	s.LastSeenAt = now
	s.Reset()
}

// FirstName returns the first token of the collected name, used in the
// booking-confirmation prompt.
func (s *Session) FirstName() string {
	name := s.Qualification.Name
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' {
			return name[:i]
		}
	}
	return name
}
