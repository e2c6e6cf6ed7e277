package engine

import (
	"time"

	"github.com/lastminutejob75/standardiste/internal/fsm"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// EventKind classifies an emitted event for the channel adapter.
type EventKind string

const (
	// EventPartial is an intermediate utterance within one turn, always
	// followed by a final or transfer event.
	EventPartial EventKind = "partial"

	// EventFinal is the turn's main reply.
	EventFinal EventKind = "final"

	// EventTransfer tells the adapter to hand the conversation to a human.
	EventTransfer EventKind = "transfer"
)

// Event is one engine output. Text is always non-empty after the safe-reply
// barrier; NewState is the session state after this turn.
type Event struct {
	Kind     EventKind `json:"kind"`
	Text     string    `json:"text"`
	NewState fsm.State `json:"new_state"`

	// Source identifies the FAQ entry behind an answer, for adapters and
	// logs. It is never part of the spoken text.
	Source string `json:"source,omitempty"`
}

// Message is the neutral inbound message delivered by a channel adapter.
// The engine never inspects channel-specific payloads.
type Message struct {
	TenantID   string
	ConvID     string
	Channel    session.Channel
	Text       string
	CallerID   string
	ReceivedAt time.Time
}
