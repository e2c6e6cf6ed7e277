// Package audit records structured routing decisions for offline analytics:
// every state transition, recovery escalation, and router entry produces one
// append-only record. The sink is best-effort by contract; a failing sink
// must never fail a conversation.
package audit

import (
	"context"
	"time"

	"github.com/lastminutejob75/standardiste/internal/fsm"
)

// MaxUserMessageLen caps the user text stored in a record.
const MaxUserMessageLen = 200

// Record is one audit entry. Append-only; records are never updated.
type Record struct {
	TenantID      string         `json:"tenant_id"`
	ConvID        string         `json:"conv_id"`
	EventName     string         `json:"event_name"`
	PreviousState fsm.State      `json:"previous_state"`
	Reason        string         `json:"reason,omitempty"`
	Counters      map[string]int `json:"counters,omitempty"`
	UserMessage   string         `json:"user_message,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Truncate caps the user message per [MaxUserMessageLen], rune-aware.
func Truncate(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxUserMessageLen {
		return msg
	}
	return string(runes[:MaxUserMessageLen])
}

// Sink accepts audit records. Implementations tolerate concurrent writers.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}
