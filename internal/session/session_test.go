package session

import (
	"testing"
	"time"

	"github.com/lastminutejob75/standardiste/internal/fsm"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	s := New("cabinet", "conv-1", ChannelVoice, t0)

	if s.State != fsm.Start {
		t.Errorf("state = %s, want START", s.State)
	}
	if s.Counters.ContextFails == nil {
		t.Fatal("context fails map must be initialised")
	}
	if s.Counters.Turns != 0 || s.Counters.GlobalRecoveryFails != 0 {
		t.Error("counters must start at zero")
	}
	if !s.CreatedAt.Equal(t0) || !s.LastSeenAt.Equal(t0) {
		t.Error("timestamps must be set to creation time")
	}
}

func TestAppendTurn_Bounded(t *testing.T) {
	s := New("cabinet", "conv-1", ChannelText, t0)
	for i := 0; i < MaxHistoryTurns+5; i++ {
		s.AppendTurn(RoleUser, "message", t0)
	}
	if len(s.History) != MaxHistoryTurns {
		t.Errorf("history length = %d, want %d", len(s.History), MaxHistoryTurns)
	}
}

func TestExpired(t *testing.T) {
	s := New("cabinet", "conv-1", ChannelVoice, t0)

	if s.Expired(t0.Add(14*time.Minute), 15*time.Minute) {
		t.Error("14 minutes idle should not expire a 15-minute TTL")
	}
	if s.Expired(t0.Add(15*time.Minute), 15*time.Minute) {
		t.Error("exactly the TTL should not expire")
	}
	if !s.Expired(t0.Add(15*time.Minute+time.Second), 15*time.Minute) {
		t.Error("beyond the TTL should expire")
	}
	// Non-positive TTL falls back to the default.
	if !s.Expired(t0.Add(DefaultTTL+time.Second), 0) {
		t.Error("default TTL should apply when unset")
	}
}

func TestRestart(t *testing.T) {
	s := New("cabinet", "conv-1", ChannelVoice, t0)
	s.State = fsm.WaitConfirm
	s.Qualification = Qualification{Name: "Jean Dupont", Contact: "+33612345678"}
	s.CallerID = "+33612345678"
	s.AppendTurn(RoleUser, "oui", t0)
	s.LastQuestion = "Quel créneau ?"
	s.Counters.Turns = 12
	s.Counters.ContextFails[FailName] = 2

	later := t0.Add(20 * time.Minute)
	s.Restart(later)

	if s.State != fsm.Start {
		t.Errorf("state = %s, want START", s.State)
	}
	if s.Qualification != (Qualification{}) {
		t.Error("qualification must be dropped")
	}
	if s.CallerID != "+33612345678" {
		t.Error("caller ID must survive a restart")
	}
	if len(s.History) != 0 || s.LastQuestion != "" {
		t.Error("history and last question must be dropped")
	}
	if s.Counters.Turns != 0 || s.Counters.ContextFails[FailName] != 0 {
		t.Error("counters must be zeroed")
	}
	if !s.LastSeenAt.Equal(later) {
		t.Error("last seen must be stamped with the restart time")
	}
}

func TestCountersSnapshot(t *testing.T) {
	s := New("cabinet", "conv-1", ChannelVoice, t0)
	s.Counters.Turns = 7
	s.Counters.GlobalRecoveryFails = 2
	s.Counters.ContextFails[FailSlotChoice] = 3

	snap := s.Counters.Snapshot()
	if snap["turns"] != 7 {
		t.Errorf("turns = %d, want 7", snap["turns"])
	}
	if snap["global_recovery_fails"] != 2 {
		t.Errorf("global_recovery_fails = %d, want 2", snap["global_recovery_fails"])
	}
	if snap["slot_choice_fails"] != 3 {
		t.Errorf("slot_choice_fails = %d, want 3", snap["slot_choice_fails"])
	}
}

func TestFirstName(t *testing.T) {
	s := New("cabinet", "conv-1", ChannelVoice, t0)
	s.Qualification.Name = "Jean Dupont"
	if got := s.FirstName(); got != "Jean" {
		t.Errorf("FirstName() = %q, want Jean", got)
	}
	s.Qualification.Name = "Madonna"
	if got := s.FirstName(); got != "Madonna" {
		t.Errorf("FirstName() = %q, want Madonna", got)
	}
}
