// Package recovery implements the graduated-failure policy: every
// qualification step owns a bounded counter, each miss buys an increasingly
// explicit re-ask, and exhaustion hands the conversation to the intent
// router rather than looping forever.
package recovery

import (
	"github.com/lastminutejob75/standardiste/internal/prompt"
	"github.com/lastminutejob75/standardiste/internal/session"
)

// Increment bumps the per-context counter and the global recovery counter
// together, returning the new per-context value.
func Increment(s *session.Session, fc session.FailContext) int {
	s.Counters.ContextFails[fc]++
	s.Counters.GlobalRecoveryFails++
	return s.Counters.ContextFails[fc]
}

// ShouldEscalate reports whether the per-context counter has reached its
// bound and the conversation must leave the current flow.
func ShouldEscalate(s *session.Session, fc session.FailContext) bool {
	return s.Counters.ContextFails[fc] >= session.MaxContextFails
}

// ClarificationFor renders the level-failCount re-ask for the context, or
// ok=false when the levels are exhausted and the caller must escalate.
func ClarificationFor(cat *prompt.Catalog, fc session.FailContext, failCount int, ch session.Channel) (string, bool) {
	return cat.Clarification(fc, failCount, ch)
}

// ShouldTriggerRouter reports whether conversation-level incoherence has
// crossed a threshold: too many recovery failures overall, or too many
// agent questions in a row without user progress.
func ShouldTriggerRouter(s *session.Session) (reason string, yes bool) {
	switch {
	case s.Counters.GlobalRecoveryFails >= session.MaxGlobalRecoveryFails:
		return "global_recovery_fails", true
	case s.Counters.ConsecutiveQuestions >= session.MaxConsecutiveQuestions:
		return "consecutive_questions", true
	}
	return "", false
}
