package agent

import (
	"log/slog"

	"meister-eder/domain"
)

// EscalationTracker caps runaway conversations and guarantees the one-shot
// admin alert. Both triggers are gated by the conversation's monotonic
// LoopEscalated flag, which is persisted with the state so a restart cannot
// re-alert an already-escalated conversation.
type EscalationTracker struct {
	maxUserMessages int
	log             *slog.Logger
}

func NewEscalationTracker(maxUserMessages int, log *slog.Logger) *EscalationTracker {
	return &EscalationTracker{maxUserMessages: maxUserMessages, log: log}
}

// NoteAutomated handles the automated-sender trigger. It reports whether
// this is the first automated message for the identity; only then does the
// caller emit the single loop-escalation event. The flag flips here.
func (t *EscalationTracker) NoteAutomated(state *domain.ConversationState) bool {
	if state.LoopEscalated {
		t.log.Debug("Automated message for already-escalated conversation", "identity", state.Identity)
		return false
	}
	state.LoopEscalated = true
	t.log.Warn("First automated message detected, escalating", "identity", state.Identity)
	return true
}

// CheckCap applies the message-count trigger after the inbound message has
// been appended. suppress means the turn must return an empty reply; alert
// means this exact turn crossed the cap and owes the one-shot notification.
func (t *EscalationTracker) CheckCap(state *domain.ConversationState) (suppress, alert bool) {
	if state.Completed || state.UserMessageCount() <= t.maxUserMessages {
		return false, false
	}
	if state.LoopEscalated {
		return true, false
	}
	state.LoopEscalated = true
	t.log.Warn("Message cap exceeded, escalating",
		"identity", state.Identity, "messages", state.UserMessageCount(), "cap", t.maxUserMessages)
	return true, true
}
