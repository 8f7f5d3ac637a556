// Package agent hosts the conversation/registration state engine: the flow
// controller, the escalation tracker and the per-turn orchestration that
// turns one inbound message into state mutations, a versioned registration
// write and notification events.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"

	"meister-eder/domain"
	"meister-eder/provider"
	"meister-eder/storage"
	"meister-eder/validation"
)

type ConversationStore interface {
	Load(identity string) (*domain.ConversationState, error)
	Save(state *domain.ConversationState) error
}

type RegistrationStore interface {
	SaveVersion(identity string, rec domain.RegistrationRecord) (storage.SaveResult, error)
	Current(identity string) (*domain.RegistrationRecord, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, event domain.NotificationEvent) []domain.RecipientOutcome
}

type KnowledgeBase interface {
	Lookup(ctx context.Context, query string) (string, error)
}

// Agent processes one inbound message at a time per identity. The email
// poller and each chat session call it sequentially, so a single
// conversation is never processed concurrently.
type Agent struct {
	provider      provider.Provider
	kb            KnowledgeBase
	conversations ConversationStore
	registrations RegistrationStore
	notifier      Notifier
	tracker       *EscalationTracker
	llmTimeout    time.Duration
	log           *slog.Logger
}

func New(
	p provider.Provider,
	kb KnowledgeBase,
	conversations ConversationStore,
	registrations RegistrationStore,
	notifier Notifier,
	tracker *EscalationTracker,
	llmTimeout time.Duration,
	log *slog.Logger,
) *Agent {
	return &Agent{
		provider:      p,
		kb:            kb,
		conversations: conversations,
		registrations: registrations,
		notifier:      notifier,
		tracker:       tracker,
		llmTimeout:    llmTimeout,
		log:           log,
	}
}

// Process consumes one inbound human message and returns the reply text.
// An empty reply with nil error means the turn was deliberately silent
// (over-cap suppression). A non-nil error means nothing was persisted and
// the identical message is safe to reprocess.
func (a *Agent) Process(ctx context.Context, identity string, channel domain.Channel, senderEmail, text, inboundMessageID string) (string, error) {
	state, err := a.loadOrCreate(identity, channel, senderEmail, text)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	state.LastActivity = now
	if inboundMessageID != "" {
		state.LastInboundMessageID = inboundMessageID
	}
	state.AppendUser(text)

	if suppress, alert := a.tracker.CheckCap(state); suppress {
		if alert {
			a.notifier.Dispatch(ctx, domain.NotificationEvent{
				Kind:     domain.EventLoopEscalation,
				Identity: identity,
				Language: state.Language,
				Reason:   fmt.Sprintf("conversation reached %d user messages without completing", state.UserMessageCount()),
			})
		}
		if err := a.conversations.Save(state); err != nil {
			return "", err
		}
		return "", nil
	}

	// Per-turn knowledge lookup feeds the system prompt so question intents
	// are answered from the knowledge base, not from model memory.
	kbSnippet, err := a.kb.Lookup(ctx, text)
	if err != nil {
		a.log.Warn("Knowledge lookup failed", "identity", identity, "error", err)
		kbSnippet = "(No knowledge-base content available.)"
	}

	violations := validation.Validate(state.Registration, now)
	system := BuildSystemPrompt(state, kbSnippet, CorrectivePrompt(violations))

	llmCtx, cancel := context.WithTimeout(ctx, a.llmTimeout)
	defer cancel()
	raw, err := a.provider.Complete(llmCtx, system, toProviderMessages(state.Messages))
	if err != nil {
		// Transient: nothing persisted, the message will be reprocessed.
		a.log.Error("LLM call failed", "identity", identity, "error", err)
		return "", fmt.Errorf("llm completion failed for %s: %w", identity, err)
	}

	result := ParseResponse(raw, a.log)
	reply := a.applyTurn(ctx, state, result, now)

	state.AppendAssistant(reply)
	state.UpdatedAt = now
	if err := a.conversations.Save(state); err != nil {
		return "", fmt.Errorf("conversation save failed for %s: %w", identity, err)
	}
	return reply, nil
}

// HandleAutomated performs the automated-sender escalation path: no LLM
// call, no outbound reply ever, exactly one admin alert per identity.
func (a *Agent) HandleAutomated(ctx context.Context, identity string, channel domain.Channel, reason string) error {
	state, err := a.conversations.Load(identity)
	if err != nil {
		return err
	}
	if state == nil {
		state = domain.NewConversation(identity, channel)
	}
	state.LastActivity = time.Now().UTC()

	if a.tracker.NoteAutomated(state) {
		a.notifier.Dispatch(ctx, domain.NotificationEvent{
			Kind:     domain.EventLoopEscalation,
			Identity: identity,
			Language: state.Language,
			Reason:   reason,
		})
	}
	return a.conversations.Save(state)
}

// applyTurn runs the deterministic part of the state machine for one parsed
// result and returns the reply to send.
func (a *Agent) applyTurn(ctx context.Context, state *domain.ConversationState, result ExtractionResult, now time.Time) string {
	if state.Completed {
		return a.applyPostComplete(ctx, state, result, now)
	}

	switch result.Intent {
	case domain.IntentQuestion:
		// Answered from the knowledge snippet already in the prompt; the
		// flow resumes at the same step afterward.
		return result.Reply
	case domain.IntentCorrection:
		ApplyUpdates(state, onlyFields(result.Updates, result.Fields))
	default:
		ApplyUpdates(state, result.Updates)
	}

	violations := validation.Validate(state.Registration, now)
	state.FlowStep = NextStep(state.FlowStep, violations)

	confirming := result.Intent == domain.IntentConfirm || result.RegistrationComplete
	if state.FlowStep != domain.StepConfirm || !confirming {
		return result.Reply
	}
	if len(validation.Blocking(violations)) > 0 {
		return result.Reply
	}
	if warnings := validation.Warnings(violations); len(warnings) > 0 && !state.AgeConfirmed {
		// Out-of-range age: collectible, but the parent must explicitly
		// acknowledge once before completion.
		state.AgeConfirmed = true
		if state.Language == "en" {
			return result.Reply + "\n\nPlease note: the playgroup is intended for children aged 2-5. If you would like to register anyway, simply confirm once more."
		}
		return result.Reply + "\n\nBitte beachte: Die Spielgruppe ist für Kinder von 2-5 Jahren gedacht. Wenn du trotzdem anmelden möchtest, bestätige bitte noch einmal."
	}

	return a.complete(ctx, state, result.Reply, now)
}

// complete runs the COMPLETE transition: durable versioned write first,
// notifications after, completion flag only on confirmed persistence.
func (a *Agent) complete(ctx context.Context, state *domain.ConversationState, reply string, now time.Time) string {
	record := buildRecord(state, now)
	saved, err := a.registrations.SaveVersion(state.Identity, record)
	if err != nil {
		// Fatal for this attempt only; the next inbound message retries.
		a.log.Error("Registration write failed", "identity", state.Identity, "error", err)
		return FallbackMessage(state.Language)
	}

	state.Completed = true
	state.CompletedVersion = saved.Version
	state.FlowStep = domain.StepComplete
	record.Metadata.Version = saved.Version

	if saved.Created {
		// Two independent events: admin routing and parent confirmation are
		// isolated from each other and from the write above.
		a.notifier.Dispatch(ctx, domain.NotificationEvent{
			Kind:     domain.EventRegistrationCompleted,
			Identity: state.Identity,
			Language: state.Language,
			Record:   &record,
		})
		a.notifier.Dispatch(ctx, domain.NotificationEvent{
			Kind:     domain.EventParentConfirmation,
			Identity: state.Identity,
			Language: state.Language,
			Record:   &record,
		})
	}
	a.log.Info("Registration complete", "identity", state.Identity, "version", saved.Version)
	return reply
}

// applyPostComplete drives the POST_COMPLETE side-state: questions, bounded
// edits producing new versions, and additional bookings for the same
// identity.
func (a *Agent) applyPostComplete(ctx context.Context, state *domain.ConversationState, result ExtractionResult, now time.Time) string {
	state.FlowStep = domain.StepPostComplete

	switch result.Intent {
	case domain.IntentQuestion:
		return result.Reply

	case domain.IntentNewRegistration:
		MergeBooking(state, result.Updates)
	case domain.IntentCorrection, domain.IntentUpdateRequest:
		ApplyUpdates(state, onlyFields(result.Updates, result.Fields))
	default:
		ApplyUpdates(state, result.Updates)
	}

	confirming := result.Intent == domain.IntentConfirm || result.RegistrationComplete
	if !confirming {
		return result.Reply
	}
	violations := validation.Validate(state.Registration, now)
	if len(validation.Blocking(violations)) > 0 {
		return result.Reply
	}

	record := buildRecord(state, now)
	saved, err := a.registrations.SaveVersion(state.Identity, record)
	if err != nil {
		a.log.Error("Registration update write failed", "identity", state.Identity, "error", err)
		return FallbackMessage(state.Language)
	}
	if saved.Created {
		current, _ := a.registrations.Current(state.Identity)
		var changes map[string]domain.FieldChange
		if current != nil {
			changes = current.Metadata.ChangeSummary
		}
		record.Metadata.Version = saved.Version
		state.CompletedVersion = saved.Version
		a.notifier.Dispatch(ctx, domain.NotificationEvent{
			Kind:     domain.EventRegistrationUpdated,
			Identity: state.Identity,
			Language: state.Language,
			Record:   &record,
			Changes:  changes,
		})
		a.log.Info("Registration updated", "identity", state.Identity, "version", saved.Version)
	}
	return result.Reply
}

func (a *Agent) loadOrCreate(identity string, channel domain.Channel, senderEmail, text string) (*domain.ConversationState, error) {
	state, err := a.conversations.Load(identity)
	if err != nil {
		return nil, fmt.Errorf("conversation load failed for %s: %w", identity, err)
	}
	if state != nil {
		return state, nil
	}
	state = domain.NewConversation(identity, channel)
	state.ParentEmail = senderEmail
	state.Language = detectLanguage(text)
	a.log.Info("New conversation", "identity", identity, "channel", channel, "language", state.Language)
	return state, nil
}

// detectLanguage picks de or en from the first message. German is the
// default and the language stays sticky for the whole conversation.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if info.Lang == whatlanggo.Eng && info.IsReliable() {
		return "en"
	}
	return "de"
}

func onlyFields(updates map[string]interface{}, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		return updates
	}
	out := map[string]interface{}{}
	for _, f := range fields {
		if v, ok := updates[f]; ok {
			out[f] = v
		}
	}
	return out
}

func toProviderMessages(history []domain.ChatMessage) []provider.Message {
	out := make([]provider.Message, 0, len(history))
	for _, m := range history {
		out = append(out, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
