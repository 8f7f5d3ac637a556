package channels

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"meister-eder/agent"
	"meister-eder/domain"
)

// ChatSession is one interactive conversation over the chat surface. It
// shares the agent with the email channel but keys its state by a fresh
// session id instead of an email address, and keeps it in memory only.
type ChatSession struct {
	id    string
	agent *agent.Agent
	log   *slog.Logger
}

func NewChatSession(a *agent.Agent, log *slog.Logger) *ChatSession {
	id := "chat-" + uuid.NewString()
	log.Info("Chat session started", "session", id)
	return &ChatSession{id: id, agent: a, log: log}
}

func (s *ChatSession) ID() string {
	return s.id
}

// Welcome returns the opening greeting shown before any user input.
func (s *ChatSession) Welcome() string {
	return "Grüezi! Ich bin der Anmelde-Assistent der Spielgruppe Pumuckl. " +
		"Gerne helfe ich dir, dein Kind anzumelden. Wie heisst dein Kind?\n" +
		"(You can also write in English.)"
}

// Send forwards one user message and returns the assistant reply. Unlike the
// email channel a transient failure is surfaced to the user immediately, as
// there is no redelivery on an interactive surface.
func (s *ChatSession) Send(ctx context.Context, text string) (string, error) {
	reply, err := s.agent.Process(ctx, s.id, domain.ChannelChat, "", text, "")
	if err != nil {
		s.log.Error("Chat turn failed", "session", s.id, "error", err)
		return "", err
	}
	return reply, nil
}
