//go:generate go run go.uber.org/mock/mockgen -source=email.go -destination=../mocks/mock_transport.go -package=mocks

// Package channels connects the agent to its two conversation surfaces: the
// polled mailbox and interactive chat sessions.
package channels

import (
	"context"
	"fmt"
	"log/slog"

	"meister-eder/agent"
	"meister-eder/domain"
	"meister-eder/mailbox"
	"meister-eder/observability"
)

// Transport is the mailbox collaborator: it fetches unread inbound mail and
// delivers outbound replies. The IMAP/SMTP implementation and the test
// double both satisfy it.
type Transport interface {
	FetchUnread(ctx context.Context) ([]mailbox.InboundEmail, error)
	Send(ctx context.Context, msg mailbox.OutboundEmail) error
}

// Poller drives one mailbox cycle: fetch, classify, process, reply.
type Poller struct {
	transport  Transport
	classifier mailbox.Classifier
	agent      *agent.Agent
	from       string
	log        *slog.Logger
}

func NewPoller(transport Transport, classifier mailbox.Classifier, a *agent.Agent, from string, log *slog.Logger) *Poller {
	return &Poller{
		transport:  transport,
		classifier: classifier,
		agent:      a,
		from:       from,
		log:        log,
	}
}

// RunCycle processes every unread message once. Per-message errors are
// counted and logged but never abort the cycle; an errored message stays
// unpersisted and is reprocessed on the next run.
func (p *Poller) RunCycle(ctx context.Context) (observability.CycleStats, error) {
	stats := observability.NewCycleStats()

	inbound, err := p.transport.FetchUnread(ctx)
	if err != nil {
		return stats.Finish(), fmt.Errorf("mailbox fetch failed: %w", err)
	}
	stats.Fetched = len(inbound)

	for _, msg := range inbound {
		if err := p.handle(ctx, msg); err != nil {
			stats.Failed++
			p.log.Error("Message processing failed", "from", msg.From, "error", err)
			continue
		}
		stats.Processed++
	}
	return stats.Finish(), nil
}

func (p *Poller) handle(ctx context.Context, msg mailbox.InboundEmail) error {
	identity := mailbox.NormalizeAddress(msg.From)
	if identity == "" {
		p.log.Warn("Unparseable sender, skipping", "from", msg.From)
		return nil
	}

	// Automated senders never receive a reply. Replying to a bounce or an
	// autoresponder is how mail loops start.
	if c := p.classifier.Classify(msg.Headers, msg.From, msg.Subject); c.IsAutomated {
		p.log.Info("Automated sender detected", "identity", identity, "reason", c.Reason)
		return p.agent.HandleAutomated(ctx, identity, domain.ChannelEmail, c.Reason)
	}

	text := mailbox.StripQuotedText(msg.Body)
	if text == "" {
		p.log.Info("Empty message after quote stripping, skipping", "identity", identity)
		return nil
	}

	reply, err := p.agent.Process(ctx, identity, domain.ChannelEmail, identity, text, msg.MessageID)
	if err != nil {
		return err
	}
	if reply == "" {
		// Over-cap suppression: deliberate silence.
		return nil
	}

	out := mailbox.BuildReply(msg, p.from, reply)
	if err := p.transport.Send(ctx, out); err != nil {
		return fmt.Errorf("reply delivery to %s failed: %w", identity, err)
	}
	return nil
}
