package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"meister-eder/agent"
	"meister-eder/channels"
	"meister-eder/knowledge"
	"meister-eder/mailbox"
	"meister-eder/notify"
	"meister-eder/provider"
	"meister-eder/repositories"
	"meister-eder/storage"
)

const (
	registrationAddr = "spielgruppe@example.com"
	indoorAddr       = "indoor-leader@example.com"
	outdoorAddr      = "outdoor-leader@example.com"
	adminAddr        = "admin@example.com"
)

// scriptedProvider replays canned LLM turns in order. The scenario fails
// loudly when the conversation consumes more turns than scripted.
type scriptedProvider struct {
	mu    sync.Mutex
	turns []string
}

func (p *scriptedProvider) push(turns ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, turns...)
}

func (p *scriptedProvider) Complete(context.Context, string, []provider.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.turns) == 0 {
		return "", fmt.Errorf("scripted provider exhausted")
	}
	next := p.turns[0]
	p.turns = p.turns[1:]
	return next, nil
}

// queueTransport is an in-memory mailbox: the scenario enqueues inbound
// messages and inspects everything the system sends.
type queueTransport struct {
	mu      sync.Mutex
	inbound []mailbox.InboundEmail
	sent    []mailbox.OutboundEmail
}

func (t *queueTransport) enqueue(msg mailbox.InboundEmail) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound = append(t.inbound, msg)
}

func (t *queueTransport) FetchUnread(context.Context) ([]mailbox.InboundEmail, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	batch := t.inbound
	t.inbound = nil
	return batch, nil
}

func (t *queueTransport) Send(_ context.Context, msg mailbox.OutboundEmail) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return nil
}

// drain returns and clears everything sent since the last drain.
func (t *queueTransport) drain() []mailbox.OutboundEmail {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.sent
	t.sent = nil
	return out
}

// BaseSuite wires the full system the way cmd/agent does, with the LLM and
// the mail server replaced by in-memory doubles.
type BaseSuite struct {
	suite.Suite
	Config Config

	Provider  *scriptedProvider
	Transport *queueTransport
	Store     *storage.RegistrationStore
	Poller    *channels.Poller

	log *slog.Logger
}

func (s *BaseSuite) SetupTest() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg
	s.log = logs.GetLoggerFromLevel(slog.LevelError)

	dataDir := s.T().TempDir()
	kbDir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(
		filepath.Join(kbDir, "fees.md"),
		[]byte("Indoor: CHF 130/260/390 per month for 1/2/3 weekly days. Outdoor forest group: CHF 250 per month. One-time registration fee CHF 80."),
		0o644,
	))

	s.Store, err = storage.NewRegistrationStore(dataDir, s.log)
	s.Require().NoError(err)
	kb, err := knowledge.Load(kbDir, s.log)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = kb.Close() })

	s.Provider = &scriptedProvider{}
	s.Transport = &queueTransport{}
	dispatcher := notify.NewDispatcher(s.Transport, registrationAddr, indoorAddr, outdoorAddr, []string{adminAddr}, s.log)
	classifier, err := mailbox.NewClassifier()
	s.Require().NoError(err)

	registrationAgent := agent.New(
		s.Provider, kb, repositories.NewMemoryRepository(), s.Store, dispatcher,
		agent.NewEscalationTracker(20, s.log), 10*time.Second, s.log,
	)
	s.Poller = channels.NewPoller(s.Transport, classifier, registrationAgent, registrationAddr, s.log)
}

// Step prints a scenario step header.
func (s *BaseSuite) Step(format string, args ...any) {
	if s.Config.Colours {
		color.Cyan.Printf("▶ "+format+"\n", args...)
	} else {
		fmt.Printf("> "+format+"\n", args...)
	}
}

// Deliver enqueues one parent email and runs a poll cycle.
func (s *BaseSuite) Deliver(from, subject, body, messageID string) []mailbox.OutboundEmail {
	s.Transport.enqueue(mailbox.InboundEmail{
		From:      from,
		Subject:   subject,
		MessageID: messageID,
		Headers:   mailbox.Header{},
		Body:      body,
		RawBody:   body,
	})
	_, err := s.Poller.RunCycle(context.Background())
	s.Require().NoError(err)

	sent := s.Transport.drain()
	if s.Config.Debug {
		for _, msg := range sent {
			color.Gray.Printf("--- to %v ---\n%s\n", msg.To, msg.Body)
		}
	}
	return sent
}
