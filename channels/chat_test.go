package channels

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"meister-eder/agent"
	"meister-eder/mocks"
	"meister-eder/repositories"
	"meister-eder/storage"
)

func TestChatSession_RoundTrip(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProvider(ctrl)

	store, err := storage.NewRegistrationStore(t.TempDir(), testLog)
	req.NoError(err)
	a := agent.New(p, emptyKB{}, repositories.NewMemoryRepository(), store, silentNotifier{},
		agent.NewEscalationTracker(20, testLog), time.Second, testLog)

	session := NewChatSession(a, testLog)
	req.True(strings.HasPrefix(session.ID(), "chat-"))
	req.Contains(session.Welcome(), "Spielgruppe Pumuckl")

	p.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`{"reply": "Schön! Wie heisst dein Kind?", "intent": "field-updates", "language": "de"}`, nil)

	reply, err := session.Send(context.Background(), "Grüezi, ich möchte mein Kind anmelden.")
	req.NoError(err)
	req.Equal("Schön! Wie heisst dein Kind?", reply)
}

// Two sessions never share conversation state.
func TestChatSession_SessionsAreIsolated(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProvider(ctrl)

	store, err := storage.NewRegistrationStore(t.TempDir(), testLog)
	req.NoError(err)
	a := agent.New(p, emptyKB{}, repositories.NewMemoryRepository(), store, silentNotifier{},
		agent.NewEscalationTracker(20, testLog), time.Second, testLog)

	first := NewChatSession(a, testLog)
	second := NewChatSession(a, testLog)
	req.NotEqual(first.ID(), second.ID())
}
