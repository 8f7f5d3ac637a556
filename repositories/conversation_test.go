package repositories

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"meister-eder/domain"
)

var testLog = logs.GetLoggerFromLevel(slog.LevelError)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConversationRepository_RoundTrip(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), testLog)

	state := domain.NewConversation("maria@example.com", domain.ChannelEmail)
	state.Language = "en"
	state.FlowStep = domain.StepCollectBooking
	state.AppendUser("Hello, I want to register my daughter.")
	state.AppendAssistant("Great! What is her name?")
	state.Registration.Child.FullName = "Anna Muster"
	state.LastInboundMessageID = "<m1@example.com>"

	req.NoError(repo.Save(state))

	loaded, err := repo.Load("maria@example.com")
	req.NoError(err)
	req.NotNil(loaded)
	req.Equal("en", loaded.Language)
	req.Equal(domain.StepCollectBooking, loaded.FlowStep)
	req.Len(loaded.Messages, 2)
	req.Equal(domain.RoleUser, loaded.Messages[0].Role)
	req.Equal("Anna Muster", loaded.Registration.Child.FullName)
	req.Equal("<m1@example.com>", loaded.LastInboundMessageID)
}

func TestConversationRepository_UnknownIdentityIsNilNil(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), testLog)

	loaded, err := repo.Load("nobody@example.com")
	req.NoError(err)
	req.Nil(loaded)
}

// The escalation flag must survive a save/load cycle, otherwise a restart
// would re-alert an already-escalated conversation.
func TestConversationRepository_EscalationFlagIsDurable(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), testLog)

	state := domain.NewConversation("mailer-daemon@example.com", domain.ChannelEmail)
	state.LoopEscalated = true
	req.NoError(repo.Save(state))

	loaded, err := repo.Load("mailer-daemon@example.com")
	req.NoError(err)
	req.True(loaded.LoopEscalated)
}

func TestConversationRepository_ListIncomplete(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(openTestDB(t), testLog)

	open := domain.NewConversation("open@example.com", domain.ChannelEmail)
	done := domain.NewConversation("done@example.com", domain.ChannelEmail)
	done.Completed = true
	done.CompletedVersion = 1
	req.NoError(repo.Save(open))
	req.NoError(repo.Save(done))

	incomplete, err := repo.ListIncomplete()
	req.NoError(err)
	req.Len(incomplete, 1)
	req.Equal("open@example.com", incomplete[0].Identity)
}

func TestMemoryRepository_LoadReturnsCopy(t *testing.T) {
	req := require.New(t)
	repo := NewMemoryRepository()

	state := domain.NewConversation("chat-1", domain.ChannelChat)
	req.NoError(repo.Save(state))

	first, err := repo.Load("chat-1")
	req.NoError(err)
	first.Language = "en"

	// Mutating a loaded copy must not leak into the stored state.
	second, err := repo.Load("chat-1")
	req.NoError(err)
	req.Equal("de", second.Language)
}

func TestMemoryRepository_Drop(t *testing.T) {
	req := require.New(t)
	repo := NewMemoryRepository()
	req.NoError(repo.Save(domain.NewConversation("chat-1", domain.ChannelChat)))

	repo.Drop("chat-1")
	loaded, err := repo.Load("chat-1")
	req.NoError(err)
	req.Nil(loaded)
}
