package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"meister-eder/agent"
	"meister-eder/channels"
	apperrors "meister-eder/errors"
	"meister-eder/internal"
	"meister-eder/knowledge"
	"meister-eder/mailbox"
	"meister-eder/notify"
	"meister-eder/provider"
	"meister-eder/repositories"
	"meister-eder/storage"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., cron).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Agent terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, executes one mailbox cycle and centralizes
// error reporting, so every defer (database close, lock release) fires on
// each exit path.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Run lock
	// One invocation at a time: cron fires every PollInterval and a slow LLM
	// turn must not let two cycles interleave on the same mailbox.
	lock, err := storage.AcquireRunLock(config.RunLockPath)
	if errors.Is(err, apperrors.ErrAlreadyRunning) {
		logger.Info("Previous cycle still running, exiting")
		return exitOK, nil
	}
	if err != nil {
		return exitRuntime, fmt.Errorf("run lock failed: %w", err)
	}
	defer func() { _ = lock.Release() }()

	// 3. Conversation database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 4. Registration store & knowledge base
	registrations, err := storage.NewRegistrationStore(config.DataDir, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("registration store failed: %w", err)
	}
	kb, err := knowledge.Load(config.KnowledgeBaseDir, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("knowledge base failed: %w", err)
	}
	defer func() { _ = kb.Close() }()

	// 5. Collaborators
	classifier, err := mailbox.NewClassifier()
	if err != nil {
		return exitRuntime, fmt.Errorf("classifier init failed: %w", err)
	}
	transport := channels.NewMailTransport(
		config.IMAPHost, config.IMAPPort,
		config.SMTPHost, config.SMTPPort,
		config.MailboxUser, config.MailboxPassword,
		logger,
	)
	dispatcher := notify.NewDispatcher(
		transport,
		config.RegistrationEmail,
		config.AdminEmailIndoor,
		config.AdminEmailOutdoor,
		config.CCEmails(),
		logger,
	)
	llm := provider.NewOpenAIProvider(config.LLMAPIKey, config.LLMBaseURL, config.LLMModel, logger)
	conversations := repositories.NewConversationRepository(db, logger)
	tracker := agent.NewEscalationTracker(config.MessageCap(), logger)

	registrationAgent := agent.New(
		llm, kb, conversations, registrations, dispatcher, tracker,
		config.LLMTimeout, logger,
	)
	poller := channels.NewPoller(transport, classifier, registrationAgent, config.RegistrationEmail, logger)

	// 6. One cycle, then exit. Scheduling is cron's job.
	stats, err := poller.RunCycle(ctx)
	if err != nil {
		return exitRuntime, err
	}
	logger.Info("Cycle finished", stats.Fields()...)
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
