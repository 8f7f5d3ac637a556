package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"meister-eder/agent"
	"meister-eder/channels"
	"meister-eder/internal"
	"meister-eder/knowledge"
	"meister-eder/notify"
	"meister-eder/provider"
	"meister-eder/repositories"
	"meister-eder/storage"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the same agent as the email binary onto an interactive terminal
// session. Conversation state lives in memory only; the registration files
// and notifications are shared with the email channel.
func run() (int, error) {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	registrations, err := storage.NewRegistrationStore(config.DataDir, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("registration store failed: %w", err)
	}
	kb, err := knowledge.Load(config.KnowledgeBaseDir, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("knowledge base failed: %w", err)
	}
	defer func() { _ = kb.Close() }()

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
	tracker := agent.NewEscalationTracker(config.MessageCap(), logger)

	registrationAgent := agent.New(
		llm, kb, repositories.NewMemoryRepository(), registrations, dispatcher, tracker,
		config.LLMTimeout, logger,
	)
	session := channels.NewChatSession(registrationAgent, logger)

	color.Cyan.Println(session.Welcome())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		color.Green.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" || text == "/exit" {
			break
		}

		reply, err := session.Send(ctx, text)
		if err != nil {
			color.Red.Println("Sorry, something went wrong. Please try again.")
			continue
		}
		if reply == "" {
			color.Yellow.Println("(This conversation has been handed over to the team.)")
			continue
		}
		color.Cyan.Println(reply)
	}
	if err := scanner.Err(); err != nil {
		return exitRuntime, err
	}

	color.Cyan.Println("Uf Widerluege!")
	return exitOK, nil
}
