package internal

import (
	"strings"
	"time"
)

type Config struct {
	IMAPHost          string        `env:"IMAP_HOST,required=true"`
	IMAPPort          int           `env:"IMAP_PORT,required=true"`
	SMTPHost          string        `env:"SMTP_HOST,required=true"`
	SMTPPort          int           `env:"SMTP_PORT,required=true"`
	MailboxUser       string        `env:"MAILBOX_USER,required=true"`
	MailboxPassword   string        `env:"MAILBOX_PASSWORD,required=true"`
	RegistrationEmail string        `env:"REGISTRATION_EMAIL,required=true"`
	AdminEmailIndoor  string        `env:"ADMIN_EMAIL_INDOOR,required=true"`
	AdminEmailOutdoor string        `env:"ADMIN_EMAIL_OUTDOOR,required=true"`
	AdminEmailCC      string        `env:"ADMIN_EMAIL_CC,required=true"`
	DataDir           string        `env:"DATA_DIR,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	KnowledgeBaseDir  string        `env:"KNOWLEDGE_BASE_DIR,required=true"`
	RunLockPath       string        `env:"RUN_LOCK_PATH,required=true"`
	PollInterval      time.Duration `env:"POLL_INTERVAL,required=true"`
	LLMAPIKey         string        `env:"LLM_API_KEY,required=true"`
	LLMBaseURL        string        `env:"LLM_BASE_URL"`
	LLMModel          string        `env:"LLM_MODEL,required=true"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT,required=true"`
	MaxUserMessages   int           `env:"MAX_USER_MESSAGES"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
}

// CCEmails splits the comma-separated admin CC list.
func (c Config) CCEmails() []string {
	var out []string
	for _, addr := range strings.Split(c.AdminEmailCC, ",") {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// MessageCap applies the default conversation cap when the variable is unset.
func (c Config) MessageCap() int {
	if c.MaxUserMessages <= 0 {
		return 20
	}
	return c.MaxUserMessages
}
