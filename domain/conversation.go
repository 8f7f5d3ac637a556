package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a conversation's append-only history.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState holds everything known about one identity's conversation.
// There is exactly one per identity key (normalized email address or chat
// session id). Email-channel states are durable; chat states live and die
// with the transport session.
type ConversationState struct {
	Identity     string             `json:"conversationId"`
	Channel      Channel            `json:"channel"`
	Language     string             `json:"language"` // "de" or "en", sticky once set
	FlowStep     FlowStep           `json:"flowStep"`
	Registration RegistrationData   `json:"registration"`
	Messages     []ChatMessage      `json:"messages"`
	ParentEmail  string             `json:"parentEmail,omitempty"`
	ParentName   string             `json:"parentName,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastActivity time.Time `json:"lastActivity"`

	// Completed flips only after the versioned write is durably confirmed.
	// CompletedVersion points at the current version; the store owns the
	// authoritative snapshot.
	Completed        bool `json:"completed"`
	CompletedVersion int  `json:"completedVersion,omitempty"`

	// LoopEscalated is monotonic: once true it never resets, surviving
	// restarts so an already-escalated conversation cannot alert twice.
	LoopEscalated bool `json:"loopEscalated"`

	// AgeConfirmed records the parent's explicit acknowledgment of an
	// out-of-range child age.
	AgeConfirmed bool `json:"ageConfirmed,omitempty"`

	// Most recent inbound Message-ID. Used for outbound reply threading
	// headers only, never for conversation matching.
	LastInboundMessageID string `json:"lastInboundMessageId,omitempty"`
}

// NewConversation creates the state for a first-time sender.
func NewConversation(identity string, channel Channel) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		Identity:     identity,
		Channel:      channel,
		Language:     "de",
		FlowStep:     StepGreeting,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}
}

func (s *ConversationState) AppendUser(content string) {
	s.Messages = append(s.Messages, ChatMessage{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()})
}

func (s *ConversationState) AppendAssistant(content string) {
	s.Messages = append(s.Messages, ChatMessage{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()})
}

// UserMessageCount counts user-authored entries, the basis of the loop cap.
func (s *ConversationState) UserMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}
