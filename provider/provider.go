//go:generate go run go.uber.org/mock/mockgen -source=provider.go -destination=../mocks/mock_provider.go -package=mocks

// Package provider defines the LLM completion collaborator. The engine only
// depends on this interface; concrete API clients live outside this module.
package provider

import "context"

type Message struct {
	Role    string
	Content string
}

// Provider turns a system prompt plus conversation history into the model's
// raw reply text. Implementations must honor ctx cancellation: the caller
// bounds every call with a timeout and treats failure as transient.
type Provider interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}
