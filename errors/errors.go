package errors

import "fmt"

var (
	ErrAlreadyRunning      = fmt.Errorf("another poll cycle is already running")
	ErrProviderUnavailable = fmt.Errorf("llm provider unavailable")
	ErrEmptyKnowledgeBase  = fmt.Errorf("no knowledge-base files have been found")
)
