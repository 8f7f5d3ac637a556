package agent

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"meister-eder/domain"
)

// ExtractionResult is the structured output the LLM collaborator produces
// for one turn. The flow controller never inspects raw model text; only
// this tagged result drives transitions.
type ExtractionResult struct {
	Reply                string                 `json:"reply"`
	Intent               domain.Intent          `json:"intent"`
	Updates              map[string]interface{} `json:"updates"`
	Fields               []string               `json:"fields"` // correction targets
	RegistrationComplete bool                   `json:"registration_complete"`
	Language             string                 `json:"language"`
}

var (
	fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n(.*?)\\n```\\s*$")
	braceRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseResponse extracts the JSON payload from raw model output. Three
// strategies in order: fenced code block, bare JSON object, JSON embedded in
// surrounding text. Unparseable output falls back to treating the whole
// text as the reply with no state effects.
func ParseResponse(content string, log *slog.Logger) ExtractionResult {
	text := strings.TrimSpace(content)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return normalized(result, content)
	}
	if m := braceRe.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &result); err == nil {
			return normalized(result, content)
		}
	}

	log.Warn("Could not parse LLM response as JSON, using raw text as reply")
	return ExtractionResult{
		Reply:    content,
		Intent:   domain.IntentQuestion,
		Language: "de",
	}
}

func normalized(result ExtractionResult, raw string) ExtractionResult {
	if result.Reply == "" {
		result.Reply = raw
	}
	switch result.Intent {
	case domain.IntentFieldUpdates, domain.IntentQuestion, domain.IntentCorrection,
		domain.IntentConfirm, domain.IntentUpdateRequest, domain.IntentNewRegistration:
	default:
		result.Intent = domain.IntentFieldUpdates
	}
	return result
}
