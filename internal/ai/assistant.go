package ai

import (
	"context"
	"errors"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// ErrEmptyResponse is returned by providers when the model produced no text.
var ErrEmptyResponse = errors.New("model returned empty response")

// Generator produces text from a system instruction and a user message.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// CleanResponse removes a markdown code fence wrapped around the whole document.
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		// first line is the language tag, e.g. ```markdown
		body = body[idx+1:]
	} else {
		body = ""
	}

	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")

	return strings.TrimSpace(body)
}
