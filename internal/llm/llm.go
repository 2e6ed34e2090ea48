// Package llm produces paper summaries with a chat-completion model.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for summarization.
var (
	// ErrNoChoices indicates the model returned no completion choices.
	ErrNoChoices = errors.New("no completion choices returned")

	// ErrCompletion indicates the chat-completion call failed.
	ErrCompletion = errors.New("chat completion failed")

	// ErrAPIKey indicates the model credential could not be obtained.
	ErrAPIKey = errors.New("model API key unavailable")
)

// PromptPlaceholder marks where the paper text goes in a prompt template.
const PromptPlaceholder = "{$file_content}"

// Summarizer turns a prompt into Markdown.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// KeySource supplies the model API key by secret name.
type KeySource interface {
	Get(ctx context.Context, name string) (string, error)
}

// BuildPrompt replaces every placeholder in template with text. A template
// without a placeholder is returned unchanged.
func BuildPrompt(template, text string) string {
	return strings.ReplaceAll(template, PromptPlaceholder, text)
}
