package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Defaults for the summary request.
const (
	DefaultModel               = "gpt-4o"
	DefaultAPIKeySecret        = "openai"
	DefaultTemperature         = 1.0
	DefaultTopP                = 1.0
	DefaultMaxCompletionTokens = 5000
	DefaultTimeout             = 3 * time.Minute
)

// OpenAIConfig holds the fixed sampling parameters for every request.
type OpenAIConfig struct {
	Model               string
	BaseURL             string // empty = api.openai.com
	APIKeySecret        string // secret name passed to the KeySource
	Temperature         float64
	TopP                float64
	FrequencyPenalty    float64
	PresencePenalty     float64
	MaxCompletionTokens int64
	Timeout             time.Duration
}

// DefaultOpenAIConfig returns the parameters the summarizer was tuned with.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:               DefaultModel,
		APIKeySecret:        DefaultAPIKeySecret,
		Temperature:         DefaultTemperature,
		TopP:                DefaultTopP,
		MaxCompletionTokens: DefaultMaxCompletionTokens,
		Timeout:             DefaultTimeout,
	}
}

// OpenAI implements Summarizer with the OpenAI chat-completions API. The API
// key is read from the KeySource on every call so rotated secrets apply
// without a restart.
type OpenAI struct {
	keys KeySource
	cfg  OpenAIConfig
	log  *slog.Logger
}

// NewOpenAI creates an OpenAI summarizer.
func NewOpenAI(keys KeySource, cfg OpenAIConfig, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKeySecret == "" {
		cfg.APIKeySecret = DefaultAPIKeySecret
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAI{keys: keys, cfg: cfg, log: logger}
}

// Summarize sends prompt as a single user message and returns the first
// choice. SDK retries are disabled; a failed call is returned as is.
func (c *OpenAI) Summarize(ctx context.Context, prompt string) (string, error) {
	apiKey, err := c.keys.Get(ctx, c.cfg.APIKeySecret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAPIKey, err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return "", fmt.Errorf("%w: secret %q is empty", ErrAPIKey, c.cfg.APIKeySecret)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:      openai.Float(c.cfg.Temperature),
		TopP:             openai.Float(c.cfg.TopP),
		FrequencyPenalty: openai.Float(c.cfg.FrequencyPenalty),
		PresencePenalty:  openai.Float(c.cfg.PresencePenalty),
	}
	if c.cfg.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.cfg.MaxCompletionTokens)
	}

	start := time.Now()
	c.log.Info("llm.summarize.start",
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
		"max_completion_tokens", c.cfg.MaxCompletionTokens,
	)

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.log.Error("llm.summarize.api_error",
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	if len(completion.Choices) == 0 {
		c.log.Error("llm.summarize.no_choices", "elapsed_ms", time.Since(start).Milliseconds())
		return "", ErrNoChoices
	}

	choice := completion.Choices[0]
	if choice.FinishReason == "length" {
		c.log.Warn("llm.summarize.truncated", "max_completion_tokens", c.cfg.MaxCompletionTokens)
	}

	c.log.Info("llm.summarize.done",
		"model", completion.Model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return choice.Message.Content, nil
}

// Compile-time interface check.
var _ Summarizer = (*OpenAI)(nil)
