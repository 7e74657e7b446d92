package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/caralabs/carad/internal/modules"
)

const (
	generationTemperature = 0.7
	generationMaxTokens   = 1000
	retryBackoffFactor    = 1.5
)

// OpenAIConfig holds configuration for the chat-completion client.
// Works with any OpenAI-compatible endpoint (OpenAI, DeepSeek, local).
type OpenAIConfig struct {
	// BaseURL is the API base URL, e.g. https://api.deepseek.com/v1.
	BaseURL string

	// Model is the chat model, e.g. deepseek-chat.
	Model string

	// APIKey is the API key.
	APIKey string

	// MaxRetries bounds transport-level retries. 0 disables retries.
	// Deliberately narrow: whole-generation retries are a caller decision.
	MaxRetries int

	// RetryDelay is the initial backoff between retries.
	RetryDelay time.Duration
}

// Validate validates the configuration.
func (c OpenAIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// OpenAIGenerator implements Generator via langchaingo's OpenAI client.
type OpenAIGenerator struct {
	llm    llms.Model
	config OpenAIConfig
	logger *zap.Logger
}

// NewOpenAIGenerator creates a generator backed by an OpenAI-compatible API.
func NewOpenAIGenerator(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &OpenAIGenerator{
		llm:    llm,
		config: cfg,
		logger: logger,
	}, nil
}

// Generate produces an answer, retrying transport errors with exponential
// backoff up to MaxRetries. Context cancellation and deadline expiry are
// never retried.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if req.Query == "" {
		return "", ErrEmptyQuery
	}

	messages := g.buildMessages(req)

	delay := g.config.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("retrying generation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * retryBackoffFactor)
		}

		answer, err := g.complete(ctx, messages)
		if err == nil {
			return answer, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", g.config.MaxRetries+1, lastErr)
}

func (g *OpenAIGenerator) complete(ctx context.Context, messages []llms.MessageContent) (string, error) {
	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(generationTemperature),
		llms.WithMaxTokens(generationMaxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}

// buildMessages assembles the prompt: persona system prompt, optional
// knowledge context, then the user query.
func (g *OpenAIGenerator) buildMessages(req Request) []llms.MessageContent {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, modules.PromptFor(req.Module)),
	}

	if len(req.Context) > 0 {
		contextText := strings.Join(req.Context, "\n\n")
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem,
			"Use the following information as context for answering the user's question:\n\n"+contextText))
	}

	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, req.Query))
	return messages
}
