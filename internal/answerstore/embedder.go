package answerstore

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embedding client. Works for both the OpenAI API and local TEI servers.
type OpenAIEmbedderConfig struct {
	// BaseURL is the API base URL, e.g. https://api.openai.com/v1.
	BaseURL string

	// Model is the embedding model, e.g. text-embedding-3-small.
	Model string

	// APIKey is the API key. Optional for TEI servers.
	APIKey string
}

// Validate validates the configuration.
func (c OpenAIEmbedderConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// OpenAIEmbedder implements Embedder via langchaingo's OpenAI client.
type OpenAIEmbedder struct {
	embeddings.Embedder
}

// NewOpenAIEmbedder creates an embedder backed by an OpenAI-compatible API.
func NewOpenAIEmbedder(cfg OpenAIEmbedderConfig) (*OpenAIEmbedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// langchaingo requires a token; TEI servers ignore it.
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIEmbedder{Embedder: embedder}, nil
}

// Langchain returns the underlying langchaingo Embedder for components
// that integrate with langchaingo vector stores directly.
func (e *OpenAIEmbedder) Langchain() embeddings.Embedder {
	return e.Embedder
}
