// Package config provides configuration loading for carad.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and hardcoded defaults underneath.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates a configuration value that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete carad configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Store       StoreConfig       `koanf:"store"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	Generator   GeneratorConfig   `koanf:"generator"`
	Coordinator CoordinatorConfig `koanf:"coordinator"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `koanf:"level"`
	// Format selects the encoder: json or console.
	Format string `koanf:"format"`
}

// StoreConfig holds answer store configuration.
type StoreConfig struct {
	// Backend selects the vector store implementation: chromem or qdrant.
	Backend string `koanf:"backend"`
	// Path is the chromem persistence directory.
	Path string `koanf:"path"`
	// QdrantURL is the Qdrant server URL when Backend is qdrant.
	QdrantURL string `koanf:"qdrant_url"`
	// CollectionPrefix namespaces collections when sharing a Qdrant instance.
	CollectionPrefix string `koanf:"collection_prefix"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding client configuration.
// Works for both the OpenAI API and local TEI servers.
type EmbeddingConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// GeneratorConfig holds the chat-completion client configuration.
type GeneratorConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	// Timeout bounds a single generation. On expiry the coordinator
	// substitutes a fallback answer instead of surfacing an error.
	Timeout Duration `koanf:"timeout"`
	// MaxRetries bounds transport-level retries inside the client.
	MaxRetries int `koanf:"max_retries"`
	// RetryDelay is the initial backoff between retries.
	RetryDelay Duration `koanf:"retry_delay"`
}

// CoordinatorConfig holds request-coordination tunables.
type CoordinatorConfig struct {
	// ReuseThreshold is the maximum vector distance at which a recorded
	// answer is reused instead of generating a new one. 0 means identical.
	ReuseThreshold float64 `koanf:"reuse_threshold"`
	// EntryTTL bounds the age of cached responses and task records.
	// Expired entries are evicted lazily on the next read.
	EntryTTL Duration `koanf:"entry_ttl"`
	// ContextDocs is how many knowledge documents to retrieve per generation.
	ContextDocs int `koanf:"context_docs"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8000,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Backend:          "chromem",
			Path:             "~/.config/carad/answerstore",
			QdrantURL:        "http://localhost:6333",
			CollectionPrefix: "carad",
		},
		Embedding: EmbeddingConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-3-small",
		},
		Generator: GeneratorConfig{
			BaseURL:    "https://api.deepseek.com/v1",
			Model:      "deepseek-chat",
			Timeout:    Duration(60 * time.Second),
			MaxRetries: 2,
			RetryDelay: Duration(500 * time.Millisecond),
		},
		Coordinator: CoordinatorConfig{
			ReuseThreshold: 0.25,
			EntryTTL:       Duration(5 * time.Minute),
			ContextDocs:    3,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging format %q (want json or console)", ErrInvalidConfig, c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Store.Backend {
	case "chromem":
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store path required for chromem backend", ErrInvalidConfig)
		}
	case "qdrant":
		if c.Store.QdrantURL == "" {
			return fmt.Errorf("%w: qdrant_url required for qdrant backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store backend %q (want chromem or qdrant)", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Embedding.BaseURL == "" || c.Embedding.Model == "" {
		return fmt.Errorf("%w: embedding base_url and model required", ErrInvalidConfig)
	}
	if c.Generator.BaseURL == "" || c.Generator.Model == "" {
		return fmt.Errorf("%w: generator base_url and model required", ErrInvalidConfig)
	}
	if c.Generator.Timeout.Duration() <= 0 {
		return fmt.Errorf("%w: generator timeout must be positive", ErrInvalidConfig)
	}
	if c.Generator.MaxRetries < 0 {
		return fmt.Errorf("%w: generator max_retries cannot be negative", ErrInvalidConfig)
	}
	if c.Coordinator.ReuseThreshold < 0 {
		return fmt.Errorf("%w: reuse_threshold cannot be negative", ErrInvalidConfig)
	}
	if c.Coordinator.EntryTTL.Duration() <= 0 {
		return fmt.Errorf("%w: entry_ttl must be positive", ErrInvalidConfig)
	}
	if c.Coordinator.ContextDocs < 0 {
		return fmt.Errorf("%w: context_docs cannot be negative", ErrInvalidConfig)
	}
	return nil
}
