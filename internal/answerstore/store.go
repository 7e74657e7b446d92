// Package answerstore provides the semantic answer store for carad.
//
// The store keeps two kinds of collections: a recorded-answers collection
// (every generated query/answer pair) and per-module knowledge collections
// (curated QA pairs). The coordinator queries recorded answers to decide
// whether a new request can be answered without generation, and retrieves
// knowledge documents as generation context.
//
// Documents are stored as "question\nanswer" with subject, module, source
// and timestamp metadata.
package answerstore

import (
	"context"
	"errors"
	"time"
)

// RecordedCollection holds persisted query/answer pairs from past requests.
const RecordedCollection = "user_queries"

// Sentinel errors for answer store operations.
var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyQuery indicates an empty query string.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptyDocument indicates an empty question or answer.
	ErrEmptyDocument = errors.New("question and answer cannot be empty")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Candidate is the nearest recorded answer for a query.
type Candidate struct {
	// Answer is the stored response text.
	Answer string

	// OriginalQuery is the query the answer was recorded for.
	OriginalQuery string

	// Distance is the vector distance to the current query.
	// 0 means identical, larger means less similar.
	Distance float64

	// Module is the module tag the answer was recorded under.
	// Empty when the answer was recorded without a module.
	Module string
}

// Metadata accompanies a persisted query/answer pair.
type Metadata struct {
	Subject   string
	Module    string
	Source    string
	Timestamp time.Time
}

// Store is the semantic answer store consumed by the coordinator.
//
// Implementations: ChromemStore (embedded, default) and QdrantStore
// (external Qdrant via langchaingo).
type Store interface {
	// Query returns the nearest recorded answer for the query text, or nil
	// when nothing has been recorded yet.
	Query(ctx context.Context, query string) (*Candidate, error)

	// Persist records a query/answer pair in the recorded-answers
	// collection so future similar queries can skip generation.
	Persist(ctx context.Context, query, answer string, meta Metadata) error

	// Context returns up to k knowledge documents from the module's
	// collection, most similar first. An unknown module falls back to the
	// shared default collection.
	Context(ctx context.Context, module, query string, k int) ([]string, error)

	// AddQA adds a curated question/answer document to the module's
	// knowledge collection.
	AddQA(ctx context.Context, module, question, answer string, meta map[string]string) error

	// Close releases store resources.
	Close() error
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
