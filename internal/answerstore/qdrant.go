package answerstore

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/caralabs/carad/internal/modules"
)

// qdrantTracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("carad.answerstore.qdrant")

// QdrantConfig holds configuration for the Qdrant-backed store.
type QdrantConfig struct {
	// URL is the Qdrant server URL, e.g. http://localhost:6333.
	URL string

	// CollectionPrefix namespaces collections on a shared Qdrant instance.
	// Collection names become "<prefix>_<collection>".
	CollectionPrefix string
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: URL required", ErrInvalidConfig)
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("%w: parsing URL: %v", ErrInvalidConfig, err)
	}
	return nil
}

// QdrantStore implements Store against an external Qdrant server through
// langchaingo. One langchaingo store is held per collection, created
// lazily on first use.
type QdrantStore struct {
	config   QdrantConfig
	embedder embeddings.Embedder
	logger   *zap.Logger

	mu     sync.Mutex
	stores map[string]vectorstores.VectorStore
}

// NewQdrantStore creates a QdrantStore with the given configuration.
func NewQdrantStore(config QdrantConfig, embedder embeddings.Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger.Info("answer store initialized",
		zap.String("backend", "qdrant"),
		zap.String("url", config.URL),
		zap.String("collection_prefix", config.CollectionPrefix),
	)

	return &QdrantStore{
		config:   config,
		embedder: embedder,
		logger:   logger,
		stores:   make(map[string]vectorstores.VectorStore),
	}, nil
}

// collectionName applies the configured prefix.
func (s *QdrantStore) collectionName(name string) string {
	if s.config.CollectionPrefix == "" {
		return name
	}
	return s.config.CollectionPrefix + "_" + name
}

// storeFor returns the langchaingo store bound to the named collection.
func (s *QdrantStore) storeFor(name string) (vectorstores.VectorStore, error) {
	full := s.collectionName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[full]; ok {
		return store, nil
	}

	qdrantURL, err := url.Parse(s.config.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing Qdrant URL: %w", err)
	}

	store, err := qdrant.New(
		qdrant.WithURL(*qdrantURL),
		qdrant.WithCollectionName(full),
		qdrant.WithEmbedder(s.embedder),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Qdrant store for %s: %w", full, err)
	}

	s.stores[full] = store
	return store, nil
}

// Query returns the nearest recorded answer, or nil when nothing matches.
func (s *QdrantStore) Query(ctx context.Context, query string) (*Candidate, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}

	store, err := s.storeFor(RecordedCollection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	docs, err := store.SimilaritySearch(ctx, query, 1)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	doc := docs[0]
	question, answer, ok := parseDocument(doc.PageContent)
	if !ok {
		s.logger.Warn("skipping malformed recorded document")
		return nil, nil
	}

	// Qdrant reports similarity (higher = closer); the store contract is a
	// distance where 0 means identical.
	distance := 1 - float64(doc.Score)

	span.SetAttributes(attribute.Float64("distance", distance))

	return &Candidate{
		Answer:        answer,
		OriginalQuery: question,
		Distance:      distance,
		Module:        metadataString(doc.Metadata, "module"),
	}, nil
}

// Persist records a query/answer pair in the recorded-answers collection.
func (s *QdrantStore) Persist(ctx context.Context, query, answer string, meta Metadata) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Persist")
	defer span.End()

	if query == "" || answer == "" {
		return ErrEmptyDocument
	}

	store, err := s.storeFor(RecordedCollection)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ts := meta.Timestamp
	if ts.IsZero() {
		ts = timeNow()
	}

	_, err = store.AddDocuments(ctx, []schema.Document{{
		PageContent: encodeDocument(query, answer),
		Metadata: map[string]any{
			"id":        "chat_" + uuid.NewString(),
			"subject":   meta.Subject,
			"module":    meta.Module,
			"source":    meta.Source,
			"timestamp": ts.UTC().Format(time.RFC3339),
		},
	}})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("persisting recorded answer: %w", err)
	}

	return nil
}

// Context returns up to k knowledge documents from the module's collection.
func (s *QdrantStore) Context(ctx context.Context, module, query string, k int) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Context")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		return nil, nil
	}

	name := modules.CollectionFor(module)
	span.SetAttributes(attribute.String("collection", name))

	store, err := s.storeFor(name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	docs, err := store.SimilaritySearch(ctx, query, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("similarity search in %s: %w", name, err)
	}

	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.PageContent
	}
	return out, nil
}

// AddQA adds a curated question/answer document to the module's collection.
func (s *QdrantStore) AddQA(ctx context.Context, module, question, answer string, meta map[string]string) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.AddQA")
	defer span.End()

	if question == "" || answer == "" {
		return ErrEmptyDocument
	}

	name := modules.CollectionFor(module)
	store, err := s.storeFor(name)
	if err != nil {
		span.RecordError(err)
		return err
	}

	metadata := map[string]any{
		"id":     "qa_" + uuid.NewString(),
		"module": module,
	}
	for key, value := range meta {
		metadata[key] = value
	}

	_, err = store.AddDocuments(ctx, []schema.Document{{
		PageContent: encodeDocument(question, answer),
		Metadata:    metadata,
	}})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding QA pair to %s: %w", name, err)
	}

	return nil
}

// Close releases store resources.
func (s *QdrantStore) Close() error {
	return nil
}

// metadataString reads a string value from langchaingo document metadata.
func metadataString(meta map[string]any, key string) string {
	if value, ok := meta[key]; ok {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}
