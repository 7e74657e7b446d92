package answerstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/caralabs/carad/internal/modules"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("carad.answerstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/carad/answerstore"
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/carad/answerstore"
	}
}

// ChromemStore implements Store using chromem-go.
//
// chromem-go is an embeddable vector database with no external service
// dependency. Storage is in-memory with persistence to gob files, which
// suits a single-node deployment.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	logger   *zap.Logger
}

// NewChromemStore creates a ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	expandedPath, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(expandedPath, 0700); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
	}

	db, err := chromem.NewPersistentDB(expandedPath, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	store := &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}

	logger.Info("answer store initialized",
		zap.String("backend", "chromem"),
		zap.String("path", expandedPath),
		zap.Bool("compress", config.Compress),
	)

	return store, nil
}

// expandPath expands ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc adapts the Embedder interface to chromem.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

func (s *ChromemStore) getOrCreateCollection(name string) (*chromem.Collection, error) {
	collection, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", name, err)
	}
	return collection, nil
}

// Query returns the nearest recorded answer, or nil when nothing matches.
func (s *ChromemStore) Query(ctx context.Context, query string) (*Candidate, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}

	collection, err := s.getOrCreateCollection(RecordedCollection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if collection.Count() == 0 {
		return nil, nil
	}

	results, err := collection.Query(ctx, query, 1, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying recorded answers: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	result := results[0]
	question, answer, ok := parseDocument(result.Content)
	if !ok {
		s.logger.Warn("skipping malformed recorded document", zap.String("id", result.ID))
		return nil, nil
	}

	// chromem reports cosine similarity in [-1, 1]; the store contract is a
	// distance where 0 means identical.
	distance := 1 - float64(result.Similarity)

	span.SetAttributes(attribute.Float64("distance", distance))

	return &Candidate{
		Answer:        answer,
		OriginalQuery: question,
		Distance:      distance,
		Module:        result.Metadata["module"],
	}, nil
}

// Persist records a query/answer pair in the recorded-answers collection.
func (s *ChromemStore) Persist(ctx context.Context, query, answer string, meta Metadata) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Persist")
	defer span.End()

	if query == "" || answer == "" {
		return ErrEmptyDocument
	}

	collection, err := s.getOrCreateCollection(RecordedCollection)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ts := meta.Timestamp
	if ts.IsZero() {
		ts = timeNow()
	}

	doc := chromem.Document{
		ID:      "chat_" + uuid.NewString(),
		Content: encodeDocument(query, answer),
		Metadata: map[string]string{
			"subject":   meta.Subject,
			"module":    meta.Module,
			"source":    meta.Source,
			"timestamp": ts.UTC().Format(time.RFC3339),
		},
	}

	if err := collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("persisting recorded answer: %w", err)
	}

	s.logger.Debug("recorded answer persisted",
		zap.String("id", doc.ID),
		zap.String("module", meta.Module),
		zap.String("source", meta.Source),
	)

	return nil
}

// Context returns up to k knowledge documents from the module's collection.
func (s *ChromemStore) Context(ctx context.Context, module, query string, k int) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Context")
	defer span.End()

	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		return nil, nil
	}

	name := modules.CollectionFor(module)
	span.SetAttributes(attribute.String("collection", name))

	collection, err := s.getOrCreateCollection(name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// chromem requires nResults <= document count.
	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", name, err)
	}

	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Content
	}
	return docs, nil
}

// AddQA adds a curated question/answer document to the module's collection.
func (s *ChromemStore) AddQA(ctx context.Context, module, question, answer string, meta map[string]string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.AddQA")
	defer span.End()

	if question == "" || answer == "" {
		return ErrEmptyDocument
	}

	name := modules.CollectionFor(module)
	collection, err := s.getOrCreateCollection(name)
	if err != nil {
		span.RecordError(err)
		return err
	}

	metadata := map[string]string{"module": module}
	for key, value := range meta {
		metadata[key] = value
	}

	doc := chromem.Document{
		ID:       "qa_" + uuid.NewString(),
		Content:  encodeDocument(question, answer),
		Metadata: metadata,
	}

	if err := collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding QA pair to %s: %w", name, err)
	}

	s.logger.Debug("QA pair added",
		zap.String("id", doc.ID),
		zap.String("collection", name),
	)

	return nil
}

// Close releases store resources. chromem persists on write, so Close is
// a no-op kept for the Store contract.
func (s *ChromemStore) Close() error {
	return nil
}
