// Package coordinator implements carad's request-coordination core.
//
// One Submit path runs per inbound request: deduplicate against the
// in-flight cache, try to reuse a recorded answer, otherwise hand the
// query to a background generation worker and return a pollable task
// handle. The worker reports through the TaskRegistry; callers poll until
// the task completes.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/caralabs/carad/internal/answerstore"
	"github.com/caralabs/carad/internal/fingerprint"
	"github.com/caralabs/carad/internal/generator"
)

var tracer = otel.Tracer("carad.coordinator")

// Sentinel errors for the coordination layer.
var (
	// ErrInvalidSubmission indicates a submission missing subject or query.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrTaskNotFound indicates an unknown or expired task id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrShuttingDown is returned when the coordinator no longer accepts
	// work because shutdown has begun.
	ErrShuttingDown = errors.New("coordinator is shutting down")
)

// Source tags where a response came from.
type Source string

const (
	// SourceDatabase marks answers reused from the answer store.
	SourceDatabase Source = "database"

	// SourceGenerated marks answers produced by the generator, including
	// timeout fallbacks.
	SourceGenerated Source = "generated"

	// SourceError marks failed generations.
	SourceError Source = "error"

	// SourceProcessing marks placeholder responses for pending tasks.
	SourceProcessing Source = "processing"
)

// Response is the caller-visible outcome of a submission or poll.
type Response struct {
	// Text is the answer, placeholder, or error explanation.
	Text string `json:"response"`

	// Module is the module the request was scoped to, if any.
	Module string `json:"module,omitempty"`

	// Source tags the response origin.
	Source Source `json:"source"`

	// TaskID is set on pending handles so the caller can poll.
	TaskID string `json:"task_id,omitempty"`
}

// Pending reports whether the response is a pending handle.
func (r Response) Pending() bool {
	return r.Source == SourceProcessing
}

const (
	placeholderText     = "I'm processing your question. Please wait a moment..."
	stillProcessingText = "Still processing your request..."
	failureText         = "Failed to generate response"
)

// fallbackText is the synthesized answer when generation exceeds its
// timeout. The system always produces some answer rather than surfacing
// a timeout to the end user.
func fallbackText(query string) string {
	return fmt.Sprintf("I apologize for the delay in responding to your question about '%s'. "+
		"Our AI service is experiencing high load at the moment. Please try again in a few moments, "+
		"or consider rephrasing your question to be more specific.", query)
}

// Config holds coordinator tunables.
type Config struct {
	// ReuseThreshold is the maximum distance for reusing a recorded
	// answer. 0 means identical.
	ReuseThreshold float64

	// EntryTTL bounds the age of in-flight entries and task records.
	EntryTTL time.Duration

	// GenerationTimeout bounds one background generation.
	GenerationTimeout time.Duration

	// ContextDocs is how many knowledge documents to retrieve per
	// generation.
	ContextDocs int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ReuseThreshold == 0 {
		c.ReuseThreshold = 0.25
	}
	if c.EntryTTL == 0 {
		c.EntryTTL = 5 * time.Minute
	}
	if c.GenerationTimeout == 0 {
		c.GenerationTimeout = 60 * time.Second
	}
	if c.ContextDocs == 0 {
		c.ContextDocs = 3
	}
}

// Coordinator orchestrates submissions across the answer store, the
// generator, and the two keyed stores.
type Coordinator struct {
	store    answerstore.Store
	gen      generator.Generator
	inflight *InFlightCache
	tasks    *TaskRegistry
	ids      taskIDGenerator
	config   Config
	logger   *zap.Logger
	metrics  *Metrics

	mu      sync.Mutex
	closed  bool
	workers sync.WaitGroup

	now func() time.Time
}

// New creates a Coordinator. The store and generator are required; a nil
// metrics set is replaced with an unregistered one.
func New(store answerstore.Store, gen generator.Generator, config Config, logger *zap.Logger, metrics *Metrics) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("answer store is required")
	}
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	config.ApplyDefaults()

	return &Coordinator{
		store:    store,
		gen:      gen,
		inflight: NewInFlightCache(config.EntryTTL),
		tasks:    NewTaskRegistry(config.EntryTTL),
		config:   config,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// Submit coordinates one request. It returns either an immediate response
// (from the in-flight cache or a recorded answer) or a pending handle for
// a freshly launched background generation. It never blocks on
// generation.
func (c *Coordinator) Submit(ctx context.Context, subject, query, module string) (Response, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.Submit")
	defer span.End()

	fp, err := fingerprint.New(subject, query, module)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	span.SetAttributes(attribute.String("fingerprint", fp.Short()))

	// Cross-request dedup: a completed, unexpired entry answers the burst
	// without reprocessing.
	if entry, ok := c.inflight.Lookup(string(fp)); ok && entry.Completed {
		c.metrics.CacheHits.Inc()
		c.logger.Debug("request served from in-flight cache",
			zap.String("fingerprint", fp.Short()),
		)
		return entry.Response, nil
	}

	// Recorded-answer reuse. Store availability is advisory: on error,
	// fall through to generation.
	candidate, err := c.store.Query(ctx, query)
	if err != nil {
		c.logger.Warn("answer store lookup failed, proceeding to generation",
			zap.String("fingerprint", fp.Short()),
			zap.Error(err),
		)
		candidate = nil
	}
	if c.acceptable(candidate, module) {
		response := Response{
			Text:   candidate.Answer,
			Module: module,
			Source: SourceDatabase,
		}
		c.inflight.Complete(string(fp), response)
		c.metrics.StoreHits.Inc()
		c.logger.Debug("request served from recorded answer",
			zap.String("fingerprint", fp.Short()),
			zap.Float64("distance", candidate.Distance),
		)
		return response, nil
	}

	// New work: register a task and hand the query to a worker.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, ErrShuttingDown
	}
	taskID := c.ids.next(fp)
	c.tasks.Create(taskID)
	c.inflight.Begin(string(fp))
	c.workers.Add(1)
	c.mu.Unlock()

	go c.generate(taskID, fp, subject, query, module)
	c.metrics.GenerationsTotal.Inc()

	c.logger.Info("background generation launched",
		zap.String("task_id", taskID),
		zap.String("module", module),
	)

	return Response{
		Text:   placeholderText,
		Module: module,
		Source: SourceProcessing,
		TaskID: taskID,
	}, nil
}

// Poll returns the current state of a background task. Unknown and
// expired ids return ErrTaskNotFound; a pending task returns a
// distinguishable processing response.
func (c *Coordinator) Poll(taskID string) (Response, error) {
	if taskID == "" {
		return Response{}, fmt.Errorf("%w: empty task id", ErrTaskNotFound)
	}

	record, ok := c.tasks.Get(taskID)
	if !ok {
		return Response{}, ErrTaskNotFound
	}
	if record.State == TaskPending {
		return Response{
			Text:   stillProcessingText,
			Source: SourceProcessing,
			TaskID: taskID,
		}, nil
	}
	return record.Result, nil
}

// acceptable applies the reuse rule: close enough, and never across an
// explicit module mismatch. Reusing an answer scoped to a different
// compliance domain is worse than regenerating.
func (c *Coordinator) acceptable(candidate *answerstore.Candidate, module string) bool {
	if candidate == nil {
		return false
	}
	if candidate.Distance >= c.config.ReuseThreshold {
		return false
	}
	return module == "" || candidate.Module == "" || candidate.Module == module
}

// generate runs one background generation to completion. It is detached
// from the submitting request: caller abandonment does not cancel it, and
// it always commits a task record for later pollers.
func (c *Coordinator) generate(taskID string, fp fingerprint.Fingerprint, subject, query, module string) {
	defer c.workers.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.GenerationTimeout)
	defer cancel()

	docs, err := c.store.Context(ctx, module, query, c.config.ContextDocs)
	if err != nil {
		c.logger.Warn("context retrieval failed, generating without context",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		docs = nil
	}

	answer, err := c.gen.Generate(ctx, generator.Request{
		Query:   query,
		Context: docs,
		Module:  module,
	})

	switch {
	case err == nil:
		response := Response{Text: answer, Module: module, Source: SourceGenerated}
		// Completion must be observable no later than persistence.
		c.tasks.Complete(taskID, response)
		c.inflight.Complete(string(fp), response)
		c.persist(taskID, subject, query, answer, module)

	case errors.Is(err, context.DeadlineExceeded):
		// A timeout is converted to a usable answer, never surfaced as a
		// failure. The fallback is not cached or persisted: it invites the
		// caller to retry, and a retry should regenerate.
		c.metrics.GenerationTimeouts.Inc()
		c.logger.Warn("generation timed out, using fallback response",
			zap.String("task_id", taskID),
			zap.Duration("timeout", c.config.GenerationTimeout),
		)
		c.tasks.Complete(taskID, Response{
			Text:   fallbackText(query),
			Module: module,
			Source: SourceGenerated,
		})
		c.inflight.Forget(string(fp))

	default:
		// No automatic retry here: resubmission is the caller's decision.
		c.metrics.GenerationFailures.Inc()
		c.logger.Error("generation failed",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		c.tasks.Complete(taskID, Response{
			Text:   failureText,
			Module: module,
			Source: SourceError,
		})
		c.inflight.Forget(string(fp))
	}
}

// persist records a generated answer so future similar queries hit the
// reuse path. Failures are logged, not surfaced: the caller already has
// the answer.
func (c *Coordinator) persist(taskID, subject, query, answer, module string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.store.Persist(ctx, query, answer, answerstore.Metadata{
		Subject:   subject,
		Module:    module,
		Source:    string(SourceGenerated),
		Timestamp: c.now(),
	})
	if err != nil {
		c.logger.Warn("failed to persist generated answer",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return
	}
	c.metrics.AnswersPersisted.Inc()
}

// Close stops accepting submissions and waits for in-flight workers to
// commit their task records.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.workers.Wait()
	return nil
}
