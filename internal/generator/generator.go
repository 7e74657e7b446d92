// Package generator provides the answer generation collaborator.
//
// The coordinator treats generation as an opaque call that may fail or
// exceed its deadline; timeout policy lives with the caller, not here.
package generator

import (
	"context"
	"errors"
)

// Sentinel errors for generation.
var (
	// ErrInvalidConfig indicates invalid generator configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyQuery indicates an empty query string.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptyCompletion indicates the model returned no content.
	ErrEmptyCompletion = errors.New("model returned empty completion")
)

// Request carries one generation request.
type Request struct {
	// Query is the user's question.
	Query string

	// Context holds retrieved knowledge documents to ground the answer.
	Context []string

	// Module selects the assistant persona. Empty uses the base persona.
	Module string
}

// Generator produces an answer for a query.
type Generator interface {
	// Generate returns the answer text. It respects ctx cancellation and
	// deadlines; callers impose the timeout.
	Generate(ctx context.Context, req Request) (string, error)
}
