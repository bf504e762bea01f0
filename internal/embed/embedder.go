// Package embed maps text to fixed-dimension vectors for similarity search.
//
// The Embedder interface is satisfied by the Gemini-backed Client in
// production and by hand-written mocks in tests. The model is loaded once at
// process start and injected into the pipeline and query engine; it is never
// ambient global state.
package embed

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput is returned for blank text. Embedding empty input would
	// silently pollute the vector index with a meaningless vector.
	ErrEmptyInput = errors.New("embed: empty input")

	// ErrUnavailable marks a transient backend failure. Callers may retry;
	// retry policy is deliberately layered outside this package.
	ErrUnavailable = errors.New("embed: service unavailable")

	// ErrDimensionMismatch is returned when the backend produces a vector of
	// unexpected length. This is a permanent configuration error, not a
	// retryable one.
	ErrDimensionMismatch = errors.New("embed: vector dimension mismatch")
)

// Embedder produces fixed-dimension vectors in a shared space for chunks and
// queries, regardless of input language.
type Embedder interface {
	// Embed returns the vector for one text. Blank input is an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension is the fixed vector length this embedder produces.
	Dimension() int

	// Model identifies the underlying model, recorded per source so a model
	// change is detectable instead of silently mixing vector spaces.
	Model() string
}

// IsTransient reports whether err is a retryable embedding failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
