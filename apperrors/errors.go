// Package apperrors holds the sentinel errors shared by the engine, its
// stores and the HTTP handlers. Callers wrap them with fmt.Errorf("...: %w")
// and match with errors.Is.
package apperrors

import "errors"

var (
	// ErrNotFound is returned when a product or recommendation edge does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks a request that fails validation before reaching a store.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable means the embedding model could not be loaded or
	// inference failed. It is retryable.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrInvalidVector is a caller contract violation, e.g. a dimension mismatch.
	ErrInvalidVector = errors.New("invalid vector")

	// ErrGraphUpdateFailed wraps a store write error on a co-occurrence upsert.
	ErrGraphUpdateFailed = errors.New("graph update failed")
)
