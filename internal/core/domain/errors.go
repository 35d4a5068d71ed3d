package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidConfig indicates a configuration value that can never
	// work (bad chunk sizes, unknown provider, mismatched metric).
	// Fatal, surfaced immediately, never retried.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigMismatch indicates the query-time embedding model differs
	// from the one the index was built with (dimension or metric).
	// Fatal, fails fast, no partial results.
	ErrConfigMismatch = errors.New("embedding model does not match index configuration")

	// ErrEmbeddingBackend indicates a transport or auth failure talking
	// to an embedding backend. Transient variants are retried with
	// backoff before this is surfaced.
	ErrEmbeddingBackend = errors.New("embedding backend failure")

	// ErrVectorStore indicates a vector store backend failure.
	ErrVectorStore = errors.New("vector store failure")

	// ErrLLMBackend indicates a completion backend failure.
	ErrLLMBackend = errors.New("llm backend failure")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)
