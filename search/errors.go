package search

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrChunkNotFound is returned when a chunk id does not exist in the
	// namespace.
	ErrChunkNotFound = errors.New("chunk not found")
)
