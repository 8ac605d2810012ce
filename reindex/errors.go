package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrEmbedderRequired is returned when a reindexer is created without
	// an embedder.
	ErrEmbedderRequired = errors.New("embedder required")
)
