package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrNoRecords is returned when an ingestion request carries no records.
	ErrNoRecords = errors.New("no records to ingest")

	// ErrPartialIngest is returned by the sharded strategy when some record
	// groups failed while others succeeded. The accompanying Report lists
	// the outcome of every group.
	ErrPartialIngest = errors.New("ingestion partially failed")
)
