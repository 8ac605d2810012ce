package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in one
	// remote call. The returned slice contains embeddings in the same order
	// as the input texts, one per input.
	//
	// When the remote service throttles the request, the returned error wraps
	// ErrRateLimited so callers can distinguish it from permanent failures.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
