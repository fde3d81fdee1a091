package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations are pure from the caller's perspective: the same text
// yields the same vector for a fixed model. All vectors produced by one
// service share the length reported by Dimensions.
//
// Implementations include:
//   - Ollama (all-minilm, nomic-embed-text)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Hashing (deterministic, in-process)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping verifies the model is loaded and answering.
	// It is called once at startup; failure is fatal.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
