package domain

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderHashing is a deterministic in-process model with no
	// external dependency. It is intended for tests and offline use.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if the provider runs on this machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// Description returns a human-readable label.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local server)"
	case AIProviderOpenAI:
		return "OpenAI (cloud API)"
	case AIProviderHashing:
		return "Hashing (offline, deterministic)"
	default:
		return "Unknown"
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// StorageBackend selects where index entries are kept.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite persists entries to a database file in the data directory.
	StorageSQLite StorageBackend = "sqlite"

	// StorageMemory keeps entries in process memory only.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StorageMemory
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's known dimensionality.
	// Zero means look it up from EmbeddingDimensions.
	Dimensions int

	// RequestsPerSecond throttles remote embedding calls. Zero disables it.
	RequestsPerSecond float64

	// BatchSize is the number of texts embedded per request.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds vector index configuration.
type IndexSettings struct {
	// Backend selects the storage engine.
	Backend StorageBackend

	// DataDir is the directory holding the persisted index.
	DataDir string

	// Collection is the collection name. Collections never share entries.
	Collection string
}

// ChunkerSettings holds text splitting configuration.
type ChunkerSettings struct {
	ChunkSize    int
	ChunkOverlap int
}

// ContextSettings holds context assembly defaults.
type ContextSettings struct {
	K         int
	MaxLength int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	Index     IndexSettings
	Chunker   ChunkerSettings
	Context   ContextSettings
}

// Default configuration values.
const (
	DefaultCollection   = "documents"
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultBatchSize    = 32
)

// DefaultAppSettings returns settings with sensible defaults.
// The default embedding model is the local all-minilm sentence model.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultEmbeddingModels()[AIProviderOllama],
			BatchSize: DefaultBatchSize,
		},
		Index: IndexSettings{
			Backend:    StorageSQLite,
			Collection: DefaultCollection,
		},
		Chunker: ChunkerSettings{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Context: ContextSettings{
			K:         DefaultK,
			MaxLength: DefaultMaxContextLength,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHashing,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "all-minilm",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing-384",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Local models
		"hashing-384": 384,
	}
}
