package services

import (
	"errors"
	"fmt"
	"slices"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedRPS       = "embedding.requests_per_second"
	keyEmbedBatchSize = "embedding.batch_size"
	keyIndexBackend   = "index.backend"
	keyIndexDataDir   = "index.data_dir"
	keyIndexColl      = "index.collection"
	keyChunkSize      = "chunker.chunk_size"
	keyChunkOverlap   = "chunker.chunk_overlap"
	keyContextK       = "context.k"
	keyContextMaxLen  = "context.max_length"
)

// defaultOllamaURL is used when a local provider has no base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, ""),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDims),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
		},
		Index: domain.IndexSettings{
			Backend:    s.getBackend(defaults.Index.Backend),
			DataDir:    s.configStore.GetString(keyIndexDataDir),
			Collection: s.getString(keyIndexColl, defaults.Index.Collection),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize:    s.getInt(keyChunkSize, defaults.Chunker.ChunkSize),
			ChunkOverlap: s.getInt(keyChunkOverlap, defaults.Chunker.ChunkOverlap),
		},
		Context: domain.ContextSettings{
			K:         s.getInt(keyContextK, defaults.Context.K),
			MaxLength: s.getInt(keyContextMaxLen, defaults.Context.MaxLength),
		},
	}

	// The model default depends on the configured provider.
	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyIndexBackend, string(settings.Index.Backend)},
		{keyIndexDataDir, settings.Index.DataDir},
		{keyIndexColl, settings.Index.Collection},
		{keyChunkSize, settings.Chunker.ChunkSize},
		{keyChunkOverlap, settings.Chunker.ChunkOverlap},
		{keyContextK, settings.Context.K},
		{keyContextMaxLen, settings.Context.MaxLength},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return s.configStore.Save()
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// Set base URL based on provider type
	switch provider {
	case domain.AIProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	default:
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// A known model clears any previous override; its size is looked up when
	// the embedder is built, so no dimensions parameter is sent to the API.
	if _, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = 0
	}

	return s.Save(settings)
}

// Validate checks the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks settings for values the services cannot run with.
func ValidateSettings(settings *domain.AppSettings) error {
	var errs []error

	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if !settings.Index.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("unknown index backend %q", settings.Index.Backend))
	}
	if settings.Index.Collection == "" {
		errs = append(errs, errors.New("collection name is required"))
	}
	if settings.Chunker.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", settings.Chunker.ChunkSize))
	}
	if settings.Chunker.ChunkOverlap < 0 || settings.Chunker.ChunkOverlap >= settings.Chunker.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, %d), got %d",
			settings.Chunker.ChunkSize, settings.Chunker.ChunkOverlap))
	}
	if settings.Context.K <= 0 {
		errs = append(errs, fmt.Errorf("context k must be positive, got %d", settings.Context.K))
	}
	if settings.Context.MaxLength <= 0 {
		errs = append(errs, fmt.Errorf("context max length must be positive, got %d", settings.Context.MaxLength))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(keyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyIndexBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StorageBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
