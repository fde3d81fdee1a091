// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for the startup model check.
// Remote models may need to be loaded into memory on first use.
const pingTimeout = 30 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and pings
// the model once. Any failure is domain.ErrEmbeddingModelUnavailable and the
// caller must not proceed.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingModelUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	logger.Debug("Probing embedding model %s (%s)", svc.ModelName(), settings.Provider)
	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: model %s not loaded (%w)",
			domain.ErrEmbeddingModelUnavailable, svc.ModelName(), err)
	}
	if svc.Dimensions() <= 0 {
		svc.Close()
		return nil, fmt.Errorf("%w: model %s has unknown dimensions",
			domain.ErrEmbeddingModelUnavailable, svc.ModelName())
	}

	logger.Info("Embedding model %s ready (%d dimensions)", svc.ModelName(), svc.Dimensions())
	return svc, nil
}

// CreateEmbeddingService creates the embedding service named by settings
// without contacting it.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider is not configured", domain.ErrInvalidInput)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderHashing:
		dims := settings.Dimensions
		if dims == 0 {
			dims = domain.EmbeddingDimensions()[settings.Model]
		}
		return hashing.NewEmbeddingService(dims), nil

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, settings.Provider)
	}
}
