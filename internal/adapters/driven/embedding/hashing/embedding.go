// Package hashing provides a deterministic in-process embedding model.
//
// Text is tokenised into lowercase words and character trigrams, and each
// feature is hashed into one of a fixed number of signed buckets. The
// resulting vector is L2-normalised, so texts sharing vocabulary have a
// small cosine distance and identical texts have distance zero.
package hashing

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/vectormath"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the default vector size.
const DefaultDimensions = 384

// DefaultModel is the model name reported for the default size.
const DefaultModel = "hashing-384"

// trigramWeight scales sub-word features relative to whole words.
const trigramWeight = 0.5

// EmbeddingService generates feature-hashed embeddings.
type EmbeddingService struct {
	dimensions int
	model      string
}

// NewEmbeddingService creates a hashing embedder producing vectors of
// the given size. Non-positive sizes use DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	model := DefaultModel
	if dimensions != DefaultDimensions {
		model = "hashing-" + strconv.Itoa(dimensions)
	}
	return &EmbeddingService{dimensions: dimensions, model: model}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(text)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	vec := make([]float32, s.dimensions)
	for _, word := range tokenize(text) {
		s.add(vec, word, 1)
		padded := "<" + word + ">"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			s.add(vec, string(runes[i:i+3]), trigramWeight)
		}
	}
	return vectormath.Normalize(vec)
}

// add hashes feature into a bucket. One hash bit chooses the sign so
// collisions tend to cancel rather than accumulate.
func (s *EmbeddingService) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
