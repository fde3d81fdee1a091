package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model != "all-minilm" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		resp := embedResponse{}
		for i := range req.Input {
			vec := make([]float64, dims)
			vec[i%dims] = 1
			resp.Embeddings = append(resp.Embeddings, vec)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, 384, s.Dimensions())
	assert.Equal(t, DefaultTimeout, s.client.Timeout)
}

func TestEmbedBatch(t *testing.T) {
	srv := newTestServer(t, 4)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 4})
	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0, 0, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1, 0, 0}, vecs[1])
}

func TestEmbedBatch_Empty(t *testing.T) {
	s := NewEmbeddingService(Config{})
	vecs, err := s.EmbedBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	srv := newTestServer(t, 4)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 8})
	_, err := s.Embed(context.Background(), "a")

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestPing_ModelMissing(t *testing.T) {
	srv := newTestServer(t, 4)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL, Model: "unknown-model"})
	err := s.Ping(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestPing_LearnsDimensions(t *testing.T) {
	srv := newTestServer(t, 6)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL})
	s.dimensions = 0

	require.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, 6, s.Dimensions())
}

func TestPing_Unreachable(t *testing.T) {
	s := NewEmbeddingService(Config{BaseURL: "http://127.0.0.1:1"})
	assert.Error(t, s.Ping(context.Background()))
}
