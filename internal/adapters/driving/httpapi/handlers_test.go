package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

type testAPI struct {
	router http.Handler
	ingest *services.IngestService
}

func newTestAPI(t *testing.T, maxUpload int64) *testAPI {
	t.Helper()
	store := memory.NewVectorStore("api")
	index := services.NewVectorIndex(store, hashing.NewEmbeddingService(32))
	dedup := services.NewDeduplicator(index)
	ingest := services.NewIngestService(
		chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20)),
		dedup, index, normalisers.NewDefaultRegistry(),
	)
	handler := NewHandler(
		ingest,
		services.NewRetrievalService(index, domain.ContextSettings{}),
		services.NewCollectionService(index, dedup),
		maxUpload,
	)
	return &testAPI{router: NewRouter(handler, nil), ingest: ingest}
}

func (a *testAPI) seed(t *testing.T, source, text string) {
	t.Helper()
	_, err := a.ingest.Ingest(context.Background(), domain.IngestRequest{Source: source, Text: text})
	require.NoError(t, err)
}

func (a *testAPI) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) postJSON(t *testing.T, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return a.do(http.MethodPost, path, body, "application/json")
}

func multipartBody(t *testing.T, field, filename, content string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleUpload(t *testing.T) {
	api := newTestAPI(t, 0)

	body, ct := multipartBody(t, "file", "notes.txt", "Sercha keeps documents searchable.")
	rec := api.do(http.MethodPost, "/documents", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[domain.IngestReport](t, rec)
	assert.Equal(t, "notes.txt", report.Source)
	assert.Equal(t, 1, report.Added)

	// Same content again is skipped.
	rec = api.do(http.MethodPost, "/documents", body, ct)
	require.Equal(t, http.StatusOK, rec.Code)
	report = decode[domain.IngestReport](t, rec)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 1, report.Skipped)
}

func TestHandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name      string
		maxUpload int64
		field     string
		filename  string
		content   string
		status    int
	}{
		{"unsupported type", 0, "file", "image.png", "\x89PNG", http.StatusUnsupportedMediaType},
		{"missing field", 0, "other", "notes.txt", "text", http.StatusBadRequest},
		{"too large", 64, "file", "notes.txt", strings.Repeat("x", 1024), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, tt.maxUpload)
			body, ct := multipartBody(t, tt.field, tt.filename, tt.content)
			rec := api.do(http.MethodPost, "/documents", body, ct)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	api := newTestAPI(t, 0)
	rec := api.do(http.MethodPost, "/documents", []byte("plain"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch(t *testing.T) {
	api := newTestAPI(t, 0)
	api.seed(t, "fox.txt", "The quick brown fox jumps over the lazy dog.")
	api.seed(t, "rates.txt", "Interest rates rose sharply in the third quarter.")

	rec := api.postJSON(t, "/search", SearchRequest{Query: "quick brown fox", K: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SearchResponse](t, rec)
	assert.Equal(t, "quick brown fox", resp.Query)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "fox.txt", resp.Results[0].Source)
	assert.GreaterOrEqual(t, resp.Results[0].Relevance, 0.0)
	assert.LessOrEqual(t, resp.Results[0].Relevance, 1.0)
}

func TestHandleSearch_Where(t *testing.T) {
	api := newTestAPI(t, 0)
	api.seed(t, "fox.txt", "The quick brown fox jumps over the lazy dog.")
	api.seed(t, "fox2.txt", "The quick brown fox sleeps under the oak tree.")

	rec := api.postJSON(t, "/search", SearchRequest{Query: "quick brown fox", Where: []string{"source=fox2.txt"}})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SearchResponse](t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "fox2.txt", resp.Results[0].Source)
}

func TestHandleSearch_BadRequests(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(http.MethodPost, "/search", []byte("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.postJSON(t, "/search", SearchRequest{Query: "q", Where: []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_EmptyCollection(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.postJSON(t, "/search", SearchRequest{Query: "anything"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Total)
}

func TestHandleContext(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.postJSON(t, "/context", ContextRequest{Query: "what is sercha?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.NoContextSentinel, decode[domain.ContextResult](t, rec).Context)

	api.seed(t, "guide.txt", "Sercha is a local search tool for documents.")

	rec = api.postJSON(t, "/context", ContextRequest{Query: "what is sercha?", MaxLength: 500})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[domain.ContextResult](t, rec)
	assert.Equal(t, "[Document: guide.txt, Chunk 0]\nSercha is a local search tool for documents.\n", result.Context)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "guide.txt", result.Sources[0].Source)
	assert.False(t, result.Truncated)
}

func TestCollectionEndpoints(t *testing.T) {
	api := newTestAPI(t, 0)
	api.seed(t, "a.txt", "First document body.")
	api.seed(t, "b.txt", "Second document body.")

	rec := api.do(http.MethodGet, "/collection", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[domain.CollectionInfo](t, rec)
	assert.Equal(t, "api", info.Name)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, 32, info.Dimension)

	rec = api.do(http.MethodGet, "/sources", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	sources := decode[struct {
		Sources []string `json:"sources"`
		Total   int      `json:"total"`
	}](t, rec)
	assert.Equal(t, []string{"a.txt", "b.txt"}, sources.Sources)
	assert.Equal(t, 2, sources.Total)

	rec = api.do(http.MethodDelete, "/sources/a.txt", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	forgot := decode[struct {
		Source  string `json:"source"`
		Removed int    `json:"removed"`
	}](t, rec)
	assert.Equal(t, "a.txt", forgot.Source)
	assert.Equal(t, 1, forgot.Removed)

	rec = api.do(http.MethodDelete, "/sources/a.txt", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, "/collection", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Zero(t, health.Count)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, 0)

	rec := api.do(http.MethodOptions, "/search", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMCPMount(t *testing.T) {
	called := false
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})
	router := NewRouter(NewHandler(nil, nil, nil, 0), mcpHandler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

type failingCollection struct{ err error }

func (f *failingCollection) Info(context.Context) (*domain.CollectionInfo, error) { return nil, f.err }
func (f *failingCollection) Count(context.Context) (int, error)                   { return 0, f.err }
func (f *failingCollection) Sources(context.Context) ([]string, error)            { return nil, f.err }
func (f *failingCollection) Clear(context.Context) error                          { return f.err }
func (f *failingCollection) DeleteSource(context.Context, string) (int, error)    { return 0, f.err }

func TestHealth_Unavailable(t *testing.T) {
	router := NewRouter(NewHandler(nil, nil, &failingCollection{err: domain.ErrStorageUnavailable}, 0), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[HealthResponse](t, rec).Status)
}

func TestCollection_StorageFailure(t *testing.T) {
	err := fmt.Errorf("%w: disk gone", domain.ErrStorageUnavailable)
	router := NewRouter(NewHandler(nil, nil, &failingCollection{err: err}, 0), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/collection", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "disk gone")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.ErrInvalidFilter), http.StatusBadRequest},
		{domain.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrDimensionMismatch, http.StatusConflict},
		{domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{domain.ErrEmbeddingModelUnavailable, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}
