package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultMaxUploadBytes caps the size of an uploaded document.
const DefaultMaxUploadBytes = 32 << 20

// uploadField is the multipart form field carrying the document.
const uploadField = "file"

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string   `json:"query"`
	K     int      `json:"k,omitempty"`
	Where []string `json:"where,omitempty"`
}

// ContextRequest is the body of POST /context.
type ContextRequest struct {
	Query     string   `json:"query"`
	K         int      `json:"k,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
	Where     []string `json:"where,omitempty"`
}

// SearchHit is one result of POST /search.
type SearchHit struct {
	Source     string          `json:"source"`
	ChunkIndex int             `json:"chunk_index"`
	Distance   float64         `json:"distance"`
	Relevance  float64         `json:"relevance"`
	Text       string          `json:"text"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
}

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	Query    string      `json:"query"`
	Results  []SearchHit `json:"results"`
	Total    int         `json:"total"`
	Warnings []string    `json:"warnings,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	ingest     driving.IngestService
	retrieval  driving.RetrievalService
	collection driving.CollectionService
	maxUpload  int64
}

// NewHandler creates a new Handler. maxUpload <= 0 means DefaultMaxUploadBytes.
func NewHandler(
	ingest driving.IngestService,
	retrieval driving.RetrievalService,
	collection driving.CollectionService,
	maxUpload int64,
) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{
		ingest:     ingest,
		retrieval:  retrieval,
		collection: collection,
		maxUpload:  maxUpload,
	}
}

// HandleUpload handles POST /documents multipart uploads.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		sendError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		sendError(w, http.StatusBadRequest, fmt.Errorf("missing %q form field", uploadField))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		sendError(w, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err))
		return
	}

	report, err := h.ingest.IngestUpload(r.Context(), domain.Upload{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Content:  content,
	})
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}

	sendJSON(w, http.StatusOK, report)
}

// HandleSearch handles POST /search requests.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	filter, err := domain.ParseFilter(req.Where...)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.retrieval.Search(r.Context(), req.Query, domain.SearchOptions{K: req.K, Filter: filter})
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}

	out := SearchResponse{
		Query:    req.Query,
		Results:  make([]SearchHit, len(resp.Results)),
		Total:    len(resp.Results),
		Warnings: resp.Warnings,
	}
	for i, res := range resp.Results {
		out.Results[i] = SearchHit{
			Source:     res.Chunk.Source,
			ChunkIndex: res.Chunk.ChunkIndex,
			Distance:   res.Distance,
			Relevance:  res.Relevance(),
			Text:       res.Chunk.Text,
			Metadata:   res.Chunk.Metadata,
		}
	}

	sendJSON(w, http.StatusOK, out)
}

// HandleContext handles POST /context requests.
func (h *Handler) HandleContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	filter, err := domain.ParseFilter(req.Where...)
	if err != nil {
		sendError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.retrieval.GetContext(r.Context(), req.Query, domain.ContextOptions{
		K:         req.K,
		MaxLength: req.MaxLength,
		Filter:    filter,
	})
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}

	sendJSON(w, http.StatusOK, result)
}

// HandleCollection handles GET /collection requests.
func (h *Handler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	info, err := h.collection.Info(r.Context())
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	sendJSON(w, http.StatusOK, info)
}

// HandleClear handles DELETE /collection requests.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.collection.Clear(r.Context()); err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSources handles GET /sources requests.
func (h *Handler) HandleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.collection.Sources(r.Context())
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{
		"sources": sources,
		"total":   len(sources),
	})
}

// HandleForget handles DELETE /sources/{source} requests.
func (h *Handler) HandleForget(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]

	n, err := h.collection.DeleteSource(r.Context(), source)
	if err != nil {
		sendError(w, statusFor(err), err)
		return
	}
	if n == 0 {
		sendError(w, http.StatusNotFound, fmt.Errorf("%w: source %s", domain.ErrNotFound, source))
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"source":  source,
		"removed": n,
	})
}

// HandleHealth handles GET /health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.collection.Count(r.Context())
	if err != nil {
		sendJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	sendJSON(w, http.StatusOK, HealthResponse{Status: "ok", Count: count})
}

// statusFor maps a domain error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrEmbeddingModelUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func sendError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	sendJSON(w, status, ErrorResponse{Error: err.Error()})
}

// sendJSON sends a JSON response with the given status code.
func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Encoding response: %v", err)
	}
}
