// Package httpapi exposes the retrieval, ingestion and collection services
// over a JSON REST API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// loggingMiddleware logs request details and latency.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// corsMiddleware adds permissive CORS headers for local tools.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter creates and configures the HTTP router.
// A non-nil mcpHandler is mounted under /mcp.
func NewRouter(handler *Handler, mcpHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.HandleFunc("/documents", handler.HandleUpload).Methods("POST", "OPTIONS")
	r.HandleFunc("/search", handler.HandleSearch).Methods("POST", "OPTIONS")
	r.HandleFunc("/context", handler.HandleContext).Methods("POST", "OPTIONS")
	r.HandleFunc("/collection", handler.HandleCollection).Methods("GET")
	r.HandleFunc("/collection", handler.HandleClear).Methods("DELETE")
	r.HandleFunc("/sources", handler.HandleSources).Methods("GET")
	r.HandleFunc("/sources/{source}", handler.HandleForget).Methods("DELETE")
	r.HandleFunc("/health", handler.HandleHealth).Methods("GET")

	if mcpHandler != nil {
		r.PathPrefix("/mcp").Handler(mcpHandler)
	}

	return r
}
