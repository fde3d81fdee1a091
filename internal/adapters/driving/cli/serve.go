package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	serveAddr      string
	serveMaxUpload int64
	serveNoMCP     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API",
	Long: `Start an HTTP server exposing the collection as a JSON API.

Routes:
  POST   /documents         upload a document (multipart field "file")
  POST   /search            {"query": "...", "k": 3, "where": ["file_type=pdf"]}
  POST   /context           {"query": "...", "k": 3, "max_length": 2000}
  GET    /collection        collection info
  DELETE /collection        remove every chunk
  GET    /sources           indexed document names
  DELETE /sources/{source}  remove one document
  GET    /health            liveness and chunk count
  /mcp                      MCP streamable HTTP endpoint`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", httpapi.DefaultMaxUploadBytes, "maximum upload size in bytes")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func newRouter() (http.Handler, error) {
	if ingestService == nil || retrievalService == nil || collectionService == nil {
		return nil, notConfigured("api")
	}

	var mcpHandler http.Handler
	if !serveNoMCP {
		server, err := newMCPServer()
		if err != nil {
			return nil, err
		}
		mcpHandler = server.Handler()
	}

	handler := httpapi.NewHandler(ingestService, retrievalService, collectionService, serveMaxUpload)
	return httpapi.NewRouter(handler, mcpHandler), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	router, err := newRouter()
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := cmd.Context()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Shutting down API server: %v", err)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "API listening on http://%s\n", displayAddr(serveAddr))
	err = httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
