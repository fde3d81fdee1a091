// Package mcp provides an MCP (Model Context Protocol) server adapter for Sercha RAG.
// It lets AI assistants retrieve attributed context from the local collection.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrIngestDisabled is returned by ingest_text when no ingest service is wired.
var ErrIngestDisabled = errors.New("mcp: ingestion is not enabled")
