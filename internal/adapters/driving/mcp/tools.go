package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string   `json:"query" jsonschema:"the question or text to find similar chunks for"`
	K     int      `json:"k,omitempty" jsonschema:"maximum number of results to return (default 3)"`
	Where []string `json:"where,omitempty" jsonschema:"metadata filters such as file_type=pdf or source!=notes.txt"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results  []SearchResultOutput `json:"results"`
	Count    int                  `json:"count"`
	Warnings []string             `json:"warnings,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
	Relevance  float64 `json:"relevance"`
	Text       string  `json:"text"`
}

// ContextInput is the input schema for the get_context tool.
type ContextInput struct {
	Query     string   `json:"query" jsonschema:"the question the context should help answer"`
	K         int      `json:"k,omitempty" jsonschema:"number of candidate chunks (default 3)"`
	MaxLength int      `json:"max_length,omitempty" jsonschema:"context budget in characters (default 2000)"`
	Where     []string `json:"where,omitempty" jsonschema:"metadata filters such as file_type=pdf"`
}

// IngestInput is the input schema for the ingest_text tool.
type IngestInput struct {
	Source   string            `json:"source" jsonschema:"document identifier, normally a filename"`
	Text     string            `json:"text" jsonschema:"the document text"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"extra metadata stored with every chunk"`
}

// CollectionInput is the empty input schema for the collection_info tool.
type CollectionInput struct{}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_context",
		Description: "Retrieve attributed context from indexed documents to ground an answer",
	}, s.handleGetContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the chunks most similar to a query, best match first",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_text",
		Description: "Chunk, deduplicate and index a document's text",
	}, s.handleIngestText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "collection_info",
		Description: "Describe the collection: name, chunk count, dimension and model",
	}, s.handleCollectionInfo)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	filter, err := domain.ParseFilter(input.Where...)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	resp, err := s.ports.Retrieval.Search(ctx, input.Query, domain.SearchOptions{
		K:      input.K,
		Filter: filter,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, len(resp.Results)),
		Count:    len(resp.Results),
		Warnings: resp.Warnings,
	}

	for i := range resp.Results {
		r := resp.Results[i]
		output.Results[i] = SearchResultOutput{
			Source:     r.Chunk.Source,
			ChunkIndex: r.Chunk.ChunkIndex,
			Distance:   r.Distance,
			Relevance:  r.Relevance(),
			Text:       r.Chunk.Text,
		}
	}

	return nil, output, nil
}

// handleGetContext handles the get_context tool invocation.
func (s *Server) handleGetContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, domain.ContextResult, error) {
	filter, err := domain.ParseFilter(input.Where...)
	if err != nil {
		return nil, domain.ContextResult{}, err
	}

	result, err := s.ports.Retrieval.GetContext(ctx, input.Query, domain.ContextOptions{
		K:         input.K,
		MaxLength: input.MaxLength,
		Filter:    filter,
	})
	if err != nil {
		return nil, domain.ContextResult{}, err
	}

	return nil, *result, nil
}

// handleIngestText handles the ingest_text tool invocation.
func (s *Server) handleIngestText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, domain.IngestReport, error) {
	if s.ports.Ingest == nil {
		return nil, domain.IngestReport{}, ErrIngestDisabled
	}

	metadata := make(domain.Metadata, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	if _, ok := metadata["file_type"]; !ok {
		metadata["file_type"] = "text"
	}

	report, err := s.ports.Ingest.Ingest(ctx, domain.IngestRequest{
		Text:     input.Text,
		Source:   strings.TrimSpace(input.Source),
		Metadata: metadata,
	})
	if err != nil {
		return nil, domain.IngestReport{}, fmt.Errorf("ingesting %s: %w", input.Source, err)
	}

	return nil, *report, nil
}

// handleCollectionInfo handles the collection_info tool invocation.
func (s *Server) handleCollectionInfo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CollectionInput,
) (*mcp.CallToolResult, domain.CollectionInfo, error) {
	if s.ports.Collection == nil {
		return nil, domain.CollectionInfo{}, fmt.Errorf("%w: collection service not configured", domain.ErrNotFound)
	}

	info, err := s.ports.Collection.Info(ctx)
	if err != nil {
		return nil, domain.CollectionInfo{}, err
	}

	return nil, *info, nil
}
