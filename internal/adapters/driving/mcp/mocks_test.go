package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	response  *domain.SearchResponse
	result    *domain.ContextResult
	err       error
	lastQuery string
	lastK     int
	lastMax   int
	filter    *domain.Filter
}

func (m *mockRetrievalService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastQuery, m.lastK, m.filter = query, opts.K, opts.Filter
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{Results: []domain.SearchResult{}}, nil
	}
	return m.response, nil
}

func (m *mockRetrievalService) GetContext(
	_ context.Context,
	query string,
	opts domain.ContextOptions,
) (*domain.ContextResult, error) {
	m.lastQuery, m.lastK, m.lastMax, m.filter = query, opts.K, opts.MaxLength, opts.Filter
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.ContextResult{Context: domain.NoContextSentinel, Sources: []domain.ContextSource{}}, nil
	}
	return m.result, nil
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	req domain.IngestRequest
	err error
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestReport{Source: req.Source, Chunks: 2, Added: 2}, nil
}

func (m *mockIngestService) IngestUpload(_ context.Context, upload domain.Upload) (*domain.IngestReport, error) {
	return &domain.IngestReport{Source: upload.Filename}, m.err
}

// mockCollectionService is a mock implementation of driving.CollectionService.
type mockCollectionService struct {
	info    *domain.CollectionInfo
	sources []string
	err     error
}

func (m *mockCollectionService) Info(_ context.Context) (*domain.CollectionInfo, error) {
	return m.info, m.err
}

func (m *mockCollectionService) Count(_ context.Context) (int, error) {
	if m.info == nil {
		return 0, m.err
	}
	return m.info.Count, m.err
}

func (m *mockCollectionService) Sources(_ context.Context) ([]string, error) {
	return m.sources, m.err
}

func (m *mockCollectionService) Clear(_ context.Context) error {
	return m.err
}

func (m *mockCollectionService) DeleteSource(_ context.Context, _ string) (int, error) {
	return 0, m.err
}
