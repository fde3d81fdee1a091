package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var docATexts = []string{
	"apples grow in the orchard behind the farmhouse",
	"the river floods every spring after the snow melts",
	"compilers translate source code into machine instructions",
}

func seedDocA(t *testing.T, rig *testRig) {
	t.Helper()
	_, err := rig.index.Add(context.Background(), chunksOf("doc_a.txt", docATexts...))
	require.NoError(t, err)
}

func TestRetrievalService_GetContext_TopResultIsExactMatch(t *testing.T) {
	rig := newTestRig(nil)
	seedDocA(t, rig)

	res, err := rig.retrieval.GetContext(context.Background(), docATexts[1], domain.ContextOptions{K: 2})
	require.NoError(t, err)

	require.Len(t, res.Sources, 2)
	assert.Equal(t, "doc_a.txt", res.Sources[0].Source)
	assert.Equal(t, 1, res.Sources[0].ChunkIndex)
	assert.InDelta(t, 0, res.Sources[0].Distance, 1e-6)
	assert.InDelta(t, 1, res.Sources[0].Relevance, 1e-6)
	assert.Equal(t, docATexts[1], res.Sources[0].Preview)
	assert.True(t, strings.HasPrefix(res.Context, "[Document: doc_a.txt, Chunk 1]\n"+docATexts[1]+"\n"))
	assert.Equal(t, 1, strings.Count(res.Context, BlockSeparator))
	assert.True(t, res.HasContext())
	assert.Empty(t, res.Warnings)
}

func TestRetrievalService_GetContext_Deterministic(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(nil)
	seedDocA(t, rig)

	first, err := rig.retrieval.GetContext(ctx, "snow and rivers", domain.ContextOptions{})
	require.NoError(t, err)
	second, err := rig.retrieval.GetContext(ctx, "snow and rivers", domain.ContextOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.Sources, domain.DefaultK)
}

func TestRetrievalService_GetContext_EmptyCollection(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(nil)
	seedDocA(t, rig)
	require.NoError(t, rig.collection.Clear(ctx))

	res, err := rig.retrieval.GetContext(ctx, docATexts[0], domain.ContextOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.NoContextSentinel, res.Context)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.False(t, res.HasContext())
}

func TestRetrievalService_GetContext_DegradesOnStorageFailure(t *testing.T) {
	rig := newTestRig(nil)
	seedDocA(t, rig)
	rig.store.searchErr = fmt.Errorf("%w: database locked", domain.ErrStorageUnavailable)

	res, err := rig.retrieval.GetContext(context.Background(), "apples", domain.ContextOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.NoContextSentinel, res.Context)
	assert.Empty(t, res.Sources)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "database locked")
}

func TestRetrievalService_GetContext_DegradesOnEmbeddingFailure(t *testing.T) {
	rig := newTestRig(nil)
	seedDocA(t, rig)
	rig.embedder.embedErr = fmt.Errorf("%w: connection refused", domain.ErrEmbeddingModelUnavailable)

	res, err := rig.retrieval.GetContext(context.Background(), "apples", domain.ContextOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.NoContextSentinel, res.Context)
	assert.NotEmpty(t, res.Warnings)
}

func TestRetrievalService_InvalidFilterIsAnError(t *testing.T) {
	rig := newTestRig(nil)
	seedDocA(t, rig)
	bad := &domain.Filter{Conditions: []domain.Condition{{Field: "source", Op: domain.OpEq}}}

	_, err := rig.retrieval.GetContext(context.Background(), "apples", domain.ContextOptions{Filter: bad})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)

	_, err = rig.retrieval.Search(context.Background(), "apples", domain.SearchOptions{Filter: bad})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestRetrievalService_Search_Filter(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(nil)
	seedDocA(t, rig)
	_, err := rig.index.Add(ctx, chunksOf("doc_b.txt", "apples are also sold at the market"))
	require.NoError(t, err)

	f, err := domain.ParseFilter("source=doc_b.txt")
	require.NoError(t, err)

	resp, err := rig.retrieval.Search(ctx, "apples", domain.SearchOptions{K: 5, Filter: f})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc_b.txt", resp.Results[0].Chunk.Source)
}

func TestRetrievalService_Search_EmptyQuery(t *testing.T) {
	rig := newTestRig(nil)
	seedDocA(t, rig)

	resp, err := rig.retrieval.Search(context.Background(), "   ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, rig.embedder.embedCalls)
}

func TestRetrievalService_Defaults(t *testing.T) {
	rig := newTestRig(nil)
	svc := NewRetrievalService(rig.index, domain.ContextSettings{K: 1, MaxLength: 10})

	assert.Equal(t, 1, svc.defaults.K)
	assert.Equal(t, 10, svc.defaults.MaxLength)
	assert.Equal(t, domain.DefaultK, rig.retrieval.defaults.K)
	assert.Equal(t, domain.DefaultMaxContextLength, rig.retrieval.defaults.MaxLength)
}

func result(source string, idx int, text string, distance float64) domain.SearchResult {
	return domain.SearchResult{
		Chunk:    domain.Chunk{Source: source, ChunkIndex: idx, Text: text},
		Distance: distance,
	}
}

func TestAssembleContext_NoResults(t *testing.T) {
	res := AssembleContext(nil, 100)

	assert.Equal(t, domain.NoContextSentinel, res.Context)
	assert.Empty(t, res.Sources)
	assert.False(t, res.Truncated)
}

func TestAssembleContext_StaysWithinBudget(t *testing.T) {
	results := []domain.SearchResult{
		result("a.txt", 0, strings.Repeat("a", 30), 0.1),
		result("b.txt", 3, strings.Repeat("b", 30), 0.2),
		result("c.txt", 1, strings.Repeat("c", 30), 0.3),
	}
	block := utf8.RuneCountInString(FormatBlock(results[0].Chunk))
	budget := 2*block + len(BlockSeparator)

	res := AssembleContext(results, budget)

	assert.Equal(t, budget, utf8.RuneCountInString(res.Context))
	assert.Equal(t, FormatBlock(results[0].Chunk)+BlockSeparator+FormatBlock(results[1].Chunk), res.Context)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "a.txt", res.Sources[0].Source)
	assert.Equal(t, "b.txt", res.Sources[1].Source)
	assert.Equal(t, 3, res.Sources[1].ChunkIndex)
	assert.True(t, res.Truncated)

	// One character less drops the second block too.
	res = AssembleContext(results, budget-1)
	assert.Len(t, res.Sources, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(res.Context), budget-1)
}

func TestAssembleContext_OversizedFirstBlock(t *testing.T) {
	results := []domain.SearchResult{
		result("big.txt", 0, strings.Repeat("é", 500), 0.05),
		result("small.txt", 0, "tiny", 0.5),
	}

	res := AssembleContext(results, 100)

	require.Len(t, res.Sources, 1)
	assert.Equal(t, "big.txt", res.Sources[0].Source)
	assert.True(t, res.Truncated)
	assert.True(t, strings.HasSuffix(res.Context, domain.TruncationMarker))
	assert.Equal(t, 100+utf8.RuneCountInString(domain.TruncationMarker), utf8.RuneCountInString(res.Context))
	assert.Equal(t, domain.PreviewLength+len(domain.TruncationMarker), utf8.RuneCountInString(res.Sources[0].Preview))
	assert.True(t, utf8.ValidString(res.Context))
}

func TestAssembleContext_RelevanceClamped(t *testing.T) {
	res := AssembleContext([]domain.SearchResult{result("a.txt", 0, "x", 1.5)}, 100)

	require.Len(t, res.Sources, 1)
	assert.Equal(t, 1.5, res.Sources[0].Distance)
	assert.Zero(t, res.Sources[0].Relevance)
}
