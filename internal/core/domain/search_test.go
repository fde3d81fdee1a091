package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSearchResult_Relevance tests distance to relevance conversion
func TestSearchResult_Relevance(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		expected float64
	}{
		{"exact match", 0, 1},
		{"half", 0.5, 0.5},
		{"orthogonal", 1, 0},
		{"opposite clamps to zero", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SearchResult{Distance: tt.distance}
			assert.InDelta(t, tt.expected, r.Relevance(), 1e-9)
		})
	}
}

func TestPreview(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, Preview(short))

	exact := strings.Repeat("a", PreviewLength)
	assert.Equal(t, exact, Preview(exact))

	long := strings.Repeat("é", PreviewLength+10)
	p := Preview(long)
	assert.True(t, strings.HasSuffix(p, TruncationMarker))
	assert.Equal(t, PreviewLength+len(TruncationMarker), len([]rune(p)))
}

func TestContextResult_HasContext(t *testing.T) {
	assert.False(t, ContextResult{Context: NoContextSentinel}.HasContext())
	assert.True(t, ContextResult{Sources: []ContextSource{{Source: "a"}}}.HasContext())
}
