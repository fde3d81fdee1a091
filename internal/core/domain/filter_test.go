package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseFilter tests expression parsing into conditions
func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected Condition
	}{
		{
			name:     "equality",
			expr:     "source=doc_a.txt",
			expected: Condition{Field: "source", Op: OpEq, Values: []string{"doc_a.txt"}},
		},
		{
			name:     "inequality",
			expr:     "file_type!=pdf",
			expected: Condition{Field: "file_type", Op: OpNe, Values: []string{"pdf"}},
		},
		{
			name:     "membership",
			expr:     "file_type~=txt|md",
			expected: Condition{Field: "file_type", Op: OpIn, Values: []string{"txt", "md"}},
		},
		{
			name:     "value containing equals",
			expr:     "source=a=b",
			expected: Condition{Field: "source", Op: OpEq, Values: []string{"a=b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			require.Len(t, f.Conditions, 1)
			assert.Equal(t, tt.expected, f.Conditions[0])
		})
	}
}

func TestParseFilter_Empty(t *testing.T) {
	f, err := ParseFilter()
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, f.IsEmpty())
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, expr := range []string{"", "novalue", "=x", "bad-field=x", "1field=x", "k~=|"} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
	}{
		{"unknown op", Condition{Field: "a", Op: "gt", Values: []string{"1"}}},
		{"no values", Condition{Field: "a", Op: OpIn}},
		{"eq with many", Condition{Field: "a", Op: OpEq, Values: []string{"1", "2"}}},
		{"bad field", Condition{Field: "a.b", Op: OpEq, Values: []string{"1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Filter{Conditions: []Condition{tt.cond}}
			assert.ErrorIs(t, f.Validate(), ErrInvalidFilter)
		})
	}

	var nilFilter *Filter
	assert.NoError(t, nilFilter.Validate())
}

func TestFilter_Match(t *testing.T) {
	m := Metadata{"source": "doc_a.txt", "chunk_index": 1, "file_type": "txt"}

	tests := []struct {
		name     string
		exprs    []string
		expected bool
	}{
		{"eq match", []string{"source=doc_a.txt"}, true},
		{"eq miss", []string{"source=doc_b.txt"}, false},
		{"numeric eq", []string{"chunk_index=1"}, true},
		{"ne match", []string{"file_type!=pdf"}, true},
		{"ne missing field", []string{"author!=bob"}, true},
		{"in match", []string{"file_type~=pdf|txt"}, true},
		{"in miss", []string{"file_type~=pdf|docx"}, false},
		{"eq missing field", []string{"author=bob"}, false},
		{"conjunction", []string{"source=doc_a.txt", "file_type=pdf"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.exprs...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.Match(m))
		})
	}

	var nilFilter *Filter
	assert.True(t, nilFilter.Match(m))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "42", FormatValue(float64(42)))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "false", FormatValue(false))
}
