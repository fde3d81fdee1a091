package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestExtractor_Registration(t *testing.T) {
	e := New()

	assert.Contains(t, e.SupportedMIMETypes(), "text/html")
	assert.Equal(t, 50, e.Priority())
}

func TestExtract_Success(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Tom &amp; Jerry</title><style>body { color: red; }</style></head>
<body>
  <nav>Home</nav>
  <h1>Episode   Guide</h1>
  <p>First&nbsp;line<br/>second line</p>
  <script>alert("x")</script>
  <!-- hidden -->
  <ul><li>one</li><li>two</li></ul>
</body>
</html>`

	res, err := New().Extract(context.Background(), &domain.Upload{Filename: "guide.html", Content: []byte(page)})
	require.NoError(t, err)

	assert.Equal(t, "Home\nEpisode Guide\nFirst line\nsecond line\none\ntwo", res.Text)
	assert.Equal(t, "Tom & Jerry", res.Metadata["title"])
	assert.Equal(t, "html", res.Metadata["format"])
}

func TestExtract_TitleFromFilename(t *testing.T) {
	res, err := New().Extract(context.Background(), &domain.Upload{
		Filename: "release-notes.html",
		Content:  []byte("<p>Body</p>"),
	})
	require.NoError(t, err)

	assert.Equal(t, "release notes", res.Metadata["title"])
}

func TestExtract_Empty(t *testing.T) {
	_, err := New().Extract(context.Background(), &domain.Upload{
		Filename: "blank.html",
		Content:  []byte("<html><head><title>x</title></head><body><script>1</script></body></html>"),
	})
	assert.ErrorIs(t, err, domain.ErrExtractionEmpty)

	_, err = New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"inline tags", "a <b>bold</b> <i>word</i>", "a bold word"},
		{"entities", "&lt;tag&gt; &quot;q&quot;", `<tag> "q"`},
		{"table cells", "<table><tr><td>a</td><td>b</td></tr></table>", "a\nb"},
		{"uppercase", "<P>One</P><DIV>Two</DIV>", "One\nTwo"},
		{"comment", "x<!-- y -->z", "xz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}
