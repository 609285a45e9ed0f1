package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"html", HTML, false},
		{"markdown", Markdown, false},
		{"TEXT", Text, false},
		{"", HTML, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestRenderHTMLPassthrough(t *testing.T) {
	p := NewPipeline()
	frag := `<h1>Hello</h1><p>World</p>`
	assert.Equal(t, frag, p.Render(frag, "", HTML))
}

func TestRenderMarkdown(t *testing.T) {
	p := NewPipeline()

	got := p.Render("<h1>Hello</h1><p>World</p>", "", Markdown)
	assert.Equal(t, "# Hello\n\nWorld", got)
}

func TestRenderMarkdownDropsEmptyAnchors(t *testing.T) {
	p := NewPipeline()

	got := p.Render(`<p>see <a href="/x"> </a><a href="/y">here</a></p>`, "", Markdown)
	assert.NotContains(t, got, "[](")
	assert.Contains(t, got, "[here](/y)")
}

func TestRenderText(t *testing.T) {
	p := NewPipeline()

	got := p.Render("<nav>N</nav><article>A</article>", "", Text)
	assert.Equal(t, "N\nA", got)

	// Pre-computed fallback wins over fragment parsing.
	got = p.Render("<p>ignored</p>", "already  text", Text)
	assert.Equal(t, "already text", got)
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"a   b\n\n\n\nc",
		"  x \n y ",
		"line\n\nline",
		"",
	}
	for _, in := range inputs {
		once := NormalizeText(in)
		assert.Equal(t, once, NormalizeText(once), "input %q", in)
	}
}

func TestSanitize(t *testing.T) {
	p := NewPipeline()
	got := p.Sanitize(`<p onclick="evil()">ok</p><script>evil()</script>`)
	assert.NotContains(t, got, "script")
	assert.NotContains(t, got, "onclick")
	assert.Contains(t, got, "ok")
}
