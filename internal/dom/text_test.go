package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bodyText(t *testing.T, html string) string {
	t.Helper()
	b := New(html)
	require.NotNil(t, b.Body())
	return BlockText(b.Body())
}

func TestBlockText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "blocks separated by newlines",
			html: "<body><nav>N</nav><article>A</article></body>",
			want: "N\nA",
		},
		{
			name: "inline elements keep flowing",
			html: "<body><p>one <b>two</b> three</p></body>",
			want: "one two three",
		},
		{
			name: "br inserts newline",
			html: "<body><p>a<br>b</p></body>",
			want: "a\nb",
		},
		{
			name: "whitespace runs collapse",
			html: "<body><p>a \n\t  b</p></body>",
			want: "a b",
		},
		{
			name: "newline runs collapse",
			html: "<body><div><p>a</p></div><div><p>b</p></div></body>",
			want: "a\nb",
		},
		{
			name: "space adjacent to newline removed",
			html: "<body><p>a </p> <p> b</p></body>",
			want: "a\nb",
		},
		{
			name: "empty block between blocks leaves no blank line",
			html: "<body><p>a</p><div> </div><p>b</p></body>",
			want: "a\nb",
		},
		{
			name: "list items on own lines",
			html: "<body><ul><li>x</li><li>y</li></ul></body>",
			want: "x\ny",
		},
		{
			name: "table rows on own lines",
			html: "<body><table><tr><td>r1</td></tr><tr><td>r2</td></tr></table></body>",
			want: "r1\nr2",
		},
		{
			name: "empty input",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bodyText(t, tt.html))
		})
	}
}

func TestBlockTextIdempotentNormalization(t *testing.T) {
	got := bodyText(t, "<body><p> a </p><p> b </p></body>")
	assert.Equal(t, got, normalizeBlockText(got))
}
