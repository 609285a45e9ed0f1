package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
)

const page = `<html><body>
<h1 id="top">Title</h1>
<h2>Part One</h2>
<h2> </h2>
<a href="/a">first</a>
<a href="/a">dup</a>
<a href="#">anchor</a>
<a href="/b">second</a>
</body></html>`

func newRequest(htmlStr string, xpath ...string) *Request {
	return &Request{Bridge: dom.New(htmlStr), HTML: htmlStr, XPath: xpath}
}

func TestHeadings(t *testing.T) {
	val, err := (&Headings{}).Run(newRequest(page))
	require.NoError(t, err)

	headings, ok := val.([]Heading)
	require.True(t, ok)
	require.Len(t, headings, 2, "blank headings are dropped")
	assert.Equal(t, Heading{Level: 1, Text: "Title", ID: "top"}, headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Part One"}, headings[1])
}

func TestLinks(t *testing.T) {
	val, err := (&Links{}).Run(newRequest(page))
	require.NoError(t, err)

	links, ok := val.([]Link)
	require.True(t, ok)
	require.Len(t, links, 2, "duplicates and bare anchors are dropped")
	assert.Equal(t, Link{Href: "/a", Text: "first"}, links[0])
	assert.Equal(t, Link{Href: "/b", Text: "second"}, links[1])
}

func TestXPath(t *testing.T) {
	val, err := (&XPath{}).Run(newRequest(page, "//h1", "//missing", "not-valid(("))
	require.NoError(t, err)

	results, ok := val.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"Title"}, results["//h1"])
	assert.Equal(t, []string{}, results["//missing"])
	_, hasErr := results["not-valid(("].(map[string]string)
	assert.True(t, hasErr, "invalid xpath reports an error value")
}

func TestRegistryCollect(t *testing.T) {
	reg := NewRegistry()

	out := reg.Collect([]string{"headings", "nope"}, newRequest(page))
	require.Contains(t, out, "headings")
	require.Contains(t, out, "nope")
	_, isErr := out["nope"].(map[string]string)
	assert.True(t, isErr)

	assert.ElementsMatch(t, []string{"headings", "links", "xpath"}, reg.Names())
}
