package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<html><body>
<div id="root" class="wrap outer" data-kind="page">
  <p class="intro">First</p>
  text between
  <p>Second</p>
  <span id="leaf">deep <b>bold</b></span>
</div>
<div id="other"><p class="intro">Third</p></div>
</body></html>`

func TestQuery(t *testing.T) {
	b := New(testPage)

	snap, ok := b.Query("#root")
	require.True(t, ok)
	assert.Equal(t, "div", snap.Tag)
	assert.Equal(t, []string{"wrap", "outer"}, snap.Classes)
	assert.Equal(t, "page", snap.DataAttrs["kind"])
	assert.Equal(t, "page", snap.Attrs["data-kind"])

	_, ok = b.Query(".missing")
	assert.False(t, ok)
}

func TestQueryAllDocumentOrder(t *testing.T) {
	b := New(testPage)

	snaps := b.QueryAll("p")
	require.Len(t, snaps, 3)
	assert.Equal(t, "First", snaps[0].Text)
	assert.Equal(t, "Second", snaps[1].Text)
	assert.Equal(t, "Third", snaps[2].Text)
}

func TestStableIDs(t *testing.T) {
	b := New(testPage)

	first, ok := b.Query("p.intro")
	require.True(t, ok)

	all := b.QueryAll("p")
	require.NotEmpty(t, all)
	assert.Equal(t, first.ID, all[0].ID, "same element must keep the same id")

	again, ok := b.Query("p.intro")
	require.True(t, ok)
	assert.Equal(t, first.ID, again.ID)
}

func TestChildQueryScoped(t *testing.T) {
	b := New(testPage)

	root, ok := b.Query("#root")
	require.True(t, ok)

	snaps := b.ChildQueryAll(root.ID, "p")
	require.Len(t, snaps, 2, "scoped query must not escape the subtree")

	snap, ok := b.ChildQuery(root.ID, ".intro")
	require.True(t, ok)
	assert.Equal(t, "First", snap.Text)

	// Scope root itself never matches.
	_, ok = b.ChildQuery(root.ID, "#root")
	assert.False(t, ok)

	// Unknown ids yield no match.
	_, ok = b.ChildQuery(NodeID(9999), "p")
	assert.False(t, ok)
	assert.Empty(t, b.ChildQueryAll(NodeID(9999), "p"))
}

func TestClosestIncludesSelf(t *testing.T) {
	b := New(testPage)

	leaf, ok := b.Query("#leaf")
	require.True(t, ok)

	self, ok := b.Closest(leaf.ID, "span")
	require.True(t, ok)
	assert.Equal(t, leaf.ID, self.ID)

	anc, ok := b.Closest(leaf.ID, ".wrap")
	require.True(t, ok)
	assert.Equal(t, "div", anc.Tag)

	_, ok = b.Closest(leaf.ID, "table")
	assert.False(t, ok)
}

func TestParentFiltered(t *testing.T) {
	b := New(testPage)

	leaf, ok := b.Query("#leaf")
	require.True(t, ok)

	p, ok := b.Parent(leaf.ID, "")
	require.True(t, ok)
	assert.Equal(t, "div", p.Tag)

	_, ok = b.Parent(leaf.ID, ".nope")
	assert.False(t, ok)

	p, ok = b.Parent(leaf.ID, ".outer")
	require.True(t, ok)
	assert.Equal(t, "div", p.Tag)
}

func TestTraversalSkipsTextNodes(t *testing.T) {
	b := New(testPage)

	root, ok := b.Query("#root")
	require.True(t, ok)

	children := b.Children(root.ID)
	require.Len(t, children, 3)
	assert.Equal(t, "p", children[0].Tag)
	assert.Equal(t, "span", children[2].Tag)

	first, ok := b.FirstChild(root.ID)
	require.True(t, ok)
	assert.Equal(t, children[0].ID, first.ID)

	last, ok := b.LastChild(root.ID)
	require.True(t, ok)
	assert.Equal(t, children[2].ID, last.ID)

	next, ok := b.NextSibling(children[0].ID)
	require.True(t, ok)
	assert.Equal(t, children[1].ID, next.ID)

	prev, ok := b.PrevSibling(children[1].ID)
	require.True(t, ok)
	assert.Equal(t, children[0].ID, prev.ID)

	_, ok = b.PrevSibling(children[0].ID)
	assert.False(t, ok)
}

func TestInvalidSelectorAbsorbed(t *testing.T) {
	b := New(testPage)

	_, ok := b.Query("p[[[")
	assert.False(t, ok)
	assert.Empty(t, b.QueryAll("div >"))

	root, _ := b.Query("#root")
	assert.Empty(t, b.ChildQueryAll(root.ID, ":::nope"))

	// Remove with a bad selector is a no-op, not a panic.
	b.Remove("p[[[")
	assert.Len(t, b.QueryAll("p"), 3)
}

func TestLenientParsing(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty input", ""},
		{"no body", "<html><head><title>t</title></head></html>"},
		{"bare fragment", "<p>loose</p>"},
		{"unclosed tags", "<div><p>a<p>b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.html)
			require.NotNil(t, b)
			assert.NotNil(t, b.Body())
		})
	}
}

func TestRemove(t *testing.T) {
	b := New(testPage)
	b.Remove("#other")
	assert.Len(t, b.QueryAll("p"), 2)
}

func TestSnapshotHTMLFields(t *testing.T) {
	b := New(`<div id="x"><em>hi</em></div>`)

	snap, ok := b.Query("#x")
	require.True(t, ok)
	assert.Equal(t, "<em>hi</em>", snap.HTML)
	assert.Equal(t, `<div id="x"><em>hi</em></div>`, snap.OuterHTML)
}
