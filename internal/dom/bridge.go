package dom

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// NodeID is a stable identifier assigned to an element for the lifetime
// of the bridge that issued it. IDs from one bridge are meaningless to
// any other bridge.
type NodeID int

// Snapshot is a by-value record of one element, safe to copy across the
// sandbox boundary. The id remains usable for scoped queries and
// traversal against the issuing bridge.
type Snapshot struct {
	ID        NodeID            `json:"id"`
	Tag       string            `json:"tag"`
	Text      string            `json:"text"`
	HTML      string            `json:"html"`
	OuterHTML string            `json:"outerHtml"`
	Attrs     map[string]string `json:"attrs"`
	DataAttrs map[string]string `json:"dataAttrs"`
	Classes   []string          `json:"classes"`
}

// Bridge owns a single parsed HTML document and serves queries and
// traversal over it. A bridge belongs to one extraction request and is
// not safe for concurrent use.
type Bridge struct {
	doc   *goquery.Document
	ids   map[*html.Node]NodeID
	nodes map[NodeID]*html.Node
	next  NodeID
}

// New parses html into a bridge. Parsing never fails: malformed input
// is salvaged leniently and empty input yields a bridge over an empty
// document. Input charset is detected and converted to UTF-8.
func New(htmlStr string) *Bridge {
	doc, err := loadDocument(htmlStr)
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return &Bridge{
		doc:   doc,
		ids:   make(map[*html.Node]NodeID),
		nodes: make(map[NodeID]*html.Node),
		next:  1,
	}
}

// loadDocument parses with charset detection, falling back to a direct
// UTF-8 parse when conversion is not possible.
func loadDocument(htmlStr string) (*goquery.Document, error) {
	data := []byte(htmlStr)

	detector := chardet.NewTextDetector()
	best, err := detector.DetectBest(data)
	if err != nil || best == nil {
		return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(data), strings.ToLower(best.Charset))
	if err != nil {
		return goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	}
	return goquery.NewDocumentFromReader(utf8Reader)
}

// Doc exposes the underlying goquery document for host-side consumers
// such as the extraction engine and metadata extractor.
func (b *Bridge) Doc() *goquery.Document {
	return b.doc
}

// compile parses a CSS selector group. Invalid selectors are absorbed:
// the second return value is false and callers report "no match".
func compile(sel string) (cascadia.Selector, bool) {
	m, err := cascadia.Compile(sel)
	if err != nil {
		return nil, false
	}
	return m, true
}

// ensureID registers n and returns its id, issuing a fresh one on first
// sight. This is the only persistent state of the bridge.
func (b *Bridge) ensureID(n *html.Node) NodeID {
	if id, ok := b.ids[n]; ok {
		return id
	}
	id := b.next
	b.next++
	b.ids[n] = id
	b.nodes[id] = n
	return id
}

// Node resolves an id back to its element.
func (b *Bridge) Node(id NodeID) (*html.Node, bool) {
	n, ok := b.nodes[id]
	return n, ok
}

// Snapshot serializes n, registering it if needed.
func (b *Bridge) Snapshot(n *html.Node) *Snapshot {
	attrs := make(map[string]string, len(n.Attr))
	dataAttrs := make(map[string]string)
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
		if strings.HasPrefix(a.Key, "data-") {
			dataAttrs[strings.TrimPrefix(a.Key, "data-")] = a.Val
		}
	}
	return &Snapshot{
		ID:        b.ensureID(n),
		Tag:       strings.ToLower(n.Data),
		Text:      BlockText(n),
		HTML:      InnerHTML(n),
		OuterHTML: OuterHTML(n),
		Attrs:     attrs,
		DataAttrs: dataAttrs,
		Classes:   strings.Fields(attrs["class"]),
	}
}

// Query returns the first element matching sel in document order.
func (b *Bridge) Query(sel string) (*Snapshot, bool) {
	m, ok := compile(sel)
	if !ok {
		return nil, false
	}
	n := m.MatchFirst(rootNode(b.doc))
	if n == nil {
		return nil, false
	}
	return b.Snapshot(n), true
}

// QueryAll returns all elements matching sel in document order.
func (b *Bridge) QueryAll(sel string) []*Snapshot {
	m, ok := compile(sel)
	if !ok {
		return nil
	}
	return b.snapshots(m.MatchAll(rootNode(b.doc)))
}

// ChildQuery returns the first match of sel within the subtree of id,
// excluding the element itself.
func (b *Bridge) ChildQuery(id NodeID, sel string) (*Snapshot, bool) {
	matches := b.childMatches(id, sel, true)
	if len(matches) == 0 {
		return nil, false
	}
	return b.Snapshot(matches[0]), true
}

// ChildQueryAll returns all matches of sel within the subtree of id.
func (b *Bridge) ChildQueryAll(id NodeID, sel string) []*Snapshot {
	return b.snapshots(b.childMatches(id, sel, false))
}

func (b *Bridge) childMatches(id NodeID, sel string, firstOnly bool) []*html.Node {
	n, ok := b.nodes[id]
	if !ok {
		return nil
	}
	m, ok := compile(sel)
	if !ok {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, m.MatchAll(c)...)
		if firstOnly && len(out) > 0 {
			break
		}
	}
	return out
}

// Closest walks from the element up through its ancestors and returns
// the first one matching sel. The element itself is considered first.
func (b *Bridge) Closest(id NodeID, sel string) (*Snapshot, bool) {
	n, ok := b.nodes[id]
	if !ok {
		return nil, false
	}
	m, ok := compile(sel)
	if !ok {
		return nil, false
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && m.Match(cur) {
			return b.Snapshot(cur), true
		}
	}
	return nil, false
}

// Parent returns the parent element, filtered by sel when non-empty.
func (b *Bridge) Parent(id NodeID, sel string) (*Snapshot, bool) {
	n, ok := b.nodes[id]
	if !ok {
		return nil, false
	}
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil, false
	}
	if sel != "" {
		m, ok := compile(sel)
		if !ok || !m.Match(p) {
			return nil, false
		}
	}
	return b.Snapshot(p), true
}

// Children returns the direct element children in document order.
func (b *Bridge) Children(id NodeID) []*Snapshot {
	n, ok := b.nodes[id]
	if !ok {
		return nil
	}
	var out []*Snapshot
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, b.Snapshot(c))
		}
	}
	return out
}

// FirstChild returns the first element child.
func (b *Bridge) FirstChild(id NodeID) (*Snapshot, bool) {
	n, ok := b.nodes[id]
	if !ok {
		return nil, false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return b.Snapshot(c), true
		}
	}
	return nil, false
}

// LastChild returns the last element child.
func (b *Bridge) LastChild(id NodeID) (*Snapshot, bool) {
	n, ok := b.nodes[id]
	if !ok {
		return nil, false
	}
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			return b.Snapshot(c), true
		}
	}
	return nil, false
}

// NextSibling returns the next element sibling, skipping text nodes.
func (b *Bridge) NextSibling(id NodeID) (*Snapshot, bool) {
	n, ok := b.nodes[id]
	if !ok {
		return nil, false
	}
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return b.Snapshot(s), true
		}
	}
	return nil, false
}

// PrevSibling returns the previous element sibling, skipping text nodes.
func (b *Bridge) PrevSibling(id NodeID) (*Snapshot, bool) {
	n, ok := b.nodes[id]
	if !ok {
		return nil, false
	}
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return b.Snapshot(s), true
		}
	}
	return nil, false
}

// Remove deletes every element matching sel from the document. Invalid
// selectors are absorbed silently.
func (b *Bridge) Remove(sel string) {
	m, ok := compile(sel)
	if !ok {
		return
	}
	b.doc.FindMatcher(m).Remove()
}

// Body returns the body element, or the document root when the parse
// produced no body.
func (b *Bridge) Body() *html.Node {
	if m, ok := compile("body"); ok {
		if n := m.MatchFirst(rootNode(b.doc)); n != nil {
			return n
		}
	}
	return rootNode(b.doc)
}

func (b *Bridge) snapshots(nodes []*html.Node) []*Snapshot {
	out := make([]*Snapshot, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, b.Snapshot(n))
	}
	return out
}

func rootNode(doc *goquery.Document) *html.Node {
	if len(doc.Nodes) > 0 {
		return doc.Nodes[0]
	}
	return &html.Node{Type: html.DocumentNode}
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML renders n itself.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n)
	return buf.String()
}
