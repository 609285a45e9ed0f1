// Package plugins derives structured data from a parsed page alongside
// the main extraction: headings, links, and ad-hoc XPath queries.
package plugins

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
)

// Request carries the inputs shared by all plugins for one page.
type Request struct {
	Bridge *dom.Bridge
	HTML   string
	XPath  []string // expressions for the xpath plugin
}

// Plugin derives one named datum from a page. Run never aborts the
// surrounding extraction; failures are reported as values.
type Plugin interface {
	Name() string
	Run(req *Request) (any, error)
}

// Registry dispatches plugins by name.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry returns a registry with the built-in plugins.
func NewRegistry() *Registry {
	r := &Registry{plugins: make(map[string]Plugin)}
	r.Register(&Headings{})
	r.Register(&Links{})
	r.Register(&XPath{})
	return r
}

// Register adds or replaces a plugin.
func (r *Registry) Register(p Plugin) {
	r.plugins[p.Name()] = p
}

// Names lists the registered plugin names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		out = append(out, name)
	}
	return out
}

// Collect runs the named plugins and gathers their results. Unknown
// names and plugin failures become error strings in the result map so
// one bad plugin never sinks the request.
func (r *Registry) Collect(names []string, req *Request) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		p, ok := r.plugins[name]
		if !ok {
			out[name] = map[string]string{"error": fmt.Sprintf("unknown data plugin %q", name)}
			continue
		}
		val, err := p.Run(req)
		if err != nil {
			out[name] = map[string]string{"error": err.Error()}
			continue
		}
		out[name] = val
	}
	return out
}

// Heading is one h1..h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id,omitempty"`
}

// Headings extracts the heading outline in document order.
type Headings struct{}

func (*Headings) Name() string { return "headings" }

func (*Headings) Run(req *Request) (any, error) {
	out := []Heading{}
	req.Bridge.Doc().Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(s)[1] - '0')
		out = append(out, Heading{
			Level: level,
			Text:  text,
			ID:    s.AttrOr("id", ""),
		})
	})
	return out, nil
}

// Link is one anchor's href and its trimmed text, which may be empty.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Links extracts deduplicated anchors.
type Links struct{}

func (*Links) Name() string { return "links" }

func (*Links) Run(req *Request) (any, error) {
	out := []Link{}
	seen := make(map[string]bool)
	req.Bridge.Doc().Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || href == "#" || seen[href] {
			return
		}
		seen[href] = true
		out = append(out, Link{Href: href, Text: strings.TrimSpace(s.Text())})
	})
	return out, nil
}

// XPath evaluates the request's XPath expressions against the raw HTML
// and returns the text of each match.
type XPath struct{}

func (*XPath) Name() string { return "xpath" }

func (*XPath) Run(req *Request) (any, error) {
	out := make(map[string]any, len(req.XPath))
	doc, err := htmlquery.Parse(strings.NewReader(req.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse for xpath: %w", err)
	}
	for _, expr := range req.XPath {
		nodes, err := htmlquery.QueryAll(doc, expr)
		if err != nil {
			out[expr] = map[string]string{"error": fmt.Sprintf("invalid xpath: %v", err)}
			continue
		}
		texts := []string{}
		for _, n := range nodes {
			texts = append(texts, strings.TrimSpace(htmlquery.InnerText(n)))
		}
		out[expr] = texts
	}
	return out, nil
}
