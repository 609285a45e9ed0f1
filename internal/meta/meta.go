// Package meta reads page metadata: title, standard meta tags, Open
// Graph properties and hreflang alternates. Extraction never errors;
// absent fields are explicit nulls.
package meta

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
)

// Hreflang is one language alternate of a page.
type Hreflang struct {
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

// OpenGraph holds the og: properties of a page.
type OpenGraph struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	URL         *string `json:"url"`
	Type        *string `json:"type"`
	SiteName    *string `json:"siteName"`
}

// PageMeta is the normalized metadata view of a page.
type PageMeta struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Keywords    *string    `json:"keywords"`
	Canonical   *string    `json:"canonical"`
	Robots      *string    `json:"robots"`
	Index       bool       `json:"index"`
	Heading     *string    `json:"heading"`
	Hreflang    []Hreflang `json:"hreflang"`
	OpenGraph   OpenGraph  `json:"opengraph"`
}

// Parse extracts metadata from an HTML document.
func Parse(htmlStr string) *PageMeta {
	return FromBridge(dom.New(htmlStr))
}

// FromBridge extracts metadata from an already-parsed document.
func FromBridge(b *dom.Bridge) *PageMeta {
	doc := b.Doc()

	m := &PageMeta{
		Title:       elementText(doc, "title"),
		Description: metaContent(doc, "description"),
		Keywords:    metaContent(doc, "keywords"),
		Canonical:   attrValue(doc, `link[rel="canonical"]`, "href"),
		Robots:      metaContent(doc, "robots"),
		Heading:     elementText(doc, "h1"),
		Hreflang:    []Hreflang{},
	}

	m.Index = true
	if m.Robots != nil && strings.Contains(strings.ToLower(*m.Robots), "noindex") {
		m.Index = false
	}

	doc.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, s *goquery.Selection) {
		lang := strings.TrimSpace(s.AttrOr("hreflang", ""))
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if lang != "" && href != "" {
			m.Hreflang = append(m.Hreflang, Hreflang{Lang: lang, URL: href})
		}
	})

	m.OpenGraph = OpenGraph{
		Title:       ogContent(doc, "og:title"),
		Description: ogContent(doc, "og:description"),
		Image:       ogContent(doc, "og:image"),
		URL:         ogContent(doc, "og:url"),
		Type:        ogContent(doc, "og:type"),
		SiteName:    ogContent(doc, "og:site_name"),
	}

	return m
}

func elementText(doc *goquery.Document, sel string) *string {
	s := doc.Find(sel).First()
	if s.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(s.Text())
	if text == "" {
		return nil
	}
	return &text
}

func metaContent(doc *goquery.Document, name string) *string {
	return attrValue(doc, `meta[name="`+name+`"]`, "content")
}

func ogContent(doc *goquery.Document, property string) *string {
	return attrValue(doc, `meta[property="`+property+`"]`, "content")
}

func attrValue(doc *goquery.Document, sel, attr string) *string {
	s := doc.Find(sel).First()
	if s.Length() == 0 {
		return nil
	}
	val := strings.TrimSpace(s.AttrOr(attr, ""))
	if val == "" {
		return nil
	}
	return &val
}
