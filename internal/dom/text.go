package dom

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// blockTags are the elements whose closing boundary inserts a newline
// during block-aware text extraction.
var blockTags = map[string]bool{
	"p": true, "div": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "hr": true,
	"article": true, "section": true, "header": true, "footer": true,
	"blockquote": true, "pre": true,
	"ul": true, "ol": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true,
	"nav": true, "aside": true, "main": true,
	"figure": true, "figcaption": true, "address": true,
	"dd": true, "dt": true, "dl": true,
}

var (
	wsRun         = regexp.MustCompile(`\s+`)
	newlineRun    = regexp.MustCompile(`\n+`)
	spaceRun      = regexp.MustCompile(` +`)
	spaceAroundNL = regexp.MustCompile(` *\n *`)
)

// BlockText extracts the text content of the subtree rooted at n,
// inserting newlines at block element boundaries and after <br>,
// with all whitespace runs collapsed.
func BlockText(n *html.Node) string {
	var b strings.Builder
	collectText(n, &b)
	return normalizeBlockText(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(wsRun.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteString("\n")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteString("\n")
	}
}

func normalizeBlockText(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = spaceAroundNL.ReplaceAllString(s, "\n")
	s = newlineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
