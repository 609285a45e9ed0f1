// Package format is the sole place where extracted fragments are
// converted between output formats. The pipeline never errors: any
// fragment in, a string out.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
)

// Format selects the textual output representation.
type Format string

const (
	HTML     Format = "html"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// Parse validates a format name. Empty input defaults to HTML.
func Parse(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return HTML, nil
	case HTML:
		return HTML, nil
	case Markdown:
		return Markdown, nil
	case Text:
		return Text, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Pipeline renders HTML fragments into the requested format.
type Pipeline struct {
	conv      *converter.Converter
	sanitizer *bluemonday.Policy
}

// NewPipeline builds a pipeline with a commonmark converter (ATX
// headings, fenced code blocks, tables) and a UGC sanitizer policy.
func NewPipeline() *Pipeline {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Pipeline{
		conv:      conv,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Render converts fragment into f. textFallback, when non-empty, is the
// pre-computed plain text used for the Text format; otherwise the text
// is derived from the fragment.
func (p *Pipeline) Render(fragment, textFallback string, f Format) string {
	switch f {
	case Markdown:
		return p.toMarkdown(fragment)
	case Text:
		if textFallback == "" {
			textFallback = fragmentText(fragment)
		}
		return NormalizeText(textFallback)
	default:
		return fragment
	}
}

// Sanitize strips unsafe markup from an HTML fragment.
func (p *Pipeline) Sanitize(fragment string) string {
	return p.sanitizer.Sanitize(fragment)
}

// toMarkdown converts a fragment, dropping anchors with empty or
// whitespace-only text first. Conversion failures fall back to the
// fragment's plain text so the pipeline still returns a string.
func (p *Pipeline) toMarkdown(fragment string) string {
	fragment = dropEmptyAnchors(fragment)
	md, err := p.conv.ConvertString(fragment)
	if err != nil {
		return NormalizeText(fragmentText(fragment))
	}
	return trimTrailing(md)
}

// dropEmptyAnchors removes <a> elements whose text content is empty or
// whitespace-only, so they do not render as dangling [](...) links.
func dropEmptyAnchors(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	changed := false
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) == "" {
			s.Remove()
			changed = true
		}
	})
	if !changed {
		return fragment
	}
	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return out
}

// fragmentText parses a fragment and extracts its block-aware text.
func fragmentText(fragment string) string {
	b := dom.New(fragment)
	return dom.BlockText(b.Body())
}

var (
	horizontalWS = regexp.MustCompile(`[ \t\r\f]+`)
	nlSpace      = regexp.MustCompile(` *\n *`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText collapses horizontal whitespace runs to a single space,
// blank-line runs to a single blank line, and trims. It is idempotent.
func NormalizeText(s string) string {
	s = horizontalWS.ReplaceAllString(s, " ")
	s = nlSpace.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// trimTrailing removes trailing whitespace from every line and from the
// result as a whole.
func trimTrailing(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
