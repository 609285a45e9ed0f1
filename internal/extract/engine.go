package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
	"github.com/thomasgraf-at/webcontent-api/internal/format"
	"github.com/thomasgraf-at/webcontent-api/internal/sandbox"
	"github.com/thomasgraf-at/webcontent-api/internal/scope"
)

// minMainTextLen is the minimum trimmed text length a candidate main
// container must have to be selected.
const minMainTextLen = 100

// Lookup resolves auto and handler scopes against site-specific
// handlers. Implementations return a nil scope when nothing matches.
type Lookup interface {
	// Resolve returns the concrete scope for a URL or handler id,
	// along with the id of the handler that matched.
	Resolve(rawURL, handlerID string) (*scope.Scope, string, error)
}

// Result is the outcome of one extraction.
type Result struct {
	Content    string           `json:"content"`
	Resolution scope.Resolution `json:"resolution"`
}

// Engine applies a scope to an HTML document and renders the extracted
// fragment through the format pipeline.
type Engine struct {
	pool     *sandbox.Pool
	pipeline *format.Pipeline
	lookup   Lookup
}

// Option configures an engine.
type Option func(*Engine)

// WithLookup attaches a handler lookup collaborator. Without one, auto
// scopes degrade to main and handler scopes fail.
func WithLookup(l Lookup) Option {
	return func(e *Engine) { e.lookup = l }
}

// NewEngine creates an engine backed by the given sandbox pool.
func NewEngine(pool *sandbox.Pool, opts ...Option) *Engine {
	e := &Engine{
		pool:     pool,
		pipeline: format.NewPipeline(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pipeline exposes the engine's format pipeline.
func (e *Engine) Pipeline() *format.Pipeline {
	return e.pipeline
}

// Extract resolves sc against htmlStr and returns the content in f.
// It is a pure function of its inputs: the bridge built here lives for
// exactly this call.
func (e *Engine) Extract(ctx context.Context, htmlStr string, sc scope.Scope, f format.Format, url string) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	res := scope.Resolution{Requested: sc, Used: sc}

	used, err := e.resolve(&res, sc, url)
	if err != nil {
		return nil, err
	}

	b := dom.New(htmlStr)

	if used.Kind == scope.Function {
		content, err := e.runFunction(ctx, b, htmlStr, url, used, f)
		if err != nil {
			return nil, err
		}
		return &Result{Content: content, Resolution: res}, nil
	}

	var fragment, text string
	switch used.Kind {
	case scope.Full:
		fragment, text = extractFull(b)
	case scope.Selector:
		fragment, text = extractSelector(b, used.Include, used.Exclude)
	default:
		fragment, text = extractMain(b)
	}

	return &Result{
		Content:    e.pipeline.Render(fragment, text, f),
		Resolution: res,
	}, nil
}

// resolve maps auto and handler scopes onto concrete ones, recording
// the resolution. Scopes that are already concrete pass through.
func (e *Engine) resolve(res *scope.Resolution, sc scope.Scope, url string) (scope.Scope, error) {
	switch sc.Kind {
	case scope.Auto:
		res.Resolved = true
		if e.lookup != nil {
			resolved, id, err := e.lookup.Resolve(url, "")
			if err == nil && resolved != nil && concrete(resolved.Kind) {
				if err := resolved.Validate(); err == nil {
					res.Used = *resolved
					if id != "" {
						res.HandlerID = &id
					}
					return *resolved, nil
				}
			}
		}
		res.Used = scope.Scope{Kind: scope.Main}
		return res.Used, nil

	case scope.Handler:
		if e.lookup == nil {
			return scope.Scope{}, &HandlerError{ID: sc.HandlerID}
		}
		resolved, id, err := e.lookup.Resolve(url, sc.HandlerID)
		if err != nil || resolved == nil || !concrete(resolved.Kind) {
			return scope.Scope{}, &HandlerError{ID: sc.HandlerID}
		}
		if err := resolved.Validate(); err != nil {
			return scope.Scope{}, &HandlerError{ID: sc.HandlerID}
		}
		res.Used = *resolved
		res.Resolved = true
		if id == "" {
			id = sc.HandlerID
		}
		res.HandlerID = &id
		return *resolved, nil

	default:
		return sc, nil
	}
}

// concrete reports whether a handler-provided scope can be applied
// directly, preventing resolution loops.
func concrete(k scope.Kind) bool {
	return k != scope.Auto && k != scope.Handler
}

// baseRemovalSelectors are stripped for every scope.
var baseRemovalSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	`img[src^="data:"]`,
}

// noiseRemovalSelectors are additionally stripped for main scope.
var noiseRemovalSelectors = []string{
	"nav", "header", "footer", "aside", "form",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]", "[role=complementary]",
}

// noiseTokens are removed for main scope when they appear as an id or
// class, with plain querySelector semantics (nested matches included).
var noiseTokens = []string{
	"nav", "navbar", "header", "footer", "sidebar", "menu",
	"advertisement", "ads", "ad",
}

// containerPreferences are tried in order to locate the main content
// region.
var containerPreferences = []string{
	"main", "[role=main]", "article",
	".content", ".post", ".article", ".entry",
	"#content", "#main", ".main",
}

func applyBaseRemovals(b *dom.Bridge) {
	for _, sel := range baseRemovalSelectors {
		b.Remove(sel)
	}
}

func applyNoiseRemovals(b *dom.Bridge) {
	for _, sel := range noiseRemovalSelectors {
		b.Remove(sel)
	}
	for _, tok := range noiseTokens {
		b.Remove("#" + tok)
		b.Remove("." + tok)
	}
}

// extractMain removes boilerplate and picks the first preferred
// container with enough text, falling back to the body.
func extractMain(b *dom.Bridge) (fragment, text string) {
	applyBaseRemovals(b)
	applyNoiseRemovals(b)

	for _, sel := range containerPreferences {
		if snap, ok := b.Query(sel); ok && len(strings.TrimSpace(snap.Text)) >= minMainTextLen {
			return snap.HTML, snap.Text
		}
	}

	body := b.Body()
	return dom.InnerHTML(body), dom.BlockText(body)
}

// extractFull applies only the base removals and emits the body.
func extractFull(b *dom.Bridge) (fragment, text string) {
	applyBaseRemovals(b)
	body := b.Body()
	return dom.InnerHTML(body), dom.BlockText(body)
}

// extractSelector collects include matches in document order,
// deduplicated by element identity, prunes exclude matches inside each,
// and joins the survivors.
func extractSelector(b *dom.Bridge, include, exclude []string) (fragment, text string) {
	applyBaseRemovals(b)

	seen := make(map[dom.NodeID]bool)
	var nodes []*html.Node
	for _, sel := range include {
		for _, snap := range b.QueryAll(sel) {
			if seen[snap.ID] {
				continue
			}
			seen[snap.ID] = true
			if n, ok := b.Node(snap.ID); ok {
				nodes = append(nodes, n)
			}
		}
	}

	for _, n := range nodes {
		for _, sel := range exclude {
			removeWithin(n, sel, b)
		}
	}

	htmlParts := make([]string, 0, len(nodes))
	textParts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !attached(n) {
			continue
		}
		htmlParts = append(htmlParts, dom.InnerHTML(n))
		textParts = append(textParts, dom.BlockText(n))
	}
	return strings.Join(htmlParts, "\n"), strings.Join(textParts, "\n")
}

// attached reports whether n still hangs off the document, i.e. was not
// pruned by an exclude selector.
func attached(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

// removeWithin deletes matches of sel inside n, leaving n itself in
// place even when it matches.
func removeWithin(n *html.Node, sel string, b *dom.Bridge) {
	snap := b.Snapshot(n)
	for _, child := range b.ChildQueryAll(snap.ID, sel) {
		if target, ok := b.Node(child.ID); ok && target.Parent != nil {
			target.Parent.RemoveChild(target)
		}
	}
}

// runFunction evaluates a function scope. The returned value becomes
// the content: strings pass through, objects pretty-print as JSON, and
// HTML-shaped strings go through the format pipeline.
func (e *Engine) runFunction(ctx context.Context, b *dom.Bridge, htmlStr, url string, sc scope.Scope, f format.Format) (string, error) {
	inv := &sandbox.Invocation{
		Bridge:  b,
		HTML:    htmlStr,
		URL:     url,
		Timeout: time.Duration(sc.TimeoutMS) * time.Millisecond,
	}

	res, err := e.pool.Execute(ctx, sc.Code, inv)
	if err != nil {
		return "", &FunctionError{Message: err.Error()}
	}

	content := stringify(res.Value)
	if looksLikeHTML(content) {
		return e.pipeline.Render(content, "", f), nil
	}
	return content, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

func looksLikeHTML(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}
