package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
	"github.com/thomasgraf-at/webcontent-api/internal/extract"
	"github.com/thomasgraf-at/webcontent-api/internal/format"
	"github.com/thomasgraf-at/webcontent-api/internal/meta"
	"github.com/thomasgraf-at/webcontent-api/internal/plugins"
	"github.com/thomasgraf-at/webcontent-api/internal/scope"
	"github.com/thomasgraf-at/webcontent-api/internal/store"
)

// extractRequest is the /api/extract request body. Exactly one of url
// and html must be set. scope accepts a string ("main", "selector:…")
// or a scope object.
type extractRequest struct {
	URL      string          `json:"url"`
	HTML     string          `json:"html"`
	Scope    json.RawMessage `json:"scope"`
	Exclude  []string        `json:"exclude"`
	Format   string          `json:"format"`
	Data     []string        `json:"data"`
	XPath    []string        `json:"xpath"`
	Sanitize bool            `json:"sanitize"`
	Debug    bool            `json:"debug"`
}

// extractResponse is the /api/extract response envelope.
type extractResponse struct {
	URL        string            `json:"url,omitempty"`
	Meta       *meta.PageMeta    `json:"meta"`
	Content    string            `json:"content"`
	Data       map[string]any    `json:"data,omitempty"`
	Resolution *scope.Resolution `json:"resolution,omitempty"`
}

type metaRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}
	if (req.URL == "") == (req.HTML == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of url and html is required"})
		return
	}

	sc, err := parseScopeField(req.Scope, req.Exclude)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := format.Parse(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Cached envelopes are only used for plain url-keyed requests.
	cacheable := s.store != nil && req.URL != "" && !req.Debug && !req.Sanitize &&
		len(req.Data) == 0 && len(req.XPath) == 0
	cacheKey := store.Key(req.URL, sc.String(), string(f))
	if cacheable {
		if raw, hit, err := s.store.Get(c.Request.Context(), cacheKey); err == nil && hit {
			s.metrics.CacheHits.Inc()
			c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
			return
		}
		s.metrics.CacheMisses.Inc()
	}

	htmlStr := req.HTML
	if req.URL != "" {
		fetched, err := s.fetcher.Fetch(c.Request.Context(), req.URL)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if fetched.Redirect != "" {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "fetch redirected to " + fetched.Redirect + "; redirects are not followed",
			})
			return
		}
		htmlStr = fetched.Body
	}

	start := time.Now()
	result, err := s.engine.Extract(c.Request.Context(), htmlStr, sc, f, req.URL)
	s.recordExtraction(sc, f, err, time.Since(start))
	if err != nil {
		s.writeExtractError(c, err)
		return
	}

	content := result.Content
	if req.Sanitize && f == format.HTML {
		content = s.engine.Pipeline().Sanitize(content)
	}

	resp := extractResponse{
		URL:     req.URL,
		Meta:    meta.Parse(htmlStr),
		Content: content,
	}
	if len(req.Data) > 0 {
		resp.Data = s.plugins.Collect(req.Data, &plugins.Request{
			Bridge: dom.New(htmlStr),
			HTML:   htmlStr,
			XPath:  req.XPath,
		})
	}
	if req.Debug {
		resp.Resolution = &result.Resolution
	}

	if cacheable {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.store.Put(c.Request.Context(), cacheKey, raw); err != nil {
				s.logger.Warn("Result store write failed", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMeta(c *gin.Context) {
	var req metaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}
	if (req.URL == "") == (req.HTML == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of url and html is required"})
		return
	}

	htmlStr := req.HTML
	if req.URL != "" {
		fetched, err := s.fetcher.Fetch(c.Request.Context(), req.URL)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		htmlStr = fetched.Body
	}

	c.JSON(http.StatusOK, meta.Parse(htmlStr))
}

// parseScopeField decodes the scope request field, which may be a JSON
// string in the CLI syntax or a scope object.
func parseScopeField(raw json.RawMessage, exclude []string) (scope.Scope, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return scope.Parse("", exclude)
	}
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return scope.Scope{}, &scope.InvalidError{Message: "scope must be a string or object"}
		}
		return scope.Parse(str, exclude)
	}
	if strings.HasPrefix(trimmed, "{") {
		return scope.FromJSON(raw)
	}
	return scope.Scope{}, &scope.InvalidError{Message: "scope must be a string or object"}
}

// writeExtractError maps the extraction error taxonomy onto HTTP
// statuses.
func (s *Server) writeExtractError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var invErr *scope.InvalidError
	var fnErr *extract.FunctionError
	var hErr *extract.HandlerError
	switch {
	case errors.As(err, &invErr), errors.As(err, &fnErr), errors.As(err, &hErr):
		status = http.StatusBadRequest
	}

	s.logger.Debug("Extraction failed",
		zap.Int("status", status),
		zap.Error(err),
	)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) recordExtraction(sc scope.Scope, f format.Format, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordExtraction(string(sc.Kind), string(f), status, d)

	if sc.Kind == scope.Function {
		s.metrics.SandboxExecutions.Inc()
		if err != nil {
			reason := "error"
			if strings.Contains(err.Error(), "timeout") {
				reason = "timeout"
			}
			s.metrics.SandboxFailures.WithLabelValues(reason).Inc()
		}
	}
}
