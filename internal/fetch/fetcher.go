// Package fetch retrieves page HTML for the extraction boundary. The
// extraction core never performs HTTP; callers fetch here and hand the
// body over.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// MaxBodyBytes caps fetched bodies at 10MB to prevent memory
// exhaustion downstream.
const MaxBodyBytes = 10 * 1024 * 1024

// Result is the outcome of one fetch. Redirects are not followed; a
// 3xx response carries its Location in Redirect.
type Result struct {
	URL         string            `json:"url"`
	Status      int               `json:"status"`
	Redirect    string            `json:"redirect,omitempty"`
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"-"`
	ContentType string            `json:"contentType"`
}

// Config tunes the fetcher.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	RetryMax  int
}

// DefaultConfig returns the production fetcher settings.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: "Mozilla/5.0 (compatible; webcontent-api/1.0)",
		RetryMax:  2,
	}
}

// Fetcher retrieves pages over HTTP with retries and browser-like
// request headers.
type Fetcher struct {
	client *resty.Client
	config Config
}

// New builds a fetcher with a retrying transport.
func New(config Config) *Fetcher {
	retry := retryablehttp.NewClient()
	retry.RetryMax = config.RetryMax
	retry.Logger = nil
	retry.HTTPClient.Timeout = config.Timeout
	// The inner client hands 3xx responses back instead of following them.
	retry.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	client := resty.NewWithClient(retry.StandardClient()).
		SetTimeout(config.Timeout).
		SetRedirectPolicy(resty.NoRedirectPolicy()).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &Fetcher{client: client, config: config}
}

// Fetch retrieves url and returns its HTML body. Non-2xx statuses and
// non-HTML bodies are errors; 3xx responses succeed with Redirect set
// and an empty body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil && resp == nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	status := resp.StatusCode()
	result := &Result{
		URL:         url,
		Status:      status,
		Headers:     flattenHeaders(resp.Header()),
		ContentType: resp.Header().Get("Content-Type"),
	}

	if status >= 300 && status < 400 {
		result.Redirect = resp.Header().Get("Location")
		return result, nil
	}
	if status < 200 || status >= 400 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", url, status)
	}

	body := resp.Body()
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("fetching %s: body exceeds %d bytes", url, MaxBodyBytes)
	}
	if !looksLikeHTMLBody(result.ContentType, body) {
		return nil, fmt.Errorf("fetching %s: unsupported content type %q", url, result.ContentType)
	}

	result.Body = string(body)
	return result, nil
}

// looksLikeHTMLBody accepts declared HTML/XHTML content types and falls
// back to sniffing when the header is absent or generic.
func looksLikeHTMLBody(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml") {
		return true
	}
	if ct == "" || strings.Contains(ct, "octet-stream") || strings.Contains(ct, "text/plain") {
		detected := mimetype.Detect(body)
		return detected.Is("text/html")
	}
	return false
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
