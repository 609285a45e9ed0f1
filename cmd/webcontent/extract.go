package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/thomasgraf-at/webcontent-api/internal/config"
	"github.com/thomasgraf-at/webcontent-api/internal/dom"
	"github.com/thomasgraf-at/webcontent-api/internal/extract"
	"github.com/thomasgraf-at/webcontent-api/internal/fetch"
	"github.com/thomasgraf-at/webcontent-api/internal/format"
	"github.com/thomasgraf-at/webcontent-api/internal/meta"
	"github.com/thomasgraf-at/webcontent-api/internal/plugins"
	"github.com/thomasgraf-at/webcontent-api/internal/sandbox"
	"github.com/thomasgraf-at/webcontent-api/internal/scope"
	"github.com/thomasgraf-at/webcontent-api/internal/sitehandler"
)

type cliOptions struct {
	target   string
	scope    string
	exclude  string
	format   string
	data     string
	debug    bool
	withMeta bool
}

// envelope is the JSON output shape when metadata, plugin data or the
// resolution are requested. Plain runs print the content alone.
type envelope struct {
	URL        string            `json:"url,omitempty"`
	Meta       *meta.PageMeta    `json:"meta,omitempty"`
	Content    string            `json:"content"`
	Data       map[string]any    `json:"data,omitempty"`
	Resolution *scope.Resolution `json:"resolution,omitempty"`
}

func runExtract(cfg *config.Config, opts cliOptions, out io.Writer) error {
	sc, err := scope.Parse(opts.scope, splitCSV(opts.exclude))
	if err != nil {
		return err
	}
	f, err := format.Parse(opts.format)
	if err != nil {
		return err
	}

	htmlStr, pageURL, err := readTarget(cfg, opts.target)
	if err != nil {
		return err
	}

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = time.Duration(cfg.Sandbox.TimeoutMS) * time.Millisecond
	sandboxCfg.PoolSize = 1
	pool, err := sandbox.NewPool(sandboxCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var engineOpts []extract.Option
	if cfg.Handlers.Path != "" {
		registry, err := sitehandler.Load(cfg.Handlers.Path)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, extract.WithLookup(registry))
	}

	engine := extract.NewEngine(pool, engineOpts...)
	result, err := engine.Extract(context.Background(), htmlStr, sc, f, pageURL)
	if err != nil {
		return err
	}

	dataNames := splitCSV(opts.data)
	if !opts.debug && !opts.withMeta && len(dataNames) == 0 {
		fmt.Fprintln(out, result.Content)
		return nil
	}

	env := envelope{URL: pageURL, Content: result.Content}
	if opts.withMeta {
		env.Meta = meta.Parse(htmlStr)
	}
	if len(dataNames) > 0 {
		env.Data = plugins.NewRegistry().Collect(dataNames, &plugins.Request{
			Bridge: dom.New(htmlStr),
			HTML:   htmlStr,
		})
	}
	if opts.debug {
		env.Resolution = &result.Resolution
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// readTarget loads HTML from a URL, a file, or stdin ("-").
func readTarget(cfg *config.Config, target string) (htmlStr, pageURL string, err error) {
	switch {
	case target == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "", nil

	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		fetcher := fetch.New(fetch.Config{
			Timeout:   time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
			UserAgent: cfg.Fetch.UserAgent,
			RetryMax:  cfg.Fetch.RetryMax,
		})
		res, err := fetcher.Fetch(context.Background(), target)
		if err != nil {
			return "", "", err
		}
		if res.Redirect != "" {
			return "", "", fmt.Errorf("%s redirected to %s; redirects are not followed", target, res.Redirect)
		}
		return res.Body, target, nil

	default:
		data, err := os.ReadFile(target)
		if err != nil {
			return "", "", fmt.Errorf("reading %s: %w", target, err)
		}
		return string(data), "", nil
	}
}

func splitCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
