// Package sitehandler resolves auto and handler scopes against a
// registry of site-specific extraction handlers loaded from a YAML
// file. The core never hardcodes handlers; in the registry's absence,
// auto degrades to main and handler scopes fail upstream.
package sitehandler

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/thomasgraf-at/webcontent-api/internal/scope"
)

// Entry binds a handler id and a set of host patterns to a concrete
// scope. Host patterns match the host itself and its subdomains.
type Entry struct {
	ID    string    `yaml:"id"`
	Hosts []string  `yaml:"hosts"`
	Scope ScopeSpec `yaml:"scope"`
}

// ScopeSpec is the YAML shape of a scope definition.
type ScopeSpec struct {
	Type    string   `yaml:"type"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	Code    string   `yaml:"code"`
	Timeout int      `yaml:"timeout"`
}

type registryFile struct {
	Handlers []Entry `yaml:"handlers"`
}

// Registry is a file-backed handler lookup.
type Registry struct {
	entries []Entry
}

// Load reads and validates a handler registry from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading handler registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing handler registry: %w", err)
	}

	for i, entry := range file.Handlers {
		if entry.ID == "" {
			return nil, fmt.Errorf("handler %d: id required", i)
		}
		if _, err := entry.Scope.toScope(); err != nil {
			return nil, fmt.Errorf("handler %q: %w", entry.ID, err)
		}
	}

	return &Registry{entries: file.Handlers}, nil
}

// Resolve implements the extract.Lookup contract: by id when handlerID
// is set, otherwise by URL host. A nil scope means no match.
func (r *Registry) Resolve(rawURL, handlerID string) (*scope.Scope, string, error) {
	if handlerID != "" {
		for _, e := range r.entries {
			if e.ID == handlerID {
				s, err := e.Scope.toScope()
				if err != nil {
					return nil, "", err
				}
				return s, e.ID, nil
			}
		}
		return nil, "", nil
	}

	host := hostOf(rawURL)
	if host == "" {
		return nil, "", nil
	}
	for _, e := range r.entries {
		for _, pattern := range e.Hosts {
			if hostMatches(host, pattern) {
				s, err := e.Scope.toScope()
				if err != nil {
					return nil, "", err
				}
				return s, e.ID, nil
			}
		}
	}
	return nil, "", nil
}

func (s ScopeSpec) toScope() (*scope.Scope, error) {
	sc := scope.Scope{
		Kind:      scope.Kind(s.Type),
		Include:   s.Include,
		Exclude:   s.Exclude,
		Code:      s.Code,
		TimeoutMS: s.Timeout,
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func hostMatches(host, pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}
