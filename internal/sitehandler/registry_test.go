package sitehandler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasgraf-at/webcontent-api/internal/scope"
)

const registryYAML = `handlers:
  - id: news
    hosts:
      - news.example.com
    scope:
      type: selector
      include: [".story"]
      exclude: [".promo"]
  - id: docs
    hosts:
      - docs.example.com
      - example.dev
    scope:
      type: main
`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handlers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndResolveByID(t *testing.T) {
	reg, err := Load(writeRegistry(t, registryYAML))
	require.NoError(t, err)

	s, id, err := reg.Resolve("", "news")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "news", id)
	assert.Equal(t, scope.Selector, s.Kind)
	assert.Equal(t, []string{".story"}, s.Include)

	s, _, err = reg.Resolve("", "unknown")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestResolveByHost(t *testing.T) {
	reg, err := Load(writeRegistry(t, registryYAML))
	require.NoError(t, err)

	tests := []struct {
		url    string
		wantID string
	}{
		{"https://news.example.com/story/1", "news"},
		{"https://sub.news.example.com/x", "news"},
		{"https://example.dev/guide", "docs"},
		{"https://other.com/", ""},
		{"not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			s, id, err := reg.Resolve(tt.url, "")
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "handlers:\n  - hosts: [a.com]\n    scope:\n      type: main\n"},
		{"bad scope", "handlers:\n  - id: x\n    scope:\n      type: selector\n      include: []\n"},
		{"unknown scope type", "handlers:\n  - id: x\n    scope:\n      type: wild\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeRegistry(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
