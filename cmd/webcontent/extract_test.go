package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasgraf-at/webcontent-api/internal/config"
)

func writePage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunExtractFromFile(t *testing.T) {
	path := writePage(t, "<html><body><nav>Skip</nav><main><h1>Hello</h1><p>World</p></main></body></html>")

	var out bytes.Buffer
	err := runExtract(config.Default(), cliOptions{
		target: path,
		scope:  "main",
		format: "markdown",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n\nWorld\n", out.String())
}

func TestRunExtractEnvelope(t *testing.T) {
	path := writePage(t, "<html><head><title>T</title></head><body><h2>H</h2></body></html>")

	var out bytes.Buffer
	err := runExtract(config.Default(), cliOptions{
		target:   path,
		scope:    "full",
		format:   "text",
		data:     "headings",
		debug:    true,
		withMeta: true,
	}, &out)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	assert.Equal(t, "H", env["content"])
	assert.Equal(t, "T", env["meta"].(map[string]any)["title"])
	assert.Contains(t, env["data"], "headings")
	assert.NotNil(t, env["resolution"])
}

func TestRunExtractBadScope(t *testing.T) {
	path := writePage(t, "<p>x</p>")

	var out bytes.Buffer
	err := runExtract(config.Default(), cliOptions{
		target: path,
		scope:  "bogus",
		format: "html",
	}, &out)
	assert.Error(t, err)
}

func TestRunExtractMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := runExtract(config.Default(), cliOptions{
		target: filepath.Join(t.TempDir(), "absent.html"),
		scope:  "main",
		format: "html",
	}, &out)
	assert.Error(t, err)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Nil(t, splitCSV("  "))
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a , b ,"))
}
