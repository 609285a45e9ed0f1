package sandbox

import (
	"errors"
	"regexp"
	"strings"
)

var arrowPrefix = regexp.MustCompile(`^\([^)]*\)\s*=>`)

// Validate performs the cheap syntactic checks on user code before any
// evaluation. These are defense-in-depth; the runtime's isolation is
// the actual security boundary.
func Validate(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("function code is empty")
	}

	if !arrowPrefix.MatchString(code) &&
		!strings.HasPrefix(code, "function(") &&
		!strings.HasPrefix(code, "function (") &&
		!strings.HasPrefix(code, "(function") {
		return errors.New("code must be a function taking (api, url), e.g. (api, url) => api.$('h1')?.text")
	}

	if strings.Contains(code, "document.") {
		return errors.New("document is not available in the sandbox; use api.$(selector) and api.$$(selector)")
	}
	if strings.Contains(code, "fetch(") || strings.Contains(code, "await fetch") {
		return errors.New("fetch is not available in the sandbox; the page HTML is provided as api.html")
	}

	return nil
}
