package sandbox

import (
	"time"

	"github.com/thomasgraf-at/webcontent-api/internal/dom"
)

// Config defines sandbox resource limits.
type Config struct {
	MaxMemoryMB   int64         // Advisory per-invocation heap budget
	Timeout       time.Duration // Default execution timeout
	PoolSize      int           // Number of pooled runtimes
	EnableConsole bool          // Capture console.log/warn/error output
}

// DefaultConfig returns the production limits: 50 MB advisory heap,
// 5 s timeout, 4 pooled runtimes.
func DefaultConfig() Config {
	return Config{
		MaxMemoryMB:   50,
		Timeout:       5 * time.Second,
		PoolSize:      4,
		EnableConsole: true,
	}
}

// Invocation carries the per-call inputs for one extraction function.
type Invocation struct {
	Bridge  *dom.Bridge   // Host DOM bridge backing the api proxies
	HTML    string        // Raw page HTML exposed as api.html
	URL     string        // Page URL exposed as api.url
	Timeout time.Duration // Per-call override; zero uses Config.Timeout
}

// Result holds a completed evaluation.
type Result struct {
	Value    any           // Exported return value (nil for null/undefined)
	Console  []LogEntry    // Captured console output
	Duration time.Duration // Wall-clock evaluation time
}

// LogEntry is one captured console call.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
