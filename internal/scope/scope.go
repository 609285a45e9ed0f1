// Package scope defines the extraction scope variants, their wire
// format, and the resolution record emitted alongside every extraction.
package scope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the scope variant.
type Kind string

const (
	Main     Kind = "main"
	Full     Kind = "full"
	Auto     Kind = "auto"
	Selector Kind = "selector"
	Function Kind = "function"
	Handler  Kind = "handler"
)

// Timeout bounds for function scopes, in milliseconds.
const (
	DefaultTimeoutMS = 5000
	MinTimeoutMS     = 1
	MaxTimeoutMS     = 60000
)

// InvalidError reports malformed scope input. It surfaces to clients as
// a 400-class error.
type InvalidError struct {
	Message string
}

func (e *InvalidError) Error() string {
	return "invalid scope: " + e.Message
}

func invalidf(format string, args ...any) error {
	return &InvalidError{Message: fmt.Sprintf(format, args...)}
}

// Scope is a tagged variant selecting which region of a document to
// extract. Only the fields belonging to the tagged kind are meaningful.
type Scope struct {
	Kind      Kind     `json:"type"`
	Include   []string `json:"include,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
	Code      string   `json:"code,omitempty"`
	TimeoutMS int      `json:"timeout,omitempty"`
	HandlerID string   `json:"id,omitempty"`
}

// NewSelector builds a selector scope.
func NewSelector(include, exclude []string) Scope {
	return Scope{Kind: Selector, Include: include, Exclude: exclude}
}

// NewFunction builds a function scope with the default timeout.
func NewFunction(code string) Scope {
	return Scope{Kind: Function, Code: code, TimeoutMS: DefaultTimeoutMS}
}

// Validate enforces the per-variant invariants, filling in the function
// timeout default.
func (s *Scope) Validate() error {
	switch s.Kind {
	case Main, Full, Auto:
		return nil
	case Selector:
		if len(s.Include) == 0 {
			return invalidf("selector scope requires at least one include selector")
		}
		return nil
	case Function:
		if strings.TrimSpace(s.Code) == "" {
			return invalidf("function scope requires code")
		}
		if s.TimeoutMS == 0 {
			s.TimeoutMS = DefaultTimeoutMS
		}
		if s.TimeoutMS < MinTimeoutMS || s.TimeoutMS > MaxTimeoutMS {
			return invalidf("function timeout must be in [%d, %d] ms, got %d", MinTimeoutMS, MaxTimeoutMS, s.TimeoutMS)
		}
		return nil
	case Handler:
		if s.HandlerID == "" {
			return invalidf("handler scope requires an id")
		}
		return nil
	default:
		return invalidf("unknown scope type %q", s.Kind)
	}
}

// String renders the scope for logging and cache keys. Every form it
// emits for a valid scope, function scopes included, round-trips
// through Parse.
func (s Scope) String() string {
	switch s.Kind {
	case Main, Full, Auto:
		return string(s.Kind)
	case Selector:
		if len(s.Exclude) == 0 {
			return "selector:" + strings.Join(s.Include, ",")
		}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return string(s.Kind)
	}
	return string(raw)
}

// FromJSON decodes and validates a scope from its wire format. Unknown
// type values are errors.
func FromJSON(data []byte) (Scope, error) {
	var s Scope
	if err := json.Unmarshal(data, &s); err != nil {
		return Scope{}, invalidf("malformed scope JSON: %v", err)
	}
	if s.Kind == "" {
		return Scope{}, invalidf("scope object requires a type field")
	}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// Parse translates user input into a validated scope. Accepted forms:
// the literals "main", "full" and "auto"; "selector:" followed by a
// comma-separated include list (exclude supplied out-of-band); and a
// JSON object with a type field. An empty arg defaults to Main.
func Parse(arg string, exclude []string) (Scope, error) {
	arg = strings.TrimSpace(arg)
	switch arg {
	case "":
		return Scope{Kind: Main}, nil
	case "main", "full", "auto":
		return Scope{Kind: Kind(arg)}, nil
	}

	if rest, ok := strings.CutPrefix(arg, "selector:"); ok {
		include := splitSelectors(rest)
		s := NewSelector(include, cleanList(exclude))
		if err := s.Validate(); err != nil {
			return Scope{}, err
		}
		return s, nil
	}

	if strings.HasPrefix(arg, "{") {
		return FromJSON([]byte(arg))
	}

	return Scope{}, invalidf("unrecognized scope %q", arg)
}

// splitSelectors splits a comma-separated selector list, trimming
// entries and dropping empties.
func splitSelectors(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cleanList(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// Resolution records how a requested scope was resolved for one
// extraction.
type Resolution struct {
	Requested Scope   `json:"requested"`
	Used      Scope   `json:"used"`
	Resolved  bool    `json:"resolved"`
	HandlerID *string `json:"handler_id,omitempty"`
}
