// internal/extract/extract.go
package extract

import (
	"encoding/json"
	"fmt"
)

// Kind classifies why a payload did not yield a value.
type Kind uint8

const (
	ParseFailed Kind = iota + 1
	PathMissing
	TypeMismatch
)

func (k Kind) String() string {
	switch k {
	case ParseFailed:
		return "parse failed"
	case PathMissing:
		return "path missing"
	case TypeMismatch:
		return "type mismatch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is returned by Extract. Compare with errors.Is against the
// Err* sentinels, which match on Kind only.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

var (
	ErrParseFailed  = &Error{Kind: ParseFailed}
	ErrPathMissing  = &Error{Kind: PathMissing}
	ErrTypeMismatch = &Error{Kind: TypeMismatch}
)

func (e *Error) Error() string {
	msg := "extract: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var defaultPath = MustParsePath(DefaultPath)

// Extract returns the string at DefaultPath.
func Extract(text []byte) (string, error) {
	return defaultPath.Extract(text)
}

// Extract parses text as JSON and returns the string found at p.
// It has no side effects and tolerates empty, truncated or malformed input.
func (p Path) Extract(text []byte) (string, error) {
	var root any
	if err := json.Unmarshal(text, &root); err != nil {
		return "", &Error{Kind: ParseFailed, Err: err}
	}

	node := root
	for i, seg := range p.segs {
		next, ok := step(node, seg)
		if !ok {
			return "", &Error{Kind: PathMissing, Detail: fmt.Sprintf("%s at %s", p.raw, p.prefix(i+1))}
		}
		node = next
	}

	s, ok := node.(string)
	if !ok {
		return "", &Error{Kind: TypeMismatch, Detail: fmt.Sprintf("%s is %s, want string", p.raw, jsonType(node))}
	}
	return s, nil
}

func step(node any, seg segment) (any, bool) {
	if seg.isIdx {
		arr, ok := node.([]any)
		if !ok || seg.index >= len(arr) {
			return nil, false
		}
		return arr[seg.index], true
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[seg.key]
	return v, ok
}

func (p Path) prefix(n int) string {
	var out string
	for i, seg := range p.segs[:n] {
		if i > 0 && !seg.isIdx {
			out += "."
		}
		out += seg.String()
	}
	return out
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
