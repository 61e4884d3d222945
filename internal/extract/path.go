// internal/extract/path.go
package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPath is the location of the subscriber count in a channels response.
const DefaultPath = "items[0].statistics.subscriberCount"

// segment is one step of a Path: an object key or an array index.
type segment struct {
	key   string
	index int
	isIdx bool
}

func (s segment) String() string {
	if s.isIdx {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.key
}

// Path is a parsed, case-sensitive query into a JSON tree.
type Path struct {
	raw  string
	segs []segment
}

// ParsePath parses dotted keys with bracketed array indices,
// e.g. "items[0].statistics.subscriberCount".
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("extract: empty path")
	}

	var segs []segment
	for _, part := range strings.Split(s, ".") {
		key := part
		if i := strings.IndexByte(part, '['); i >= 0 {
			key = part[:i]
		}
		if key == "" && !strings.HasPrefix(part, "[") {
			return Path{}, fmt.Errorf("extract: path %q: empty key", s)
		}
		if key != "" {
			segs = append(segs, segment{key: key})
		}

		rest := part[len(key):]
		for rest != "" {
			if rest[0] != '[' {
				return Path{}, fmt.Errorf("extract: path %q: unexpected %q", s, rest)
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Path{}, fmt.Errorf("extract: path %q: unterminated index", s)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return Path{}, fmt.Errorf("extract: path %q: bad index %q", s, rest[1:end])
			}
			segs = append(segs, segment{index: n, isIdx: true})
			rest = rest[end+1:]
		}
	}

	return Path{raw: s, segs: segs}, nil
}

// MustParsePath is ParsePath for compile-time constants.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return p.raw }
