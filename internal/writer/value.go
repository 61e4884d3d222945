// internal/writer/value.go
package writer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BadValueError means the extracted string is not a decimal count.
type BadValueError struct {
	Value string
	Err   error
}

func (e *BadValueError) Error() string {
	return fmt.Sprintf("writer: value %q is not a decimal count: %v", e.Value, e.Err)
}

func (e *BadValueError) Unwrap() error { return e.Err }

// ParseValue converts a digits-as-string count to uint32, saturating at
// math.MaxUint32.
func ParseValue(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxUint32, nil
	}
	if err != nil {
		return 0, &BadValueError{Value: s, Err: err}
	}
	if n > math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(n), nil
}

// EncodeValue packs v into two registers, high word first.
func EncodeValue(v uint32) []uint16 {
	return []uint16{uint16(v >> 16), uint16(v)}
}
