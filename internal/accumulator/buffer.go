// internal/accumulator/buffer.go
package accumulator

import (
	"errors"
	"fmt"
)

// ErrOverflow reports a chunk that did not fit and was dropped whole.
// It is not fatal: the request keeps streaming.
var ErrOverflow = errors.New("accumulator: chunk exceeds remaining capacity")

// MinCapacity leaves room for one data byte and the terminator.
const MinCapacity = 2

// Buffer is a fixed-capacity response body accumulator.
//
// The backing array is allocated once. One byte is always reserved for the
// NUL terminator written by Complete, so at most Cap()-1 body bytes are held.
// A Buffer has a single owner and is not safe for concurrent use.
type Buffer struct {
	buf        []byte
	n          int
	overflowed bool
}

// New allocates a buffer of the given capacity (terminator included).
func New(capacity int) (*Buffer, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("accumulator: capacity %d below minimum %d", capacity, MinCapacity)
	}
	return &Buffer{buf: make([]byte, capacity)}, nil
}

// Append copies chunk into the buffer. All-or-nothing: if the chunk does not
// fit entirely it is dropped, the length is unchanged and ErrOverflow is
// returned.
func (b *Buffer) Append(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	if b.n+len(chunk) > len(b.buf)-1 {
		b.overflowed = true
		return fmt.Errorf("%w: have=%d chunk=%d cap=%d", ErrOverflow, b.n, len(chunk), len(b.buf))
	}
	b.n += copy(b.buf[b.n:], chunk)
	return nil
}

// Complete terminates the accumulated bytes and returns a read-only view of
// them (terminator excluded). The view is valid until the next Reset.
func (b *Buffer) Complete() []byte {
	b.buf[b.n] = 0
	return b.buf[:b.n:b.n]
}

// Reset empties the buffer. Calling it repeatedly is the same as calling it once.
func (b *Buffer) Reset() {
	b.n = 0
	b.overflowed = false
	b.buf[0] = 0
}

// Len is the number of body bytes held.
func (b *Buffer) Len() int { return b.n }

// Cap is the total capacity, terminator byte included.
func (b *Buffer) Cap() int { return len(b.buf) }

// Overflowed reports whether any chunk was dropped since the last Reset.
func (b *Buffer) Overflowed() bool { return b.overflowed }
