// internal/poller/types.go
package poller

import "time"

// PollResult is what one request cycle produced.
// It is valid for that cycle only.
type PollResult struct {
	Channel string
	At      time.Time

	// Value is the extracted field, set only when Err is nil.
	Value string

	// Bytes is how much of the body was kept; Overflow reports that at
	// least one chunk was dropped for lack of room.
	Bytes    int
	Overflow bool

	Err error // non-nil means the cycle failed
}
