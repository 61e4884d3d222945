// internal/clock/clock.go
package clock

import "time"

// Clock is the subset of the time package the scheduler depends on.
// Production code uses Real(); tests use Fake() and advance time by hand.
type Clock interface {
	Now() time.Time

	// After behaves like time.After. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
