// internal/poller/runner.go
package poller

import (
	"context"
	"errors"

	"github.com/tamzrod/statpoll/internal/link"
)

// Run performs a cycle immediately and then one per interval, emitting each
// PollResult on out. One goroutine. No overlap. No retries within a cycle.
//
// Run returns only when the link fails permanently (link.ErrPermanentFailure)
// or ctx is cancelled.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) error {
	for {
		res := p.PollOnce(ctx)
		if errors.Is(res.Err, link.ErrPermanentFailure) {
			return res.Err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- res:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(p.cfg.Interval):
		}
	}
}
