// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tamzrod/statpoll/internal/accumulator"
	"github.com/tamzrod/statpoll/internal/clock"
	"github.com/tamzrod/statpoll/internal/extract"
	"github.com/tamzrod/statpoll/internal/link"
)

// ErrLinkDown marks a cycle skipped because the link is reconnecting.
var ErrLinkDown = errors.New("poller: link not connected")

// Transport performs one blocking GET, handing body chunks to onChunk in
// order, on the calling goroutine.
type Transport interface {
	Get(ctx context.Context, url string, onChunk func([]byte)) error
}

// LinkGate reports link health before each cycle.
type LinkGate interface {
	State() link.State
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Channel  string
	URL      string
	Interval time.Duration
	Capacity int

	// Path defaults to extract.DefaultPath.
	Path *extract.Path

	// Clock defaults to clock.Real().
	Clock clock.Clock
}

// Poller runs request cycles against one URL. It owns its response buffer;
// a Poller must only be driven from one goroutine.
type Poller struct {
	cfg       Config
	transport Transport
	link      LinkGate
	buf       *accumulator.Buffer
	path      extract.Path
	clock     clock.Clock
}

// New creates a poller with immutable config.
func New(cfg Config, tr Transport, gate LinkGate) (*Poller, error) {
	if cfg.URL == "" {
		return nil, errors.New("poller: url required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if tr == nil {
		return nil, errors.New("poller: transport required")
	}
	if gate == nil {
		return nil, errors.New("poller: link gate required")
	}

	buf, err := accumulator.New(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("poller: %w", err)
	}

	path := extract.MustParsePath(extract.DefaultPath)
	if cfg.Path != nil {
		path = *cfg.Path
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Poller{
		cfg:       cfg,
		transport: tr,
		link:      gate,
		buf:       buf,
		path:      path,
		clock:     clk,
	}, nil
}

// PollOnce performs exactly one request cycle.
// Every failure is returned in the result; nothing escapes as a panic or
// leaks into the next cycle.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		Channel: p.cfg.Channel,
		At:      p.clock.Now(),
	}

	switch st := p.link.State(); st {
	case link.Connected:
	case link.Failed:
		res.Err = link.ErrPermanentFailure
		return res
	default:
		res.Err = fmt.Errorf("%w (state=%s)", ErrLinkDown, st)
		return res
	}

	p.buf.Reset()
	defer p.buf.Reset()

	err := p.transport.Get(ctx, p.cfg.URL, p.onChunk)
	res.Bytes = p.buf.Len()
	res.Overflow = p.buf.Overflowed()
	if err != nil {
		res.Err = err
		return res
	}

	value, err := p.path.Extract(p.buf.Complete())
	if err != nil {
		res.Err = err
		return res
	}

	res.Value = value
	return res
}

func (p *Poller) onChunk(chunk []byte) {
	if err := p.buf.Append(chunk); err != nil {
		log.Printf("poller: chunk dropped (channel=%s): %v", p.cfg.Channel, err)
	}
}
