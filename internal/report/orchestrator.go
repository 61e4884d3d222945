// internal/report/orchestrator.go
package report

import (
	"context"
	"log"
	"time"

	"github.com/tamzrod/statpoll/internal/clock"
	"github.com/tamzrod/statpoll/internal/poller"
	"github.com/tamzrod/statpoll/internal/status"
	"github.com/tamzrod/statpoll/internal/writer"
)

// Recorder receives cycle outcomes for instrumentation.
type Recorder interface {
	CycleSucceeded(value uint32, at time.Time)
	CycleFailed(kind string)
	ResponseOverflowed()
}

type nopRecorder struct{}

func (nopRecorder) CycleSucceeded(uint32, time.Time) {}
func (nopRecorder) CycleFailed(string)               {}
func (nopRecorder) ResponseOverflowed()              {}

// Config wires the orchestrator. Every field is optional.
type Config struct {
	Writer   writer.Writer
	Status   []writer.StatusWriter
	Recorder Recorder
	Clock    clock.Clock
}

// Orchestrator consumes poll results. It is the only owner of the status
// snapshot; all methods must be called from the goroutine running Run.
type Orchestrator struct {
	writer writer.Writer
	status []writer.StatusWriter
	rec    Recorder
	clock  clock.Clock

	snap status.Snapshot
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		writer: cfg.Writer,
		status: cfg.Status,
		rec:    cfg.Recorder,
		clock:  cfg.Clock,
		snap:   status.Snapshot{Health: status.HealthUnknown},
	}
	if o.rec == nil {
		o.rec = nopRecorder{}
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}
	return o
}

// Snapshot returns the current status snapshot.
func (o *Orchestrator) Snapshot() status.Snapshot { return o.snap }

// Run handles results from in until ctx is cancelled or in is closed.
// The seconds-in-error counter advances once per second while not healthy.
func (o *Orchestrator) Run(ctx context.Context, in <-chan poller.PollResult) {
	// Full block write on start (identity re-assert).
	o.writeStatus()

	tick := o.clock.After(time.Second)
	for {
		select {
		case <-ctx.Done():
			return

		case res, ok := <-in:
			if !ok {
				return
			}
			o.Handle(res)

		case <-tick:
			o.Tick()
			tick = o.clock.After(time.Second)
		}
	}
}

// Handle reports one cycle: log line, data delivery, status update.
func (o *Orchestrator) Handle(res poller.PollResult) {
	if res.Overflow {
		o.rec.ResponseOverflowed()
	}

	err := res.Err
	var value uint32
	if err == nil {
		value, err = writer.ParseValue(res.Value)
	}

	if err != nil {
		o.failed(res, err)
		return
	}

	log.Printf("report: subscriberCount=%s (channel=%s)", res.Value, res.Channel)
	o.rec.CycleSucceeded(value, res.At)

	if o.writer != nil {
		if err := o.writer.Write(res); err != nil {
			log.Printf("writer error (channel=%s): %v", res.Channel, err)
		}
	}

	changed := false
	if o.snap.Health != status.HealthOK {
		o.snap.Health = status.HealthOK
		changed = true
	}
	// Reset error fields when healthy.
	if o.snap.LastErrorCode != status.CodeNone {
		o.snap.LastErrorCode = status.CodeNone
		changed = true
	}
	if o.snap.SecondsInError != 0 {
		o.snap.SecondsInError = 0
		changed = true
	}
	if o.snap.ConsecutiveFailures != 0 {
		o.snap.ConsecutiveFailures = 0
		changed = true
	}

	if changed {
		o.writeStatus()
	}
}

func (o *Orchestrator) failed(res poller.PollResult, err error) {
	code, kind := Classify(err)

	log.Printf("report: cycle failed, %s (channel=%s): %v", kind, res.Channel, err)
	o.rec.CycleFailed(kind)

	o.snap.Health = status.HealthError
	o.snap.LastErrorCode = code
	if o.snap.ConsecutiveFailures < 0xFFFF {
		o.snap.ConsecutiveFailures++
	}

	// NOTE: seconds_in_error increments on the 1Hz tick only.
	o.writeStatus()
}

// Tick advances seconds-in-error while the last cycle was not OK.
func (o *Orchestrator) Tick() {
	if o.snap.Health == status.HealthOK {
		return
	}
	if o.snap.SecondsInError == 0xFFFF {
		return
	}
	o.snap.SecondsInError++
	o.writeStatus()
}

func (o *Orchestrator) writeStatus() {
	for _, sw := range o.status {
		if err := sw.WriteStatus(o.snap); err != nil {
			log.Printf("status write failed: %v", err)
		}
	}
}
