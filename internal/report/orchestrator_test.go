// internal/report/orchestrator_test.go
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/statpoll/internal/clock"
	"github.com/tamzrod/statpoll/internal/extract"
	"github.com/tamzrod/statpoll/internal/poller"
	"github.com/tamzrod/statpoll/internal/poller/https"
	"github.com/tamzrod/statpoll/internal/status"
	"github.com/tamzrod/statpoll/internal/writer"
)

// ---- fakes ----

type fakeStatus struct {
	mu    sync.Mutex
	snaps []status.Snapshot
}

func (f *fakeStatus) WriteStatus(s status.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, s)
	return nil
}

func (f *fakeStatus) last() status.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps[len(f.snaps)-1]
}

func (f *fakeStatus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

type fakeWriter struct {
	written []poller.PollResult
}

func (f *fakeWriter) Write(res poller.PollResult) error {
	f.written = append(f.written, res)
	return nil
}

type fakeRecorder struct {
	values    []uint32
	kinds     []string
	overflows int
}

func (f *fakeRecorder) CycleSucceeded(v uint32, _ time.Time) { f.values = append(f.values, v) }
func (f *fakeRecorder) CycleFailed(kind string)             { f.kinds = append(f.kinds, kind) }
func (f *fakeRecorder) ResponseOverflowed()                 { f.overflows++ }

type codedErr struct{ code uint16 }

func (e codedErr) Error() string { return fmt.Sprintf("coded %d", e.code) }
func (e codedErr) Code() uint16  { return e.code }

// ---- tests ----

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code uint16
		kind string
	}{
		{"nil", nil, status.CodeNone, ""},
		{"link down", fmt.Errorf("%w (state=connecting)", poller.ErrLinkDown), status.CodeLinkDown, KindLinkDown},
		{"transport", &https.TransportError{Op: "request", Err: errors.New("refused")}, status.CodeTransport, KindTransport},
		{"http status", &https.TransportError{Op: "status", StatusCode: 403}, status.CodeHTTPStatus, KindHTTPStatus},
		{"parse", &extract.Error{Kind: extract.ParseFailed}, status.CodeParseFailed, KindParseFailed},
		{"missing", &extract.Error{Kind: extract.PathMissing}, status.CodePathMissing, KindPathMissing},
		{"type", &extract.Error{Kind: extract.TypeMismatch}, status.CodeTypeMismatch, KindTypeMismatch},
		{"bad value", &writer.BadValueError{Value: "x"}, status.CodeBadValue, KindBadValue},
		{"coded", fmt.Errorf("wrapped: %w", codedErr{code: 77}), 77, KindError},
		{"generic", errors.New("boom"), status.CodeGeneric, KindError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, kind := Classify(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestHandle_SuccessAfterFailureResetsStatus(t *testing.T) {
	st := &fakeStatus{}
	w := &fakeWriter{}
	rec := &fakeRecorder{}
	o := New(Config{Writer: w, Status: []writer.StatusWriter{st}, Recorder: rec})

	o.Handle(poller.PollResult{Channel: "UC1", Err: &extract.Error{Kind: extract.PathMissing}})
	o.Tick()
	o.Tick()

	snap := o.Snapshot()
	assert.Equal(t, status.HealthError, snap.Health)
	assert.Equal(t, status.CodePathMissing, snap.LastErrorCode)
	assert.Equal(t, uint16(2), snap.SecondsInError)
	assert.Equal(t, uint16(1), snap.ConsecutiveFailures)
	assert.Empty(t, w.written)

	o.Handle(poller.PollResult{Channel: "UC1", Value: "12345"})

	assert.Equal(t, status.Snapshot{Health: status.HealthOK}, o.Snapshot())
	assert.Equal(t, status.Snapshot{Health: status.HealthOK}, st.last())
	require.Len(t, w.written, 1)
	assert.Equal(t, []uint32{12345}, rec.values)
	assert.Equal(t, []string{KindPathMissing}, rec.kinds)
}

func TestHandle_BadValueIsFailure(t *testing.T) {
	w := &fakeWriter{}
	rec := &fakeRecorder{}
	o := New(Config{Writer: w, Recorder: rec})

	o.Handle(poller.PollResult{Value: "lots"})

	assert.Empty(t, w.written)
	assert.Equal(t, []string{KindBadValue}, rec.kinds)
	assert.Equal(t, status.CodeBadValue, o.Snapshot().LastErrorCode)
}

func TestHandle_CountsOverflow(t *testing.T) {
	rec := &fakeRecorder{}
	o := New(Config{Recorder: rec})

	o.Handle(poller.PollResult{Overflow: true, Err: &extract.Error{Kind: extract.ParseFailed}})

	assert.Equal(t, 1, rec.overflows)
}

func TestTick_HealthyDoesNothing(t *testing.T) {
	st := &fakeStatus{}
	o := New(Config{Status: []writer.StatusWriter{st}})

	o.Handle(poller.PollResult{Value: "1"})
	n := st.count()
	o.Tick()

	assert.Equal(t, n, st.count())
	assert.Equal(t, uint16(0), o.Snapshot().SecondsInError)
}

func TestRun_TicksWithClock(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	st := &fakeStatus{}
	o := New(Config{Status: []writer.StatusWriter{st}, Clock: clk})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan poller.PollResult)
	done := make(chan struct{})
	go func() {
		o.Run(ctx, in)
		close(done)
	}()

	// Boot assert, then one failure.
	in <- poller.PollResult{Err: errors.New("boom")}

	clk.WaitForTimers(1)
	clk.Advance(time.Second)
	clk.WaitForTimers(1)

	assert.Eventually(t, func() bool {
		return st.count() == 3 && st.last().SecondsInError == 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestRun_StopsWhenInputClosed(t *testing.T) {
	o := New(Config{Clock: clock.Fake(time.Unix(0, 0))})

	in := make(chan poller.PollResult)
	close(in)

	done := make(chan struct{})
	go func() {
		o.Run(context.Background(), in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after input closed")
	}
}
