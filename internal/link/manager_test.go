// internal/link/manager_test.go
package link

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake provider ----

type fakeProvider struct {
	events chan Event

	mu         sync.Mutex
	connects   int
	connectErr error
	startErr   error
	closed     bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: make(chan Event, 64)}
}

func (f *fakeProvider) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.events <- Event{Kind: EventStart}
	return nil
}

func (f *fakeProvider) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeProvider) Events() <-chan Event { return f.events }

func (f *fakeProvider) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeProvider) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// ---- helpers ----

func startWait(t *testing.T, m *Manager) <-chan error {
	t.Helper()
	out := make(chan error, 1)
	go func() { out <- m.ConnectAndWait(context.Background()) }()
	return out
}

func waitResult(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("ConnectAndWait did not return")
		return nil
	}
}

func waitConnects(t *testing.T, f *fakeProvider, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.connectCount() >= n }, 2*time.Second, time.Millisecond)
}

// ---- tests ----

func TestConnectAndWait_Connected(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 5}, f)
	require.NoError(t, err)
	defer m.Close()

	res := startWait(t, m)
	waitConnects(t, f, 1)
	f.events <- Event{Kind: EventAddressAcquired, Addr: net.IPv4(192, 168, 1, 20)}

	require.NoError(t, waitResult(t, res))
	assert.Equal(t, Connected, m.State())
	assert.Equal(t, 0, m.Retries())
}

func TestConnectAndWait_FailsAfterMaxRetryDisconnects(t *testing.T) {
	const maxRetry = 3

	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: maxRetry}, f)
	require.NoError(t, err)
	defer m.Close()

	res := startWait(t, m)
	waitConnects(t, f, 1)

	for i := 0; i < maxRetry; i++ {
		f.events <- Event{Kind: EventDisconnected}
	}

	err = waitResult(t, res)
	require.ErrorIs(t, err, ErrPermanentFailure)
	assert.Equal(t, Failed, m.State())
	assert.Equal(t, maxRetry, m.Retries())

	// initial attempt + one re-attempt per tolerated disconnect
	assert.Equal(t, maxRetry, f.connectCount())
}

func TestConnectAndWait_AddressResetsRetries(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 3}, f)
	require.NoError(t, err)
	defer m.Close()

	res := startWait(t, m)
	waitConnects(t, f, 1)

	f.events <- Event{Kind: EventDisconnected}
	f.events <- Event{Kind: EventDisconnected}
	waitConnects(t, f, 3)
	assert.Equal(t, 2, m.Retries())

	f.events <- Event{Kind: EventAddressAcquired}
	require.NoError(t, waitResult(t, res))
	assert.Equal(t, Connected, m.State())
	assert.Equal(t, 0, m.Retries())
}

func TestManager_ReconnectsAfterInitialSuccess(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 2}, f)
	require.NoError(t, err)
	defer m.Close()

	res := startWait(t, m)
	waitConnects(t, f, 1)
	f.events <- Event{Kind: EventAddressAcquired}
	require.NoError(t, waitResult(t, res))

	// one drop: reconnecting
	f.events <- Event{Kind: EventDisconnected}
	waitConnects(t, f, 2)
	assert.Equal(t, Connecting, m.State())
	assert.Equal(t, 1, m.Retries())

	// recovered
	f.events <- Event{Kind: EventAddressAcquired}
	require.Eventually(t, func() bool { return m.State() == Connected }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, m.Retries())

	// exhausted
	f.events <- Event{Kind: EventDisconnected}
	f.events <- Event{Kind: EventDisconnected}
	require.Eventually(t, func() bool { return m.State() == Failed }, 2*time.Second, time.Millisecond)

	// terminal: later events do nothing
	f.events <- Event{Kind: EventAddressAcquired}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, Failed, m.State())
}

func TestConnectAndWait_ZeroRetryFailsOnFirstDisconnect(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 0}, f)
	require.NoError(t, err)
	defer m.Close()

	res := startWait(t, m)
	waitConnects(t, f, 1)
	f.events <- Event{Kind: EventDisconnected}

	require.ErrorIs(t, waitResult(t, res), ErrPermanentFailure)
	assert.Equal(t, 1, f.connectCount())
}

func TestConnectAndWait_ConnectErrorCountsAsDisconnect(t *testing.T) {
	f := newFakeProvider()
	f.connectErr = errors.New("radio off")

	m, err := New(Config{Name: "wlan0", MaxRetry: 3}, f)
	require.NoError(t, err)
	defer m.Close()

	err = waitResult(t, startWait(t, m))
	require.ErrorIs(t, err, ErrPermanentFailure)
	assert.Equal(t, 3, f.connectCount())
}

func TestConnectAndWait_StartErrorIsPermanent(t *testing.T) {
	f := newFakeProvider()
	f.startErr = errors.New("no such interface")

	m, err := New(Config{Name: "wlan9", MaxRetry: 3}, f)
	require.NoError(t, err)
	defer m.Close()

	require.ErrorIs(t, m.ConnectAndWait(context.Background()), ErrPermanentFailure)
	assert.Equal(t, Failed, m.State())
}

func TestConnectAndWait_ContextExpiryIsPermanent(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 3}, f)
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = m.ConnectAndWait(ctx)
	require.ErrorIs(t, err, ErrPermanentFailure)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Failed, m.State())

	// a late address does not revive the manager
	f.events <- Event{Kind: EventAddressAcquired}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, Failed, m.State())
}

func TestConnectAndWait_OnlyOnce(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 1}, f)
	require.NoError(t, err)
	defer m.Close()

	res := startWait(t, m)
	waitConnects(t, f, 1)
	f.events <- Event{Kind: EventAddressAcquired}
	require.NoError(t, waitResult(t, res))

	require.Error(t, m.ConnectAndWait(context.Background()))
}

func TestManager_ObserverSeesTransitions(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 3}, f)
	require.NoError(t, err)
	defer m.Close()

	var mu sync.Mutex
	var seen []State
	m.SetObserver(func(s State, _ int) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	res := startWait(t, m)
	waitConnects(t, f, 1)
	f.events <- Event{Kind: EventDisconnected}
	waitConnects(t, f, 2)
	f.events <- Event{Kind: EventAddressAcquired}
	require.NoError(t, waitResult(t, res))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Connecting, Connecting, Connected}, seen)
}

func TestClose_StopsProvider(t *testing.T) {
	f := newFakeProvider()
	m, err := New(Config{Name: "wlan0", MaxRetry: 1}, f)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.True(t, f.closed)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{MaxRetry: 1}, nil)
	require.Error(t, err)

	_, err = New(Config{MaxRetry: -1}, newFakeProvider())
	require.Error(t, err)
}

func TestStaticProvider_ConnectsImmediately(t *testing.T) {
	p := NewStatic()
	p.addrs = func() ([]net.Addr, error) {
		return []net.Addr{
			&net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: net.CIDRMask(8, 32)},
			&net.IPNet{IP: net.IPv4(10, 0, 0, 7), Mask: net.CIDRMask(24, 32)},
		}, nil
	}

	m, err := New(Config{Name: "static", MaxRetry: 1}, p)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.ConnectAndWait(context.Background()))
	assert.Equal(t, Connected, m.State())
}
