// internal/link/manager.go
package link

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrPermanentFailure means reconnect attempts are exhausted.
// There is no recovery for the Manager instance that returned it.
var ErrPermanentFailure = errors.New("link: reconnect attempts exhausted")

// Config is the retry policy.
type Config struct {
	// Name labels log lines (interface or SSID).
	Name string
	// MaxRetry is the number of disconnects tolerated before Failed.
	MaxRetry int
}

// Observer is notified after every state transition.
type Observer func(state State, retries int)

// Manager owns the link state machine and retry counter.
//
// Provider events are consumed by a single goroutine started by
// ConnectAndWait; it is the only writer of state and retries. The mutex
// exists for readers on other goroutines.
type Manager struct {
	cfg      Config
	provider Provider
	observer Observer

	mu      sync.Mutex
	state   State
	retries int
	started bool

	settleOnce sync.Once
	settled    chan struct{}
	outcome    error

	stop chan struct{}
	done chan struct{}
}

// New creates a Manager in state Disconnected.
func New(cfg Config, p Provider) (*Manager, error) {
	if p == nil {
		return nil, errors.New("link: provider required")
	}
	if cfg.MaxRetry < 0 {
		return nil, errors.New("link: max retry must be >= 0")
	}
	return &Manager{
		cfg:      cfg,
		provider: p,
		state:    Disconnected,
		settled:  make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// SetObserver installs a transition hook. Call before ConnectAndWait.
func (m *Manager) SetObserver(o Observer) { m.observer = o }

// ConnectAndWait starts the provider and blocks until the link is
// Connected (nil) or Failed (ErrPermanentFailure).
//
// There is no timeout unless ctx carries one; expiry of ctx is treated as
// a permanent failure. The event loop keeps running after this returns and
// applies the same retry policy to later disconnects.
func (m *Manager) ConnectAndWait(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("link: already started")
	}
	m.started = true
	m.mu.Unlock()

	go m.loop()

	if err := m.provider.Start(); err != nil {
		m.fail(fmt.Errorf("%w: provider start: %w", ErrPermanentFailure, err))
		return m.outcome
	}

	select {
	case <-m.settled:
		return m.outcome
	case <-ctx.Done():
		m.fail(fmt.Errorf("%w: wait aborted: %w", ErrPermanentFailure, ctx.Err()))
		<-m.settled
		return m.outcome
	}
}

// State returns the current link state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Retries returns the current retry counter.
func (m *Manager) Retries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries
}

// Close stops the event loop and the provider.
func (m *Manager) Close() error {
	select {
	case <-m.stop:
		return nil
	default:
		close(m.stop)
	}

	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.done
	}
	return m.provider.Close()
}

func (m *Manager) loop() {
	defer close(m.done)

	events := m.provider.Events()
	for {
		select {
		case <-m.stop:
			return
		case ev, ok := <-events:
			if !ok {
				m.fail(fmt.Errorf("%w: provider event stream closed", ErrPermanentFailure))
				return
			}
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev Event) {
	if m.State() == Failed {
		log.Printf("link: %s ignored, link failed (link=%s)", ev.Kind, m.cfg.Name)
		return
	}

	switch ev.Kind {
	case EventStart:
		m.transition(Connecting, -1)
		m.attempt()

	case EventDisconnected:
		log.Printf("link: connect to the access point failed (link=%s)", m.cfg.Name)
		m.onDisconnect()

	case EventAddressAcquired:
		log.Printf("link: got ip %s (link=%s)", ev.Addr, m.cfg.Name)
		m.transition(Connected, 0)
		m.settle(nil)

	default:
		log.Printf("link: unknown event %s (link=%s)", ev.Kind, m.cfg.Name)
	}
}

// onDisconnect applies the retry policy: the counter saturates at
// MaxRetry, and reaching it fails the link.
func (m *Manager) onDisconnect() {
	retries := m.Retries()
	if retries < m.cfg.MaxRetry {
		retries++
	}

	if retries >= m.cfg.MaxRetry {
		m.transition(Failed, retries)
		m.settle(fmt.Errorf("%w after %d attempts (link=%s)", ErrPermanentFailure, retries, m.cfg.Name))
		return
	}

	m.transition(Connecting, retries)
	log.Printf("link: retry %d/%d to connect (link=%s)", retries, m.cfg.MaxRetry, m.cfg.Name)
	m.attempt()
}

func (m *Manager) attempt() {
	if err := m.provider.Connect(); err != nil {
		log.Printf("link: connect request failed (link=%s): %v", m.cfg.Name, err)
		m.onDisconnect()
	}
}

// transition sets state and, when retries >= 0, the retry counter.
// Failed is never left.
func (m *Manager) transition(to State, retries int) {
	m.mu.Lock()
	from := m.state
	if from == Failed {
		m.mu.Unlock()
		return
	}
	m.state = to
	if retries >= 0 {
		m.retries = retries
	}
	n := m.retries
	m.mu.Unlock()

	if from != to {
		log.Printf("link: %s -> %s (link=%s retries=%d)", from, to, m.cfg.Name, n)
	}
	if m.observer != nil {
		m.observer(to, n)
	}
}

func (m *Manager) fail(err error) {
	m.transition(Failed, -1)
	m.settle(err)
}

// settle records the first outcome for waiters. Later outcomes are logged
// by transition only.
func (m *Manager) settle(err error) {
	m.settleOnce.Do(func() {
		m.outcome = err
		close(m.settled)
	})
}
