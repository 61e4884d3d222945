// internal/link/static.go
package link

import (
	"net"
	"sync"
)

// StaticProvider is for hosts whose network is managed elsewhere. Every
// association attempt succeeds at once with the first non-loopback IPv4
// address found on the host (nil if none).
type StaticProvider struct {
	events    chan Event
	closeOnce sync.Once
	addrs     func() ([]net.Addr, error)
}

// NewStatic returns a StaticProvider.
func NewStatic() *StaticProvider {
	return &StaticProvider{
		events: make(chan Event, 4),
		addrs:  net.InterfaceAddrs,
	}
}

func (p *StaticProvider) Start() error {
	p.events <- Event{Kind: EventStart}
	return nil
}

func (p *StaticProvider) Connect() error {
	p.events <- Event{Kind: EventAddressAcquired, Addr: p.firstIPv4()}
	return nil
}

func (p *StaticProvider) Events() <-chan Event { return p.events }

func (p *StaticProvider) Close() error {
	p.closeOnce.Do(func() { close(p.events) })
	return nil
}

func (p *StaticProvider) firstIPv4() net.IP {
	addrs, err := p.addrs()
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if v4 := ipn.IP.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}
