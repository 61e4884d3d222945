// internal/link/netlink_linux.go
//go:build linux

package link

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/vishvananda/netlink"
)

// NetlinkProvider watches one interface through rtnetlink.
//
// Association itself belongs to the platform supplicant configured for
// Credentials.SSID; Connect brings the interface up and waits for the
// kernel to report an IPv4 address. An attempt that produces no address
// within AttemptTimeout is reported as a disconnect.
type NetlinkProvider struct {
	iface   string
	creds   Credentials
	timeout time.Duration

	events chan Event
	done   chan struct{}

	mu      sync.Mutex
	link    netlink.Link
	up      bool
	pending *time.Timer

	closeOnce sync.Once
}

// NewNetlink creates a provider for iface.
func NewNetlink(iface string, creds Credentials, attemptTimeout time.Duration) (Provider, error) {
	if iface == "" {
		return nil, errors.New("link netlink: interface required")
	}
	return &NetlinkProvider{
		iface:   iface,
		creds:   creds,
		timeout: attemptTimeout,
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
	}, nil
}

func (p *NetlinkProvider) Start() error {
	l, err := netlink.LinkByName(p.iface)
	if err != nil {
		return fmt.Errorf("link netlink: lookup %s: %w", p.iface, err)
	}

	linkCh := make(chan netlink.LinkUpdate, 16)
	addrCh := make(chan netlink.AddrUpdate, 16)
	if err := netlink.LinkSubscribe(linkCh, p.done); err != nil {
		return fmt.Errorf("link netlink: subscribe link: %w", err)
	}
	if err := netlink.AddrSubscribe(addrCh, p.done); err != nil {
		return fmt.Errorf("link netlink: subscribe addr: %w", err)
	}

	p.mu.Lock()
	p.link = l
	p.up = l.Attrs().OperState == netlink.OperUp
	p.mu.Unlock()

	go p.watch(l.Attrs().Index, linkCh, addrCh)

	log.Printf("link netlink: watching %s (ssid=%q)", p.iface, p.creds.SSID)
	p.emit(Event{Kind: EventStart})
	return nil
}

func (p *NetlinkProvider) Connect() error {
	p.mu.Lock()
	l := p.link
	p.mu.Unlock()
	if l == nil {
		return errors.New("link netlink: not started")
	}

	if err := netlink.LinkSetUp(l); err != nil {
		return fmt.Errorf("link netlink: set %s up: %w", p.iface, err)
	}

	p.armTimeout()

	// The interface may already hold an address; the kernel will not
	// re-announce it.
	addrs, err := netlink.AddrList(l, netlink.FAMILY_V4)
	if err == nil && len(addrs) > 0 && p.isUp(l) {
		p.acquired(addrs[0].IP)
	}
	return nil
}

func (p *NetlinkProvider) Events() <-chan Event { return p.events }

func (p *NetlinkProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.disarmTimeout()
	})
	return nil
}

func (p *NetlinkProvider) watch(index int, linkCh <-chan netlink.LinkUpdate, addrCh <-chan netlink.AddrUpdate) {
	for {
		select {
		case <-p.done:
			return

		case u, ok := <-linkCh:
			if !ok {
				return
			}
			if u.Attrs().Index != index {
				continue
			}
			up := u.Attrs().OperState == netlink.OperUp

			p.mu.Lock()
			wasUp := p.up
			p.up = up
			p.mu.Unlock()

			if wasUp && !up {
				p.disarmTimeout()
				p.emit(Event{Kind: EventDisconnected})
			}

		case u, ok := <-addrCh:
			if !ok {
				return
			}
			if u.LinkIndex != index || !u.NewAddr || u.LinkAddress.IP.To4() == nil {
				continue
			}
			p.acquired(u.LinkAddress.IP)
		}
	}
}

func (p *NetlinkProvider) acquired(ip net.IP) {
	p.disarmTimeout()
	p.emit(Event{Kind: EventAddressAcquired, Addr: ip})
}

func (p *NetlinkProvider) isUp(l netlink.Link) bool {
	fresh, err := netlink.LinkByIndex(l.Attrs().Index)
	if err != nil {
		return false
	}
	return fresh.Attrs().OperState == netlink.OperUp
}

func (p *NetlinkProvider) armTimeout() {
	if p.timeout <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		p.pending.Stop()
	}
	p.pending = time.AfterFunc(p.timeout, func() {
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()
		p.emit(Event{Kind: EventDisconnected})
	})
}

func (p *NetlinkProvider) disarmTimeout() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
}

func (p *NetlinkProvider) emit(ev Event) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}
