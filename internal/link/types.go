// internal/link/types.go
package link

import (
	"fmt"
	"net"
)

// State is the link lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EventKind enumerates the signals a Provider emits.
type EventKind uint8

const (
	EventStart EventKind = iota + 1
	EventDisconnected
	EventAddressAcquired
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventDisconnected:
		return "disconnected"
	case EventAddressAcquired:
		return "address-acquired"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is one link signal. Addr is set for EventAddressAcquired and is
// used for logging only.
type Event struct {
	Kind EventKind
	Addr net.IP
}

// Credentials identify the network to associate with.
type Credentials struct {
	SSID       string
	Passphrase string
}

// Provider is the platform network stack.
//
// Start prepares the interface and emits EventStart. Connect requests one
// association attempt; its outcome arrives later as EventAddressAcquired or
// EventDisconnected. Events is read by exactly one Manager.
type Provider interface {
	Start() error
	Connect() error
	Events() <-chan Event
	Close() error
}
