// internal/link/netlink_other.go
//go:build !linux

package link

import (
	"errors"
	"time"
)

// NewNetlink is only available on Linux.
func NewNetlink(iface string, creds Credentials, attemptTimeout time.Duration) (Provider, error) {
	_ = iface
	_ = creds
	_ = attemptTimeout
	return nil, errors.New("link netlink: not supported on this platform")
}
