// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/statpoll/internal/status"
)

// StatusWriter is the delivery-only contract for poller status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter writes one target's status block.
type deviceStatusWriter struct {
	endpoint string
	plan     *StatusPlan
	cli      endpointClient

	needFull bool
	last     status.Snapshot
	nameRegs []uint16
}

// NewDeviceStatusWriter builds a status writer if status is enabled for the target.
// If t.Status is nil, status is disabled.
func NewDeviceStatusWriter(t TargetPlan, deviceName string, clients map[string]endpointClient) (StatusWriter, bool) {
	if t.Status == nil {
		return nil, false
	}

	return &deviceStatusWriter{
		endpoint: t.Endpoint,
		plan:     t.Status,
		cli:      clients[t.Endpoint],
		needFull: true, // full re-assert on first successful write
		last: status.Snapshot{
			Health: status.HealthUnknown,
		},
		nameRegs: status.EncodeDeviceName(deviceName),
	}, true
}

// NewStatusWriters builds one status writer per opted-in target.
func NewStatusWriters(plan Plan, clients map[string]endpointClient) []StatusWriter {
	var out []StatusWriter
	for _, t := range plan.Targets {
		if sw, ok := NewDeviceStatusWriter(t, plan.DeviceName, clients); ok {
			out = append(out, sw)
		}
	}
	return out
}

// WriteStatus delivers a status snapshot into status memory.
// On any write failure, the next call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.endpoint)
	}

	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(unitID, baseAddr, status.Encode(s, sw.nameRegs)); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	write := func(slot uint16, name string, prev *uint16, v uint16) {
		if *prev == v {
			return
		}
		if err := sw.cli.WriteRegisters(unitID, baseAddr+slot, []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", slot, name, err))
			return
		}
		*prev = v
	}

	write(status.SlotHealthCode, "health", &sw.last.Health, s.Health)
	write(status.SlotLastErrorCode, "last_error", &sw.last.LastErrorCode, s.LastErrorCode)
	write(status.SlotSecondsInError, "seconds_in_error", &sw.last.SecondsInError, s.SecondsInError)
	write(status.SlotConsecutiveFailures, "failures", &sw.last.ConsecutiveFailures, s.ConsecutiveFailures)

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
