// internal/writer/builder.go
package writer

import (
	"fmt"
	"time"

	cfg "github.com/tamzrod/statpoll/internal/config"
	"github.com/tamzrod/statpoll/internal/writer/ingest"
	wmodbus "github.com/tamzrod/statpoll/internal/writer/modbus"
)

// BuildPlan converts the report config into a write Plan.
// Assumes config has already passed Validate and Normalize.
func BuildPlan(r cfg.ReportConfig) Plan {
	plan := Plan{DeviceName: r.DeviceName}

	for _, t := range r.Targets {
		tp := TargetPlan{
			Endpoint:     t.Endpoint,
			Protocol:     t.Protocol,
			UnitID:       t.UnitID,
			ValueAddress: t.ValueAddress,
		}
		if t.StatusSlot != nil && t.StatusUnitID != nil {
			tp.Status = &StatusPlan{
				UnitID:   *t.StatusUnitID,
				BaseSlot: *t.StatusSlot,
			}
		}
		plan.Targets = append(plan.Targets, tp)
	}

	return plan
}

// BuildEndpointClients creates one client per unique endpoint.
// Connections are opened lazily on first write.
func BuildEndpointClients(r cfg.ReportConfig) (map[string]endpointClient, func() error, error) {
	clients := make(map[string]endpointClient)
	protocols := make(map[string]string)
	var closers []func() error

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	for _, t := range r.Targets {
		if prev, ok := protocols[t.Endpoint]; ok {
			if prev != t.Protocol {
				_ = closeAll()
				return nil, nil, fmt.Errorf("writer: endpoint %s used with protocols %s and %s", t.Endpoint, prev, t.Protocol)
			}
			continue
		}
		protocols[t.Endpoint] = t.Protocol

		timeout := time.Duration(t.TimeoutMs) * time.Millisecond

		switch t.Protocol {
		case cfg.ProtocolIngest:
			c, err := ingest.NewEndpointClient(ingest.Config{Endpoint: t.Endpoint, Timeout: timeout})
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			clients[t.Endpoint] = c
			closers = append(closers, c.Close)

		default:
			c, err := wmodbus.NewEndpointClient(wmodbus.Config{Endpoint: t.Endpoint, Timeout: timeout})
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			clients[t.Endpoint] = c
			closers = append(closers, c.Close)
		}
	}

	return clients, closeAll, nil
}

// Build returns the value writer, the per-target status writers and a closer.
func Build(r cfg.ReportConfig) (Writer, []StatusWriter, func() error, error) {
	clients, closeAll, err := BuildEndpointClients(r)
	if err != nil {
		return nil, nil, nil, err
	}
	plan := BuildPlan(r)
	return New(plan, clients), NewStatusWriters(plan, clients), closeAll, nil
}
