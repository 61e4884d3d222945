// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"

	"github.com/tamzrod/statpoll/internal/accumulator"
	"github.com/tamzrod/statpoll/internal/extract"
	"github.com/tamzrod/statpoll/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration. Zero values mean "use the default".
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	switch cfg.Link.Provider {
	case "", ProviderStatic:
	case ProviderNetlink:
		if cfg.Link.Interface == "" {
			return fmt.Errorf("link: provider %q requires interface", ProviderNetlink)
		}
	default:
		return fmt.Errorf("link: unknown provider %q", cfg.Link.Provider)
	}
	if cfg.Link.MaxRetry != nil && *cfg.Link.MaxRetry < 0 {
		return fmt.Errorf("link: max_retry must be >= 0")
	}
	if cfg.Link.AttemptTimeoutMs < 0 || cfg.Link.WaitTimeoutMs < 0 {
		return fmt.Errorf("link: timeouts must be >= 0")
	}

	// ------------------------------------------------------------
	// API
	// ------------------------------------------------------------

	if cfg.API.ChannelID == "" {
		return fmt.Errorf("api: channel_id required")
	}
	if cfg.API.APIKey == "" {
		return fmt.Errorf("api: api_key required")
	}
	if cfg.API.BaseURL != "" {
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil {
			return fmt.Errorf("api: base_url: %w", err)
		}
		if u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("api: base_url must be an https URL, got %q", cfg.API.BaseURL)
		}
		if u.RawQuery != "" {
			return fmt.Errorf("api: base_url must not carry a query")
		}
	}
	if cfg.API.Field != "" {
		if _, err := extract.ParsePath(cfg.API.Field); err != nil {
			return fmt.Errorf("api: field: %w", err)
		}
	}
	if cfg.API.TimeoutMs < 0 {
		return fmt.Errorf("api: timeout_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// POLL + BUFFER
	// ------------------------------------------------------------

	if cfg.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll: interval_ms must be >= 0")
	}
	if cfg.Buffer.Capacity != 0 && cfg.Buffer.Capacity < accumulator.MinCapacity {
		return fmt.Errorf("buffer: capacity must be >= %d", accumulator.MinCapacity)
	}

	// ------------------------------------------------------------
	// REPORT TARGETS
	// ------------------------------------------------------------

	// device_name sanity (ASCII only)
	for i := 0; i < len(cfg.Report.DeviceName); i++ {
		if cfg.Report.DeviceName[i] > 0x7F {
			return fmt.Errorf("report: device_name must contain ASCII characters only")
		}
	}

	return validateTargets(cfg.Report.Targets)
}

func validateTargets(targets []TargetConfig) error {
	type span struct {
		start  uint32
		end    uint32
		target int
		what   string
	}

	// key = endpoint | unit_id
	spans := make(map[string][]span)

	claim := func(endpoint string, unitID uint8, s span) error {
		key := fmt.Sprintf("%s|%d", endpoint, unitID)
		for _, prev := range spans[key] {
			// overlap check (inclusive)
			if !(s.end < prev.start || s.start > prev.end) {
				return fmt.Errorf(
					"memory overlap: endpoint=%s unit_id=%d %s range=%d-%d (target %d) overlaps %s range=%d-%d (target %d)",
					endpoint, unitID,
					s.what, s.start, s.end, s.target,
					prev.what, prev.start, prev.end, prev.target,
				)
			}
		}
		spans[key] = append(spans[key], s)
		return nil
	}

	for i, t := range targets {
		if t.Endpoint == "" {
			return fmt.Errorf("report: target %d: endpoint required", i)
		}
		switch t.Protocol {
		case "", ProtocolModbus, ProtocolIngest:
		default:
			return fmt.Errorf("report: target %d: unknown protocol %q", i, t.Protocol)
		}
		if t.TimeoutMs < 0 {
			return fmt.Errorf("report: target %d: timeout_ms must be >= 0", i)
		}

		start := uint32(t.ValueAddress)
		if start+ValueRegisters-1 > 0xFFFF {
			return fmt.Errorf("report: target %d: value_address %d leaves no room for %d registers", i, t.ValueAddress, ValueRegisters)
		}
		if err := claim(t.Endpoint, t.UnitID, span{start, start + ValueRegisters - 1, i, "value"}); err != nil {
			return err
		}

		// status is opt-in
		if t.StatusSlot == nil {
			continue
		}
		if t.StatusUnitID == nil {
			return fmt.Errorf("report: target %d: status_slot is set but status_unit_id is not", i)
		}

		base := uint32(*t.StatusSlot) * status.SlotsPerDevice
		if base+status.SlotsPerDevice-1 > 0xFFFF {
			return fmt.Errorf("report: target %d: status_slot %d out of range", i, *t.StatusSlot)
		}
		if err := claim(t.Endpoint, *t.StatusUnitID, span{base, base + status.SlotsPerDevice - 1, i, "status"}); err != nil {
			return err
		}
	}

	return nil
}
