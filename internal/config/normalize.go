// internal/config/normalize.go
package config

import (
	"net/url"
	"strings"

	"github.com/tamzrod/statpoll/internal/extract"
	"github.com/tamzrod/statpoll/internal/status"
)

const (
	ProviderNetlink = "netlink"
	ProviderStatic  = "static"

	ProtocolModbus = "modbus"
	ProtocolIngest = "ingest"

	// ValueRegisters is the width of the reported value (uint32, two words).
	ValueRegisters = 2

	DefaultBaseURL          = "https://www.googleapis.com/youtube"
	DefaultPart             = "statistics"
	DefaultMaxRetry         = 5
	DefaultAttemptTimeoutMs = 15000
	DefaultAPITimeoutMs     = 15000
	DefaultIntervalMs       = 60000
	DefaultBufferCapacity   = 2048
	DefaultTargetTimeoutMs  = 2000
)

// Normalize applies defaults and pre-formats the request URL.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ---- link ----
	if cfg.Link.Provider == "" {
		if cfg.Link.Interface != "" {
			cfg.Link.Provider = ProviderNetlink
		} else {
			cfg.Link.Provider = ProviderStatic
		}
	}
	if cfg.Link.MaxRetry == nil {
		n := DefaultMaxRetry
		cfg.Link.MaxRetry = &n
	}
	if cfg.Link.AttemptTimeoutMs == 0 {
		cfg.Link.AttemptTimeoutMs = DefaultAttemptTimeoutMs
	}

	// ---- api ----
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.API.Part == "" {
		cfg.API.Part = DefaultPart
	}
	if cfg.API.Field == "" {
		cfg.API.Field = extract.DefaultPath
	}
	if cfg.API.TimeoutMs == 0 {
		cfg.API.TimeoutMs = DefaultAPITimeoutMs
	}
	cfg.API.URL = RequestURL(cfg.API)

	// ---- poll + buffer ----
	if cfg.Poll.IntervalMs == 0 {
		cfg.Poll.IntervalMs = DefaultIntervalMs
	}
	if cfg.Buffer.Capacity == 0 {
		cfg.Buffer.Capacity = DefaultBufferCapacity
	}

	// ---- report ----
	// Truncate device_name to what the status block can hold.
	if len(cfg.Report.DeviceName) > status.DeviceNameMaxChars {
		cfg.Report.DeviceName = cfg.Report.DeviceName[:status.DeviceNameMaxChars]
	}
	for i := range cfg.Report.Targets {
		t := &cfg.Report.Targets[i]
		if t.Protocol == "" {
			t.Protocol = ProtocolModbus
		}
		if t.TimeoutMs == 0 {
			t.TimeoutMs = DefaultTargetTimeoutMs
		}
	}
}

// RequestURL formats <base>/v3/channels?id=..&key=..&part=..
func RequestURL(api APIConfig) string {
	q := url.Values{}
	q.Set("id", api.ChannelID)
	q.Set("key", api.APIKey)
	q.Set("part", api.Part)
	return strings.TrimRight(api.BaseURL, "/") + "/v3/channels?" + q.Encode()
}
