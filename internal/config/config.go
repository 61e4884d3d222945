// internal/config/config.go
package config

type Config struct {
	Link    LinkConfig    `yaml:"link"`
	API     APIConfig     `yaml:"api"`
	Poll    PollConfig    `yaml:"poll"`
	Buffer  BufferConfig  `yaml:"buffer"`
	Report  ReportConfig  `yaml:"report"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ---- LINK ----

type LinkConfig struct {
	// Provider is "netlink" or "static". Empty selects netlink when an
	// interface is named, static otherwise.
	Provider  string `yaml:"provider"`
	Interface string `yaml:"interface"`

	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`

	// MaxRetry is the number of disconnects tolerated before the link is
	// declared failed. Nil means the default.
	MaxRetry *int `yaml:"max_retry"`

	// AttemptTimeoutMs bounds one association attempt (netlink only).
	AttemptTimeoutMs int `yaml:"attempt_timeout_ms"`

	// WaitTimeoutMs bounds the startup wait; 0 waits forever.
	WaitTimeoutMs int `yaml:"wait_timeout_ms"`
}

// ---- API ----

type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	ChannelID string `yaml:"channel_id"`
	APIKey    string `yaml:"api_key"`
	Part      string `yaml:"part"`
	Field     string `yaml:"field"`
	TimeoutMs int    `yaml:"timeout_ms"`
	CAFile    string `yaml:"ca_file"`
	KeepAlive bool   `yaml:"keep_alive"`

	// URL is the pre-formatted request URL, built by Normalize.
	URL string `yaml:"-"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- BUFFER ----

type BufferConfig struct {
	// Capacity in bytes, terminator included.
	Capacity int `yaml:"capacity"`
}

// ---- REPORT ----

type ReportConfig struct {
	DeviceName string         `yaml:"device_name"`
	Targets    []TargetConfig `yaml:"targets"`
}

type TargetConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Protocol  string `yaml:"protocol"` // "modbus" (default) or "ingest"
	TimeoutMs int    `yaml:"timeout_ms"`

	// Value memory: two holding registers, high word first.
	UnitID       uint8  `yaml:"unit_id"`
	ValueAddress uint16 `yaml:"value_address"`

	// Device status block (optional, opt-in)
	StatusUnitID *uint8  `yaml:"status_unit_id"`
	StatusSlot   *uint16 `yaml:"status_slot"`
}

// ---- METRICS ----

type MetricsConfig struct {
	// Listen is the admin address for /metrics; empty disables it.
	Listen string `yaml:"listen"`
}
