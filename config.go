package statuslog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lixenwraith/config"
)

// Config holds all status logger configuration values
type Config struct {
	// Process identity
	Name string `toml:"name"` // Process name handed to receivers on Init

	// Buffering
	BufferSize  int64 `toml:"buffer_size"`  // Capacity of the pre-init buffered sink
	PendingSize int64 `toml:"pending_size"` // Capacity of the post-init relay queue
	MinSeverity int64 `toml:"min_severity"` // Status lines below this severity are ignored

	// Formatting of pre-init fallback output
	Format          string `toml:"format"` // "txt", "json", or "raw"
	TimestampFormat string `toml:"timestamp_format"`
	FallbackTarget  string `toml:"fallback_target"` // "stderr", "stdout", or "none"

	// Relay
	SenderPoolSize    int64 `toml:"sender_pool_size"`    // Max concurrent async sender tasks
	ShutdownTimeoutMs int64 `toml:"shutdown_timeout_ms"` // Wait for in-flight senders on shutdown
	RelayIntervalMs   int64 `toml:"relay_interval_ms"`   // Periodic relay, 0=disabled
	AsyncStatus       bool  `toml:"async_status"`        // Deliver post-init status lines via sender tasks

	// Topology
	ForwardRequired bool `toml:"forward_required"` // Never drop status lines for lack of a receiver
	DeferRelay      bool `toml:"defer_relay"`      // Hold status lines until RelayStatusLogs is called

	// Receivers
	Receivers    string `toml:"receivers"`      // Comma-separated active receiver names
	LogEventType bool   `toml:"log_event_type"` // Query results as one event per row
	Disabled     bool   `toml:"disabled"`       // Route nothing; SystemLog still works

	// Heartbeat
	HeartbeatLevel     int64 `toml:"heartbeat_level"`      // 0=disabled, 1=relay counters, 2=relay+runtime
	HeartbeatIntervalS int64 `toml:"heartbeat_interval_s"` // Interval seconds for heartbeat

	// System log
	SystemLogTag string `toml:"system_log_tag"`

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"` // Write internal errors to stderr
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	// Process identity
	Name: "statuslog",

	// Buffering
	BufferSize:  1024,
	PendingSize: 4096,
	MinSeverity: int64(SeverityInfo),

	// Formatting
	Format:          "txt",
	TimestampFormat: time.RFC3339Nano,
	FallbackTarget:  "stderr",

	// Relay
	SenderPoolSize:    4,
	ShutdownTimeoutMs: 2000,
	RelayIntervalMs:   0,
	AsyncStatus:       false,

	// Topology
	ForwardRequired: false,
	DeferRelay:      false,

	// Receivers
	Receivers:    "",
	LogEventType: true,
	Disabled:     false,

	// Heartbeat
	HeartbeatLevel:     0,
	HeartbeatIntervalS: 60,

	// System log
	SystemLogTag: "statuslog",

	// Internal error handling
	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads configuration from a TOML file and returns a validated Config
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()

	// Register the struct to enable proper unmarshaling
	if err := loader.RegisterStruct("statuslog.", *cfg); err != nil {
		return nil, fmt.Errorf("failed to register config struct: %w", err)
	}

	// Missing file keeps defaults
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "statuslog.", cfg); err != nil {
		return nil, fmt.Errorf("failed to extract config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// extractConfig copies loader values into cfg, keyed by toml tag
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		if tomlTag := t.Field(i).Tag.Get("toml"); tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmtErrorf("name cannot be empty")
	}

	if c.Format != "txt" && c.Format != "json" && c.Format != "raw" {
		return fmtErrorf("invalid format: '%s' (use txt, json, or raw)", c.Format)
	}

	if strings.TrimSpace(c.TimestampFormat) == "" {
		return fmtErrorf("timestamp_format cannot be empty")
	}

	switch c.FallbackTarget {
	case "stderr", "stdout", "none":
	default:
		return fmtErrorf("invalid fallback_target: '%s' (use stderr, stdout, or none)", c.FallbackTarget)
	}

	if c.BufferSize <= 0 || c.PendingSize <= 0 {
		return fmtErrorf("buffer_size and pending_size must be positive: %d, %d", c.BufferSize, c.PendingSize)
	}

	if !Severity(c.MinSeverity).Valid() {
		return fmtErrorf("min_severity must be between %d and %d: %d", SeverityInfo, SeverityFatal, c.MinSeverity)
	}

	if c.SenderPoolSize <= 0 {
		return fmtErrorf("sender_pool_size must be positive: %d", c.SenderPoolSize)
	}

	if c.ShutdownTimeoutMs < 0 || c.RelayIntervalMs < 0 {
		return fmtErrorf("interval settings cannot be negative")
	}

	if c.HeartbeatLevel < 0 || c.HeartbeatLevel > 2 {
		return fmtErrorf("heartbeat_level must be between 0 and 2: %d", c.HeartbeatLevel)
	}

	if c.HeartbeatLevel > 0 && c.HeartbeatIntervalS <= 0 {
		return fmtErrorf("heartbeat_interval_s must be positive when heartbeat is enabled: %d",
			c.HeartbeatIntervalS)
	}

	if c.DeferRelay && c.AsyncStatus {
		return fmtErrorf("defer_relay and async_status are mutually exclusive")
	}

	return nil
}

// ReceiverNames splits the receivers key into trimmed, non-empty names
func (c *Config) ReceiverNames() []string {
	var names []string
	for _, part := range strings.Split(c.Receivers, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}
