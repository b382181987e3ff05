package statuslog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "statuslog", cfg.Name)
	assert.Equal(t, int64(1024), cfg.BufferSize)
	assert.Equal(t, int64(4096), cfg.PendingSize)
	assert.Equal(t, int64(SeverityInfo), cfg.MinSeverity)
	assert.Equal(t, "txt", cfg.Format)
	assert.Equal(t, time.RFC3339Nano, cfg.TimestampFormat)
	assert.Equal(t, "stderr", cfg.FallbackTarget)
	assert.True(t, cfg.LogEventType)
	assert.False(t, cfg.AsyncStatus)
	assert.False(t, cfg.ForwardRequired)
	assert.NoError(t, cfg.Validate())

	// Each call returns an independent copy
	cfg.Name = "changed"
	assert.Equal(t, "statuslog", DefaultConfig().Name)
}

func TestConfigClone(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg1.MinSeverity = int64(SeverityError)
	cfg1.Receivers = "a,b"

	cfg2 := cfg1.Clone()
	assert.Equal(t, cfg1.MinSeverity, cfg2.MinSeverity)
	assert.Equal(t, cfg1.Receivers, cfg2.Receivers)

	cfg1.MinSeverity = int64(SeverityInfo)
	assert.Equal(t, int64(SeverityError), cfg2.MinSeverity)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError string
	}{
		{
			name:      "valid config",
			modify:    func(c *Config) {},
			wantError: "",
		},
		{
			name:      "empty name",
			modify:    func(c *Config) { c.Name = " " },
			wantError: "name cannot be empty",
		},
		{
			name:      "invalid format",
			modify:    func(c *Config) { c.Format = "xml" },
			wantError: "invalid format",
		},
		{
			name:      "invalid fallback target",
			modify:    func(c *Config) { c.FallbackTarget = "file" },
			wantError: "invalid fallback_target",
		},
		{
			name:      "zero buffer size",
			modify:    func(c *Config) { c.BufferSize = 0 },
			wantError: "buffer_size and pending_size must be positive",
		},
		{
			name:      "negative pending size",
			modify:    func(c *Config) { c.PendingSize = -1 },
			wantError: "buffer_size and pending_size must be positive",
		},
		{
			name:      "severity out of range",
			modify:    func(c *Config) { c.MinSeverity = 4 },
			wantError: "min_severity must be between",
		},
		{
			name:      "zero sender pool",
			modify:    func(c *Config) { c.SenderPoolSize = 0 },
			wantError: "sender_pool_size must be positive",
		},
		{
			name:      "negative relay interval",
			modify:    func(c *Config) { c.RelayIntervalMs = -5 },
			wantError: "cannot be negative",
		},
		{
			name:      "invalid heartbeat level",
			modify:    func(c *Config) { c.HeartbeatLevel = 3 },
			wantError: "heartbeat_level must be between 0 and 2",
		},
		{
			name: "heartbeat without interval",
			modify: func(c *Config) {
				c.HeartbeatLevel = 1
				c.HeartbeatIntervalS = 0
			},
			wantError: "heartbeat_interval_s must be positive",
		},
		{
			name: "defer relay with async status",
			modify: func(c *Config) {
				c.DeferRelay = true
				c.AsyncStatus = true
			},
			wantError: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
			}
		})
	}
}

func TestReceiverNames(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.ReceiverNames())

	cfg.Receivers = " filesystem, ,tls ,"
	assert.Equal(t, []string{"filesystem", "tls"}, cfg.ReceiverNames())
}

func TestNewConfigFromFile(t *testing.T) {
	t.Run("values from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "statuslog.toml")
		content := `
[statuslog]
name = "core"
buffer_size = 16
min_severity = 1
async_status = true
receivers = "console,filesystem"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := NewConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "core", cfg.Name)
		assert.Equal(t, int64(16), cfg.BufferSize)
		assert.Equal(t, int64(SeverityWarning), cfg.MinSeverity)
		assert.True(t, cfg.AsyncStatus)
		assert.Equal(t, []string{"console", "filesystem"}, cfg.ReceiverNames())
		// Untouched keys keep defaults
		assert.Equal(t, int64(4096), cfg.PendingSize)
	})

	t.Run("missing file keeps defaults", func(t *testing.T) {
		cfg, err := NewConfigFromFile(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[statuslog]\nformat = \"xml\"\n"), 0644))

		_, err := NewConfigFromFile(path)
		assert.ErrorContains(t, err, "invalid format")
	})
}

func TestNewConfigFromDefaults(t *testing.T) {
	cfg, err := NewConfigFromDefaults(map[string]any{
		"name":             "ext",
		"forward_required": true,
		"pending_size":     64,
	})
	require.NoError(t, err)
	assert.Equal(t, "ext", cfg.Name)
	assert.True(t, cfg.ForwardRequired)
	assert.Equal(t, int64(64), cfg.PendingSize)

	_, err = NewConfigFromDefaults(map[string]any{"nope": 1})
	assert.ErrorContains(t, err, "unknown config key")

	_, err = NewConfigFromDefaults(map[string]any{"disabled": "yes"})
	assert.ErrorContains(t, err, "expected bool")
}
