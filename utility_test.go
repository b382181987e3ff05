package statuslog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected Severity
		wantErr  bool
	}{
		{"info", SeverityInfo, false},
		{"INFO", SeverityInfo, false},
		{" warning ", SeverityWarning, false},
		{"warn", SeverityWarning, false},
		{"error", SeverityError, false},
		{"fatal", SeverityFatal, false},
		{"debug", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sev, err := ParseSeverity(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, sev)
			}
		})
	}
}

func TestParseKeyValue(t *testing.T) {
	tests := []struct {
		input     string
		wantKey   string
		wantValue string
		wantErr   bool
	}{
		{"key=value", "key", "value", false},
		{" key = value ", "key", "value", false},
		{"key=value=with=equals", "key", "value=with=equals", false},
		{"noequals", "", "", true},
		{"=value", "", "", true},
		{"key=", "key", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, value, err := parseKeyValue(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantKey, key)
				assert.Equal(t, tt.wantValue, value)
			}
		})
	}
}

func TestFmtErrorf(t *testing.T) {
	err := fmtErrorf("bad %s", "thing")
	assert.Equal(t, "statuslog: bad thing", err.Error())

	err = fmtErrorf("statuslog: already prefixed")
	assert.Equal(t, "statuslog: already prefixed", err.Error())
}

func TestParseOverrides(t *testing.T) {
	base := DefaultConfig()

	cfg, err := ParseOverrides(base,
		"name=extension",
		"min_severity=warning",
		"buffer_size=32",
		"forward_required=true",
		"receivers=tls, filesystem",
	)
	require.NoError(t, err)
	assert.Equal(t, "extension", cfg.Name)
	assert.Equal(t, int64(SeverityWarning), cfg.MinSeverity)
	assert.Equal(t, int64(32), cfg.BufferSize)
	assert.True(t, cfg.ForwardRequired)
	assert.Equal(t, []string{"tls", "filesystem"}, cfg.ReceiverNames())

	// Base is untouched
	assert.Equal(t, "statuslog", base.Name)

	cfg, err = ParseOverrides(base, "min_severity=2")
	require.NoError(t, err)
	assert.Equal(t, int64(SeverityError), cfg.MinSeverity)
}

func TestParseOverridesErrors(t *testing.T) {
	_, err := ParseOverrides(DefaultConfig(), "unknown_key=1")
	assert.ErrorContains(t, err, "unknown config key")

	_, err = ParseOverrides(DefaultConfig(), "buffer_size=big", "async_status=maybe", "min_severity=loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple configuration errors")
	assert.Contains(t, err.Error(), "1. invalid integer value for buffer_size")
	assert.Contains(t, err.Error(), "2. invalid boolean value for async_status")
	assert.Contains(t, err.Error(), "3. invalid min_severity value")
}

func TestApplyOverride(t *testing.T) {
	logger := NewLogger(nil)
	defer logger.Shutdown()

	require.NoError(t, logger.ApplyOverride("min_severity=error", "log_event_type=false"))
	cfg := logger.GetConfig()
	assert.Equal(t, int64(SeverityError), cfg.MinSeverity)
	assert.False(t, cfg.LogEventType)

	// Validation runs on the combined result
	assert.Error(t, logger.ApplyOverride("format=xml"))
	assert.Equal(t, "txt", logger.GetConfig().Format)
}
