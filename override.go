package statuslog

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyOverride applies "key=value" overrides on top of the logger's current
// configuration. Only settings that are safe to change after construction
// take effect on a running logger; see ApplyConfig.
//
// Example:
//
//	logger := statuslog.NewLogger(nil)
//	err := logger.ApplyOverride(
//	    "min_severity=warning",
//	    "async_status=true",
//	)
func (l *Logger) ApplyOverride(overrides ...string) error {
	cfg, err := ParseOverrides(l.GetConfig(), overrides...)
	if err != nil {
		return err
	}
	return l.ApplyConfig(cfg)
}

// ParseOverrides returns a copy of base with overrides applied. The result is
// not validated.
func ParseOverrides(base *Config, overrides ...string) (*Config, error) {
	cfg := base.Clone()

	var errors []error
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errors = append(errors, err)
			continue
		}

		if err := applyConfigField(cfg, key, value); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, combineConfigErrors(errors)
	}
	return cfg, nil
}

// combineConfigErrors combines multiple configuration errors into a single error
func combineConfigErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	if len(errors) == 1 {
		return errors[0]
	}

	var sb strings.Builder
	sb.WriteString("statuslog: multiple configuration errors:")
	for i, err := range errors {
		errMsg := strings.TrimPrefix(err.Error(), errPrefix)
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return fmt.Errorf("%s", sb.String())
}

// applyConfigField applies a single key-value override to a Config
func applyConfigField(cfg *Config, key, value string) error {
	switch key {
	case "name":
		cfg.Name = value
	case "format":
		cfg.Format = value
	case "timestamp_format":
		cfg.TimestampFormat = value
	case "fallback_target":
		cfg.FallbackTarget = value
	case "receivers":
		cfg.Receivers = value
	case "system_log_tag":
		cfg.SystemLogTag = value

	case "min_severity":
		// Accepts numeric and named values
		if numVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			cfg.MinSeverity = numVal
		} else {
			sev, err := ParseSeverity(value)
			if err != nil {
				return fmtErrorf("invalid min_severity value '%s': %w", value, err)
			}
			cfg.MinSeverity = int64(sev)
		}

	case "buffer_size", "pending_size", "sender_pool_size", "shutdown_timeout_ms",
		"relay_interval_ms", "heartbeat_level", "heartbeat_interval_s":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for %s '%s': %w", key, value, err)
		}
		*intField(cfg, key) = intVal

	case "async_status", "forward_required", "defer_relay", "log_event_type",
		"disabled", "internal_errors_to_stderr":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for %s '%s': %w", key, value, err)
		}
		*boolField(cfg, key) = boolVal

	default:
		return fmtErrorf("unknown config key in override: '%s'", key)
	}

	return nil
}

func intField(cfg *Config, key string) *int64 {
	switch key {
	case "buffer_size":
		return &cfg.BufferSize
	case "pending_size":
		return &cfg.PendingSize
	case "sender_pool_size":
		return &cfg.SenderPoolSize
	case "shutdown_timeout_ms":
		return &cfg.ShutdownTimeoutMs
	case "relay_interval_ms":
		return &cfg.RelayIntervalMs
	case "heartbeat_level":
		return &cfg.HeartbeatLevel
	default:
		return &cfg.HeartbeatIntervalS
	}
}

func boolField(cfg *Config, key string) *bool {
	switch key {
	case "async_status":
		return &cfg.AsyncStatus
	case "forward_required":
		return &cfg.ForwardRequired
	case "defer_relay":
		return &cfg.DeferRelay
	case "log_event_type":
		return &cfg.LogEventType
	case "disabled":
		return &cfg.Disabled
	default:
		return &cfg.InternalErrorsToStderr
	}
}
