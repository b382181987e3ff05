package statuslog

// Builder provides a fluent API for building a Logger together with its
// receivers. It wraps a Config instance and provides chainable methods for
// setting values.
type Builder struct {
	cfg      *Config
	registry *ReceiverSet
	external Registry
	active   []string
	system   SystemLogSink
	err      error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values
func NewBuilder() *Builder {
	return &Builder{
		cfg:      DefaultConfig(),
		registry: NewReceiverSet(),
	}
}

// Build creates a new Logger instance with the specified configuration
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	registry := Registry(b.registry)
	if b.external != nil {
		registry = b.external
	} else if len(b.active) > 0 {
		if err := b.registry.SetActive(b.active...); err != nil {
			return nil, err
		}
	}

	logger := NewLogger(registry)
	if b.system != nil {
		logger.SetSystemLogSink(b.system)
	}

	// ApplyConfig handles validation and receiver activation by name
	if err := logger.ApplyConfig(b.cfg); err != nil {
		return nil, err
	}

	return logger, nil
}

// Name sets the process name handed to receivers
func (b *Builder) Name(name string) *Builder {
	b.cfg.Name = name
	return b
}

// Registry resolves receivers through an external registry instead of the
// builder's own set. Receiver and Active calls are then rejected.
func (b *Builder) Registry(r Registry) *Builder {
	b.external = r
	return b
}

// Receiver registers a receiver under name
func (b *Builder) Receiver(name string, r Receiver) *Builder {
	if b.err != nil {
		return b
	}
	if b.external != nil {
		b.err = fmtErrorf("cannot register receiver %q with an external registry", name)
		return b
	}
	b.err = b.registry.Register(name, r)
	return b
}

// Active marks registered receivers as active
func (b *Builder) Active(names ...string) *Builder {
	b.active = append(b.active, names...)
	return b
}

// SystemLog sets the platform log facility
func (b *Builder) SystemLog(s SystemLogSink) *Builder {
	b.system = s
	return b
}

// BufferSize sets the capacity of the buffered sink
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.BufferSize = size
	return b
}

// PendingSize sets the capacity of the post-init relay queue
func (b *Builder) PendingSize(size int64) *Builder {
	b.cfg.PendingSize = size
	return b
}

// MinSeverity sets the lowest severity logged
func (b *Builder) MinSeverity(s Severity) *Builder {
	b.cfg.MinSeverity = int64(s)
	return b
}

// MinSeverityString sets the lowest severity logged from a string
func (b *Builder) MinSeverityString(s string) *Builder {
	if b.err != nil {
		return b
	}
	sev, err := ParseSeverity(s)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg.MinSeverity = int64(sev)
	return b
}

// Format sets the fallback output format
func (b *Builder) Format(format string) *Builder {
	b.cfg.Format = format
	return b
}

// FallbackTarget sets where lines logged before InitStatusLogger go
func (b *Builder) FallbackTarget(target string) *Builder {
	b.cfg.FallbackTarget = target
	return b
}

// SenderPoolSize sets the maximum number of concurrent sender tasks
func (b *Builder) SenderPoolSize(size int64) *Builder {
	b.cfg.SenderPoolSize = size
	return b
}

// ShutdownTimeoutMs sets how long Shutdown waits for sender tasks
func (b *Builder) ShutdownTimeoutMs(ms int64) *Builder {
	b.cfg.ShutdownTimeoutMs = ms
	return b
}

// RelayIntervalMs enables periodic relays
func (b *Builder) RelayIntervalMs(ms int64) *Builder {
	b.cfg.RelayIntervalMs = ms
	return b
}

// AsyncStatus delivers post-init status lines through sender tasks
func (b *Builder) AsyncStatus(enable bool) *Builder {
	b.cfg.AsyncStatus = enable
	return b
}

// ForwardRequired makes forwarding mandatory, as for extension processes
func (b *Builder) ForwardRequired(required bool) *Builder {
	b.cfg.ForwardRequired = required
	return b
}

// DeferRelay holds status lines until RelayStatusLogs is called
func (b *Builder) DeferRelay(deferRelay bool) *Builder {
	b.cfg.DeferRelay = deferRelay
	return b
}

// LogEventType selects one event per row for query results
func (b *Builder) LogEventType(enable bool) *Builder {
	b.cfg.LogEventType = enable
	return b
}

// Disabled turns all routing into a no-op
func (b *Builder) Disabled(disabled bool) *Builder {
	b.cfg.Disabled = disabled
	return b
}

// HeartbeatLevel sets the heartbeat monitoring level
func (b *Builder) HeartbeatLevel(level int64) *Builder {
	b.cfg.HeartbeatLevel = level
	return b
}

// HeartbeatIntervalS sets the heartbeat interval in seconds
func (b *Builder) HeartbeatIntervalS(interval int64) *Builder {
	b.cfg.HeartbeatIntervalS = interval
	return b
}

// InternalErrorsToStderr writes internal diagnostics to stderr
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// Example usage:
// logger, err := statuslog.NewBuilder().
//
//	Name("worker").
//	Receiver("console", receiver.NewConsole(os.Stdout)).
//	Active("console").
//	AsyncStatus(true).
//	Build()
//
// if err == nil {
//
//	 defer logger.Shutdown()
//	 logger.InitStatusLogger("worker")
//	 logger.Info("Logger initialized successfully")
//
// }
