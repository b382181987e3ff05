package statuslog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/lixenwraith/statuslog/formatter"
)

// Logger captures status lines, buffers them until receivers are ready, and
// routes status lines and result strings to receivers resolved by name
type Logger struct {
	currentConfig atomic.Value // stores *Config
	state         State
	initMu        sync.Mutex
	statusOnce    sync.Once

	registry  Registry
	sinkPtr   atomic.Pointer[BufferedSink]
	scheduler *RelayScheduler

	systemMu sync.RWMutex
	system   SystemLogSink

	pendingMu sync.Mutex
	pending   lineQueue

	// Held by the goroutine draining pending lines
	relayMu sync.Mutex
	// Set while a retry of a batch refused by a busy sender pool is scheduled
	retryArmed atomic.Bool

	receiverMu  sync.Mutex
	initialized map[string]struct{} // receivers whose Init already ran

	relayErrMu    sync.Mutex
	relayErrs     []error
	relayErrsLost int

	fallbackMu sync.Mutex
	formatter  *formatter.Formatter

	timerMu   sync.Mutex
	timerStop chan struct{}
	timerDone chan struct{}
}

// NewLogger creates a Logger with default settings resolving receivers
// through registry. A nil registry gets an empty ReceiverSet.
func NewLogger(registry Registry) *Logger {
	if registry == nil {
		registry = NewReceiverSet()
	}
	cfg := DefaultConfig()

	l := &Logger{
		registry:    registry,
		pending:     newLineQueue(int(cfg.PendingSize)),
		initialized: make(map[string]struct{}),
	}
	l.currentConfig.Store(cfg)
	l.sinkPtr.Store(NewBufferedSink(int(cfg.BufferSize)))
	l.state.LoggerStartTime.Store(time.Now())
	l.formatter = newFallbackFormatter(cfg)
	l.state.FallbackWriter.Store(&sink{w: fallbackWriter(cfg.FallbackTarget)})
	l.system = newSystemLogSink(cfg.SystemLogTag)

	scheduler, err := NewRelayScheduler(int(cfg.SenderPoolSize), l.internalLog)
	if err != nil {
		// Only a non-positive size fails, and defaults are positive
		panic(err)
	}
	l.scheduler = scheduler

	return l
}

// ApplyConfig validates and applies a configuration. Buffer capacity only
// changes while the buffered sink is still inactive.
func (l *Logger) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmtErrorf("invalid configuration: %w", err)
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()

	return l.applyConfig(cfg.Clone())
}

// GetConfig returns a copy of current configuration
func (l *Logger) GetConfig() *Config {
	return l.getConfig().Clone()
}

// Registry returns the registry receivers are resolved through
func (l *Logger) Registry() Registry {
	return l.registry
}

// getConfig returns the current configuration (thread-safe)
func (l *Logger) getConfig() *Config {
	return l.currentConfig.Load().(*Config)
}

func (l *Logger) getSink() *BufferedSink {
	return l.sinkPtr.Load()
}

// applyConfig is the internal implementation for applying configuration, assuming initMu is held
func (l *Logger) applyConfig(cfg *Config) error {
	oldCfg := l.getConfig()

	if cfg.Receivers != oldCfg.Receivers || len(cfg.ReceiverNames()) > 0 {
		if err := l.activateReceivers(cfg.ReceiverNames()); err != nil {
			return err
		}
	}

	l.currentConfig.Store(cfg)

	if s := l.getSink(); s.State() == SinkInactive && s.Capacity() != int(cfg.BufferSize) {
		l.sinkPtr.Store(NewBufferedSink(int(cfg.BufferSize)))
	}

	if cfg.PendingSize != oldCfg.PendingSize {
		l.resizePending(int(cfg.PendingSize))
	}

	if cfg.SenderPoolSize != oldCfg.SenderPoolSize {
		l.scheduler.Tune(int(cfg.SenderPoolSize))
	}

	l.fallbackMu.Lock()
	l.formatter = newFallbackFormatter(cfg)
	l.fallbackMu.Unlock()
	l.state.FallbackWriter.Store(&sink{w: fallbackWriter(cfg.FallbackTarget)})

	if cfg.SystemLogTag != oldCfg.SystemLogTag {
		l.systemMu.Lock()
		if old, ok := l.system.(*systemLogSink); ok {
			_ = old.Close()
			l.system = newSystemLogSink(cfg.SystemLogTag)
		}
		l.systemMu.Unlock()
	}

	if timersChanged(oldCfg, cfg) || (!l.timersRunning() && timersEnabled(cfg)) {
		l.restartTimers()
	}

	return nil
}

// activateReceivers sets the active set on registries that support it
func (l *Logger) activateReceivers(names []string) error {
	setter, ok := l.registry.(interface{ SetActive(names ...string) error })
	if !ok {
		if len(names) > 0 {
			return fmtErrorf("registry %T cannot activate receivers by name", l.registry)
		}
		return nil
	}
	return setter.SetActive(names...)
}

// Name returns the process name handed to receivers
func (l *Logger) Name() string {
	return l.getConfig().Name
}

// InitStatusLogger starts buffering status lines. Lines logged before this
// call go to the fallback writer. Only the first call has an effect.
func (l *Logger) InitStatusLogger(name string) {
	l.statusOnce.Do(func() {
		l.initMu.Lock()
		defer l.initMu.Unlock()
		if name != "" {
			l.setName(name)
		}
		l.getSink().Activate()
		l.state.StatusInitialized.Store(true)
	})
}

// InitLogger drains the buffered sink into the Init of every active receiver
// and switches to direct routing. A second call finds the sink empty and every
// receiver already initialized, so nothing is delivered twice.
//
// With forward_required and no active receiver the drained lines are kept for
// a later relay and ErrNoForwardTarget is returned.
func (l *Logger) InitLogger(name string) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	if name != "" {
		l.setName(name)
	}
	cfg := l.getConfig()

	drained := l.getSink().DrainOnce()

	var err error
	switch targets := resolveActive(l.registry); {
	case cfg.Disabled:
	case len(targets) == 0 && cfg.ForwardRequired:
		l.requeuePending(drained)
		err = ErrNoForwardTarget
	case len(targets) == 0:
		l.state.LinesUnrouted.Add(uint64(len(drained)))
	default:
		l.initReceivers(targets, drained)
		l.state.LinesRelayed.Add(uint64(len(drained)))
	}

	l.state.Direct.Store(true)

	// Lines that arrived during the transition
	if err == nil && !cfg.Disabled && !cfg.DeferRelay {
		err = l.relayAuto(context.Background(), cfg.AsyncStatus)
	}
	return err
}

// setName stores a config copy carrying name, assuming initMu is held
func (l *Logger) setName(name string) {
	cfg := l.getConfig()
	if cfg.Name == name {
		return
	}
	next := cfg.Clone()
	next.Name = name
	l.currentConfig.Store(next)
}

// initReceivers calls Init once per receiver. Receivers are marked before
// Init runs so that a receiver logging from Init is not initialized twice.
func (l *Logger) initReceivers(targets []Target, lines []StatusLine) {
	name := l.getConfig().Name

	l.receiverMu.Lock()
	fresh := make([]Target, 0, len(targets))
	for _, t := range targets {
		if _, done := l.initialized[t.Name]; done {
			continue
		}
		l.initialized[t.Name] = struct{}{}
		fresh = append(fresh, t)
	}
	l.receiverMu.Unlock()

	for _, t := range fresh {
		r := t.Receiver
		if err := callReceiver(t.Name, func() error {
			r.Init(name, lines)
			return nil
		}); err != nil {
			l.internalLog("receiver init failed: %v\n", err)
		}
	}
}

// activeTargets resolves the active receivers, initializing any activated
// after InitLogger ran
func (l *Logger) activeTargets() []Target {
	targets := resolveActive(l.registry)
	if l.state.Direct.Load() {
		l.initReceivers(targets, nil)
	}
	return targets
}

// LogString routes text to every active receiver. See LogStringContext.
func (l *Logger) LogString(text, category string) error {
	return l.LogStringContext(context.Background(), text, category)
}

// LogStringContext routes text to every active receiver. Every receiver is
// attempted; failures are aggregated and match ErrReceiverFailure. Zero active
// receivers is not an error unless forwarding is required, in which case
// ErrNoForwardTarget is returned. Strings in the snapshot category go to
// LogSnapshot on receivers that implement SnapshotReceiver.
func (l *Logger) LogStringContext(ctx context.Context, text, category string) error {
	if l.getConfig().Disabled {
		return nil
	}

	targets, err := l.stringTargets()
	if err != nil {
		return err
	}
	var errs error
	for _, t := range targets {
		errs = multierr.Append(errs, sendString(ctx, t, text, category))
	}
	return errs
}

// stringTargets returns the active receivers for a fan-out string delivery
func (l *Logger) stringTargets() ([]Target, error) {
	targets := l.activeTargets()
	if len(targets) == 0 && l.getConfig().ForwardRequired {
		return nil, ErrNoForwardTarget
	}
	return targets, nil
}

// LogStringTo routes text to the named receiver only. See LogStringToContext.
func (l *Logger) LogStringTo(text, category, receiver string) error {
	return l.LogStringToContext(context.Background(), text, category, receiver)
}

// LogStringToContext routes text to exactly the named receiver, failing with
// ErrUnknownReceiver if the name does not resolve
func (l *Logger) LogStringToContext(ctx context.Context, text, category, receiver string) error {
	if l.getConfig().Disabled {
		return nil
	}

	t, err := l.resolveTarget(receiver)
	if err != nil {
		return err
	}
	return sendString(ctx, t, text, category)
}

// resolveTarget resolves one receiver by name
func (l *Logger) resolveTarget(name string) (Target, error) {
	r, ok := l.registry.Resolve(name)
	if !ok {
		return Target{}, unknownReceiver(name)
	}
	t := Target{Name: name, Receiver: r}
	if l.state.Direct.Load() {
		l.initReceivers([]Target{t}, nil)
	}
	return t, nil
}

func sendString(ctx context.Context, t Target, text, category string) error {
	r := t.Receiver
	return callReceiver(t.Name, func() error {
		if category == CategorySnapshot {
			if sr, ok := r.(SnapshotReceiver); ok {
				return sr.LogSnapshot(ctx, text)
			}
		}
		return r.LogString(ctx, text)
	})
}

// RelayStatusLogs pushes pending status lines to the active receivers. See
// RelayStatusLogsContext.
func (l *Logger) RelayStatusLogs(async bool) error {
	return l.RelayStatusLogsContext(context.Background(), async)
}

// RelayStatusLogsContext pushes status lines accumulated since the last relay
// to the active receivers. It is a no-op before InitLogger. With async=false
// delivery runs inline and the aggregated error is returned; with async=true a
// sender task is queued and the call returns at once. Failures from earlier
// asynchronous deliveries are reported by the next call.
func (l *Logger) RelayStatusLogsContext(ctx context.Context, async bool) error {
	if l.getConfig().Disabled || !l.state.Direct.Load() {
		return nil
	}
	prior := l.takeRelayErr()
	return multierr.Append(prior, l.relayExplicit(ctx, async))
}

// QueuedStatuses returns the number of status lines awaiting delivery: the
// buffered sink's count while buffering, the pending queue afterwards
func (l *Logger) QueuedStatuses() int {
	if s := l.getSink(); s.State() == SinkBuffering {
		return s.Count()
	}
	return l.pendingLen()
}

// QueuedSenders returns the number of in-flight asynchronous sender tasks
func (l *Logger) QueuedSenders() int {
	return l.scheduler.Senders()
}

// SystemLog writes line to the platform log facility. It never buffers, never
// touches receivers, and works while routing is disabled.
func (l *Logger) SystemLog(line string) {
	l.systemMu.RLock()
	s := l.system
	l.systemMu.RUnlock()
	if s != nil {
		s.Write(line)
	}
}

// SetSystemLogSink replaces the platform log facility
func (l *Logger) SetSystemLogSink(s SystemLogSink) {
	l.systemMu.Lock()
	defer l.systemMu.Unlock()
	l.system = s
}
