package statuslog

import (
	"context"
	"errors"
	"fmt"
)

// Info logs a status line at info severity
func (l *Logger) Info(args ...any) {
	l.log(SeverityInfo, callerSkip, buildMessage(args))
}

// Warning logs a status line at warning severity
func (l *Logger) Warning(args ...any) {
	l.log(SeverityWarning, callerSkip, buildMessage(args))
}

// Error logs a status line at error severity
func (l *Logger) Error(args ...any) {
	l.log(SeverityError, callerSkip, buildMessage(args))
}

// Fatal logs a status line at fatal severity. It does not exit the process.
func (l *Logger) Fatal(args ...any) {
	l.log(SeverityFatal, callerSkip, buildMessage(args))
}

// Infof logs a formatted status line at info severity
func (l *Logger) Infof(format string, args ...any) {
	l.log(SeverityInfo, callerSkip, fmt.Sprintf(format, args...))
}

// Warningf logs a formatted status line at warning severity
func (l *Logger) Warningf(format string, args ...any) {
	l.log(SeverityWarning, callerSkip, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted status line at error severity
func (l *Logger) Errorf(format string, args ...any) {
	l.log(SeverityError, callerSkip, fmt.Sprintf(format, args...))
}

// Fatalf logs a formatted status line at fatal severity. It does not exit the process.
func (l *Logger) Fatalf(format string, args ...any) {
	l.log(SeverityFatal, callerSkip, fmt.Sprintf(format, args...))
}

// LogDepth logs a status line attributed to the caller depth frames above
// the function calling LogDepth. Adapters use it to skip their own frames.
func (l *Logger) LogDepth(severity Severity, depth int, message string) {
	l.log(severity, callerSkip+depth, message)
}

// Status logs a prebuilt line, keeping its location and time. An
// out-of-range severity, as may arrive from another process, is clamped.
func (l *Logger) Status(line StatusLine) {
	line.Severity = line.Severity.Clamp()
	cfg := l.getConfig()
	if cfg.Disabled || line.Severity < Severity(cfg.MinSeverity) {
		return
	}
	l.routeStatus(cfg, line)
}

// IngestStatuses logs lines received from another process, in order
func (l *Logger) IngestStatuses(lines []StatusLine) {
	for _, line := range lines {
		l.Status(line)
	}
}

// log handles the core status logging logic
func (l *Logger) log(severity Severity, skip int, message string) {
	cfg := l.getConfig()
	if cfg.Disabled || severity < Severity(cfg.MinSeverity) {
		return
	}

	file, line := getCaller(skip)
	l.routeStatus(cfg, NewStatusLine(severity, file, line, message))
}

// routeStatus buffers the line before InitLogger and relays it afterwards.
// Lines logged before InitStatusLogger go to the fallback writer.
func (l *Logger) routeStatus(cfg *Config, line StatusLine) {
	switch l.getSink().tryAppend(line) {
	case SinkBuffering:
		return
	case SinkInactive:
		l.writeFallback(line)
		return
	}

	// Queue before checking the mode so InitLogger's final relay sees the line
	l.enqueuePending(line)
	if !l.state.Direct.Load() || cfg.DeferRelay {
		return
	}

	if err := l.relayAuto(context.Background(), cfg.AsyncStatus); err != nil {
		if !errors.Is(err, ErrSchedulerBusy) {
			l.recordRelayErr(err)
		}
	}
}
