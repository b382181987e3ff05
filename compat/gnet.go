package compat

import (
	"fmt"
	"os"

	"github.com/lixenwraith/statuslog"
)

// GnetAdapter wraps statuslog.Logger to implement gnet logging.Logger interface
type GnetAdapter struct {
	logger       *statuslog.Logger
	fatalHandler func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(logger *statuslog.Logger, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		logger: logger,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// Debugf logs at info severity; status lines have no debug severity
func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.log(statuslog.SeverityInfo, format, args)
}

// Infof logs at info severity with printf-style formatting
func (a *GnetAdapter) Infof(format string, args ...any) {
	a.log(statuslog.SeverityInfo, format, args)
}

// Warnf logs at warning severity with printf-style formatting
func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.log(statuslog.SeverityWarning, format, args)
}

// Errorf logs at error severity with printf-style formatting
func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.log(statuslog.SeverityError, format, args)
}

// Fatalf logs at fatal severity and triggers fatal handler
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := a.log(statuslog.SeverityFatal, format, args)

	// Push queued lines out before exit
	_ = a.logger.RelayStatusLogs(false)

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}

// log attributes the line to the caller of the exported method
func (a *GnetAdapter) log(sev statuslog.Severity, format string, args []any) string {
	msg := "gnet: " + fmt.Sprintf(format, args...)
	a.logger.LogDepth(sev, 2, msg)
	return msg
}
