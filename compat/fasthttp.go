package compat

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/statuslog"
)

// FastHTTPAdapter wraps statuslog.Logger to implement fasthttp Logger interface
type FastHTTPAdapter struct {
	logger          *statuslog.Logger
	defaultSeverity statuslog.Severity
	levelDetector   func(string) (statuslog.Severity, bool) // Detects severity from message content
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *statuslog.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:          logger,
		defaultSeverity: statuslog.SeverityInfo,
		levelDetector:   DetectSeverity, // Default severity detection
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultSeverity sets the severity for messages the detector does not classify
func WithDefaultSeverity(sev statuslog.Severity) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultSeverity = sev
	}
}

// WithLevelDetector sets a custom function to detect severity from message content
func WithLevelDetector(detector func(string) (statuslog.Severity, bool)) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	sev := a.defaultSeverity
	if a.levelDetector != nil {
		if detected, ok := a.levelDetector(msg); ok {
			sev = detected
		}
	}

	a.logger.LogDepth(sev, 1, "fasthttp: "+msg)
}

// DetectSeverity attempts to detect severity from message content
func DetectSeverity(msg string) (statuslog.Severity, bool) {
	msgLower := strings.ToLower(msg)

	// Check for error indicators
	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") ||
		strings.Contains(msgLower, "fatal") ||
		strings.Contains(msgLower, "panic") {
		return statuslog.SeverityError, true
	}

	// Check for warning indicators
	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "deprecated") {
		return statuslog.SeverityWarning, true
	}

	return statuslog.SeverityInfo, false
}
