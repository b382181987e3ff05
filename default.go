package statuslog

import (
	"fmt"
	"time"
)

// Global instance for package-level functions
var defaultLogger = NewLogger(nil)

// Default returns the package-level logger
func Default() *Logger {
	return defaultLogger
}

// Receivers returns the registry of the package-level logger
func Receivers() *ReceiverSet {
	return defaultLogger.registry.(*ReceiverSet)
}

// ApplyConfig applies a configuration to the package-level logger
func ApplyConfig(cfg *Config) error {
	return defaultLogger.ApplyConfig(cfg)
}

// InitStatusLogger starts buffering status lines on the package-level logger
func InitStatusLogger(name string) {
	defaultLogger.InitStatusLogger(name)
}

// InitLogger switches the package-level logger to direct routing
func InitLogger(name string) error {
	return defaultLogger.InitLogger(name)
}

// LogString routes text to every active receiver
func LogString(text, category string) error {
	return defaultLogger.LogString(text, category)
}

// LogStringTo routes text to the named receiver
func LogStringTo(text, category, receiver string) error {
	return defaultLogger.LogStringTo(text, category, receiver)
}

// LogQueryLogItem routes a query result to every active receiver
func LogQueryLogItem(item *QueryLogItem) error {
	return defaultLogger.LogQueryLogItem(item)
}

// LogQueryLogItemTo routes a query result to the named receiver
func LogQueryLogItemTo(item *QueryLogItem, receiver string) error {
	return defaultLogger.LogQueryLogItemTo(item, receiver)
}

// LogSnapshotQuery routes snapshot results to every active receiver
func LogSnapshotQuery(item *QueryLogItem) error {
	return defaultLogger.LogSnapshotQuery(item)
}

// RelayStatusLogs pushes pending status lines to the active receivers
func RelayStatusLogs(async bool) error {
	return defaultLogger.RelayStatusLogs(async)
}

// QueuedStatuses returns the number of status lines awaiting delivery
func QueuedStatuses() int {
	return defaultLogger.QueuedStatuses()
}

// QueuedSenders returns the number of in-flight asynchronous sender tasks
func QueuedSenders() int {
	return defaultLogger.QueuedSenders()
}

// SystemLog writes line to the platform log facility
func SystemLog(line string) {
	defaultLogger.SystemLog(line)
}

// Shutdown stops the package-level logger
func Shutdown(timeout time.Duration) (ShutdownReport, error) {
	return defaultLogger.Shutdown(timeout)
}

// Info logs a status line at info severity
func Info(args ...any) {
	defaultLogger.log(SeverityInfo, callerSkip, buildMessage(args))
}

// Warning logs a status line at warning severity
func Warning(args ...any) {
	defaultLogger.log(SeverityWarning, callerSkip, buildMessage(args))
}

// Error logs a status line at error severity
func Error(args ...any) {
	defaultLogger.log(SeverityError, callerSkip, buildMessage(args))
}

// Infof logs a formatted status line at info severity
func Infof(format string, args ...any) {
	defaultLogger.log(SeverityInfo, callerSkip, fmt.Sprintf(format, args...))
}

// Warningf logs a formatted status line at warning severity
func Warningf(format string, args ...any) {
	defaultLogger.log(SeverityWarning, callerSkip, fmt.Sprintf(format, args...))
}

// Errorf logs a formatted status line at error severity
func Errorf(format string, args ...any) {
	defaultLogger.log(SeverityError, callerSkip, fmt.Sprintf(format, args...))
}
