package statuslog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lixenwraith/statuslog/formatter"
)

// newFallbackFormatter builds the formatter for lines logged before
// InitStatusLogger
func newFallbackFormatter(cfg *Config) *formatter.Formatter {
	return formatter.New().
		Type(cfg.Format).
		TimestampFormat(cfg.TimestampFormat)
}

// fallbackWriter maps the fallback_target key to a writer
func fallbackWriter(target string) io.Writer {
	switch target {
	case "stdout":
		return os.Stdout
	case "none":
		return io.Discard
	default:
		return os.Stderr
	}
}

// writeFallback formats a line to the fallback writer
func (l *Logger) writeFallback(line StatusLine) {
	w := l.state.FallbackWriter.Load().(*sink).w
	if w == io.Discard {
		return
	}

	l.fallbackMu.Lock()
	defer l.fallbackMu.Unlock()

	data := l.formatter.FormatStatus(0, line.Time, line.Severity.String(), line.Location(), line.Message)
	if l.formatter.Kind() == "raw" {
		data = append(data, '\n')
	}
	if _, err := w.Write(data); err != nil {
		l.internalLog("failed to write fallback status line: %v\n", err)
		return
	}
	l.state.FallbackLines.Add(1)
}

// formatPairs renders a message followed by key=value pairs
func formatPairs(message string, kv ...any) string {
	var sb strings.Builder
	sb.WriteString(message)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
	}
	return sb.String()
}

// internalLog handles writing internal logger diagnostics to stderr, if enabled
func (l *Logger) internalLog(format string, args ...any) {
	cfg := l.getConfig()
	if !cfg.InternalErrorsToStderr {
		return
	}

	// Ensure consistent "statuslog: " prefix
	if !strings.HasPrefix(format, errPrefix) {
		format = errPrefix + format
	}
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}

	fmt.Fprintf(os.Stderr, format, args...)
}
