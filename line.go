package statuslog

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Severity is the ordered level of a status line
type Severity int32

// String returns the upper-case severity name
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("SEVERITY(%d)", int32(s))
	}
}

// Valid reports whether s is one of the four fixed levels
func (s Severity) Valid() bool {
	return s >= SeverityInfo && s <= SeverityFatal
}

// Clamp returns the nearest of the four fixed levels
func (s Severity) Clamp() Severity {
	switch {
	case s < SeverityInfo:
		return SeverityInfo
	case s > SeverityFatal:
		return SeverityFatal
	}
	return s
}

// StatusLine is one diagnostic event. It is a value type and is never mutated
// after construction.
type StatusLine struct {
	Severity Severity  `cbor:"1,keyasint" json:"severity"`
	Filename string    `cbor:"2,keyasint" json:"filename"`
	Line     uint32    `cbor:"3,keyasint" json:"line"`
	Message  string    `cbor:"4,keyasint" json:"message"`
	Time     time.Time `cbor:"5,keyasint" json:"time"`
}

// NewStatusLine builds a line stamped with the current time. Out-of-range
// severities are clamped to the nearest valid level.
func NewStatusLine(severity Severity, filename string, line uint32, message string) StatusLine {
	return StatusLine{
		Severity: severity.Clamp(),
		Filename: filename,
		Line:     line,
		Message:  message,
		Time:     time.Now(),
	}
}

// Location returns "file:line"
func (s StatusLine) Location() string {
	return fmt.Sprintf("%s:%d", s.Filename, s.Line)
}

// getCaller returns the base file name and line of the frame skip levels above
// its caller
func getCaller(skip int) (string, uint32) {
	_, file, line, ok := runtime.Caller(skip + 1) // +1 for getCaller itself
	if !ok {
		return "(unknown)", 0
	}
	return filepath.Base(file), uint32(line)
}

// buildMessage joins args the way fmt.Sprintln does, without the newline
func buildMessage(args []any) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
