package statuslog

import (
	"time"
)

// Severity levels for status lines, ordered INFO < WARNING < ERROR < FATAL
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Categories passed alongside strings routed to receivers
const (
	CategoryEvent    = "event"
	CategorySnapshot = "snapshot"
	CategoryStatus   = "status"
)

// Relay
const (
	// Upper bound on consecutive drain rounds a single relayer performs before
	// leaving the remainder for the next trigger
	maxRelayRounds = 16
	// Frames between getCaller and the user's call site (Info -> log -> getCaller)
	callerSkip = 2
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
)
