package statuslog

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// State encapsulates the runtime state of the logger
type State struct {
	StatusInitialized atomic.Bool // InitStatusLogger ran
	Direct            atomic.Bool // InitLogger ran; status lines bypass the buffered sink
	ShutdownCalled    atomic.Bool

	FallbackWriter atomic.Value // stores *sink

	// Relay statistics
	HeartbeatSequence  atomic.Uint64 // Counter for heartbeat sequence numbers
	LoggerStartTime    atomic.Value  // Stores time.Time for uptime calculation
	LinesRelayed       atomic.Uint64 // Lines accepted by at least one receiver
	LinesUnrouted      atomic.Uint64 // Lines relayed while no receiver was active
	PendingDiscarded   atomic.Uint64 // Lines evicted from a full pending queue
	RelayFailures      atomic.Uint64 // Batches with at least one failed receiver
	FallbackLines      atomic.Uint64 // Lines written to the fallback writer
	DroppedSinceReport atomic.Uint64 // Pending evictions since the last heartbeat
}

// sink is a wrapper around an io.Writer, atomic value type change workaround
type sink struct {
	w io.Writer
}

// Stats is a point-in-time snapshot of the logger's counters
type Stats struct {
	SinkState        SinkState
	Buffered         int    // lines held by the buffered sink
	BufferDiscarded  uint64 // lines evicted from the buffered sink
	Pending          int    // lines waiting for relay
	PendingDiscarded uint64
	Senders          int // in-flight async sender tasks
	SenderLines      int
	ForcedDrops      uint64
	Relayed          uint64
	Unrouted         uint64
	RelayFailures    uint64
	FallbackLines    uint64
}

// Stats returns a snapshot of the logger's counters
func (l *Logger) Stats() Stats {
	s := l.getSink()
	return Stats{
		SinkState:        s.State(),
		Buffered:         s.Count(),
		BufferDiscarded:  s.Discarded(),
		Pending:          l.pendingLen(),
		PendingDiscarded: l.state.PendingDiscarded.Load(),
		Senders:          l.scheduler.Senders(),
		SenderLines:      l.scheduler.SenderLines(),
		ForcedDrops:      l.scheduler.ForcedDrops(),
		Relayed:          l.state.LinesRelayed.Load(),
		Unrouted:         l.state.LinesUnrouted.Load(),
		RelayFailures:    l.state.RelayFailures.Load(),
		FallbackLines:    l.state.FallbackLines.Load(),
	}
}

// Shutdown stops the timers, makes a final synchronous relay of pending lines,
// then waits up to timeout for in-flight sender tasks. Without a timeout the
// configured shutdown_timeout_ms applies. The report counts every line that
// could not be delivered; the error is non-nil when lines were dropped.
func (l *Logger) Shutdown(timeout ...time.Duration) (ShutdownReport, error) {
	if !l.state.ShutdownCalled.CompareAndSwap(false, true) {
		return ShutdownReport{Completed: true}, nil
	}

	l.stopTimers()

	c := l.getConfig()
	var effectiveTimeout time.Duration
	if len(timeout) > 0 {
		effectiveTimeout = timeout[0]
	} else {
		effectiveTimeout = time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
	}

	var finalErr error

	// Senders first, so the final relay sees lines re-queued by failed tasks
	report := l.scheduler.Shutdown(effectiveTimeout)
	if !report.Completed {
		finalErr = multierr.Append(finalErr, fmtErrorf("%d sender tasks still in flight after %v, %d lines dropped",
			report.Senders, effectiveTimeout, report.DroppedLines))
	}

	if l.state.Direct.Load() && !c.Disabled {
		ctx := context.Background()
		if effectiveTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, effectiveTimeout)
			defer cancel()
		}
		if err := l.relayExplicit(ctx, false); err != nil {
			finalErr = multierr.Append(finalErr, err)
		}
	}
	finalErr = multierr.Append(finalErr, l.takeRelayErr())

	if left := l.pendingLen(); left > 0 {
		report.PendingLines = left
		finalErr = multierr.Append(finalErr, fmtErrorf("%d status lines left undelivered at shutdown", left))
	}

	return report, finalErr
}
