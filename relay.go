package statuslog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
)

// Cap on relay errors kept for the next RelayStatusLogs call
const maxStoredRelayErrors = 16

// enqueuePending appends lines to the pending relay queue, evicting the
// oldest lines when full
func (l *Logger) enqueuePending(lines ...StatusLine) {
	l.pendingMu.Lock()
	dropped := 0
	for _, line := range lines {
		dropped += l.pending.push(line)
	}
	l.pendingMu.Unlock()
	l.countPendingDrops(dropped)
}

// requeuePending puts undelivered lines back at the head of the queue
func (l *Logger) requeuePending(lines []StatusLine) {
	if len(lines) == 0 {
		return
	}
	l.pendingMu.Lock()
	dropped := l.pending.pushFront(lines)
	l.pendingMu.Unlock()
	l.countPendingDrops(dropped)
}

func (l *Logger) takePending() []StatusLine {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	return l.pending.take()
}

func (l *Logger) pendingLen() int {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	return l.pending.len()
}

func (l *Logger) resizePending(capacity int) {
	l.pendingMu.Lock()
	lines := l.pending.take()
	l.pending = newLineQueue(capacity)
	dropped := l.pending.pushFront(lines)
	l.pendingMu.Unlock()
	l.countPendingDrops(dropped)
}

func (l *Logger) countPendingDrops(n int) {
	if n > 0 {
		l.state.PendingDiscarded.Add(uint64(n))
		l.state.DroppedSinceReport.Add(uint64(n))
	}
}

// relayAuto drains pending lines unless another goroutine already is. A
// goroutine that loses the race leaves its lines to the active relayer, which
// re-checks the queue after releasing the relay lock.
func (l *Logger) relayAuto(ctx context.Context, async bool) error {
	var errs error
	for {
		if !l.relayMu.TryLock() {
			return errs
		}
		settled, err := l.drainPending(ctx, async)
		l.relayMu.Unlock()

		errs = multierr.Append(errs, err)
		if !settled || l.pendingLen() == 0 {
			return errs
		}
	}
}

// relayExplicit drains pending lines, waiting for any active relayer first.
// Receivers must not call it from LogStatus.
func (l *Logger) relayExplicit(ctx context.Context, async bool) error {
	l.relayMu.Lock()
	defer l.relayMu.Unlock()
	_, err := l.drainPending(ctx, async)
	return err
}

// drainPending relays pending batches until the queue is observed empty, a
// batch is re-queued, or the round limit is reached. Reports whether it
// stopped on an empty queue. Assumes relayMu is held.
func (l *Logger) drainPending(ctx context.Context, async bool) (bool, error) {
	var errs error
	for round := 0; round < maxRelayRounds; round++ {
		lines := l.takePending()
		if len(lines) == 0 {
			return true, errs
		}
		requeued, err := l.relayBatch(ctx, lines, async)
		errs = multierr.Append(errs, err)
		if requeued {
			return false, errs
		}
	}
	return false, errs
}

// relayBatch hands one batch to the scheduler. Reports whether the batch went
// back to the pending queue.
func (l *Logger) relayBatch(ctx context.Context, lines []StatusLine, async bool) (bool, error) {
	cfg := l.getConfig()

	targets := l.activeTargets()
	if len(targets) == 0 {
		if cfg.ForwardRequired {
			l.requeuePending(lines)
			return true, ErrNoForwardTarget
		}
		l.state.LinesUnrouted.Add(uint64(len(lines)))
		return false, nil
	}

	if async {
		err := l.scheduler.Submit(lines, targets, l.onDelivery)
		switch {
		case err == nil:
			return false, nil
		case errors.Is(err, ErrSchedulerBusy):
			l.requeuePending(lines)
			l.scheduleRetry()
			return true, err
		}
		// Closed scheduler: deliver inline
	}

	d := l.scheduler.Deliver(ctx, lines, targets)
	return l.settle(d), d.Err
}

// scheduleRetry relays pending lines again shortly after a busy sender pool
// refused a batch. At most one retry is armed at a time; a retry that finds
// the pool still busy arms the next one.
func (l *Logger) scheduleRetry() {
	if !l.retryArmed.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(minWaitTime, func() {
		l.retryArmed.Store(false)
		if l.state.ShutdownCalled.Load() || !l.state.Direct.Load() {
			return
		}
		cfg := l.getConfig()
		if cfg.Disabled {
			return
		}
		if err := l.relayAuto(l.scheduler.ctx, cfg.AsyncStatus); err != nil && !errors.Is(err, ErrSchedulerBusy) {
			l.recordRelayErr(err)
		}
	})
}

// settle records a delivery outcome. A batch no receiver accepted is
// re-queued when forwarding is required. Reports whether it was re-queued.
func (l *Logger) settle(d Delivery) bool {
	if d.Err != nil {
		l.state.RelayFailures.Add(1)
	}
	if d.Accepted > 0 {
		l.state.LinesRelayed.Add(uint64(len(d.Lines)))
		l.reportDrops()
		return false
	}
	if l.getConfig().ForwardRequired {
		l.requeuePending(d.Lines)
		return true
	}
	return false
}

// onDelivery observes asynchronous sender task outcomes
func (l *Logger) onDelivery(d Delivery) {
	l.settle(d)
	if d.Err != nil {
		l.recordRelayErr(d.Err)
	}
}

// reportDrops queues a warning line counting pending evictions since the
// last report, once a delivery proves receivers are reachable
func (l *Logger) reportDrops() {
	dropped := l.state.DroppedSinceReport.Swap(0)
	if dropped == 0 {
		return
	}
	line := NewStatusLine(SeverityWarning, "statuslog", 0,
		formatPairs("status lines were dropped", "dropped_count", dropped))
	l.enqueuePending(line)
}

// recordRelayErr keeps err for the next RelayStatusLogs call
func (l *Logger) recordRelayErr(err error) {
	l.relayErrMu.Lock()
	defer l.relayErrMu.Unlock()
	if len(l.relayErrs) >= maxStoredRelayErrors {
		l.relayErrsLost++
		return
	}
	l.relayErrs = append(l.relayErrs, err)
}

// takeRelayErr returns and clears the recorded relay errors
func (l *Logger) takeRelayErr() error {
	l.relayErrMu.Lock()
	defer l.relayErrMu.Unlock()
	err := multierr.Combine(l.relayErrs...)
	if l.relayErrsLost > 0 {
		err = multierr.Append(err, fmtErrorf("%d further relay errors not retained", l.relayErrsLost))
	}
	l.relayErrs = nil
	l.relayErrsLost = 0
	return err
}
