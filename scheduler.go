package statuslog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
)

// Delivery is the outcome of relaying one batch
type Delivery struct {
	Lines    []StatusLine
	Targets  int
	Accepted int // receivers that returned without error
	Err      error
}

// ShutdownReport describes what the scheduler left behind when it stopped
type ShutdownReport struct {
	Completed    bool // every in-flight sender finished before the deadline
	Senders      int  // senders still running at the deadline
	DroppedLines int  // lines held by those senders, counted as forced drops
	PendingLines int  // lines still queued for relay when the logger stopped
}

// printfLogger adapts a printf-style function to ants.Logger
type printfLogger func(format string, args ...any)

func (f printfLogger) Printf(format string, args ...any) {
	f(format, args...)
}

// RelayScheduler delivers status batches to receivers, either inline or
// through a bounded pool of sender tasks. It never retries.
type RelayScheduler struct {
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc

	admitMu sync.RWMutex // serializes admission against Shutdown
	closed  atomic.Bool
	wg      sync.WaitGroup

	senders     atomic.Int64  // in-flight sender tasks
	senderLines atomic.Int64  // lines held by in-flight sender tasks
	forcedDrops atomic.Uint64 // lines abandoned by a timed-out shutdown
}

// NewRelayScheduler creates a scheduler running at most size concurrent
// sender tasks. logf receives pool diagnostics and may be nil.
func NewRelayScheduler(size int, logf func(format string, args ...any)) (*RelayScheduler, error) {
	if size <= 0 {
		return nil, fmtErrorf("sender pool size must be positive: %d", size)
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	pool, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithLogger(printfLogger(logf)),
		ants.WithPanicHandler(func(p any) {
			logf("sender task panic: %v\n", p)
		}),
	)
	if err != nil {
		return nil, fmtErrorf("failed to create sender pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RelayScheduler{
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Relay delivers lines to targets. With async=false the delivery runs on the
// calling goroutine and its aggregated error is returned. With async=true a
// sender task is queued and Relay returns at once; done, if set, observes the
// outcome before the task stops being counted.
func (s *RelayScheduler) Relay(ctx context.Context, lines []StatusLine, targets []Target, async bool, done func(Delivery)) error {
	if !async {
		d := s.Deliver(ctx, lines, targets)
		if done != nil {
			done(d)
		}
		return d.Err
	}
	return s.Submit(lines, targets, done)
}

// Deliver sends lines to every target on the calling goroutine. Every target
// is attempted; failures and panics are aggregated.
func (s *RelayScheduler) Deliver(ctx context.Context, lines []StatusLine, targets []Target) Delivery {
	d := Delivery{Lines: lines, Targets: len(targets)}
	for _, t := range targets {
		r := t.Receiver
		err := callReceiver(t.Name, func() error {
			return r.LogStatus(ctx, lines)
		})
		if err != nil {
			d.Err = multierr.Append(d.Err, err)
			continue
		}
		d.Accepted++
	}
	return d
}

// Submit queues one sender task for the batch
func (s *RelayScheduler) Submit(lines []StatusLine, targets []Target, done func(Delivery)) error {
	s.admitMu.RLock()
	defer s.admitMu.RUnlock()
	if s.closed.Load() {
		return ErrSchedulerClosed
	}

	n := int64(len(lines))
	s.senders.Add(1)
	s.senderLines.Add(n)
	s.wg.Add(1)

	err := s.pool.Submit(func() {
		defer func() {
			s.senderLines.Add(-n)
			s.senders.Add(-1)
			s.wg.Done()
		}()
		d := s.Deliver(s.ctx, lines, targets)
		if done != nil {
			done(d)
		}
	})
	if err != nil {
		s.senderLines.Add(-n)
		s.senders.Add(-1)
		s.wg.Done()
		switch {
		case errors.Is(err, ants.ErrPoolOverload):
			return ErrSchedulerBusy
		case errors.Is(err, ants.ErrPoolClosed):
			return ErrSchedulerClosed
		default:
			return fmtErrorf("failed to submit sender task: %w", err)
		}
	}
	return nil
}

// Tune changes the maximum number of concurrent sender tasks
func (s *RelayScheduler) Tune(size int) {
	if size > 0 && !s.closed.Load() {
		s.pool.Tune(size)
	}
}

// Senders returns the number of in-flight sender tasks
func (s *RelayScheduler) Senders() int {
	return int(s.senders.Load())
}

// SenderLines returns the number of lines held by in-flight sender tasks
func (s *RelayScheduler) SenderLines() int {
	return int(s.senderLines.Load())
}

// ForcedDrops returns the lines abandoned by a timed-out shutdown
func (s *RelayScheduler) ForcedDrops() uint64 {
	return s.forcedDrops.Load()
}

// Closed reports whether Shutdown was called
func (s *RelayScheduler) Closed() bool {
	return s.closed.Load()
}

// Shutdown stops admission and waits up to timeout for in-flight senders.
// Senders still running at the deadline have their context cancelled and
// their lines are reported as dropped. Safe to call multiple times.
func (s *RelayScheduler) Shutdown(timeout time.Duration) ShutdownReport {
	s.admitMu.Lock()
	already := s.closed.Swap(true)
	s.admitMu.Unlock()
	if already {
		return ShutdownReport{Completed: s.Senders() == 0, Senders: s.Senders(), DroppedLines: 0}
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	report := ShutdownReport{Completed: true}
	if timeout > 0 {
		select {
		case <-finished:
		case <-time.After(timeout):
			report.Completed = false
		}
	} else {
		select {
		case <-finished:
		default:
			report.Completed = false
		}
	}

	if !report.Completed {
		report.Senders = s.Senders()
		report.DroppedLines = s.SenderLines()
		if report.Senders == 0 {
			// Finished between the deadline and the snapshot
			report.Completed = true
		}
		s.forcedDrops.Add(uint64(report.DroppedLines))
	}

	s.cancel()
	s.pool.Release()
	return report
}

// callReceiver runs fn, converting an error or panic into a *ReceiverError
func callReceiver(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ReceiverError{Name: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if e := fn(); e != nil {
		return &ReceiverError{Name: name, Err: e}
	}
	return nil
}
