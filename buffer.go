package statuslog

import (
	"sync"
	"sync/atomic"
)

// SinkState is the lifecycle state of a BufferedSink
type SinkState int32

const (
	SinkInactive SinkState = iota
	SinkBuffering
	SinkDraining
	SinkDisabled
)

// String returns the state name
func (s SinkState) String() string {
	switch s {
	case SinkInactive:
		return "inactive"
	case SinkBuffering:
		return "buffering"
	case SinkDraining:
		return "draining"
	case SinkDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// lineQueue is a bounded FIFO ring of status lines that evicts the oldest
// entry on overflow. It is not safe for concurrent use.
type lineQueue struct {
	buf  []StatusLine
	head int
	size int
}

func newLineQueue(capacity int) lineQueue {
	if capacity < 1 {
		capacity = 1
	}
	return lineQueue{buf: make([]StatusLine, capacity)}
}

// push appends line and returns the number of evicted entries (0 or 1)
func (q *lineQueue) push(line StatusLine) int {
	c := len(q.buf)
	if q.size < c {
		q.buf[(q.head+q.size)%c] = line
		q.size++
		return 0
	}
	q.buf[q.head] = line
	q.head = (q.head + 1) % c
	return 1
}

// pushFront puts lines back at the head, preserving their order. Lines that
// do not fit are dropped from the front of the combined sequence, so the
// newest entries survive. Returns the number of dropped entries.
func (q *lineQueue) pushFront(lines []StatusLine) int {
	if len(lines) == 0 {
		return 0
	}
	combined := make([]StatusLine, 0, len(lines)+q.size)
	combined = append(combined, lines...)
	combined = append(combined, q.take()...)
	dropped := 0
	if len(combined) > len(q.buf) {
		dropped = len(combined) - len(q.buf)
		combined = combined[dropped:]
	}
	copy(q.buf, combined)
	q.head = 0
	q.size = len(combined)
	return dropped
}

// take removes and returns every held line in FIFO order
func (q *lineQueue) take() []StatusLine {
	if q.size == 0 {
		return nil
	}
	out := make([]StatusLine, q.size)
	c := len(q.buf)
	for i := 0; i < q.size; i++ {
		idx := (q.head + i) % c
		out[i] = q.buf[idx]
		q.buf[idx] = StatusLine{}
	}
	q.head = 0
	q.size = 0
	return out
}

func (q *lineQueue) len() int {
	return q.size
}

// BufferedSink holds status lines produced before any receiver is ready.
// Lines drain exactly once; afterwards the sink is disabled and only its
// counters remain meaningful.
type BufferedSink struct {
	mu        sync.Mutex
	state     SinkState
	queue     lineQueue
	count     atomic.Int64
	appended  atomic.Uint64
	discarded atomic.Uint64
}

// NewBufferedSink creates an inactive sink holding at most capacity lines
func NewBufferedSink(capacity int) *BufferedSink {
	return &BufferedSink{
		state: SinkInactive,
		queue: newLineQueue(capacity),
	}
}

// Activate moves an inactive sink into buffering. Returns true if this call
// performed the transition.
func (s *BufferedSink) Activate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SinkInactive {
		return false
	}
	s.state = SinkBuffering
	return true
}

// Append stores line if the sink is buffering, evicting the oldest line when
// full. Returns false when the line was not accepted and must be routed by the
// caller.
func (s *BufferedSink) Append(line StatusLine) bool {
	return s.tryAppend(line) == SinkBuffering
}

// tryAppend appends under the lock and returns the state it observed
func (s *BufferedSink) tryAppend(line StatusLine) SinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SinkBuffering {
		return s.state
	}
	if evicted := s.queue.push(line); evicted > 0 {
		s.discarded.Add(uint64(evicted))
	}
	s.appended.Add(1)
	s.count.Store(int64(s.queue.len()))
	return SinkBuffering
}

// DrainOnce returns every held line in FIFO order and disables the sink.
// Subsequent calls return an empty slice.
func (s *BufferedSink) DrainOnce() []StatusLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SinkDisabled {
		return []StatusLine{}
	}
	s.state = SinkDraining
	lines := s.queue.take()
	if lines == nil {
		lines = []StatusLine{}
	}
	s.count.Store(0)
	s.state = SinkDisabled
	return lines
}

// Capacity returns the maximum number of held lines
func (s *BufferedSink) Capacity() int {
	return len(s.queue.buf)
}

// Count returns the number of held lines
func (s *BufferedSink) Count() int {
	return int(s.count.Load())
}

// Discarded returns the number of lines evicted by overflow
func (s *BufferedSink) Discarded() uint64 {
	return s.discarded.Load()
}

// Appended returns the number of lines ever accepted
func (s *BufferedSink) Appended() uint64 {
	return s.appended.Load()
}

// State returns the current lifecycle state
func (s *BufferedSink) State() SinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
