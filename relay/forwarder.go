package relay

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/statuslog"
)

const (
	defaultForwardTimeout = 5 * time.Second
	maxUnackedLines       = 10000
)

// Forwarder is a statuslog receiver that sends everything it gets to a relay
// Server in another process. It dials lazily and redials after any failure.
//
// Status batches that are not acknowledged keep their IDs and are re-sent, in
// order and ahead of anything newer, until the server acknowledges them. The
// server recognizes the IDs, so a batch whose ack was lost is not ingested
// twice.
type Forwarder struct {
	network string
	addr    string
	timeout time.Duration

	mu      sync.Mutex
	conn    net.Conn
	source  string
	unacked []*Batch // status batches awaiting an ack, oldest first
}

// NewForwarder creates a forwarder for a server at addr. network is "tcp" or
// "unix". A zero timeout selects a 5 second default.
func NewForwarder(network, addr string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = defaultForwardTimeout
	}
	return &Forwarder{network: network, addr: addr, timeout: timeout}
}

// Init records the process name and forwards lines buffered before
// InitLogger. Lines the server does not acknowledge are retried ahead of the
// next status batch.
func (f *Forwarder) Init(name string, lines []statuslog.StatusLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = name
	if len(lines) == 0 {
		return
	}

	f.holdLocked(f.batchLocked(KindStatus, lines, true))
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	_, _ = f.flushLocked(ctx)
}

// LogStatus forwards lines, preceded by any unacknowledged batches. Lines of
// those batches that come back in lines, as when the logger re-queues a failed
// delivery, are not sent twice. Once some batch is acknowledged the call
// succeeds; batches still unacknowledged stay with the forwarder.
func (f *Forwarder) LogStatus(ctx context.Context, lines []statuslog.StatusLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines = lines[overlap(f.unackedLinesLocked(), lines):]
	if len(lines) > 0 {
		f.holdLocked(f.batchLocked(KindStatus, lines, false))
	}
	progress, err := f.flushLocked(ctx)
	if err != nil && !progress {
		return err
	}
	return nil
}

// Flush re-sends unacknowledged status batches
func (f *Forwarder) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.flushLocked(ctx)
	return err
}

// Unacked returns the number of status lines awaiting an ack
func (f *Forwarder) Unacked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unackedLinesLocked())
}

// holdLocked queues b for delivery, evicting the oldest batches beyond
// maxUnackedLines
func (f *Forwarder) holdLocked(b *Batch) {
	f.unacked = append(f.unacked, b)
	total := len(f.unackedLinesLocked())
	for total > maxUnackedLines && len(f.unacked) > 1 {
		total -= len(f.unacked[0].Lines)
		f.unacked = f.unacked[1:]
	}
}

// flushLocked sends unacknowledged batches in order until one fails. Reports
// whether any batch was acknowledged.
func (f *Forwarder) flushLocked(ctx context.Context) (bool, error) {
	progress := false
	for len(f.unacked) > 0 {
		if err := f.roundTripLocked(ctx, f.unacked[0]); err != nil {
			return progress, err
		}
		f.unacked = f.unacked[1:]
		progress = true
	}
	return progress, nil
}

func (f *Forwarder) unackedLinesLocked() []statuslog.StatusLine {
	var lines []statuslog.StatusLine
	for _, b := range f.unacked {
		lines = append(lines, b.Lines...)
	}
	return lines
}

// overlap returns the length of the longest suffix of sent that is a prefix
// of lines
func overlap(sent, lines []statuslog.StatusLine) int {
	n := min(len(sent), len(lines))
	for k := n; k > 0; k-- {
		if slices.Equal(sent[len(sent)-k:], lines[:k]) {
			return k
		}
	}
	return 0
}

// LogString forwards a result string in the event category
func (f *Forwarder) LogString(ctx context.Context, text string) error {
	return f.sendText(ctx, text, statuslog.CategoryEvent)
}

// LogSnapshot forwards a result string in the snapshot category
func (f *Forwarder) LogSnapshot(ctx context.Context, text string) error {
	return f.sendText(ctx, text, statuslog.CategorySnapshot)
}

// Close drops the connection. A later send redials.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropLocked()
}

func (f *Forwarder) sendText(ctx context.Context, text, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.batchLocked(KindString, nil, false)
	b.Text = text
	b.Category = category
	return f.roundTripLocked(ctx, b)
}

func (f *Forwarder) batchLocked(kind Kind, lines []statuslog.StatusLine, init bool) *Batch {
	return &Batch{
		ID:     uuid.NewString(),
		Source: f.source,
		Kind:   kind,
		Lines:  lines,
		Init:   init,
	}
}

// roundTripLocked sends b and waits for its ack
func (f *Forwarder) roundTripLocked(ctx context.Context, b *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(f.timeout)
	}

	if f.conn == nil {
		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, f.network, f.addr)
		if err != nil {
			return fmt.Errorf("relay: failed to dial %s: %w", f.addr, err)
		}
		f.conn = conn
	}

	if err := f.conn.SetDeadline(deadline); err != nil {
		_ = f.dropLocked()
		return err
	}
	if err := WriteFrame(f.conn, b); err != nil {
		_ = f.dropLocked()
		return fmt.Errorf("relay: failed to send batch: %w", err)
	}
	var ack Ack
	if err := ReadFrame(f.conn, &ack); err != nil {
		_ = f.dropLocked()
		return fmt.Errorf("relay: failed to read ack: %w", err)
	}

	if ack.ID != b.ID {
		// Out of step with the server; start over on a fresh connection
		_ = f.dropLocked()
		return fmt.Errorf("relay: ack for %q does not match batch %q", ack.ID, b.ID)
	}
	if !ack.OK {
		return fmt.Errorf("relay: server rejected batch: %s", ack.Error)
	}
	return nil
}

func (f *Forwarder) dropLocked() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}

var (
	_ statuslog.Receiver         = (*Forwarder)(nil)
	_ statuslog.SnapshotReceiver = (*Forwarder)(nil)
)
