package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/statuslog"
)

// Sink receives forwarded batches. *statuslog.Logger satisfies it.
type Sink interface {
	IngestStatuses(lines []statuslog.StatusLine)
	LogString(text, category string) error
}

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithMulticore runs one event loop per CPU
func WithMulticore(enable bool) ServerOption {
	return func(s *Server) {
		s.multicore = enable
	}
}

// WithServerLogger sets the logger gnet reports engine events to
func WithServerLogger(logger logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithWorkers sets how many goroutines run sink calls. Defaults to 64.
func WithWorkers(n int) ServerOption {
	return func(s *Server) {
		s.workers = n
	}
}

// WithRecentIDs sets how many batch IDs are remembered per source for
// de-duplication. Defaults to 4096.
func WithRecentIDs(n int) ServerOption {
	return func(s *Server) {
		s.recentIDs = n
	}
}

// WithReusePort sets SO_REUSEPORT on the listener
func WithReusePort(enable bool) ServerOption {
	return func(s *Server) {
		s.reusePort = enable
	}
}

// Server accepts forwarded batches over TCP or a unix socket and hands them to
// a Sink. Sink calls run on a worker pool, never on the event loops; batches
// from one connection are handled in arrival order. A batch whose ID was
// already ingested from the same source is acknowledged without being
// handled again.
type Server struct {
	gnet.BuiltinEventEngine

	addr      string
	sink      Sink
	logger    logging.Logger
	multicore bool
	reusePort bool
	workers   int
	recentIDs int

	pool   *ants.Pool
	seen   *idTracker
	eng    gnet.Engine
	booted chan struct{}

	batches    atomic.Uint64
	lines      atomic.Uint64
	rejects    atomic.Uint64
	duplicates atomic.Uint64
	conns      atomic.Int64
}

// connQueue holds decoded frames of one connection awaiting the sink
type connQueue struct {
	mu      sync.Mutex
	frames  []inbound
	running bool
}

type inbound struct {
	batch Batch
	err   error
}

// NewServer creates a server listening on addr, a gnet protocol address such
// as "tcp://127.0.0.1:9700" or "unix:///run/statuslog.sock"
func NewServer(addr string, sink Sink, opts ...ServerOption) *Server {
	s := &Server{
		addr:      addr,
		sink:      sink,
		workers:   defaultWorkers,
		recentIDs: defaultRecentIDs,
		booted:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seen = newIDTracker(s.recentIDs)
	return s
}

// Run starts the event loops and blocks until the server stops
func (s *Server) Run() error {
	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return err
	}
	s.pool = pool
	defer pool.Release()

	opts := []gnet.Option{
		gnet.WithMulticore(s.multicore),
		gnet.WithReusePort(s.reusePort),
		gnet.WithTCPKeepAlive(time.Minute),
	}
	if s.logger != nil {
		opts = append(opts, gnet.WithLogger(s.logger))
	}
	return gnet.Run(s, s.addr, opts...)
}

// Booted is closed once the server accepts connections
func (s *Server) Booted() <-chan struct{} {
	return s.booted
}

// Stop shuts the engine down, waiting for it to boot first if necessary
func (s *Server) Stop(ctx context.Context) error {
	select {
	case <-s.booted:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.eng.Stop(ctx)
}

// Stats returns the number of batches and status lines accepted, frames
// rejected, and currently open connections
func (s *Server) Stats() (batches, lines, rejects uint64, conns int64) {
	return s.batches.Load(), s.lines.Load(), s.rejects.Load(), s.conns.Load()
}

// Duplicates returns the number of re-sent batches acknowledged without
// being handled again
func (s *Server) Duplicates() uint64 {
	return s.duplicates.Load()
}

// OnBoot records the engine so Stop can reach it
func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.eng = eng
	close(s.booted)
	return gnet.None
}

// OnOpen counts the connection and gives it a frame queue
func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	s.conns.Add(1)
	c.SetContext(&connQueue{})
	return nil, gnet.None
}

// OnClose counts the disconnection
func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	s.conns.Add(-1)
	return gnet.None
}

// OnTraffic decodes every complete frame buffered on c and answers each
func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	for {
		buffered := c.InboundBuffered()
		if buffered < headerSize {
			return gnet.None
		}
		hdr, err := c.Peek(headerSize)
		if err != nil {
			return gnet.None
		}
		size, err := frameSize(hdr)
		if err != nil {
			s.rejects.Add(1)
			s.logf("closing %s: %v", c.RemoteAddr(), err)
			return gnet.Close
		}
		if buffered < headerSize+size {
			return gnet.None
		}

		frame, err := c.Peek(headerSize + size)
		if err != nil {
			return gnet.None
		}
		var in inbound
		in.err = decodeBody(frame[headerSize:], &in.batch)
		if _, err := c.Discard(headerSize + size); err != nil {
			return gnet.Close
		}
		if err := s.enqueue(c, in); err != nil {
			s.logf("closing %s: %v", c.RemoteAddr(), err)
			return gnet.Close
		}
	}
}

// enqueue queues a frame for c and starts a worker for the connection unless
// one is already draining its queue
func (s *Server) enqueue(c gnet.Conn, in inbound) error {
	q, ok := c.Context().(*connQueue)
	if !ok {
		return errors.New("relay: connection has no frame queue")
	}
	q.mu.Lock()
	q.frames = append(q.frames, in)
	if q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = true
	q.mu.Unlock()

	err := s.pool.Submit(func() { s.drain(c, q) })
	if err != nil {
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}
	return err
}

// drain handles queued frames of one connection in order, writing an ack for
// each
func (s *Server) drain(c gnet.Conn, q *connQueue) {
	for {
		q.mu.Lock()
		if len(q.frames) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		in := q.frames[0]
		q.frames = q.frames[1:]
		q.mu.Unlock()

		ack := s.handle(&in.batch, in.err)
		out, err := AppendFrame(nil, ack)
		if err != nil {
			s.logf("failed to encode ack for %s: %v", c.RemoteAddr(), err)
			continue
		}
		_ = c.AsyncWrite(out, nil)
	}
}

// handle dispatches one decoded batch to the sink
func (s *Server) handle(b *Batch, decodeErr error) Ack {
	ack := Ack{ID: b.ID}
	if decodeErr != nil {
		s.rejects.Add(1)
		ack.Error = decodeErr.Error()
		return ack
	}

	switch s.seen.begin(b.Source, b.ID) {
	case idDone:
		s.duplicates.Add(1)
		ack.OK = true
		return ack
	case idInFlight:
		ack.Error = errBatchInFlight.Error()
		return ack
	}

	err := s.dispatch(b)
	s.seen.finish(b.Source, b.ID, err == nil)
	if err != nil {
		if errors.Is(err, errUnknownKind) {
			s.rejects.Add(1)
		}
		ack.Error = err.Error()
		return ack
	}

	s.batches.Add(1)
	ack.OK = true
	return ack
}

func (s *Server) dispatch(b *Batch) error {
	switch b.Kind {
	case KindStatus:
		lines := clampSeverities(b.Lines)
		s.sink.IngestStatuses(lines)
		s.lines.Add(uint64(len(lines)))
		return nil
	case KindString:
		return s.sink.LogString(b.Text, b.Category)
	default:
		return errUnknownKind
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warnf(format, args...)
	}
}

// clampSeverities returns a copy of lines with every severity within the
// four fixed levels
func clampSeverities(lines []statuslog.StatusLine) []statuslog.StatusLine {
	out := make([]statuslog.StatusLine, len(lines))
	for i, line := range lines {
		line.Severity = line.Severity.Clamp()
		out[i] = line
	}
	return out
}

const (
	defaultWorkers   = 64
	defaultRecentIDs = 4096
)

var (
	errUnknownKind   = errors.New("relay: unknown batch kind")
	errBatchInFlight = errors.New("relay: batch is still being handled")
)
