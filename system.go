package statuslog

import (
	"sync"

	"github.com/coreos/go-systemd/v22/journal"
)

// SystemLogSink is the platform log facility. Writes are best-effort and
// report nothing.
type SystemLogSink interface {
	Write(line string)
}

// SystemLogFunc adapts a function to SystemLogSink
type SystemLogFunc func(line string)

// Write implements SystemLogSink
func (f SystemLogFunc) Write(line string) {
	f(line)
}

// systemLogSink writes to the systemd journal when it is reachable and to
// the platform syslog otherwise. The backend is chosen on first write.
type systemLogSink struct {
	tag  string
	once sync.Once
	mu   sync.Mutex
	send func(line string)
	stop func() error
}

func newSystemLogSink(tag string) *systemLogSink {
	return &systemLogSink{tag: tag}
}

// Write implements SystemLogSink
func (s *systemLogSink) Write(line string) {
	s.once.Do(s.open)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.send != nil {
		s.send(line)
	}
}

// Close releases the platform connection, if any
func (s *systemLogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = nil
	if s.stop != nil {
		err := s.stop()
		s.stop = nil
		return err
	}
	return nil
}

func (s *systemLogSink) open() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if journal.Enabled() {
		vars := map[string]string{"SYSLOG_IDENTIFIER": s.tag}
		s.send = func(line string) {
			_ = journal.Send(line, journal.PriNotice, vars)
		}
		return
	}
	s.send, s.stop = openPlatformLog(s.tag)
}
