package receiver

import (
	"context"
	"sync"

	"github.com/lixenwraith/statuslog"
)

// Memory records everything it receives. It is meant for tests and for
// embedding processes that inspect their own logs.
type Memory struct {
	mu        sync.Mutex
	name      string
	inits     int
	initLines []statuslog.StatusLine
	statuses  []statuslog.StatusLine
	strings   []string
	snapshots []string
	err       error
}

// NewMemory creates an empty recorder
func NewMemory() *Memory {
	return &Memory{}
}

// SetError makes every subsequent Log call record its input and return err.
// A nil err restores success.
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Init implements statuslog.Receiver
func (m *Memory) Init(name string, lines []statuslog.StatusLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	m.inits++
	m.initLines = append(m.initLines, lines...)
}

// LogString implements statuslog.Receiver
func (m *Memory) LogString(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings = append(m.strings, text)
	return m.err
}

// LogSnapshot implements statuslog.SnapshotReceiver
func (m *Memory) LogSnapshot(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, text)
	return m.err
}

// LogStatus implements statuslog.Receiver
func (m *Memory) LogStatus(_ context.Context, lines []statuslog.StatusLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, lines...)
	return m.err
}

// Name returns the process name passed to Init
func (m *Memory) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// InitCount returns how many times Init ran
func (m *Memory) InitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits
}

// InitLines returns the lines passed to Init
func (m *Memory) InitLines() []statuslog.StatusLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statuslog.StatusLine(nil), m.initLines...)
}

// Statuses returns the lines passed to LogStatus
func (m *Memory) Statuses() []statuslog.StatusLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statuslog.StatusLine(nil), m.statuses...)
}

// Strings returns the texts passed to LogString
func (m *Memory) Strings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.strings...)
}

// Snapshots returns the texts passed to LogSnapshot
func (m *Memory) Snapshots() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.snapshots...)
}
