package statuslog

import (
	"context"
	"sort"
	"sync"
)

// Receiver is a named logging backend. Receivers are not owned by the Logger;
// they are resolved by name through a Registry on every call.
// Implementations must be safe for concurrent use.
type Receiver interface {
	// LogString delivers one result string
	LogString(ctx context.Context, text string) error
	// LogStatus delivers a batch of status lines, in order
	LogStatus(ctx context.Context, lines []StatusLine) error
	// Init is called exactly once, by InitLogger, with the lines buffered
	// before the logger came online
	Init(name string, lines []StatusLine)
}

// SnapshotReceiver is implemented by receivers that store snapshot query
// results apart from regular strings
type SnapshotReceiver interface {
	LogSnapshot(ctx context.Context, text string) error
}

// QuerySerializer is implemented by receivers that want their own
// representation of query log items. Each returned string is routed through
// LogString; a serialized snapshot goes through the snapshot category.
type QuerySerializer interface {
	SerializeQueryLogItem(item *QueryLogItem, eventFormat bool) ([]string, error)
	SerializeSnapshotQuery(item *QueryLogItem) (string, error)
}

// Registry resolves receiver names and lists the receivers currently enabled
// for forwarding
type Registry interface {
	Resolve(name string) (Receiver, bool)
	Active() []string
}

// ReceiverSet is the default Registry: a name-keyed set of receivers with a
// separately controlled active subset. Reads vastly outnumber writes.
type ReceiverSet struct {
	mu        sync.RWMutex
	receivers map[string]Receiver
	active    []string
}

// NewReceiverSet creates an empty registry
func NewReceiverSet() *ReceiverSet {
	return &ReceiverSet{
		receivers: make(map[string]Receiver),
	}
}

// Register adds or replaces a receiver under name. It is not activated.
func (rs *ReceiverSet) Register(name string, r Receiver) error {
	if name == "" {
		return fmtErrorf("receiver name cannot be empty")
	}
	if r == nil {
		return fmtErrorf("receiver %q cannot be nil", name)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.receivers[name] = r
	return nil
}

// Unregister removes a receiver and deactivates it
func (rs *ReceiverSet) Unregister(name string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.receivers, name)
	rs.active = removeName(rs.active, name)
}

// SetActive replaces the active set. Every name must already be registered.
func (rs *ReceiverSet) SetActive(names ...string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	next := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := rs.receivers[name]; !ok {
			return unknownReceiver(name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		next = append(next, name)
	}
	rs.active = next
	return nil
}

// Resolve implements Registry
func (rs *ReceiverSet) Resolve(name string) (Receiver, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r, ok := rs.receivers[name]
	return r, ok
}

// Active implements Registry. The returned slice is a copy.
func (rs *ReceiverSet) Active() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]string, len(rs.active))
	copy(out, rs.active)
	return out
}

// Names returns every registered name, sorted
func (rs *ReceiverSet) Names() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]string, 0, len(rs.receivers))
	for name := range rs.receivers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// Target is a receiver resolved by name for one delivery
type Target struct {
	Name     string
	Receiver Receiver
}

// resolveActive resolves every active name, skipping names that vanished
// between listing and resolution
func resolveActive(reg Registry) []Target {
	names := reg.Active()
	targets := make([]Target, 0, len(names))
	for _, name := range names {
		if r, ok := reg.Resolve(name); ok {
			targets = append(targets, Target{Name: name, Receiver: r})
		}
	}
	return targets
}
