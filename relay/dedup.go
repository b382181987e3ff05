package relay

import "sync"

type idState uint8

const (
	idNew idState = iota
	idInFlight
	idDone
)

// idTracker remembers the most recent batch IDs of each source
type idTracker struct {
	mu       sync.Mutex
	capacity int
	sources  map[string]*idWindow
}

// idWindow is a fixed-size ring of IDs with their states
type idWindow struct {
	entries map[string]*idEntry
	ring    []string
	next    int
}

type idEntry struct {
	state idState
	slot  int
}

func newIDTracker(capacity int) *idTracker {
	if capacity <= 0 {
		capacity = defaultRecentIDs
	}
	return &idTracker{capacity: capacity, sources: make(map[string]*idWindow)}
}

// begin reports the state of id. A new id is recorded as in flight. Batches
// without an ID are never tracked.
func (t *idTracker) begin(source, id string) idState {
	if id == "" {
		return idNew
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.sources[source]
	if !ok {
		w = &idWindow{entries: make(map[string]*idEntry), ring: make([]string, t.capacity)}
		t.sources[source] = w
	}
	if e, ok := w.entries[id]; ok {
		return e.state
	}

	if old := w.ring[w.next]; old != "" {
		delete(w.entries, old)
	}
	w.ring[w.next] = id
	w.entries[id] = &idEntry{state: idInFlight, slot: w.next}
	w.next = (w.next + 1) % len(w.ring)
	return idNew
}

// finish marks id handled, or forgets it so a re-send is handled again
func (t *idTracker) finish(source, id string, ok bool) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	w, found := t.sources[source]
	if !found {
		return
	}
	e, tracked := w.entries[id]
	if !tracked {
		return
	}
	if ok {
		e.state = idDone
		return
	}
	w.ring[e.slot] = ""
	delete(w.entries, id)
}
