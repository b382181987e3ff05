package statuslog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testReceiver records deliveries and can fail, panic, or block on demand
type testReceiver struct {
	mu        sync.Mutex
	initName  string
	initLines []StatusLine
	inits     int
	statuses  []StatusLine
	batches   int
	strings   []string
	snapshots []string

	err     error
	panics  bool
	block   chan struct{} // LogStatus waits on it when set
	entered chan struct{} // signalled when LogStatus starts
}

func newTestReceiver() *testReceiver {
	return &testReceiver{}
}

func (r *testReceiver) Init(name string, lines []StatusLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits++
	r.initName = name
	r.initLines = append(r.initLines, lines...)
}

func (r *testReceiver) LogString(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strings = append(r.strings, text)
	return r.err
}

func (r *testReceiver) LogStatus(ctx context.Context, lines []StatusLine) error {
	if r.entered != nil {
		select {
		case r.entered <- struct{}{}:
		default:
		}
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panics {
		panic("receiver exploded")
	}
	r.batches++
	if r.err != nil {
		return r.err
	}
	r.statuses = append(r.statuses, lines...)
	return nil
}

func (r *testReceiver) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *testReceiver) statusMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return msgs(r.statuses)
}

func (r *testReceiver) initMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return msgs(r.initLines)
}

func (r *testReceiver) initCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inits
}

func (r *testReceiver) stringsLogged() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.strings...)
}

// snapshotReceiver stores snapshots apart from regular strings
type snapshotReceiver struct {
	*testReceiver
}

func (r snapshotReceiver) LogSnapshot(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, text)
	return nil
}

// staticRegistry lists names it may not be able to resolve
type staticRegistry struct {
	receivers map[string]Receiver
	active    []string
}

func (s staticRegistry) Resolve(name string) (Receiver, bool) {
	r, ok := s.receivers[name]
	return r, ok
}

func (s staticRegistry) Active() []string {
	return s.active
}

func TestReceiverSetRegister(t *testing.T) {
	rs := NewReceiverSet()

	assert.Error(t, rs.Register("", newTestReceiver()))
	assert.Error(t, rs.Register("nil", nil))

	require.NoError(t, rs.Register("b", newTestReceiver()))
	require.NoError(t, rs.Register("a", newTestReceiver()))
	assert.Equal(t, []string{"a", "b"}, rs.Names())
	assert.Empty(t, rs.Active(), "registration does not activate")

	r, ok := rs.Resolve("a")
	assert.True(t, ok)
	assert.NotNil(t, r)
	_, ok = rs.Resolve("missing")
	assert.False(t, ok)
}

func TestReceiverSetActive(t *testing.T) {
	rs := NewReceiverSet()
	require.NoError(t, rs.Register("a", newTestReceiver()))
	require.NoError(t, rs.Register("b", newTestReceiver()))

	require.NoError(t, rs.SetActive("b", "a", "b"))
	assert.Equal(t, []string{"b", "a"}, rs.Active(), "duplicates collapse, order kept")

	err := rs.SetActive("a", "ghost")
	assert.ErrorIs(t, err, ErrUnknownReceiver)
	assert.Contains(t, err.Error(), "ghost")
	assert.Equal(t, []string{"b", "a"}, rs.Active(), "failed SetActive leaves the set unchanged")

	active := rs.Active()
	active[0] = "mutated"
	assert.Equal(t, []string{"b", "a"}, rs.Active(), "Active returns a copy")

	rs.Unregister("b")
	assert.Equal(t, []string{"a"}, rs.Active())
	assert.Equal(t, []string{"a"}, rs.Names())
}

func TestResolveActiveSkipsVanished(t *testing.T) {
	a := newTestReceiver()
	reg := staticRegistry{
		receivers: map[string]Receiver{"a": a},
		active:    []string{"gone", "a"},
	}
	targets := resolveActive(reg)
	require.Len(t, targets, 1)
	assert.Equal(t, "a", targets[0].Name)
}

func TestReceiverError(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&ReceiverError{Name: "filesystem", Err: cause})

	assert.ErrorIs(t, err, ErrReceiverFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"filesystem"`)
	assert.Contains(t, err.Error(), "disk full")

	var re *ReceiverError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "filesystem", re.Name)
}

func TestCallReceiverRecoversPanic(t *testing.T) {
	err := callReceiver("boom", func() error { panic("bad") })
	assert.ErrorIs(t, err, ErrReceiverFailure)
	assert.Contains(t, err.Error(), "panic: bad")

	assert.NoError(t, callReceiver("ok", func() error { return nil }))
}

// waitEntered waits until a blocking receiver starts a delivery
func waitEntered(t *testing.T, r *testReceiver) {
	t.Helper()
	select {
	case <-r.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("receiver was never called")
	}
}
