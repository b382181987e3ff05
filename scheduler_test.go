package statuslog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, size int) *RelayScheduler {
	t.Helper()
	s, err := NewRelayScheduler(size, nil)
	require.NoError(t, err)
	return s
}

func TestNewRelaySchedulerRejectsZero(t *testing.T) {
	_, err := NewRelayScheduler(0, nil)
	assert.Error(t, err)
}

func TestDeliverAggregates(t *testing.T) {
	s := newTestScheduler(t, 1)
	defer s.Shutdown(time.Second)

	good := newTestReceiver()
	bad := newTestReceiver()
	bad.setErr(errors.New("rejected"))
	boom := newTestReceiver()
	boom.panics = true

	lines := []StatusLine{infoLine("one"), infoLine("two")}
	d := s.Deliver(context.Background(), lines, []Target{
		{Name: "bad", Receiver: bad},
		{Name: "boom", Receiver: boom},
		{Name: "good", Receiver: good},
	})

	assert.Equal(t, 3, d.Targets)
	assert.Equal(t, 1, d.Accepted)
	assert.ErrorIs(t, d.Err, ErrReceiverFailure)
	assert.Contains(t, d.Err.Error(), "rejected")
	assert.Contains(t, d.Err.Error(), "panic: receiver exploded")
	assert.Equal(t, []string{"one", "two"}, good.statusMessages(), "later receivers still attempted")
}

func TestRelaySync(t *testing.T) {
	s := newTestScheduler(t, 1)
	defer s.Shutdown(time.Second)

	r := newTestReceiver()
	var seen Delivery
	err := s.Relay(context.Background(), []StatusLine{infoLine("x")}, []Target{{Name: "r", Receiver: r}}, false, func(d Delivery) {
		seen = d
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen.Accepted)
	assert.Equal(t, []string{"x"}, r.statusMessages())
}

func TestSubmitCountsSenders(t *testing.T) {
	s := newTestScheduler(t, 2)
	defer s.Shutdown(time.Second)

	r := newTestReceiver()
	r.block = make(chan struct{})
	r.entered = make(chan struct{}, 1)

	done := make(chan Delivery, 1)
	require.NoError(t, s.Submit([]StatusLine{infoLine("a"), infoLine("b")}, []Target{{Name: "r", Receiver: r}}, func(d Delivery) {
		done <- d
	}))
	waitEntered(t, r)

	assert.Equal(t, 1, s.Senders())
	assert.Equal(t, 2, s.SenderLines())

	close(r.block)
	d := <-done
	assert.Equal(t, 1, d.Accepted)
	assert.Eventually(t, func() bool { return s.Senders() == 0 && s.SenderLines() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestSubmitBusy(t *testing.T) {
	s := newTestScheduler(t, 1)
	defer s.Shutdown(time.Second)

	r := newTestReceiver()
	r.block = make(chan struct{})
	r.entered = make(chan struct{}, 1)
	targets := []Target{{Name: "r", Receiver: r}}

	require.NoError(t, s.Submit([]StatusLine{infoLine("a")}, targets, nil))
	waitEntered(t, r)

	err := s.Submit([]StatusLine{infoLine("b")}, targets, nil)
	assert.ErrorIs(t, err, ErrSchedulerBusy)
	assert.Equal(t, 1, s.Senders(), "rejected task is not counted")

	close(r.block)
}

func TestSchedulerShutdownWaits(t *testing.T) {
	s := newTestScheduler(t, 2)
	r := newTestReceiver()

	require.NoError(t, s.Submit([]StatusLine{infoLine("a")}, []Target{{Name: "r", Receiver: r}}, nil))
	report := s.Shutdown(time.Second)

	assert.True(t, report.Completed)
	assert.Zero(t, report.DroppedLines)
	assert.True(t, s.Closed())
	assert.Equal(t, []string{"a"}, r.statusMessages())

	err := s.Submit([]StatusLine{infoLine("late")}, nil, nil)
	assert.ErrorIs(t, err, ErrSchedulerClosed)

	again := s.Shutdown(time.Second)
	assert.True(t, again.Completed, "second shutdown is a no-op")
}

func TestSchedulerShutdownForcedDrops(t *testing.T) {
	s := newTestScheduler(t, 1)
	r := newTestReceiver()
	r.block = make(chan struct{}) // never closed; the cancelled context releases it
	r.entered = make(chan struct{}, 1)

	lines := []StatusLine{infoLine("a"), infoLine("b"), infoLine("c")}
	require.NoError(t, s.Submit(lines, []Target{{Name: "r", Receiver: r}}, nil))
	waitEntered(t, r)

	report := s.Shutdown(20 * time.Millisecond)
	assert.False(t, report.Completed)
	assert.Equal(t, 1, report.Senders)
	assert.Equal(t, 3, report.DroppedLines)
	assert.Equal(t, uint64(3), s.ForcedDrops())
}
