package statuslog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLogFunc(t *testing.T) {
	var got []string
	s := SystemLogFunc(func(line string) { got = append(got, line) })
	s.Write("a")
	s.Write("b")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSystemLogBypassesReceivers(t *testing.T) {
	logger, rs := createTestLogger(t, nil)
	r := newTestReceiver()
	addReceiver(t, rs, "r", r)

	var mu sync.Mutex
	var got []string
	logger.SetSystemLogSink(SystemLogFunc(func(line string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, line)
	}))

	// Works before, during, and after initialization
	logger.SystemLog("before")
	logger.InitStatusLogger("core")
	logger.SystemLog("buffering")
	require.NoError(t, logger.InitLogger("core"))
	logger.SystemLog("direct")

	assert.Equal(t, []string{"before", "buffering", "direct"}, got)
	assert.Zero(t, logger.QueuedStatuses())
	assert.Empty(t, r.statusMessages())
	assert.Empty(t, r.stringsLogged())
}

func TestSystemLogSinkClosed(t *testing.T) {
	s := newSystemLogSink("statuslog-test")
	require.NoError(t, s.Close())
	// A closed sink swallows writes
	s.Write("ignored")
}

func TestSystemLogTagChangeReplacesSink(t *testing.T) {
	logger, _ := createTestLogger(t, nil)

	logger.systemMu.RLock()
	first, ok := logger.system.(*systemLogSink)
	logger.systemMu.RUnlock()
	require.True(t, ok)

	require.NoError(t, logger.ApplyOverride("system_log_tag=other"))

	logger.systemMu.RLock()
	second, ok := logger.system.(*systemLogSink)
	logger.systemMu.RUnlock()
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, "other", second.tag)
}
