package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/lixenwraith/statuslog"
)

func testLines() []statuslog.StatusLine {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	return []statuslog.StatusLine{
		{Severity: statuslog.SeverityWarning, Filename: "main.go", Line: 10, Message: "disk low", Time: ts},
		{Severity: statuslog.SeverityError, Filename: "db.go", Line: 20, Message: "query failed", Time: ts},
	}
}

func TestConsoleTxt(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "txt")

	c.Init("core", testLines()[:1])
	require.NoError(t, c.LogStatus(context.Background(), testLines()[1:]))
	require.NoError(t, c.LogString(context.Background(), `{"name":"q"}`))
	require.NoError(t, c.LogSnapshot(context.Background(), "snap"))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "WARNING")
	assert.Contains(t, lines[0], "main.go:10")
	assert.True(t, strings.HasSuffix(lines[0], "disk low"))
	assert.Contains(t, lines[1], "db.go:20 query failed")
	assert.Equal(t, `{"name":"q"}`, lines[2])
	assert.Equal(t, "snap", lines[3])
}

func TestConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "json")

	require.NoError(t, c.LogStatus(context.Background(), testLines()[:1]))
	require.NoError(t, c.LogSnapshot(context.Background(), "rows"))

	dec := json.NewDecoder(&buf)
	var status map[string]any
	require.NoError(t, dec.Decode(&status))
	assert.Equal(t, "WARNING", status["severity"])
	assert.Equal(t, "main.go:10", status["location"])
	assert.Equal(t, "disk low", status["message"])

	var snap map[string]any
	require.NoError(t, dec.Decode(&snap))
	assert.Equal(t, statuslog.CategorySnapshot, snap["category"])
	assert.Equal(t, "rows", snap["text"])
}

func TestConsoleRaw(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "raw")

	require.NoError(t, c.LogStatus(context.Background(), testLines()))
	require.NoError(t, c.LogString(context.Background(), "result"))
	assert.Equal(t, "disk low\nquery failed\nresult\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestConsoleWriteError(t *testing.T) {
	c := NewConsole(failingWriter{}, "txt")
	assert.ErrorContains(t, c.LogString(context.Background(), "x"), "closed pipe")
	assert.ErrorContains(t, c.LogStatus(context.Background(), testLines()), "closed pipe")
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Init("proc", testLines()[:1])
	assert.Equal(t, "proc", m.Name())
	assert.Equal(t, 1, m.InitCount())
	assert.Len(t, m.InitLines(), 1)

	ctx := context.Background()
	require.NoError(t, m.LogStatus(ctx, testLines()))
	require.NoError(t, m.LogString(ctx, "a"))
	require.NoError(t, m.LogSnapshot(ctx, "s"))

	m.SetError(errors.New("down"))
	assert.Error(t, m.LogString(ctx, "b"), "input is recorded even when failing")
	m.SetError(nil)

	assert.Len(t, m.Statuses(), 2)
	assert.Equal(t, []string{"a", "b"}, m.Strings())
	assert.Equal(t, []string{"s"}, m.Snapshots())
}

func TestMemoryWithLogger(t *testing.T) {
	m := NewMemory()
	logger, err := statuslog.NewBuilder().
		Receiver("memory", m).
		Active("memory").
		FallbackTarget("none").
		Build()
	require.NoError(t, err)
	defer logger.Shutdown()

	logger.InitStatusLogger("worker")
	logger.Info("early")
	require.NoError(t, logger.InitLogger("worker"))
	logger.Warning("late")

	assert.Equal(t, "worker", m.Name())
	require.Len(t, m.InitLines(), 1)
	assert.Equal(t, "early", m.InitLines()[0].Message)
	require.Len(t, m.Statuses(), 1)
	assert.Equal(t, "late", m.Statuses()[0].Message)
	assert.Equal(t, "receiver_test.go", m.Statuses()[0].Filename)
}

func TestFileReceiver(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(DefaultFileConfig(filepath.Join(dir, "logs")))
	require.NoError(t, err)

	f.Init("core", testLines()[:1])
	ctx := context.Background()
	require.NoError(t, f.LogStatus(ctx, testLines()[1:]))
	require.NoError(t, f.LogString(ctx, "result-1"))
	require.NoError(t, f.LogSnapshot(ctx, "snapshot-1"))
	require.NoError(t, f.Close())

	status, err := os.ReadFile(filepath.Join(dir, "logs", "core.status.log"))
	require.NoError(t, err)
	assert.Contains(t, string(status), "disk low")
	assert.Contains(t, string(status), "query failed")

	results, err := os.ReadFile(filepath.Join(dir, "logs", "core.results.log"))
	require.NoError(t, err)
	assert.Equal(t, "result-1\n", string(results))

	snapshots, err := os.ReadFile(filepath.Join(dir, "logs", "core.snapshots.log"))
	require.NoError(t, err)
	assert.Equal(t, "snapshot-1\n", string(snapshots))

	// Writes after Close reopen the files
	require.NoError(t, f.LogString(ctx, "result-2"))
	require.NoError(t, f.Close())
	results, err = os.ReadFile(filepath.Join(dir, "logs", "core.results.log"))
	require.NoError(t, err)
	assert.Equal(t, "result-1\nresult-2\n", string(results))
}

func TestFileReceiverRotate(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultFileConfig(dir)
	cfg.Name = "fixed"
	f, err := NewFile(cfg)
	require.NoError(t, err)
	defer f.Close()

	assert.NoError(t, f.Rotate(), "rotating before any write is a no-op")

	ctx := context.Background()
	require.NoError(t, f.LogString(ctx, "before"))
	require.NoError(t, f.Rotate())
	require.NoError(t, f.LogString(ctx, "after"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "fixed.results-") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)

	current, err := os.ReadFile(filepath.Join(dir, "fixed.results.log"))
	require.NoError(t, err)
	assert.Equal(t, "after\n", string(current))
}

func TestNewFileRequiresDirectory(t *testing.T) {
	_, err := NewFile(FileConfig{})
	assert.Error(t, err)
}

// payloadServer records payloads posted to an in-memory fasthttp server
type payloadServer struct {
	mu       sync.Mutex
	payloads []Payload
	status   int
	ln       *fasthttputil.InmemoryListener
}

func startPayloadServer(t *testing.T) *payloadServer {
	t.Helper()
	ps := &payloadServer{status: fasthttp.StatusOK, ln: fasthttputil.NewInmemoryListener()}
	srv := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		var p Payload
		if err := json.Unmarshal(ctx.PostBody(), &p); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ps.mu.Lock()
		ps.payloads = append(ps.payloads, p)
		code := ps.status
		ps.mu.Unlock()
		ctx.SetStatusCode(code)
	}}
	go func() { _ = srv.Serve(ps.ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return ps
}

func (ps *payloadServer) dial(string) (net.Conn, error) {
	return ps.ln.Dial()
}

func (ps *payloadServer) received() []Payload {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]Payload(nil), ps.payloads...)
}

func TestHTTPReceiver(t *testing.T) {
	ps := startPayloadServer(t)
	h, err := NewHTTP(HTTPConfig{URL: "http://collector/log", NodeKey: "k1", Dial: ps.dial})
	require.NoError(t, err)

	h.Init("ext", testLines())
	ctx := context.Background()
	require.NoError(t, h.LogString(ctx, "result"))
	require.NoError(t, h.LogSnapshot(ctx, "snap"))
	require.NoError(t, h.LogStatus(ctx, nil), "empty batches are not posted")

	got := ps.received()
	require.Len(t, got, 3)

	assert.Equal(t, LogTypeStatus, got[0].LogType)
	assert.Equal(t, "ext", got[0].Source)
	assert.Equal(t, "k1", got[0].NodeKey)
	require.Len(t, got[0].Lines, 2)
	assert.Equal(t, "query failed", got[0].Lines[1].Message)
	assert.Equal(t, statuslog.SeverityError, got[0].Lines[1].Severity)

	assert.Equal(t, LogTypeResult, got[1].LogType)
	assert.Equal(t, []string{"result"}, got[1].Texts)
	assert.Equal(t, LogTypeSnapshot, got[2].LogType)
}

func TestHTTPReceiverErrors(t *testing.T) {
	_, err := NewHTTP(HTTPConfig{})
	assert.Error(t, err)

	ps := startPayloadServer(t)
	ps.status = fasthttp.StatusServiceUnavailable
	h, err := NewHTTP(HTTPConfig{URL: "http://collector/log", Dial: ps.dial})
	require.NoError(t, err)
	assert.ErrorContains(t, h.LogString(context.Background(), "x"), "returned status 503")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.LogString(ctx, "x"), context.Canceled)
}
