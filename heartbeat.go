package statuslog

import (
	"fmt"
	"runtime"
	"time"
)

// handleHeartbeat processes a heartbeat timer tick
func (l *Logger) handleHeartbeat() {
	heartbeatLevel := l.getConfig().HeartbeatLevel

	if heartbeatLevel >= 1 {
		l.logRelayHeartbeat()
	}

	if heartbeatLevel >= 2 {
		l.logSysHeartbeat()
	}
}

// logRelayHeartbeat logs buffering and relay statistics
func (l *Logger) logRelayHeartbeat() {
	sequence := l.state.HeartbeatSequence.Add(1)

	var uptimeHours float64
	if startTime, ok := l.state.LoggerStartTime.Load().(time.Time); ok && !startTime.IsZero() {
		uptimeHours = time.Since(startTime).Hours()
	}

	st := l.Stats()
	args := []any{
		"type", "relay",
		"sequence", sequence,
		"uptime_hours", fmt.Sprintf("%.2f", uptimeHours),
		"sink_state", st.SinkState,
		"buffered", st.Buffered,
		"buffer_discarded", st.BufferDiscarded,
		"pending", st.Pending,
		"pending_discarded", st.PendingDiscarded,
		"senders", st.Senders,
		"relayed", st.Relayed,
		"unrouted", st.Unrouted,
		"relay_failures", st.RelayFailures,
	}
	if st.ForcedDrops > 0 {
		args = append(args, "forced_drops", st.ForcedDrops)
	}

	l.writeHeartbeat(formatPairs("heartbeat", args...))
}

// logSysHeartbeat logs system/runtime statistics heartbeat
func (l *Logger) logSysHeartbeat() {
	sequence := l.state.HeartbeatSequence.Load()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	l.writeHeartbeat(formatPairs("heartbeat",
		"type", "sys",
		"sequence", sequence,
		"alloc_mb", fmt.Sprintf("%.2f", float64(memStats.Alloc)/(1000*1000)),
		"sys_mb", fmt.Sprintf("%.2f", float64(memStats.Sys)/(1000*1000)),
		"num_gc", memStats.NumGC,
		"num_goroutine", runtime.NumGoroutine(),
	))
}

// writeHeartbeat logs a heartbeat as an info status line
func (l *Logger) writeHeartbeat(message string) {
	if l.state.ShutdownCalled.Load() {
		return
	}
	l.Status(NewStatusLine(SeverityInfo, "heartbeat", 0, message))
}
