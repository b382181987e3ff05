package statuslog

import "time"

// TimerSet holds all timers used by the background loop
type TimerSet struct {
	relayTicker     *time.Ticker
	heartbeatTicker *time.Ticker
	relayChan       <-chan time.Time
	heartbeatChan   <-chan time.Time
}

// timersEnabled reports whether the config asks for any background timer
func timersEnabled(cfg *Config) bool {
	return cfg.RelayIntervalMs > 0 || cfg.HeartbeatLevel > 0
}

// timersChanged reports whether a config change requires restarting the loop
func timersChanged(oldCfg, newCfg *Config) bool {
	return oldCfg.RelayIntervalMs != newCfg.RelayIntervalMs ||
		oldCfg.HeartbeatLevel != newCfg.HeartbeatLevel ||
		oldCfg.HeartbeatIntervalS != newCfg.HeartbeatIntervalS
}

// setupTimers creates and configures the timers the config enables
func (l *Logger) setupTimers() *TimerSet {
	timers := &TimerSet{}
	timers.relayChan = l.setupRelayTimer(timers)
	timers.heartbeatChan = l.setupHeartbeatTimer(timers)
	return timers
}

// closeTimers stops all active timers
func (l *Logger) closeTimers(timers *TimerSet) {
	if timers.relayTicker != nil {
		timers.relayTicker.Stop()
	}
	if timers.heartbeatTicker != nil {
		timers.heartbeatTicker.Stop()
	}
}

// setupRelayTimer configures the periodic relay timer if enabled
func (l *Logger) setupRelayTimer(timers *TimerSet) <-chan time.Time {
	c := l.getConfig()
	if c.RelayIntervalMs <= 0 {
		return nil
	}
	interval := time.Duration(c.RelayIntervalMs) * time.Millisecond
	if interval < minWaitTime {
		interval = minWaitTime
	}
	timers.relayTicker = time.NewTicker(interval)
	return timers.relayTicker.C
}

// setupHeartbeatTimer configures the heartbeat timer if enabled
func (l *Logger) setupHeartbeatTimer(timers *TimerSet) <-chan time.Time {
	c := l.getConfig()
	if c.HeartbeatLevel <= 0 {
		return nil
	}
	intervalS := c.HeartbeatIntervalS
	// Make sure interval is positive
	if intervalS <= 0 {
		intervalS = DefaultConfig().HeartbeatIntervalS
	}
	timers.heartbeatTicker = time.NewTicker(time.Duration(intervalS) * time.Second)
	return timers.heartbeatTicker.C
}
