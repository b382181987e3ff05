package statuslog

// restartTimers stops the background loop, if any, and starts a new one when
// the current config enables a timer
func (l *Logger) restartTimers() {
	l.stopTimers()

	if !timersEnabled(l.getConfig()) {
		return
	}

	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if l.state.ShutdownCalled.Load() {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	l.timerStop = stop
	l.timerDone = done
	go l.processTimers(l.setupTimers(), stop, done)
}

// timersRunning reports whether the background loop is active
func (l *Logger) timersRunning() bool {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	return l.timerStop != nil
}

// stopTimers stops the background loop and waits for it to exit
func (l *Logger) stopTimers() {
	l.timerMu.Lock()
	stop, done := l.timerStop, l.timerDone
	l.timerStop, l.timerDone = nil, nil
	l.timerMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// processTimers is the background loop running periodic relays and
// heartbeats until stop is closed
func (l *Logger) processTimers(timers *TimerSet, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer l.closeTimers(timers)

	// Send initial heartbeat immediately instead of waiting for first tick
	if timers.heartbeatChan != nil {
		l.handleHeartbeat()
	}

	for {
		select {
		case <-stop:
			return

		case <-timers.relayChan:
			l.handleRelayTick()

		case <-timers.heartbeatChan:
			l.handleHeartbeat()
		}
	}
}

// handleRelayTick relays pending lines the way a supervising process
// periodically would
func (l *Logger) handleRelayTick() {
	cfg := l.getConfig()
	if cfg.Disabled || !l.state.Direct.Load() {
		return
	}
	if err := l.relayAuto(l.scheduler.ctx, cfg.AsyncStatus); err != nil {
		l.recordRelayErr(err)
	}
}
