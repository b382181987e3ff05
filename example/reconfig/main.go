package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/statuslog"
	"github.com/lixenwraith/statuslog/receiver"
)

// Reconfigure a live logger while another goroutine keeps logging
func main() {
	var count atomic.Int64

	mem := receiver.NewMemory()
	logger, err := statuslog.NewBuilder().
		Name("reconfig").
		Receiver("memory", mem).
		Active("memory").
		FallbackTarget("none").
		Build()
	if err != nil {
		fmt.Printf("Build error: %v\n", err)
		return
	}

	logger.InitStatusLogger("reconfig")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			logger.Infof("test line %d", i)
			count.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()

	// Lines buffer until InitLogger; resize the buffer under load
	for i := 0; i < 5; i++ {
		if err := logger.ApplyOverride(fmt.Sprintf("buffer_size=%d", 100*(i+1))); err != nil {
			fmt.Printf("Override error: %v\n", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := logger.InitLogger("reconfig"); err != nil {
		fmt.Printf("InitLogger error: %v\n", err)
	}

	// Switch between direct and async delivery, then to periodic relays
	for i := 0; i < 10; i++ {
		overrides := []string{fmt.Sprintf("async_status=%t", i%2 == 0)}
		if i == 9 {
			overrides = append(overrides, "relay_interval_ms=50")
		}
		if err := logger.ApplyOverride(overrides...); err != nil {
			fmt.Printf("Override error: %v\n", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	close(stop)
	<-done

	if err := logger.RelayStatusLogs(false); err != nil {
		fmt.Printf("Relay error: %v\n", err)
	}

	report, err := logger.Shutdown(time.Second)
	if err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}

	st := logger.Stats()
	fmt.Printf("Lines attempted: %d\n", count.Load())
	fmt.Printf("Init lines: %d, status lines: %d\n", len(mem.InitLines()), len(mem.Statuses()))
	fmt.Printf("Buffer discarded: %d, pending discarded: %d, forced drops: %d\n",
		st.BufferDiscarded, st.PendingDiscarded, st.ForcedDrops)
	fmt.Printf("Shutdown completed: %t, dropped: %d\n", report.Completed, report.DroppedLines)
}
