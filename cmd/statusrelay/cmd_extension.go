package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/statuslog"
	"github.com/lixenwraith/statuslog/relay"
)

var extensionCmd = &cobra.Command{
	Use:   "extension",
	Short: "Forward status lines read from stdin to a core process",
	Long: `Each stdin line is logged as a status line and forwarded to the core.
Lines prefixed with "W " or "E " are logged as warnings or errors. Lines
that cannot be delivered stay queued until the core is reachable.`,
	RunE: runExtension,
}

func init() {
	extensionCmd.Flags().String("core", "tcp:127.0.0.1:9700", "Core address (tcp:<host:port> or unix:<path>)")
	extensionCmd.Flags().Duration("timeout", 5*time.Second, "Per-batch forwarding timeout")
	extensionCmd.Flags().Int64("relay-interval-ms", 1000, "Retry interval for queued lines")

	rootCmd.AddCommand(extensionCmd)
}

func runExtension(cmd *cobra.Command, args []string) error {
	coreAddr, _ := cmd.Flags().GetString("core")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	interval, _ := cmd.Flags().GetInt64("relay-interval-ms")

	network, address, err := splitAddr(coreAddr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.ForwardRequired = true
	cfg.RelayIntervalMs = interval

	fwd := relay.NewForwarder(network, address, timeout)
	defer fwd.Close()

	logger, err := statuslog.NewBuilder().
		Receiver("relay", fwd).
		Active("relay").
		Build()
	if err != nil {
		return err
	}
	if err := logger.ApplyConfig(cfg); err != nil {
		return err
	}

	logger.InitStatusLogger(cfg.Name)
	if err := logger.InitLogger(cfg.Name); err != nil {
		logger.SystemLog("statusrelay extension: " + err.Error())
	}

	ctx, stop := signalContext()
	defer stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case text, ok := <-lines:
			if !ok {
				break loop
			}
			logLine(logger, text)
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := logger.RelayStatusLogsContext(flushCtx, false); err != nil {
		logger.SystemLog("statusrelay extension: " + err.Error())
	}
	if err := fwd.Flush(flushCtx); err != nil {
		logger.SystemLog(fmt.Sprintf("statusrelay extension: %d lines unacknowledged: %v", fwd.Unacked(), err))
	}

	report, err := logger.Shutdown()
	printReport(logger, report)
	return err
}

// logLine logs one stdin line at the severity its prefix names
func logLine(logger *statuslog.Logger, text string) {
	switch {
	case len(text) > 2 && text[:2] == "W ":
		logger.Warning(text[2:])
	case len(text) > 2 && text[:2] == "E ":
		logger.Error(text[2:])
	default:
		logger.Info(text)
	}
}
