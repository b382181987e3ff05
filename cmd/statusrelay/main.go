// Command statusrelay runs either side of a status log relay: a core process
// that owns the receivers, or an extension process that forwards its status
// lines and results to a core.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/statuslog"
)

var rootCmd = &cobra.Command{
	Use:           "statusrelay",
	Short:         "Buffer and relay status logs between processes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "statusrelay.toml", "TOML config file; a missing file keeps defaults")
	rootCmd.PersistentFlags().String("name", "", "Process name handed to receivers (overrides config)")
	rootCmd.PersistentFlags().StringArray("set", nil, "Config override key=value (can be repeated)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies --name and --set overrides
func loadConfig(cmd *cobra.Command) (*statuslog.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := statuslog.NewConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	overrides, _ := cmd.Flags().GetStringArray("set")
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		overrides = append(overrides, "name="+name)
	}
	if len(overrides) == 0 {
		return cfg, nil
	}
	return statuslog.ParseOverrides(cfg, overrides...)
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// splitAddr turns "unix:/path" or "tcp:host:port" into a network and address
func splitAddr(addr string) (string, string, error) {
	network, address, ok := strings.Cut(addr, ":")
	if !ok || address == "" {
		return "", "", fmt.Errorf("invalid address %q, want unix:<path> or tcp:<host:port>", addr)
	}
	switch network {
	case "unix", "tcp", "tcp4", "tcp6":
		return network, address, nil
	default:
		return "", "", fmt.Errorf("unsupported network %q in %q", network, addr)
	}
}

// printReport summarizes a shutdown on stderr
func printReport(logger *statuslog.Logger, report statuslog.ShutdownReport) {
	st := logger.Stats()
	fmt.Fprintf(os.Stderr, "relayed=%d unrouted=%d failures=%d pending_discarded=%d",
		st.Relayed, st.Unrouted, st.RelayFailures, st.PendingDiscarded)
	if !report.Completed {
		fmt.Fprintf(os.Stderr, " forced_drops=%d senders=%d", report.DroppedLines, report.Senders)
	}
	if report.PendingLines > 0 {
		fmt.Fprintf(os.Stderr, " pending=%d", report.PendingLines)
	}
	fmt.Fprintln(os.Stderr)
}
