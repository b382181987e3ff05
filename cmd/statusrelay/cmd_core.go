package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/statuslog"
	"github.com/lixenwraith/statuslog/compat"
	"github.com/lixenwraith/statuslog/receiver"
	"github.com/lixenwraith/statuslog/relay"
)

var coreCmd = &cobra.Command{
	Use:   "core",
	Short: "Own the receivers and accept lines forwarded by extensions",
	RunE:  runCore,
}

func init() {
	coreCmd.Flags().String("listen", "tcp://127.0.0.1:9700", "Relay listen address (tcp://host:port or unix:///path)")
	coreCmd.Flags().String("http", "", "Also accept HTTP payloads on this address")
	coreCmd.Flags().String("node-key", "", "Node key required from HTTP clients")
	coreCmd.Flags().String("log-dir", "", "Write results and status lines to rotated files in this directory")
	coreCmd.Flags().Bool("multicore", true, "Run one event loop per CPU")

	rootCmd.AddCommand(coreCmd)
}

func runCore(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	httpAddr, _ := cmd.Flags().GetString("http")
	nodeKey, _ := cmd.Flags().GetString("node-key")
	logDir, _ := cmd.Flags().GetString("log-dir")
	multicore, _ := cmd.Flags().GetBool("multicore")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	active := []string{"console"}
	b := statuslog.NewBuilder().
		Receiver("console", receiver.NewConsole(os.Stdout, cfg.Format))

	if logDir != "" {
		files, err := receiver.NewFile(receiver.DefaultFileConfig(logDir))
		if err != nil {
			return err
		}
		defer files.Close()
		b.Receiver("filesystem", files)
		active = append(active, "filesystem")
	}

	logger, err := b.Active(active...).Build()
	if err != nil {
		return err
	}
	if err := logger.ApplyConfig(cfg); err != nil {
		return err
	}

	logger.InitStatusLogger(cfg.Name)
	if err := logger.InitLogger(cfg.Name); err != nil {
		return err
	}

	adapters := compat.NewBuilder().WithLogger(logger)
	gnetLogger, err := adapters.BuildGnet()
	if err != nil {
		return err
	}

	srv := relay.NewServer(listen, logger,
		relay.WithMulticore(multicore),
		relay.WithReusePort(true),
		relay.WithServerLogger(gnetLogger),
	)
	errCh := make(chan error, 2)
	go func() { errCh <- srv.Run() }()

	var ingest *relay.HTTPServer
	if httpAddr != "" {
		fasthttpLogger, err := adapters.BuildFastHTTP()
		if err != nil {
			return err
		}
		ingest = relay.NewHTTPServer(logger, relay.WithNodeKey(nodeKey), relay.WithHTTPLogger(fasthttpLogger))
		go func() { errCh <- ingest.ListenAndServe(httpAddr) }()
	}

	logger.Infof("core %q relaying on %s", cfg.Name, listen)
	logger.SystemLog(fmt.Sprintf("statusrelay core %s started", cfg.Name))

	ctx, stop := signalContext()
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ingest != nil {
		_ = ingest.Shutdown(stopCtx)
	}
	_ = srv.Stop(stopCtx)

	report, err := logger.Shutdown()
	printReport(logger, report)
	if runErr != nil {
		return runErr
	}
	return err
}
