package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/engine"
	"github.com/r0tifer/Centralized-Log-Viewer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tailing engine behind a local HTTP API",
	Long: `Tail the configured log sources and expose them over HTTP: source
listing and management, filtered line queries, ingest stats, and a WebSocket
live tail at /api/tail.

The server binds to localhost by default; log content never leaves the
machine unless you bind a wider address explicitly.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8844", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(cfg, "")
	summary := eng.Discover()
	for _, w := range summary.Warnings {
		fmt.Fprintf(os.Stderr, "clv: %s\n", w)
	}
	fmt.Fprintf(os.Stderr, "clv: serving %d file(s) on http://%s\n", summary.LogFiles, serveAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.New(eng, serveAddr).Start()
	}()
	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
