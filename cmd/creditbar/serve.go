package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/services"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend and expose it over HTTP",
	Long: `serve runs the backend with its own balance monitor and exposes every
RPC method on /rpc/{method}, balance and config pushes on /events (WebSocket),
Prometheus metrics on /metrics and a health check on /healthz.

Point another creditbar at it with --backend or CREDITBAR_BACKEND_URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides CREDITBAR_LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	if cfg.RemoteBackend() {
		return errors.New("serve runs the backend itself; unset the backend URL")
	}

	addr := cfg.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	mgr, err := services.NewManager(cfg, services.Options{Monitor: true})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	fmt.Fprintf(os.Stderr, "creditbar backend listening on %s\n", addr)
	if err := rpc.NewServer(mgr, mgr.Hub()).ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("backend stopped")
	return nil
}
