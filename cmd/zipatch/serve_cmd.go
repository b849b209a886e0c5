package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saworbit/zipatch/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Prometheus /metrics endpoint until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9526", "Listen address for the metrics endpoint")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	metrics.SetAgentInfo(runtime.GOOS, runtime.GOARCH, versionString)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return metrics.Serve(ctx, addr, log.Default())
}
