package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kilianp07/conformance/api/results"
	"github.com/kilianp07/conformance/config"
	"github.com/kilianp07/conformance/infra/logger"
	"github.com/kilianp07/conformance/infra/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve <results file>",
	Short: "Serve a results file and its reports over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE:  serve,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := serveAddr
	if addr == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		addr = cfg.Server.Addr
	}
	src, err := store.Open(args[0])
	if err != nil {
		return err
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	log := logger.New("api")
	return results.Serve(ctx, addr, results.NewRouter(src, prometheus.DefaultGatherer, log), log)
}
