package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/conformance/app"
	"github.com/kilianp07/conformance/config"
	"github.com/kilianp07/conformance/core/model"
)

var (
	netCase string
	netDir  string
)

var netCmd = &cobra.Command{
	Use:   "net <year-week-department>",
	Short: "Build and render the workflow net of one group",
	Args:  cobra.ExactArgs(1),
	RunE:  renderNet,
}

func init() {
	netCmd.Flags().StringVar(&netCase, "case", "", "case whose categories build the net (default first configured)")
	netCmd.Flags().StringVarP(&netDir, "out", "o", "petri_nets", "output directory")
	rootCmd.AddCommand(netCmd)
}

func renderNet(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := model.ParseGroupKey(args[0])
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if netCase == "" {
		netCase = cfg.Alignment.Cases[0].Name
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	path, err := svc.RenderNet(ctx, key, netCase, netDir)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
