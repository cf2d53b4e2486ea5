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
	"github.com/kilianp07/conformance/infra/logger"
)

var runOpts app.RunOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score every group of the dataset for each case",
	RunE:  run,
}

func init() {
	runCmd.Flags().StringSliceVar(&runOpts.Cases, "case", nil, "case to score (repeatable, default all)")
	runCmd.Flags().StringVar(&runOpts.RunDir, "run-dir", "", "output directory (default <output.dir>/<start time>)")
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	log := logger.New("main")
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.LogProgress(svc.Bus().Subscribe(), log, 100)
	}()
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
		<-done
	}()

	res, err := svc.Run(ctx, runOpts)
	if res != nil {
		for _, rep := range res.Reports {
			fmt.Fprintf(cmd.OutOrStdout(), "Case %s\n", rep.Case)
			for _, row := range rep.ByDepartment {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+row.String())
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", res.RunDir)
	}
	return err
}
