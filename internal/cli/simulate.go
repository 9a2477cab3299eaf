package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/riftsim/internal/logger"
	"github.com/lawnchairsociety/riftsim/internal/report"
	"github.com/lawnchairsociety/riftsim/internal/rift"
)

func (a *app) newSimulateCmd() *cobra.Command {
	var (
		speed, sync, trials int
		seed                int64
		format              string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a batch of runs for one tuning",
		Example: `  # 10000 runs at Speed 5, Sync 3
  riftsim simulate --speed 5 --sync 3

  # Reproduce an earlier batch exactly
  riftsim simulate --speed 5 --sync 3 --seed 8675309 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}

			sim, err := a.simulator()
			if err != nil {
				return err
			}

			cfg := a.runConfig(cmd, speed, sync, trials, seed)
			logger.Info("Simulating", "speed", cfg.Speed, "sync", cfg.Sync, "trials", cfg.Trials)

			start := time.Now()
			res, err := sim.Run(cmd.Context(), cfg, func(p rift.Progress) {
				logger.Debug("Batch progress", "done", p.Done, "total", p.Total)
			})
			if err != nil {
				return err
			}
			logger.Always("Simulation complete", "seed", res.Seed, "elapsed", time.Since(start).String())

			if format == "json" {
				return report.WriteJSON(cmd.OutOrStdout(), res)
			}
			return report.WriteText(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().IntVar(&speed, "speed", 0, "Speed upgrade level")
	cmd.Flags().IntVar(&sync, "sync", 0, "Sync upgrade level")
	cmd.Flags().IntVarP(&trials, "trials", "n", rift.DefaultTrials, "runs per batch (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for a reproducible batch (default random)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
