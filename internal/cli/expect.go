package cli

import (
	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/riftsim/internal/report"
	"github.com/lawnchairsociety/riftsim/internal/rift"
)

func (a *app) newExpectCmd() *cobra.Command {
	var speed, sync int

	cmd := &cobra.Command{
		Use:   "expect",
		Short: "Compute the exact expected run for one tuning without sampling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rift.RunConfig{Speed: speed, Sync: sync, Trials: 1}
			if err := rift.ValidateConfig(cfg); err != nil {
				return err
			}
			return report.WriteExpectation(cmd.OutOrStdout(), speed, sync, rift.Expect(a.cfg.Model, cfg))
		},
	}

	cmd.Flags().IntVar(&speed, "speed", 0, "Speed upgrade level")
	cmd.Flags().IntVar(&sync, "sync", 0, "Sync upgrade level")
	return cmd
}
