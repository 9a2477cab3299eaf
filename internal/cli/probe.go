package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/riftsim/internal/probe"
)

func (a *app) newProbeCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run smoke checks against a running simulation server",
		Example: `  riftsim serve &
  riftsim probe --url ws://localhost:4443/ws`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := probe.RunAll(cmd.Context(), url)
			probe.PrintResults(cmd.OutOrStdout(), results)
			if probe.Failed(results) {
				return errors.New("probe failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://localhost:4443/ws", "websocket URL of the server")
	return cmd
}
