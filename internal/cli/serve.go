package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/riftsim/internal/logger"
	"github.com/lawnchairsociety/riftsim/internal/metrics"
	"github.com/lawnchairsociety/riftsim/internal/server"
)

// shutdownTimeout bounds how long serve waits for open connections on exit.
const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulations over websocket",
		Long: `Starts the simulation service. Clients connect to /ws and send
{"speed":5,"sync":3,"trials":10000,"seed":42}; the server streams progress
frames and then the result. Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}

			sim, err := a.simulator()
			if err != nil {
				return err
			}
			srv := server.NewServer(a.cfg, sim, metrics.New("riftsim"))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			logger.Info("Shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown incomplete", "error", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
