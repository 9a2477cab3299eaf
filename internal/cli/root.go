// Package cli implements the riftsim command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/riftsim/internal/config"
	"github.com/lawnchairsociety/riftsim/internal/logger"
	"github.com/lawnchairsociety/riftsim/internal/rift"
)

// defaultConfigPath is used when --config isn't given. A missing file means defaults.
const defaultConfigPath = "data/riftsim.yaml"

// app holds the state shared by all subcommands of one invocation.
type app struct {
	cfgFile string
	logFile string
	cfg     *config.Config
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "riftsim",
		Short: "Monte Carlo predictor for Valour Rift runs",
		Long: `Simulates many independent Valour Rift runs for a Speed and Sync tuning and
reports the average highest floor, hunts used, loot and the chance of clearing
each eclipse.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", defaultConfigPath, "config file")
	root.PersistentFlags().StringVar(&a.logFile, "logging", "", "logging config file (default is the --config file)")

	root.AddCommand(
		a.newSimulateCmd(),
		a.newSweepCmd(),
		a.newExpectCmd(),
		a.newServeCmd(),
		a.newProbeCmd(),
	)
	return root
}

// load initializes logging and reads the config file before any subcommand runs.
func (a *app) load(cmd *cobra.Command, args []string) error {
	logPath := a.logFile
	if logPath == "" {
		logPath = a.cfgFile
	}
	logConfig, logErr := logger.LoadConfig(logPath)
	logger.Initialize(logConfig)
	if logErr != nil {
		logger.Warning("Falling back to default logging settings", "error", logErr)
	}

	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", a.cfgFile, err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) simulator() (*rift.Simulator, error) {
	return rift.New(a.cfg.Model, rift.WithChunkSize(a.cfg.Simulation.ChunkSize))
}

// runConfig builds a RunConfig, letting flags that were set override config defaults.
func (a *app) runConfig(cmd *cobra.Command, speed, sync, trials int, seed int64) rift.RunConfig {
	cfg := rift.RunConfig{
		Speed:  speed,
		Sync:   sync,
		Trials: a.cfg.Simulation.Trials,
		Seed:   a.cfg.Simulation.SeedPtr(),
	}
	if cmd.Flags().Changed("trials") {
		cfg.Trials = trials
	}
	if cmd.Flags().Changed("seed") {
		cfg = cfg.WithSeed(seed)
	}
	return cfg
}
