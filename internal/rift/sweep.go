package rift

import (
	"context"
)

// SweepConfig describes a grid of speed and sync values.
type SweepConfig struct {
	SpeedMin, SpeedMax, SpeedStep int
	SyncMin, SyncMax, SyncStep    int
	Trials                        int
	Seed                          int64
}

// Cells returns the number of grid points in the sweep.
func (c SweepConfig) Cells() int {
	return span(c.SpeedMin, c.SpeedMax, c.SpeedStep) * span(c.SyncMin, c.SyncMax, c.SyncStep)
}

func span(lo, hi, step int) int {
	if step < 1 || hi < lo {
		return 0
	}
	return (hi-lo)/step + 1
}

func validateSweep(c SweepConfig) error {
	switch {
	case c.SpeedStep < 1:
		return &ConfigurationError{Field: "speed step", Value: c.SpeedStep, Reason: "must be at least 1"}
	case c.SyncStep < 1:
		return &ConfigurationError{Field: "sync step", Value: c.SyncStep, Reason: "must be at least 1"}
	case c.SpeedMax < c.SpeedMin:
		return &ConfigurationError{Field: "speed max", Value: c.SpeedMax, Reason: "must not be below speed min"}
	case c.SyncMax < c.SyncMin:
		return &ConfigurationError{Field: "sync max", Value: c.SyncMax, Reason: "must not be below sync min"}
	}
	// Bounds of the first cell cover speed, sync and trials for every cell
	return ValidateConfig(RunConfig{Speed: c.SpeedMin, Sync: c.SyncMin, Trials: c.Trials})
}

// Sweep simulates every cell of the grid, speed-major. Cell i is seeded with
// Seed+i so any single cell can be replayed with Simulate. Progress counts cells.
func (s *Simulator) Sweep(ctx context.Context, sc SweepConfig, progress ProgressFunc) ([]*Result, error) {
	if err := validateSweep(sc); err != nil {
		return nil, err
	}

	total := sc.Cells()
	results := make([]*Result, 0, total)
	for speed := sc.SpeedMin; speed <= sc.SpeedMax; speed += sc.SpeedStep {
		for sync := sc.SyncMin; sync <= sc.SyncMax; sync += sc.SyncStep {
			cfg := RunConfig{Speed: speed, Sync: sync, Trials: sc.Trials}.WithSeed(sc.Seed + int64(len(results)))

			res, err := s.Simulate(ctx, cfg)
			if err != nil {
				return nil, err
			}
			results = append(results, res)

			if progress != nil {
				progress(Progress{Done: len(results), Total: total})
			}
		}
	}
	return results, nil
}
