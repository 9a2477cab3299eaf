package rift

import (
	"context"
	"fmt"

	"github.com/lawnchairsociety/riftsim/internal/rng"
)

// Simulator is the entry point for simulation batches. It validates the
// configuration, owns the random source of each batch and returns the
// aggregated result. A Simulator is safe for concurrent use; batches do not
// share state.
type Simulator struct {
	model     Model
	chunkSize int
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithChunkSize sets the number of runs between progress callbacks.
func WithChunkSize(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// New creates a Simulator for the given model.
func New(model Model, opts ...Option) (*Simulator, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		model:     model,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Model returns the tuning the simulator was built with.
func (s *Simulator) Model() Model {
	return s.model
}

// DefaultRunConfig returns a config for the given tuning with DefaultTrials.
func DefaultRunConfig(speed, sync int) RunConfig {
	return RunConfig{Speed: speed, Sync: sync, Trials: DefaultTrials}
}

// ValidateConfig checks a RunConfig against its bounds.
func ValidateConfig(cfg RunConfig) error {
	switch {
	case cfg.Speed < 0:
		return &ConfigurationError{Field: "speed", Value: cfg.Speed, Reason: "must not be negative"}
	case cfg.Sync < 0:
		return &ConfigurationError{Field: "sync", Value: cfg.Sync, Reason: "must not be negative"}
	case cfg.Trials < 1:
		return &ConfigurationError{Field: "trial count", Value: cfg.Trials, Reason: "must be at least 1"}
	}
	return nil
}

// Simulate runs one batch.
func (s *Simulator) Simulate(ctx context.Context, cfg RunConfig) (*Result, error) {
	return s.Run(ctx, cfg, nil)
}

// Run runs one batch, reporting progress after every chunk.
func (s *Simulator) Run(ctx context.Context, cfg RunConfig, progress ProgressFunc) (*Result, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	src, err := newSource(cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("create random source: %w", err)
	}

	res, err := Aggregate(ctx, s.model, cfg, src, BatchOptions{
		ChunkSize: s.chunkSize,
		Progress:  progress,
	})
	if err != nil {
		return nil, err
	}

	res.Seed = src.Seed()
	return res, nil
}

func newSource(seed *int64) (*rng.Rand, error) {
	if seed != nil {
		return rng.NewSeeded(*seed), nil
	}
	return rng.NewEntropy()
}

// Simulate runs one batch with DefaultModel.
func Simulate(ctx context.Context, cfg RunConfig) (*Result, error) {
	s, err := New(DefaultModel())
	if err != nil {
		return nil, err
	}
	return s.Simulate(ctx, cfg)
}
