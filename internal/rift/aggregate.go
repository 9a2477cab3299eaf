package rift

import (
	"context"

	"github.com/lawnchairsociety/riftsim/internal/rng"
)

// DefaultChunkSize is the number of runs simulated between progress
// callbacks and cancellation checks.
const DefaultChunkSize = 1000

// Progress reports how many runs of a batch have completed.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// ProgressFunc receives a Progress after every chunk.
type ProgressFunc func(Progress)

// BatchOptions controls how a batch is chunked.
type BatchOptions struct {
	ChunkSize int
	Progress  ProgressFunc
}

// Aggregate runs cfg.Trials independent climbs drawing from src and folds
// them into a Result. The context is checked between chunks; a cancelled
// batch returns the context error and no result.
//
// cfg is assumed valid; callers outside this package go through Simulator.
func Aggregate(ctx context.Context, model Model, cfg RunConfig, src rng.Source, opts BatchOptions) (*Result, error) {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	t := newTally(cfg.Trials)
	for done := 0; done < cfg.Trials; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(done+chunk, cfg.Trials)
		for ; done < end; done++ {
			t.add(SimulateRun(model, cfg, src))
		}

		if opts.Progress != nil {
			opts.Progress(Progress{Done: done, Total: cfg.Trials})
		}
	}

	return t.result(cfg), nil
}

// tally accumulates exact integer sums across runs.
type tally struct {
	trials int64

	floors int64
	hunts  int64
	loot   lootSums

	reached      []int64 // runs that attempted eclipse i
	cleared      []int64 // runs that cleared eclipse i
	firstCleared []int64 // runs whose first cleared eclipse is i

	endings Endings
}

// lootSums is a LootTally summed across many runs.
type lootSums struct {
	LootSigils   int64
	LootSecrets  int64
	CacheSigils  int64
	CacheSecrets int64
}

func newTally(trials int) *tally {
	return &tally{trials: int64(trials)}
}

func (t *tally) add(o RunOutcome) {
	t.floors += int64(o.State.Floor)
	t.hunts += int64(o.State.Hunts)
	t.loot.LootSigils += int64(o.Loot.LootSigils)
	t.loot.LootSecrets += int64(o.Loot.LootSecrets)
	t.loot.CacheSigils += int64(o.Loot.CacheSigils)
	t.loot.CacheSecrets += int64(o.Loot.CacheSecrets)

	for len(t.reached) < len(o.Stages) {
		t.reached = append(t.reached, 0)
		t.cleared = append(t.cleared, 0)
		t.firstCleared = append(t.firstCleared, 0)
	}

	first := true
	for i, ok := range o.Stages {
		t.reached[i]++
		if ok {
			t.cleared[i]++
			if first {
				t.firstCleared[i]++
				first = false
			}
		}
	}

	switch o.Reason {
	case EndBudgetExhausted:
		t.endings.BudgetExhausted++
	case EndStageFailed:
		t.endings.StageFailed++
	case EndFloorCapReached:
		t.endings.FloorCapReached++
	}
}

func (t *tally) result(cfg RunConfig) *Result {
	res := &Result{
		Speed:        cfg.Speed,
		Sync:         cfg.Sync,
		Trials:       cfg.Trials,
		AvgFloor:     ratio(t.floors, t.trials),
		AvgHunts:     ratio(t.hunts, t.trials),
		LootSigils:   ratio(t.loot.LootSigils, t.trials),
		LootSecrets:  ratio(t.loot.LootSecrets, t.trials),
		CacheSigils:  ratio(t.loot.CacheSigils, t.trials),
		CacheSecrets: ratio(t.loot.CacheSecrets, t.trials),
		Eclipses:     make([]EclipseStat, len(t.reached)),
		Endings:      t.endings,
	}

	var succeeded int64
	for i := range t.reached {
		succeeded += t.firstCleared[i]
		res.Eclipses[i] = EclipseStat{
			Number:     i + 1,
			Percent:    percentOf(t.cleared[i], t.reached[i]),
			Cumulative: percentOf(succeeded, t.trials),
		}
	}

	return res
}
