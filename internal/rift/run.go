package rift

import (
	"github.com/lawnchairsociety/riftsim/internal/rng"
)

// runState is the position of a run in its climb.
type runState int

const (
	stateClimbing runState = iota
	stateStageAttempt
	stateEnded
)

// run is the mutable state of one climb. It is owned by a single
// SimulateRun call and discarded once the outcome is packaged.
type run struct {
	model  Model
	cfg    RunConfig
	state  FloorState
	loot   LootTally
	stages []bool
	reason EndReason
}

func newRun(model Model, cfg RunConfig) *run {
	return &run{
		model: model,
		cfg:   cfg,
		state: FloorState{Floor: 1},
	}
}

// SimulateRun climbs until the hunt budget runs out, an eclipse is failed or
// the floor cap is reached. It draws exactly one value from src per eclipse.
func SimulateRun(model Model, cfg RunConfig, src rng.Source) RunOutcome {
	r := newRun(model, cfg)
	r.drive(func(p float64) bool {
		return src.Next() < p
	})
	return r.outcome()
}

// drive runs the state machine to completion. decide resolves an eclipse
// given its success chance.
func (r *run) drive(decide func(p float64) bool) {
	state := stateClimbing
	for state != stateEnded {
		switch state {
		case stateClimbing:
			state = r.climb()
		case stateStageAttempt:
			state = r.attempt(decide(r.chance()))
		}
	}
}

// climb spends one hunt to clear the current floor.
func (r *run) climb() runState {
	if r.state.Hunts >= r.model.HuntBudget {
		r.reason = EndBudgetExhausted
		return stateEnded
	}
	r.state.Hunts++

	sigils, secrets := r.model.LootReward(r.state.Floor)
	r.loot.LootSigils += sigils
	r.loot.LootSecrets += secrets

	r.state.Floor++

	sigils, secrets = r.model.CacheReward(r.state.Floor)
	r.loot.CacheSigils += sigils
	r.loot.CacheSecrets += secrets

	// The cap applies before any eclipse on the capped floor
	if r.model.MaxFloor > 0 && r.state.Floor >= r.model.MaxFloor {
		r.reason = EndFloorCapReached
		return stateEnded
	}

	if r.model.IsEclipseFloor(r.state.Floor) {
		return stateStageAttempt
	}
	return stateClimbing
}

func (r *run) chance() float64 {
	return r.model.SuccessChance(r.state, r.cfg)
}

// attempt records the eclipse result and ends the run on failure.
func (r *run) attempt(success bool) runState {
	r.stages = append(r.stages, success)
	r.state.Eclipse++

	if !success {
		r.reason = EndStageFailed
		return stateEnded
	}
	return stateClimbing
}

func (r *run) outcome() RunOutcome {
	return RunOutcome{
		State:  r.state,
		Loot:   r.loot,
		Stages: r.stages,
		Reason: r.reason,
	}
}
