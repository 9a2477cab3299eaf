// Package rift simulates Valour Rift runs.
//
// A run climbs the tower one floor per hunt, collecting loot on every floor
// and a cache bonus on cache floors. Every eclipse floor is a stage-event
// that either lets the run continue or ends it. Many independent runs are
// folded into a Result that summarises the expected climb for a given
// speed and sync.
package rift

// DefaultTrials is the number of runs simulated when a RunConfig leaves Trials unset.
const DefaultTrials = 10000

// RunConfig is the player-chosen tuning for one simulation batch.
type RunConfig struct {
	Speed  int
	Sync   int
	Trials int    // 0 means DefaultTrials
	Seed   *int64 // nil draws a seed from crypto/rand
}

// WithSeed returns a copy of the config pinned to the given seed.
func (c RunConfig) WithSeed(seed int64) RunConfig {
	c.Seed = &seed
	return c
}

// FloorState is the progress of a single run.
type FloorState struct {
	Floor   int // current floor, starts at 1
	Hunts   int // hunts spent so far
	Eclipse int // stage-events attempted so far
}

// LootTally holds the two independent reward channels of a run.
type LootTally struct {
	LootSigils   int
	LootSecrets  int
	CacheSigils  int
	CacheSecrets int
}

// EndReason explains why a run stopped.
type EndReason int

const (
	EndUnspecified EndReason = iota
	EndBudgetExhausted
	EndStageFailed
	EndFloorCapReached
)

func (r EndReason) String() string {
	switch r {
	case EndBudgetExhausted:
		return "budget_exhausted"
	case EndStageFailed:
		return "stage_failed"
	case EndFloorCapReached:
		return "floor_cap_reached"
	default:
		return "unspecified"
	}
}

// RunOutcome is the immutable result of one completed run.
type RunOutcome struct {
	State  FloorState
	Loot   LootTally
	Stages []bool // one entry per eclipse attempted, in order
	Reason EndReason
}

// EclipseStat summarises one eclipse number across all trials.
type EclipseStat struct {
	Number  int    `json:"number"`
	Percent Tenths `json:"percent"`

	// Cumulative is the share of all trials that had cleared at least one
	// eclipse by this one. A failed eclipse ends the run, so this is the
	// first eclipse's clear rate repeated on every row and says nothing
	// about the later eclipses.
	Cumulative Tenths `json:"cumulative"`
}

// Guaranteed reports whether every run that reached this eclipse cleared it.
func (e EclipseStat) Guaranteed() bool {
	return e.Percent.IsHundred()
}

// CumulativeGuaranteed reports whether Cumulative is 100.0.
func (e EclipseStat) CumulativeGuaranteed() bool {
	return e.Cumulative.IsHundred()
}

// Endings counts how the runs of a batch stopped.
type Endings struct {
	BudgetExhausted int `json:"budgetExhausted"`
	StageFailed     int `json:"stageFailed"`
	FloorCapReached int `json:"floorCapReached"`
}

// Result is the aggregated summary of a simulation batch.
type Result struct {
	Speed        int           `json:"speed"`
	Sync         int           `json:"sync"`
	Trials       int           `json:"trials"`
	Seed         int64         `json:"seed"`
	AvgFloor     Tenths        `json:"avgFloor"`
	AvgHunts     Tenths        `json:"avgHunts"`
	LootSigils   Tenths        `json:"lootSigils"`
	LootSecrets  Tenths        `json:"lootSecrets"`
	CacheSigils  Tenths        `json:"cacheSigils"`
	CacheSecrets Tenths        `json:"cacheSecrets"`
	Eclipses     []EclipseStat `json:"eclipses"`
	Endings      Endings       `json:"endings"`
}
