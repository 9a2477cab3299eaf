package rift

import (
	"fmt"
	"math"
)

// Model holds the tuning curve and reward constants of the climb.
//
// The defaults are placeholders chosen to produce plausible runs; the real
// game formulas are not public. Deployments override them through the
// model section of the configuration file.
type Model struct {
	// HuntBudget is the number of hunts available in one run.
	HuntBudget int `yaml:"hunt_budget"`

	// EclipseInterval makes every Nth floor an eclipse floor.
	EclipseInterval int `yaml:"eclipse_interval"`

	// CacheInterval awards a cache bonus on every Nth floor.
	CacheInterval int `yaml:"cache_interval"`

	// MaxFloor ends a run on reaching this floor. 0 means uncapped.
	MaxFloor int `yaml:"max_floor"`

	// Success chance = BaseChance + SpeedWeight*speed + SyncWeight*sync
	//   - StagePenalty*(stage-1) - FloorPenalty*(floor-1), clamped to [0,1].
	BaseChance   float64 `yaml:"base_chance"`
	SpeedWeight  float64 `yaml:"speed_weight"`
	SyncWeight   float64 `yaml:"sync_weight"`
	StagePenalty float64 `yaml:"stage_penalty"`
	FloorPenalty float64 `yaml:"floor_penalty"`

	// Per-floor loot: base * (1 + floor*LootGrowth), truncated.
	LootSigils  int     `yaml:"loot_sigils"`
	LootSecrets int     `yaml:"loot_secrets"`
	LootGrowth  float64 `yaml:"loot_growth"`

	// Cache bonus per tier, where a tier is one eclipse interval of floors.
	CacheSigils  int `yaml:"cache_sigils"`
	CacheSecrets int `yaml:"cache_secrets"`
}

// DefaultModel returns the placeholder tuning.
func DefaultModel() Model {
	return Model{
		HuntBudget:      50,
		EclipseInterval: 8,
		CacheInterval:   4,
		MaxFloor:        0,
		BaseChance:      0.35,
		SpeedWeight:     0.05,
		SyncWeight:      0.04,
		StagePenalty:    0.05,
		FloorPenalty:    0,
		LootSigils:      2,
		LootSecrets:     1,
		LootGrowth:      0.1,
		CacheSigils:     5,
		CacheSecrets:    2,
	}
}

// Validate checks that the model describes a terminating climb with
// probabilities that are monotone in speed and sync.
func (m Model) Validate() error {
	switch {
	case m.HuntBudget < 1:
		return &ModelError{Field: "hunt_budget", Reason: "must be at least 1"}
	case m.EclipseInterval < 1:
		return &ModelError{Field: "eclipse_interval", Reason: "must be at least 1"}
	case m.CacheInterval < 1:
		return &ModelError{Field: "cache_interval", Reason: "must be at least 1"}
	case m.MaxFloor < 0:
		return &ModelError{Field: "max_floor", Reason: "must not be negative"}
	case m.MaxFloor == 1:
		return &ModelError{Field: "max_floor", Reason: "must be 0 (uncapped) or above the starting floor"}
	case !unit(m.BaseChance):
		return &ModelError{Field: "base_chance", Reason: "must be within [0,1]"}
	case m.SpeedWeight < 0 || math.IsNaN(m.SpeedWeight):
		return &ModelError{Field: "speed_weight", Reason: "must not be negative"}
	case m.SyncWeight < 0 || math.IsNaN(m.SyncWeight):
		return &ModelError{Field: "sync_weight", Reason: "must not be negative"}
	case m.StagePenalty < 0 || math.IsNaN(m.StagePenalty):
		return &ModelError{Field: "stage_penalty", Reason: "must not be negative"}
	case m.FloorPenalty < 0 || math.IsNaN(m.FloorPenalty):
		return &ModelError{Field: "floor_penalty", Reason: "must not be negative"}
	case m.LootSigils < 0 || m.LootSecrets < 0:
		return &ModelError{Field: "loot", Reason: "rewards must not be negative"}
	case m.LootGrowth < 0 || math.IsNaN(m.LootGrowth):
		return &ModelError{Field: "loot_growth", Reason: "must not be negative"}
	case m.CacheSigils < 0 || m.CacheSecrets < 0:
		return &ModelError{Field: "cache", Reason: "rewards must not be negative"}
	}
	return nil
}

func unit(f float64) bool {
	return f >= 0 && f <= 1
}

// SuccessChance returns the probability that the next eclipse of a run in
// the given state is cleared. It never reads randomness.
func (m Model) SuccessChance(state FloorState, cfg RunConfig) float64 {
	stage := state.Eclipse + 1
	p := m.BaseChance +
		m.SpeedWeight*float64(cfg.Speed) +
		m.SyncWeight*float64(cfg.Sync) -
		m.StagePenalty*float64(stage-1) -
		m.FloorPenalty*float64(state.Floor-1)
	return clamp01(p)
}

func clamp01(p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	default:
		return p
	}
}

// Tier returns the eclipse tier a floor belongs to, starting at 1.
func (m Model) Tier(floor int) int {
	if floor < 1 {
		return 0
	}
	return (floor-1)/m.EclipseInterval + 1
}

// IsEclipseFloor returns true if reaching the floor triggers an eclipse.
func (m Model) IsEclipseFloor(floor int) bool {
	return floor > 0 && floor%m.EclipseInterval == 0
}

// IsCacheFloor returns true if reaching the floor awards a cache bonus.
func (m Model) IsCacheFloor(floor int) bool {
	return floor > 0 && floor%m.CacheInterval == 0
}

// LootReward returns the loot collected while clearing the given floor.
// Formula: base * (1 + floor * growth)
func (m Model) LootReward(floor int) (sigils, secrets int) {
	return scaleReward(m.LootSigils, floor, m.LootGrowth), scaleReward(m.LootSecrets, floor, m.LootGrowth)
}

// CacheReward returns the cache bonus for reaching the given floor.
// It is zero on floors that are not cache floors.
func (m Model) CacheReward(floor int) (sigils, secrets int) {
	if !m.IsCacheFloor(floor) {
		return 0, 0
	}
	tier := m.Tier(floor)
	return m.CacheSigils * tier, m.CacheSecrets * tier
}

func scaleReward(base, floor int, growth float64) int {
	if floor <= 0 {
		return base
	}
	multiplier := 1.0 + float64(floor)*growth
	return int(float64(base) * multiplier)
}

// String summarises the curve for log lines.
func (m Model) String() string {
	return fmt.Sprintf("budget=%d eclipse_every=%d cache_every=%d cap=%d chance=%.2f+%.2f*speed+%.2f*sync-%.2f*stage",
		m.HuntBudget, m.EclipseInterval, m.CacheInterval, m.MaxFloor,
		m.BaseChance, m.SpeedWeight, m.SyncWeight, m.StagePenalty)
}
