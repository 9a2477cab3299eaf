package rift

// Expectation is the exact expected outcome of a run, computed without
// sampling. The climb between eclipses is deterministic, so the only
// branching is whether each eclipse is cleared.
type Expectation struct {
	Floor        float64
	Hunts        float64
	LootSigils   float64
	LootSecrets  float64
	CacheSigils  float64
	CacheSecrets float64

	// Reach[i] is the probability of attempting eclipse i+1.
	Reach []float64
	// Chance[i] is the success chance of eclipse i+1.
	Chance []float64
}

// Expect computes the exact expectation of a run for the given config.
// cfg.Trials is ignored.
func Expect(model Model, cfg RunConfig) Expectation {
	var (
		exp   Expectation
		reach = 1.0
	)

	accrue := func(w float64, r *run) {
		exp.Floor += w * float64(r.state.Floor)
		exp.Hunts += w * float64(r.state.Hunts)
		exp.LootSigils += w * float64(r.loot.LootSigils)
		exp.LootSecrets += w * float64(r.loot.LootSecrets)
		exp.CacheSigils += w * float64(r.loot.CacheSigils)
		exp.CacheSecrets += w * float64(r.loot.CacheSecrets)
	}

	// Walk the all-clear path; at each eclipse the failing branch ends
	// the run with the state as it stands.
	r := newRun(model, cfg)
	r.drive(func(p float64) bool {
		exp.Reach = append(exp.Reach, reach)
		exp.Chance = append(exp.Chance, p)
		accrue(reach*(1-p), r)
		reach *= p
		return true
	})
	accrue(reach, r)

	return exp
}

// Cumulative returns the probability of having cleared at least one eclipse
// by eclipse i+1, matching EclipseStat.Cumulative.
func (e Expectation) Cumulative(i int) float64 {
	if i < 0 || i >= len(e.Reach) {
		return 0
	}
	// Failing an eclipse ends the run, so the first attempt decides it
	return e.Reach[0] * e.Chance[0]
}
