// Package rng provides the random sources used by the rift simulator.
//
// Every draw the engine makes goes through a Source, so a batch can be
// replayed exactly by constructing the same source from the same seed.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Source yields uniformly distributed values in [0,1).
type Source interface {
	Next() float64
}

// Rand is a seeded Source backed by math/rand.
type Rand struct {
	seed int64
	r    *rand.Rand
}

// NewSeeded returns a Source that produces the same sequence for the same seed.
func NewSeeded(seed int64) *Rand {
	return &Rand{
		seed: seed,
		r:    rand.New(rand.NewSource(seed)),
	}
}

// NewEntropy returns a Source seeded from crypto/rand.
// The chosen seed is available through Seed so the batch can be replayed.
func NewEntropy() (*Rand, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewSeeded(seed), nil
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Next returns the next value in [0,1).
func (s *Rand) Next() float64 {
	return s.r.Float64()
}

// Seed returns the seed the source was created with.
func (s *Rand) Seed() int64 {
	return s.seed
}

// Fixed is a scripted Source that replays values in order and then repeats
// the last one. It exists for tests that need to force stage outcomes.
type Fixed struct {
	values []float64
	pos    int
	calls  int
}

// NewFixed creates a scripted source. With no values it always returns 0.
func NewFixed(values ...float64) *Fixed {
	return &Fixed{values: values}
}

// Next returns the next scripted value.
func (f *Fixed) Next() float64 {
	f.calls++
	if len(f.values) == 0 {
		return 0
	}
	if f.pos >= len(f.values) {
		return f.values[len(f.values)-1]
	}
	v := f.values[f.pos]
	f.pos++
	return v
}

// Draws reports how many times Next has been called, including repeats of
// the last value.
func (f *Fixed) Draws() int {
	return f.calls
}
