package model

import "math/rand/v2"

// PerturbationContext carries the seed of an explanation call and how many
// features each synthetic sample alters. It is a value: every call builds
// its own random stream from it, so concurrent calls never share one.
type PerturbationContext struct {
	Seed uint64 `json:"seed" yaml:"seed"`
	Size int    `json:"size" yaml:"size"`
}

func NewPerturbationContext(seed uint64, size int) PerturbationContext {
	return PerturbationContext{Seed: seed, Size: size}
}

// Rand returns a fresh random stream for the context's seed.
func (pc PerturbationContext) Rand() *rand.Rand {
	return rand.New(rand.NewPCG(pc.Seed, splitmix64(pc.Seed)))
}

// Derive returns the context for the i-th independent run started from
// this one.
func (pc PerturbationContext) Derive(i int) PerturbationContext {
	return PerturbationContext{
		Seed: splitmix64(pc.Seed + uint64(i+1)*0x9e3779b97f4a7c15),
		Size: pc.Size,
	}
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
