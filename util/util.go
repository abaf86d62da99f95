// Package util provides the seeded pseudo-random generator shared by
// the LSH hyperplane draw (package lsh), random cell down-sampling
// (package sets), and label-propagation visitation order (package
// graph), so all three honor spec.md §5's "PRNG state ... is
// thread-local and deterministic given the seed" contract through one
// place instead of each package touching math/rand directly.
package util

import "math/rand"

// RNG wraps a seeded generator with the draw shapes this domain needs:
// unit-Gaussian components for hyperplane construction, uniform [0, 1)
// draws for the inclusion test of down-sampling, and permutations and
// shuffles for visitation order.
type RNG struct {
	rand *rand.Rand
	seed int64
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Seed returns the seed the generator was constructed with.
func (r *RNG) Seed() int64 { return r.seed }

// GaussianVector draws n components from the standard normal
// distribution, used for LSH hyperplane construction (spec.md §4.6).
func (r *RNG) GaussianVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = r.rand.NormFloat64()
	}
	return v
}

// Perm returns a random permutation of [0, n).
func (r *RNG) Perm(n int) []int {
	return r.rand.Perm(n)
}

// Float64 draws a uniform value in [0.0, 1.0), used for the per-element
// independent Bernoulli inclusion draw of cell down-sampling (spec.md
// §4.3).
func (r *RNG) Float64() float64 {
	return r.rand.Float64()
}

// Shuffle randomizes the order of n elements via swap, used to permute
// the per-iteration vertex visitation order of label propagation
// (spec.md §4.9).
func (r *RNG) Shuffle(n int, swap func(i, j int)) {
	r.rand.Shuffle(n, swap)
}
