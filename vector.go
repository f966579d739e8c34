package fedguard

import (
	"math"
	"math/rand"
)

// Vector is a simplified high-dimensional gradient or importance profile.
// Indices 0..triggerDims-1 are the sensitive/trigger coordinates.
type Vector []float64

const triggerDims = 5

func Dot(a, b Vector) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func Magnitude(a Vector) float64 {
	return math.Sqrt(Dot(a, a))
}

func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

func ones(dim int) Vector {
	v := make(Vector, dim)
	for i := range v {
		v[i] = 1.0
	}
	return v
}

// NormalSource produces standard-normal samples from a seeded uniform
// source. Every stochastic draw in the simulation flows through one
// NormalSource so a fixed seed reproduces the full round sequence.
type NormalSource struct {
	seed int64
	rng  *rand.Rand
}

func NewNormalSource(seed int64) *NormalSource {
	return &NormalSource{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

func (s *NormalSource) Seed() int64 { return s.seed }

// StandardNormal returns one sample via the Box-Muller transform.
// Draws of exactly 0 are rejected to keep the logarithm finite.
func (s *NormalSource) StandardNormal() float64 {
	var u1, u2 float64
	for u1 = s.rng.Float64(); u1 == 0; u1 = s.rng.Float64() {
	}
	for u2 = s.rng.Float64(); u2 == 0; u2 = s.rng.Float64() {
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// sampleDirection draws the immutable true gradient direction for a session.
func sampleDirection(dim int, src *NormalSource) Vector {
	v := make(Vector, dim)
	for i := range v {
		v[i] = src.StandardNormal()
	}
	return v
}
