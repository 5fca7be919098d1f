package swarm

import "iter"

// The swarm entity is consumed through independent capability interfaces
// rather than a type hierarchy; *Swarm implements all of them. The save
// capability lives in the checkpoint package, which defines its own
// interfaces over the same methods.

// ParticleContainer is the particle storage and ownership capability.
type ParticleContainer interface {
	Dim() int
	ParticleLocalCount() int
	ParticleGlobalCount() int
	AddParticlesWithCoordinates(coords [][]float64) ([]int, error)
	UpdateParticleOwners() error
}

// FunctionInputSource exposes particle coordinates as a lazy input stream
// for function evaluation.
type FunctionInputSource interface {
	CoordinateInput() iter.Seq2[int, []float64]
}

var (
	_ ParticleContainer   = (*Swarm)(nil)
	_ FunctionInputSource = (*Swarm)(nil)
)
