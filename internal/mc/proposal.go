package mc

import "math/rand/v2"

const streamMix = 0x9e3779b97f4a7c15

// NewStream returns a random stream private to one chain.
func NewStream(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^streamMix))
}

// Proposer draws symmetric trial displacements.
type Proposer struct {
	rng *rand.Rand
}

func NewProposer(rng *rand.Rand) *Proposer {
	return &Proposer{rng: rng}
}

// Propose returns z shifted by independent uniform draws in [-delta, delta]
// along each axis, so forward and backward proposal densities are equal.
func (p *Proposer) Propose(z complex128, delta float64) complex128 {
	dx := (2*p.rng.Float64() - 1) * delta
	dy := (2*p.rng.Float64() - 1) * delta
	return z + complex(dx, dy)
}
