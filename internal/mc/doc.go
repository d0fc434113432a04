// Package mc implements the single-particle Metropolis chain that samples
// the plasma Boltzmann weight exp(-U).
//
// A [Chain] owns a [Proposer] and a random stream. Each elementary move picks
// a particle uniformly at random, displaces it by a symmetric uniform step and
// accepts with probability min(1, exp(-ΔU)), where ΔU comes from
// [plasma.Model.DeltaEnergy]. Accumulators registered with
// [Chain.AddAccumulator] are invoked every k moves and only read the
// configuration.
//
// # Thread Safety
//
// A Chain is strictly sequential and NOT safe for concurrent use. Independent
// chains, each with its own stream, can run in parallel.
package mc
