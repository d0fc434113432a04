// Package plasma defines the classical 2D Coulomb gas whose Boltzmann
// weight equals the squared modulus of the Laughlin wavefunction.
//
// The package holds the data model shared by the sampler:
//
//   - [Configuration]: particle positions as points of the complex plane
//   - [Params]: everything that defines a run (N, m, quasiholes, moves, sampling)
//   - [RunID]: the deterministic key under which a run's state is persisted
//   - [Model]: full and incremental evaluation of the plasma energy
//
// # Energy
//
// For positions z_1..z_N and quasiholes w_1..w_Nqh the dimensionless energy is
//
//	U = -2m Σ_{i<j} ln|z_i - z_j| - 2 Σ_i Σ_a ln|z_i - w_a| + Σ_i |z_i|²
//
// and configurations are sampled with weight exp(-U).
//
// # Thread Safety
//
// [Model] is immutable after construction and may be shared between chains.
// A [Configuration] belongs to exactly one chain.
package plasma
