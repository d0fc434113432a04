// Package metrics holds the online measurement accumulators fed by the
// Metropolis chain. Accumulators only read the configuration they are given.
package metrics
