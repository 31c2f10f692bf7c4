// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations compose the event store, the read-model repos and the
// projector, and own the transaction boundary around decide, append and project.
package aggregates
