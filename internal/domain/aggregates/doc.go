// Package aggregates defines domain-facing aggregate contracts.
//
// Contracts avoid persistence and transport details. Each one names a write
// boundary where an event append, its projection and its concurrency check
// commit atomically.
package aggregates
