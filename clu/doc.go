// Package clu implements the SeqClu-PV online sequence-clustering engine:
// an incremental clusterer that assigns an unbounded stream of
// variable-length numeric sequences to one of a fixed number of clusters
// while maintaining a small set of prototype sequences per cluster.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - sequence.go: the Sequence value type and the SeqRef tagged variant
//     used to defer hashing a sequence until it is actually needed.
//   - prototype_store.go, frequency_store.go: per-cluster prototype and
//     vote-count storage.
//   - distance_oracle.go, cluster_state.go: the memoised pairwise-distance
//     cache and the derived statistics (representativeness, error bound)
//     built on top of it.
//   - candidate_buffer.go: the process-wide bounded buffer of candidate
//     prototypes.
//   - clusterer.go: orchestration — candidacy, labelling, buffer flush.
//   - scheduler.go: the single-threaded tick loop.
//
// # Architecture
//
// clu defines the core engine and the capability interfaces it consumes:
// DistanceFunc, HashFunc, PrototypeValue and StreamSource. Concrete
// implementations of those interfaces live in sub-packages or in a host
// binary:
//   - clu/workload: a synthetic sequence generator and CSV replay source,
//     both implementing StreamSource.
//   - clu/trace: decision-trace recording for candidacy and labelling
//     decisions, independent of the engine's internal state.
//
// # Concurrency
//
// The engine is single-threaded and cooperative: exactly one logical
// owner (Clusterer) holds all state, and a tick runs to completion without
// suspension. A host may interrupt between ProcessSequence calls without
// corrupting invariants, but must not call into a Clusterer concurrently
// from more than one goroutine.
package clu
