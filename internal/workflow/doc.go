// Package workflow is the op-graph layer: the immutable node types that
// make up a workflow plan (Pure, Read, Match, Sort, Limit, Skip, Project,
// Redact, Unwind, Group, GeoNear, Map, FlatMap, Reduce, FoldLeft, Join),
// their smart constructors and peephole coalescing rules, reference
// rewriting, and unused-field pruning.
//
// Ops are constructed exclusively through the MakeX functions in this
// package. The concrete struct literals are exported so other packages
// (merge, finalize, crush) can type-switch over them, but direct
// construction bypasses coalescing and should never be used outside
// tests that specifically want an uncoalesced tree.
package workflow
