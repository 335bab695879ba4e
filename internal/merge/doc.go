// Package merge implements the binary merge algorithm: given two
// workflow op graphs, produce a single graph that shares their common
// source and namespaces any divergence under the reserved labels lEft
// and rIght.
//
// The dispatch table in merge.go is order-sensitive — first match
// wins — and is total: every pair of ops falls through to the fallback
// FoldLeft rule if nothing earlier applies.
package merge
