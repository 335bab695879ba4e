// Package finalize implements the post-construction rewrite pass that
// runs once on a pruned op graph before crush: it fuses a UDF stage with
// an immediately preceding Project or Unwind when that predecessor's
// effect can be expressed as a plain JS transform, and normalizes every
// FoldLeft so its head is wrapped under {value: ROOT} and every tail
// ends in a Reduce.
package finalize
