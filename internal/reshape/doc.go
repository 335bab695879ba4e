// Package reshape defines the record-constructor description used by
// Project, Redact, and Group: an ordered mapping from field name (or
// array index) to an expression or a nested reshape.
//
// Insertion order is preserved and observable — a pipeline stage reads
// fields in the order they were declared — so Doc and Arr hold ordered
// slices, never Go maps.
package reshape
