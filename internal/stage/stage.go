package stage

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/reshape"
)

// Stage is a sealed interface over the native aggregation stage value
// objects.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern seals the type so the workflow and crush
// layers can switch over it exhaustively.
type Stage interface {
	stageNode() // Marker method - seals interface to this package
}

// Match filters documents against a selector.
//
// Semantics:
//
//	{ $match: <selector> }
//
// PIPELINABILITY:
// A Match is pipelinable (see Pipelinable) unless its selector contains a
// JSWhere leaf anywhere in its tree — the $where escape hatch cannot be
// expressed as a native stage and forces a map-reduce fallback at crush
// time.
type Match struct {
	Selector expr.Expr
}

func (Match) stageNode() {}

// SortKey is one (field, direction) entry of a Sort. A Sort's Keys slice
// must be non-empty — sorting by nothing is not representable.
type SortKey struct {
	Field      expr.DocVar
	Descending bool
}

// Sort orders documents by a non-empty list of keys, applied in order.
type Sort struct {
	Keys []SortKey
}

func (Sort) stageNode() {}

// Limit caps the number of documents that pass through.
type Limit struct {
	Count int64
}

func (Limit) stageNode() {}

// Skip drops the first Count documents.
type Skip struct {
	Count int64
}

func (Skip) stageNode() {}

// Project reshapes each document according to Reshape, replacing the
// document shape entirely.
type Project struct {
	Reshape reshape.Reshape
}

func (Project) stageNode() {}

// Redact conditionally prunes sub-documents based on an expression
// evaluated at every level of the document tree.
type Redact struct {
	Cond expr.Expr
}

func (Redact) stageNode() {}

// Unwind flattens the array at Field, emitting one document per array
// element.
type Unwind struct {
	Field expr.DocVar
}

func (Unwind) stageNode() {}

// GroupedEntry is one ordered (output name, accumulator) pair of a Group.
type GroupedEntry struct {
	Name string
	Op   expr.GroupOp
}

// Group partitions documents by By and computes one accumulator per
// Grouped entry within each partition.
//
// Invariant: every Grouped entry's Op must be a GroupOp (sum, avg, push,
// addToSet, first, last, max, min, ...) — never a plain expression. A
// rewrite that violates this is a programming error (invariant 2) and
// must be signaled, not silently accepted.
type Group struct {
	Grouped []GroupedEntry
	By      reshape.Elem // expression ∨ Reshape, via ExprElem/ReshapeElem
}

func (Group) stageNode() {}

// Names returns the Grouped output names in declaration order.
func (g Group) Names() []string {
	names := make([]string, len(g.Grouped))
	for i, e := range g.Grouped {
		names[i] = e.Name
	}
	return names
}

// Field looks up a Grouped entry by output name.
func (g Group) Field(name string) (expr.GroupOp, bool) {
	for _, e := range g.Grouped {
		if e.Name == name {
			return e.Op, true
		}
	}
	return nil, false
}

// GeoNear finds documents near Coordinates, nearest first.
//
// GeoNear must be the first stage after its ultimate source — the
// workflow layer's coalescing hoists it there and rejects chaining two
// GeoNears; GeoNear-over-GeoNear has no defined semantics, so it is
// treated as an error rather than silently resolved.
type GeoNear struct {
	Coordinates   []float64
	DistanceField string
	Limit         *int64
	MaxDistance   *float64
	Query         expr.Expr
	Spherical     bool
	Multiplier    *float64
	IncludeLocs   string
	UniqueDocs    bool
}

func (GeoNear) stageNode() {}

// IsShapePreserving reports whether s is one of Match, Sort, Limit, Skip —
// the ShapePreservingOp category: stages whose output document shape
// equals their input shape.
func IsShapePreserving(s Stage) bool {
	switch s.(type) {
	case Match, Sort, Limit, Skip:
		return true
	default:
		return false
	}
}
