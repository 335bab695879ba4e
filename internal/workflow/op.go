package workflow

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
)

// Op is a sealed interface over every workflow node type.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and lets
// merge/finalize/crush use exhaustive type switches over the op family.
type Op interface {
	opNode() // Marker method - seals interface to this package
}

// Pure is a SourceOp wrapping a literal BSON value — no upstream input,
// no collection to read.
type Pure struct {
	Value ir.IRValue
}

func (Pure) opNode() {}

// Read is a SourceOp naming a collection to scan.
type Read struct {
	Collection string
}

func (Read) opNode() {}

// Match is a ShapePreservingOp filtering documents by a selector.
type Match struct {
	Src      Op
	Selector expr.Expr
}

func (Match) opNode() {}

// Sort is a ShapePreservingOp ordering documents by one or more keys.
type Sort struct {
	Src  Op
	Keys []stage.SortKey
}

func (Sort) opNode() {}

// Limit is a ShapePreservingOp capping the number of documents.
type Limit struct {
	Src   Op
	Count int64
}

func (Limit) opNode() {}

// Skip is a ShapePreservingOp dropping a number of leading documents.
type Skip struct {
	Src   Op
	Count int64
}

func (Skip) opNode() {}

// Project is a WPipelineOp reshaping each document.
type Project struct {
	Src     Op
	Reshape reshape.Reshape
}

func (Project) opNode() {}

// Redact is a WPipelineOp that conditionally prunes a document.
type Redact struct {
	Src  Op
	Cond expr.Expr
}

func (Redact) opNode() {}

// Unwind is a WPipelineOp exploding an array field into one document per
// element.
type Unwind struct {
	Src   Op
	Field expr.DocVar
}

func (Unwind) opNode() {}

// Group is a WPipelineOp aggregating documents by key.
type Group struct {
	Src     Op
	Grouped []stage.GroupedEntry
	By      reshape.Elem
}

func (Group) opNode() {}

// Names returns the grouped-map keys in declared order.
func (g Group) Names() []string {
	names := make([]string, len(g.Grouped))
	for i, e := range g.Grouped {
		names[i] = e.Name
	}
	return names
}

// Field looks up a grouped entry by name.
func (g Group) Field(name string) (expr.GroupOp, bool) {
	for _, e := range g.Grouped {
		if e.Name == name {
			return e.Op, true
		}
	}
	return nil, false
}

// GeoNear is a WPipelineOp annotating documents with distance from a
// point; it must sit directly atop its ultimate source.
type GeoNear struct {
	Src           Op
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

func (GeoNear) opNode() {}

// Map is a UDF op: a two-argument (key, value) -> [key, value] function.
type Map struct {
	Src Op
	Fn  jsir.Func
}

func (Map) opNode() {}

// FlatMap is a UDF op: (key, value) -> [[key, value], ...].
type FlatMap struct {
	Src Op
	Fn  jsir.Func
}

func (FlatMap) opNode() {}

// Reduce is a UDF op: (key, values) -> value.
type Reduce struct {
	Src Op
	Fn  jsir.Func
}

func (Reduce) opNode() {}

// FoldLeft is a Multi-source op: a head plus one or more tails, each
// eventually reduced into the accumulator seeded by the head.
type FoldLeft struct {
	Head  Op
	Tails []Op
}

func (FoldLeft) opNode() {}

// Join is a Multi-source op over an unordered set of independent
// sources.
type Join struct {
	Sources []Op
}

func (Join) opNode() {}
