// Package task defines the output IR that crush lowers an op graph into:
// self-contained descriptions of what the execution layer actually runs —
// a native pipeline, a map-reduce job, or a fold/join over several of
// either.
package task

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/stage"
)

// Task is a sealed interface over every task-tree node.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern seals the type so render and the execution
// layer can switch over it exhaustively.
type Task interface {
	taskNode() // Marker method - seals interface to this package
}

// PureTask is a leaf wrapping a literal value — no collection to read.
type PureTask struct {
	Value ir.IRValue
}

func (PureTask) taskNode() {}

// ReadTask is a leaf naming a collection to scan.
type ReadTask struct {
	Collection string
}

func (ReadTask) taskNode() {}

// PipelineTask is an ordered list of native aggregation stages run over
// Base. Base is usually a PureTask or ReadTask, but may be any Task — a
// pipeline stage absorbed atop a MapReduceTask's output wraps it here
// rather than extending it, since a native stage cannot be spliced into a
// map/reduce job.
type PipelineTask struct {
	Base   Task
	Stages []stage.Stage
}

func (PipelineTask) taskNode() {}

// OutAction names what a MapReduceTask does with its output once the
// reduce (and optional finalizer) phase completes.
type OutAction string

const (
	// OutReplace writes a fresh output collection, replacing any prior
	// contents. The default when a MapReduceTask has no OutAction set.
	OutReplace OutAction = "replace"
	// OutMerge merges keys into an existing output collection.
	OutMerge OutAction = "merge"
	// OutReduce re-reduces colliding keys against an existing output
	// collection — the action a FoldLeft tail is rewritten to at crush
	// time, so its results accumulate into the head's output.
	OutReduce OutAction = "reduce"
)

// MapReduceTask bundles a map/reduce/optional-finalizer JS triple plus the
// optional pre-filtering fields absorbed from a pipeline prefix that
// couldn't otherwise be expressed natively.
type MapReduceTask struct {
	Base Task

	// Selection, InputSort, InputLimit are an optional absorbed
	// match/sort/limit prefix, applied to Base before Map runs. Selection
	// is nil, InputSort is empty, and InputLimit is nil when nothing was
	// absorbed.
	Selection  expr.Expr
	InputSort  []stage.SortKey
	InputLimit *int64

	Map       jsir.Func
	Reduce    jsir.Func
	Finalizer *jsir.Func

	OutAction OutAction
}

func (MapReduceTask) taskNode() {}

// FoldLeftTask seeds an accumulator from Head and reduces every Tail into
// it. Every Tail must be a MapReduceTask with OutAction OutReduce — crush
// enforces this invariant before returning.
type FoldLeftTask struct {
	Head  Task
	Tails []Task
}

func (FoldLeftTask) taskNode() {}

// JoinTask runs an unordered set of independent sources, leaving join
// semantics to the execution layer.
type JoinTask struct {
	Sources []Task
}

func (JoinTask) taskNode() {}
