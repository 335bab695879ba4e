// Package crush lowers a finished, finalized op graph into the task tree
// the execution layer runs: native aggregation pipelines where possible,
// map-reduce jobs where a $where predicate or a UDF forces the fallback.
package crush

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/nysm-ir/planir/internal/task"
	"github.com/nysm-ir/planir/internal/workflow"
)

// Crush lowers op into its task tree, returning the DocVar locating the
// logical document within that task's actual output shape — ROOT for a
// plain read or a pipeline, "value" for anything whose output passed
// through a map-reduce job's {_id, value} envelope.
func Crush(op workflow.Op) (expr.DocVar, task.Task, error) {
	return crush(op)
}

func crush(op workflow.Op) (expr.DocVar, task.Task, error) {
	switch n := op.(type) {
	case workflow.Pure:
		return expr.ROOT, task.PureTask{Value: n.Value}, nil
	case workflow.Read:
		return expr.ROOT, task.ReadTask{Collection: n.Collection}, nil
	case workflow.Match:
		return crushMatch(n)
	case workflow.Sort:
		return crushPipelineStage(n.Src, false, func(base expr.DocVar) stage.Stage {
			return stage.Sort{Keys: rebaseSortKeys(n.Keys, base)}
		})
	case workflow.Limit:
		return crushPipelineStage(n.Src, false, func(expr.DocVar) stage.Stage {
			return stage.Limit{Count: n.Count}
		})
	case workflow.Skip:
		return crushPipelineStage(n.Src, false, func(expr.DocVar) stage.Stage {
			return stage.Skip{Count: n.Count}
		})
	case workflow.Project:
		return crushPipelineStage(n.Src, true, func(base expr.DocVar) stage.Stage {
			return stage.Project{Reshape: reshape.RewriteRefs(n.Reshape, expr.Rebase(base))}
		})
	case workflow.Redact:
		return crushPipelineStage(n.Src, false, func(base expr.DocVar) stage.Stage {
			return stage.Redact{Cond: expr.Substitute(n.Cond, expr.Rebase(base))}
		})
	case workflow.Unwind:
		return crushPipelineStage(n.Src, false, func(base expr.DocVar) stage.Stage {
			rebased, _ := expr.Rebase(base)(n.Field)
			return stage.Unwind{Field: rebased}
		})
	case workflow.Group:
		return crushGroup(n)
	case workflow.GeoNear:
		return crushPipelineStage(n.Src, false, func(base expr.DocVar) stage.Stage {
			return stage.GeoNear{
				Coordinates:   n.Coordinates,
				DistanceField: expr.RebaseFieldName(n.DistanceField, base),
				Limit:         n.Limit,
				MaxDistance:   n.MaxDistance,
				Query:         expr.Substitute(n.Query, expr.Rebase(base)),
				Spherical:     n.Spherical,
				Multiplier:    n.Multiplier,
				IncludeLocs:   expr.RebaseFieldName(n.IncludeLocs, base),
				UniqueDocs:    n.UniqueDocs,
			}
		})
	case workflow.Map, workflow.FlatMap, workflow.Reduce:
		return crushUDF(n)
	case workflow.FoldLeft:
		return crushFoldLeft(n)
	case workflow.Join:
		return crushJoin(n)
	default:
		panic("crush: unrecognized op")
	}
}

// crushPipelineStage crushes src, then either extends its PipelineTask
// with mkStage's stage or, if src didn't already crush to a pipeline,
// wraps whatever it crushed to in a fresh one-stage PipelineTask.
// resetsBase reports whether this stage kind (Group, Project) resets the
// document's logical location back to ROOT.
func crushPipelineStage(src workflow.Op, resetsBase bool, mkStage func(base expr.DocVar) stage.Stage) (expr.DocVar, task.Task, error) {
	base, t, err := crush(src)
	if err != nil {
		return expr.DocVar{}, nil, err
	}
	s := mkStage(base)
	newBase := base
	if resetsBase {
		newBase = expr.ROOT
	}
	if pt, ok := t.(task.PipelineTask); ok {
		pt.Stages = append(append([]stage.Stage(nil), pt.Stages...), s)
		return newBase, pt, nil
	}
	return newBase, task.PipelineTask{Base: t, Stages: []stage.Stage{s}}, nil
}

func crushGroup(n workflow.Group) (expr.DocVar, task.Task, error) {
	base, t, err := crush(n.Src)
	if err != nil {
		return expr.DocVar{}, nil, err
	}
	grouped := make([]stage.GroupedEntry, len(n.Grouped))
	for i, e := range n.Grouped {
		rebased := expr.Substitute(e.Op, expr.Rebase(base))
		groupOp, ok := rebased.(expr.GroupOp)
		if !ok {
			return expr.DocVar{}, nil, &TypeChangingCrushError{Field: e.Name}
		}
		grouped[i] = stage.GroupedEntry{Name: e.Name, Op: groupOp}
	}
	s := stage.Group{Grouped: grouped, By: rebaseElem(n.By, base)}
	if pt, ok := t.(task.PipelineTask); ok {
		pt.Stages = append(append([]stage.Stage(nil), pt.Stages...), s)
		return expr.ROOT, pt, nil
	}
	return expr.ROOT, task.PipelineTask{Base: t, Stages: []stage.Stage{s}}, nil
}

// rebaseElem rebases a bare reshape.Elem (Group.By has no enclosing Doc/
// Arr of its own) by round-tripping it through a throwaway one-field Doc,
// reusing reshape.RewriteRefs rather than duplicating its traversal.
func rebaseElem(e reshape.Elem, base expr.DocVar) reshape.Elem {
	wrapped := reshape.Doc{Fields: []reshape.DocField{{Name: "_by", Value: e}}}
	rewritten := reshape.RewriteRefs(wrapped, expr.Rebase(base)).(reshape.Doc)
	return rewritten.Fields[0].Value
}

func rebaseSortKeys(keys []stage.SortKey, base expr.DocVar) []stage.SortKey {
	out := make([]stage.SortKey, len(keys))
	for i, k := range keys {
		rebased, _ := expr.Rebase(base)(k.Field)
		out[i] = stage.SortKey{Field: rebased, Descending: k.Descending}
	}
	return out
}

// crushMatch implements the Match pipelinability state machine: a selector
// with no JSWhere anywhere in its tree becomes a native $match stage;
// otherwise the whole match becomes a fresh map-reduce job whose mapper
// applies the selector and whose reducer is the identity.
func crushMatch(n workflow.Match) (expr.DocVar, task.Task, error) {
	if !containsJSWhere(n.Selector) {
		return crushPipelineStage(n.Src, false, func(base expr.DocVar) stage.Stage {
			return stage.Match{Selector: expr.Substitute(n.Selector, expr.Rebase(base))}
		})
	}
	base, t, err := crush(n.Src)
	if err != nil {
		return expr.DocVar{}, nil, err
	}
	rebasedSelector := expr.Substitute(n.Selector, expr.Rebase(base))
	mr := task.MapReduceTask{
		Base:      t,
		Map:       selectorMapFn(rebasedSelector, "value"),
		Reduce:    defaultIdentityReduceFn(),
		OutAction: task.OutReplace,
	}
	return expr.NewDocVar("value"), mr, nil
}

// crushUDF implements the Map/FlatMap/Reduce crush rule: attach atop an
// existing finalizer-less MapReduceTask when possible, else absorb a
// match/sort/limit prefix (down to a bare source) into a fresh task's
// selection/input-sort/limit fields, else wrap whatever the source
// crushed to in a fresh task.
func crushUDF(op workflow.Op) (expr.DocVar, task.Task, error) {
	src := workflow.Source(op)
	base, srcTask, err := crush(src)
	if err != nil {
		return expr.DocVar{}, nil, err
	}

	if mr, ok := srcTask.(task.MapReduceTask); ok && mr.Finalizer == nil {
		switch n := op.(type) {
		case workflow.Map:
			fn := n.Fn
			mr.Finalizer = &fn
			return base, mr, nil
		case workflow.Reduce:
			mr.Reduce = n.Fn
			return base, mr, nil
		}
		// FlatMap cannot attach as a finalizer — a finalizer returns one
		// value, not an array of pairs — so it falls through below.
	}

	if bareSrc, selection, sortKeys, limit, ok := absorbPrefix(src); ok {
		bareBase, bareTask, err := crush(bareSrc)
		if err != nil {
			return expr.DocVar{}, nil, err
		}
		mr := buildFreshMapReduce(op, bareBase, bareTask)
		mr.Selection = selection
		mr.InputSort = sortKeys
		mr.InputLimit = limit
		return expr.NewDocVar("value"), mr, nil
	}

	return expr.NewDocVar("value"), buildFreshMapReduce(op, base, srcTask), nil
}

// absorbPrefix walks down through at most one each of Match (pipelinable
// only), Sort, and Limit, in any order, to the bare Pure/Read source
// beneath them. It reports ok=false the moment it meets anything else,
// or a second Match/Sort/Limit.
func absorbPrefix(op workflow.Op) (bare workflow.Op, selection expr.Expr, sortKeys []stage.SortKey, limit *int64, ok bool) {
	cur := op
	for {
		switch n := cur.(type) {
		case workflow.Match:
			if selection != nil || containsJSWhere(n.Selector) {
				return nil, nil, nil, nil, false
			}
			selection = n.Selector
			cur = n.Src
		case workflow.Sort:
			if sortKeys != nil {
				return nil, nil, nil, nil, false
			}
			sortKeys = n.Keys
			cur = n.Src
		case workflow.Limit:
			if limit != nil {
				return nil, nil, nil, nil, false
			}
			c := n.Count
			limit = &c
			cur = n.Src
		case workflow.Pure, workflow.Read:
			return cur, selection, sortKeys, limit, true
		default:
			return nil, nil, nil, nil, false
		}
	}
}

// buildFreshMapReduce builds the MapReduceTask a Map/FlatMap/Reduce op
// becomes when it cannot attach to an existing task; when crushUDF absorbed
// a pipeline prefix, it fills in the selection/input-sort/limit fields of
// the returned task itself. The base-relative default identity/project
// map recovers the document from wherever baseTask actually located it;
// a Map or FlatMap's own function is composed after that projection
// (Mongo's map phase already supports zero-or-more emits, so the two
// collapse to the same shape here), while a Reduce's function simply
// becomes the task's reduce outright.
func buildFreshMapReduce(op workflow.Op, base expr.DocVar, baseTask task.Task) task.MapReduceTask {
	switch n := op.(type) {
	case workflow.Map:
		return task.MapReduceTask{Base: baseTask, Map: composeProjectThenCall(base, n.Fn), Reduce: defaultIdentityReduceFn(), OutAction: task.OutReplace}
	case workflow.FlatMap:
		return task.MapReduceTask{Base: baseTask, Map: composeProjectThenCall(base, n.Fn), Reduce: defaultIdentityReduceFn(), OutAction: task.OutReplace}
	case workflow.Reduce:
		return task.MapReduceTask{Base: baseTask, Map: defaultProjectMapFn(base), Reduce: n.Fn, OutAction: task.OutReplace}
	default:
		return task.MapReduceTask{Base: baseTask, Map: defaultIdentityMapFn(), Reduce: defaultIdentityReduceFn(), OutAction: task.OutReplace}
	}
}

// defaultProjectMapFn is the "default identity/project mapper": identity
// when base is ROOT, else a projection pulling the document up from
// wherever base located it.
func defaultProjectMapFn(base expr.DocVar) jsir.Func {
	return jsir.Func{
		Params: []string{"key", "value"},
		Body: []jsir.Node{
			jsir.Return{Value: jsir.ArrayLit{Elements: []jsir.Node{jsir.Ident{Name: "key"}, memberChain("value", base.Path)}}},
		},
	}
}

// composeProjectThenCall projects value up from base, then delegates to
// fn with the projected value in fn's own (key, value) signature.
func composeProjectThenCall(base expr.DocVar, fn jsir.Func) jsir.Func {
	return jsir.Func{
		Params: []string{"key", "value"},
		Body: []jsir.Node{
			jsir.Return{Value: jsir.Call{Callee: fn, Args: []jsir.Node{jsir.Ident{Name: "key"}, memberChain("value", base.Path)}}},
		},
	}
}

func crushFoldLeft(n workflow.FoldLeft) (expr.DocVar, task.Task, error) {
	headBase, headTask, err := crush(n.Head)
	if err != nil {
		return expr.DocVar{}, nil, err
	}
	tails := make([]task.Task, len(n.Tails))
	for i, t := range n.Tails {
		_, tt, err := crush(t)
		if err != nil {
			return expr.DocVar{}, nil, err
		}
		mr, ok := tt.(task.MapReduceTask)
		if !ok {
			return expr.DocVar{}, nil, &InvalidFoldLeftTailError{Index: i}
		}
		mr.OutAction = task.OutReduce
		tails[i] = mr
	}
	return headBase, task.FoldLeftTask{Head: headTask, Tails: tails}, nil
}

func crushJoin(n workflow.Join) (expr.DocVar, task.Task, error) {
	sources := make([]task.Task, len(n.Sources))
	for i, s := range n.Sources {
		_, t, err := crush(s)
		if err != nil {
			return expr.DocVar{}, nil, err
		}
		sources[i] = t
	}
	return expr.ROOT, task.JoinTask{Sources: sources}, nil
}
