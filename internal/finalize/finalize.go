package finalize

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/workflow"
)

// Finalize runs the post-construction rewrite pass once, bottom-up, over
// the whole graph: fusing a UDF stage into an immediately preceding
// Project or Unwind when expressible as a plain JS transform, and
// normalizing every FoldLeft's head and tails.
func Finalize(op workflow.Op) workflow.Op {
	switch n := op.(type) {
	case workflow.Pure, workflow.Read:
		return op
	case workflow.Match:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Sort:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Limit:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Skip:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Project:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Redact:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Unwind:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Group:
		n.Src = Finalize(n.Src)
		return n
	case workflow.GeoNear:
		n.Src = Finalize(n.Src)
		return n
	case workflow.Map:
		n.Src = Finalize(n.Src)
		return fuseUDF(n, n.Fn, workflow.MakeMap)
	case workflow.FlatMap:
		n.Src = Finalize(n.Src)
		return fuseUDF(n, n.Fn, workflow.MakeFlatMap)
	case workflow.Reduce:
		n.Src = Finalize(n.Src)
		return fuseUDF(n, n.Fn, workflow.MakeReduce)
	case workflow.FoldLeft:
		return normalizeFoldLeft(n)
	case workflow.Join:
		sources := make([]workflow.Op, len(n.Sources))
		for i, s := range n.Sources {
			sources[i] = Finalize(s)
		}
		n.Sources = sources
		return n
	default:
		return op
	}
}

// fuseUDF applies the UDF-over-Project and UDF-over-Unwind rules to a
// single-source UDF op. rebuild constructs a fresh op of the same UDF
// kind over a new source and function.
func fuseUDF(udf workflow.Op, fn jsir.Func, rebuild func(src workflow.Op, fn jsir.Func) workflow.Op) workflow.Op {
	src := workflow.Source(udf)
	switch s := src.(type) {
	case workflow.Project:
		if transform, ok := reshapeToJS(s.Reshape, "value"); ok {
			transformFn := jsir.Func{Params: []string{"value"}, Body: []jsir.Node{jsir.Return{Value: transform}}}
			return rebuild(s.Src, prependValueTransform(fn, transformFn))
		}
		return udf
	case workflow.Unwind:
		if s.Field.Root == "ROOT" {
			flatMapFn := unwindFlatMapFn(s.Field.Path)
			if _, isReduce := udf.(workflow.Reduce); isReduce {
				// A Reduce's second parameter is already an array of
				// values, not a single document to explode — unwind
				// fusion only applies to the per-document UDFs.
				return udf
			}
			return composeUnwindWithUDF(udf, s.Src, flatMapFn)
		}
		return udf
	default:
		return udf
	}
}

// prependValueTransform rewrites fn so its second parameter is reassigned
// to transform(value) before the original body runs.
func prependValueTransform(fn jsir.Func, transform jsir.Func) jsir.Func {
	valueParam := "value"
	if len(fn.Params) > 1 {
		valueParam = fn.Params[1]
	}
	assign := jsir.Assign{
		Target: jsir.Ident{Name: valueParam},
		Value:  jsir.Call{Callee: transform, Args: []jsir.Node{jsir.Ident{Name: valueParam}}},
	}
	return jsir.Func{Params: fn.Params, Body: append([]jsir.Node{assign}, fn.Body...)}
}

// composeUnwindWithUDF rewrites a Map/FlatMap over an Unwind into a
// FlatMap over the unwind's own source, sequencing the unwind's
// equivalent flat-map through the original UDF body.
func composeUnwindWithUDF(udf workflow.Op, newSrc workflow.Op, unwindFn jsir.Func) workflow.Op {
	switch u := udf.(type) {
	case workflow.Map:
		return workflow.MakeFlatMap(newSrc, sequenceFlatMapThenMap(unwindFn, u.Fn))
	case workflow.FlatMap:
		return workflow.MakeFlatMap(newSrc, sequenceFlatMapThenFlatMap(unwindFn, u.Fn))
	default:
		return udf
	}
}

// sequenceFlatMapThenMap composes inner (a flat-map yielding pairs) with
// outer (a per-pair map), applying outer to each pair inner emits.
func sequenceFlatMapThenMap(inner, outer jsir.Func) jsir.Func {
	pairs := jsir.Ident{Name: "__pairs"}
	out := jsir.Ident{Name: "__mapped"}
	pair := jsir.Member{Object: pairs, Index: jsir.Ident{Name: "i"}}
	innerCall := jsir.Call{Callee: inner, Args: []jsir.Node{jsir.Ident{Name: "key"}, jsir.Ident{Name: "value"}}}
	outerCall := jsir.Call{
		Callee: outer,
		Args: []jsir.Node{
			jsir.Member{Object: pair, Property: "0", Computed: true},
			jsir.Member{Object: pair, Property: "1", Computed: true},
		},
	}
	return jsir.Func{
		Params: []string{"key", "value"},
		Body: []jsir.Node{
			jsir.VarDecl{Name: "__pairs", Init: innerCall},
			jsir.VarDecl{Name: "__mapped", Init: jsir.ArrayLit{}},
			jsir.ForIn{
				Var:    "i",
				Object: pairs,
				Body: []jsir.Node{
					jsir.Call{
						Callee: jsir.Member{Object: out, Property: "push"},
						Args:   []jsir.Node{outerCall},
					},
				},
			},
			jsir.Return{Value: out},
		},
	}
}

// sequenceFlatMapThenFlatMap composes inner with a second flat-map outer,
// concatenating outer's results across every pair inner emits.
func sequenceFlatMapThenFlatMap(inner, outer jsir.Func) jsir.Func {
	pairs := jsir.Ident{Name: "__pairs"}
	out := jsir.Ident{Name: "__flattened"}
	pair := jsir.Member{Object: pairs, Index: jsir.Ident{Name: "i"}}
	innerCall := jsir.Call{Callee: inner, Args: []jsir.Node{jsir.Ident{Name: "key"}, jsir.Ident{Name: "value"}}}
	outerCall := jsir.Call{
		Callee: outer,
		Args: []jsir.Node{
			jsir.Member{Object: pair, Property: "0", Computed: true},
			jsir.Member{Object: pair, Property: "1", Computed: true},
		},
	}
	return jsir.Func{
		Params: []string{"key", "value"},
		Body: []jsir.Node{
			jsir.VarDecl{Name: "__pairs", Init: innerCall},
			jsir.VarDecl{Name: "__flattened", Init: jsir.ArrayLit{}},
			jsir.ForIn{
				Var:    "i",
				Object: pairs,
				Body: []jsir.Node{
					jsir.VarDecl{Name: "__sub", Init: outerCall},
					jsir.ForIn{
						Var:    "j",
						Object: jsir.Ident{Name: "__sub"},
						Body: []jsir.Node{
							jsir.Call{
								Callee: jsir.Member{Object: out, Property: "push"},
								Args:   []jsir.Node{jsir.Member{Object: jsir.Ident{Name: "__sub"}, Index: jsir.Ident{Name: "j"}}},
							},
						},
					},
				},
			},
			jsir.Return{Value: out},
		},
	}
}

// normalizeFoldLeft ensures the head is wrapped under {value: ROOT} and
// every tail ends in a Reduce, appending the default merge-reduce to any
// tail that doesn't already end in one. Head and tails are finalized
// recursively first.
func normalizeFoldLeft(fl workflow.FoldLeft) workflow.Op {
	head := Finalize(fl.Head)
	wrappedHead := workflow.MakeProject(head, reshape.Doc{Fields: []reshape.DocField{
		{Name: "value", Value: reshape.ExprElem{Expr: expr.Var{Path: expr.ROOT}}},
	}})

	tails := make([]workflow.Op, len(fl.Tails))
	for i, t := range fl.Tails {
		finalized := Finalize(t)
		if _, ok := finalized.(workflow.Reduce); ok {
			tails[i] = finalized
			continue
		}
		tails[i] = workflow.MakeReduce(finalized, defaultMergeReduceFn())
	}

	return workflow.FoldLeft{Head: wrappedHead, Tails: tails}
}
