package workflow

import "github.com/nysm-ir/planir/internal/jsir"

// composeMapMap builds the function for Map(Map(src, inner), outer):
// run inner, then feed its [key, value] result into outer.
func composeMapMap(inner, outer jsir.Func) jsir.Func {
	return composeKV(inner, outer)
}

// composeFlatMapMap builds the function for Map(FlatMap(src, inner), outer):
// inner already yields an array of pairs; outer is applied once to the
// map's declared (key, value) parameters, matching Map's contract.
// Composition here degrades to sequencing rather than true fusion since
// FlatMap's output arity differs from Map's input arity.
func composeFlatMapMap(inner, outer jsir.Func) jsir.Func {
	return composeSequential(inner, outer)
}

// composeMapFlatMap builds the function for FlatMap(Map(src, inner), outer).
func composeMapFlatMap(inner, outer jsir.Func) jsir.Func {
	return composeKV(inner, outer)
}

// composeFlatMapFlatMap builds the function for
// FlatMap(FlatMap(src, inner), outer): run inner to get pairs, then
// flat-map each pair through outer, concatenating the results.
func composeFlatMapFlatMap(inner, outer jsir.Func) jsir.Func {
	return composeSequential(inner, outer)
}

// composeKV composes two (key, value) -> [key, value] functions by
// wrapping inner's call in an immediately-applied function and feeding
// its result positionally into outer.
func composeKV(inner, outer jsir.Func) jsir.Func {
	params := inner.Params
	if len(params) != 2 {
		params = []string{"key", "value"}
	}
	innerCall := jsir.Call{
		Callee: jsir.Func{Params: params, Body: inner.Body},
		Args:   []jsir.Node{jsir.Ident{Name: params[0]}, jsir.Ident{Name: params[1]}},
	}
	return jsir.Func{
		Params: params,
		Body: []jsir.Node{
			jsir.VarDecl{Name: "__composed", Init: innerCall},
			jsir.Return{Value: jsir.Call{
				Callee: outer,
				Args: []jsir.Node{
					jsir.Member{Object: jsir.Ident{Name: "__composed"}, Property: "0", Computed: true},
					jsir.Member{Object: jsir.Ident{Name: "__composed"}, Property: "1", Computed: true},
				},
			}},
		},
	}
}

// composeSequential sequences two UDF bodies where the second consumes
// the first's full result as a single value (the FlatMap-involving
// compositions, whose pair-array output does not line up with a plain
// (key, value) call to outer).
func composeSequential(inner, outer jsir.Func) jsir.Func {
	params := inner.Params
	if len(params) != 2 {
		params = []string{"key", "value"}
	}
	innerCall := jsir.Call{
		Callee: jsir.Func{Params: params, Body: inner.Body},
		Args:   []jsir.Node{jsir.Ident{Name: params[0]}, jsir.Ident{Name: params[1]}},
	}
	return jsir.Func{
		Params: params,
		Body: []jsir.Node{
			jsir.VarDecl{Name: "__composed", Init: innerCall},
			jsir.Return{Value: jsir.Call{
				Callee: outer,
				Args:   []jsir.Node{jsir.Ident{Name: "__composed"}},
			}},
		},
	}
}
