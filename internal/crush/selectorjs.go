package crush

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
)

// containsJSWhere reports whether e contains a JSWhere leaf anywhere in
// its tree — the pipelinability test. Compound selectors propagate the
// decision by conjunction: any JSWhere anywhere forces the whole selector
// to the map-reduce fallback.
func containsJSWhere(e expr.Expr) bool {
	found := false
	expr.MapUp(e, func(n expr.Expr) expr.Expr {
		if _, ok := n.(expr.JSWhere); ok {
			found = true
		}
		return n
	})
	return found
}

var selectorBinOps = map[expr.Op]string{
	expr.OpAdd:      "+",
	expr.OpSubtract: "-",
	expr.OpMultiply: "*",
	expr.OpDivide:   "/",
	expr.OpEq:       "===",
	expr.OpNeq:      "!==",
	expr.OpLt:       "<",
	expr.OpLte:      "<=",
	expr.OpGt:       ">",
	expr.OpGte:      ">=",
	expr.OpAnd:      "&&",
	expr.OpOr:       "||",
}

// selectorToJS renders a non-pipelinable Match selector as a JS boolean
// expression evaluated against root, splicing any JSWhere leaf's raw code
// in verbatim — the one place in this codebase the $where escape hatch
// is allowed to reach the generated JS directly, since it is already JS.
func selectorToJS(e expr.Expr, root string) jsir.Node {
	switch n := e.(type) {
	case expr.Literal:
		return jsir.Literal{Value: n.Value}
	case expr.Var:
		return memberChain(root, n.Path.Path)
	case expr.BinOp:
		op, ok := selectorBinOps[n.Op]
		if !ok {
			return jsir.Literal{Value: ir.IRBool(true)}
		}
		return jsir.BinOp{Op: op, Left: selectorToJS(n.Left, root), Right: selectorToJS(n.Right, root)}
	case expr.Not:
		return jsir.UnaryOp{Op: "!", Arg: selectorToJS(n.Arg, root)}
	case expr.JSWhere:
		return jsir.Ident{Name: "(" + n.Code + ")"}
	case expr.Cond:
		return jsir.Call{Callee: jsir.Func{
			Body: []jsir.Node{jsir.If{
				Cond: selectorToJS(n.If, root),
				Then: []jsir.Node{jsir.Return{Value: selectorToJS(n.Then, root)}},
				Else: []jsir.Node{jsir.Return{Value: selectorToJS(n.Else, root)}},
			}},
		}}
	default:
		return jsir.Literal{Value: ir.IRBool(true)}
	}
}

func memberChain(root string, path []string) jsir.Node {
	var node jsir.Node = jsir.Ident{Name: root}
	for _, seg := range path {
		node = jsir.Member{Object: node, Property: seg}
	}
	return node
}

// selectorMapFn builds the map function for a non-pipelinable Match: emit
// the (key, value) pair unchanged when the selector holds, drop it
// otherwise.
func selectorMapFn(selector expr.Expr, root string) jsir.Func {
	return jsir.Func{
		Params: []string{"key", "value"},
		Body: []jsir.Node{
			jsir.If{
				Cond: selectorToJS(selector, root),
				Then: []jsir.Node{jsir.Return{Value: jsir.ArrayLit{Elements: []jsir.Node{jsir.Ident{Name: "key"}, jsir.Ident{Name: "value"}}}}},
			},
			jsir.Return{Value: jsir.ArrayLit{}},
		},
	}
}

// defaultIdentityMapFn is the identity (key, value) -> [key, value] map
// used when crush has to emit a fresh MapReduceTask with no real
// transform to apply.
func defaultIdentityMapFn() jsir.Func {
	return jsir.Func{
		Params: []string{"key", "value"},
		Body:   []jsir.Node{jsir.Return{Value: jsir.ArrayLit{Elements: []jsir.Node{jsir.Ident{Name: "key"}, jsir.Ident{Name: "value"}}}}},
	}
}

// defaultIdentityReduceFn is the first-value-wins reduce used as the
// other half of a fresh identity MapReduceTask — adequate whenever the
// mapper is guaranteed to emit at most one value per key.
func defaultIdentityReduceFn() jsir.Func {
	return jsir.Func{
		Params: []string{"key", "values"},
		Body: []jsir.Node{
			jsir.Return{Value: jsir.Member{Object: jsir.Ident{Name: "values"}, Index: jsir.Literal{Value: ir.IRInt(0)}}},
		},
	}
}
