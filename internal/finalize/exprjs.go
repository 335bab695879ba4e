package finalize

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
)

// binOps maps the document expression algebra's comparison/arithmetic
// operators onto their JS spellings. Only operators with a direct,
// side-effect-free JS equivalent are listed — anything else makes an
// expression unexpressible as a plain JS transform.
var binOps = map[expr.Op]string{
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

// exprToJS attempts to render e as a JS expression, with every ROOT-rooted
// Var resolved as a member-access chain off root. It reports false for
// anything with no direct JS equivalent: $where escapes, the ternary
// conditional (no expression-position ternary in this AST), Not, and any
// reference outside the document's own fields.
func exprToJS(e expr.Expr, root string) (jsir.Node, bool) {
	switch n := e.(type) {
	case expr.Literal:
		return jsir.Literal{Value: n.Value}, true
	case expr.Var:
		if n.Path.Root != "ROOT" {
			return nil, false
		}
		return memberChain(root, n.Path.Path), true
	case expr.BinOp:
		op, ok := binOps[n.Op]
		if !ok {
			return nil, false
		}
		left, ok := exprToJS(n.Left, root)
		if !ok {
			return nil, false
		}
		right, ok := exprToJS(n.Right, root)
		if !ok {
			return nil, false
		}
		return jsir.BinOp{Op: op, Left: left, Right: right}, true
	default:
		return nil, false
	}
}

func memberChain(root string, path []string) jsir.Node {
	var node jsir.Node = jsir.Ident{Name: root}
	for _, seg := range path {
		node = jsir.Member{Object: node, Property: seg}
	}
	return node
}

// reshapeToJS attempts to render r as a JS object/array literal, with
// every leaf expression resolved against root. It reports false if any
// leaf is not expressible (see exprToJS).
func reshapeToJS(r reshape.Reshape, root string) (jsir.Node, bool) {
	switch n := r.(type) {
	case reshape.Doc:
		props := make([]jsir.ObjectProp, len(n.Fields))
		for i, f := range n.Fields {
			v, ok := elemToJS(f.Value, root)
			if !ok {
				return nil, false
			}
			props[i] = jsir.ObjectProp{Key: f.Name, Value: v}
		}
		return jsir.ObjectLit{Props: props}, true
	case reshape.Arr:
		elems := make([]jsir.Node, len(n.Elements))
		for i, f := range n.Elements {
			v, ok := elemToJS(f.Value, root)
			if !ok {
				return nil, false
			}
			elems[i] = v
		}
		return jsir.ArrayLit{Elements: elems}, true
	default:
		return nil, false
	}
}

func elemToJS(e reshape.Elem, root string) (jsir.Node, bool) {
	switch n := e.(type) {
	case reshape.ExprElem:
		return exprToJS(n.Expr, root)
	case reshape.ReshapeElem:
		return reshapeToJS(n.Reshape, root)
	default:
		return nil, false
	}
}

// defaultMergeReduceFn is the fallback reduce function appended to a
// FoldLeft tail that doesn't already end in one: shallow-merge every
// emitted value for a key into a single accumulator object, later values
// winning on key collision.
func defaultMergeReduceFn() jsir.Func {
	values := jsir.Ident{Name: "values"}
	elem := jsir.Member{Object: values, Index: jsir.Ident{Name: "i"}}
	result := jsir.Ident{Name: "result"}
	return jsir.Func{
		Params: []string{"key", "values"},
		Body: []jsir.Node{
			jsir.VarDecl{Name: "result", Init: jsir.ObjectLit{}},
			jsir.ForIn{
				Var:    "i",
				Object: values,
				Body: []jsir.Node{
					jsir.ForIn{
						Var:    "k",
						Object: elem,
						Body: []jsir.Node{
							jsir.Assign{
								Target: jsir.Member{Object: result, Index: jsir.Ident{Name: "k"}},
								Value:  jsir.Member{Object: elem, Index: jsir.Ident{Name: "k"}},
							},
						},
					},
				},
			},
			jsir.Return{Value: result},
		},
	}
}

// unwindFlatMapFn builds the (key, value) -> [[key, value], ...] function
// equivalent to unwinding fieldPath: push one [key, elem] pair per element
// of the array at fieldPath.
func unwindFlatMapFn(fieldPath []string) jsir.Func {
	arr := jsir.Ident{Name: "__arr"}
	out := jsir.Ident{Name: "__out"}
	elem := jsir.Member{Object: arr, Index: jsir.Ident{Name: "i"}}
	return jsir.Func{
		Params: []string{"key", "value"},
		Body: []jsir.Node{
			jsir.VarDecl{Name: "__out", Init: jsir.ArrayLit{}},
			jsir.VarDecl{Name: "__arr", Init: memberChain("value", fieldPath)},
			jsir.ForIn{
				Var:    "i",
				Object: arr,
				Body: []jsir.Node{
					jsir.Call{
						Callee: jsir.Member{Object: out, Property: "push"},
						Args:   []jsir.Node{jsir.ArrayLit{Elements: []jsir.Node{jsir.Ident{Name: "key"}, elem}}},
					},
				},
			},
			jsir.Return{Value: out},
		},
	}
}
