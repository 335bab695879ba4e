package reshape

import "github.com/nysm-ir/planir/internal/expr"

// RewriteRefs applies a DocVar substitution to every expression embedded
// in r, recursing into sub-reshapes but never changing r's own Doc/Arr
// shape or field order (invariant 3).
func RewriteRefs(r Reshape, f func(expr.DocVar) (expr.DocVar, bool)) Reshape {
	switch n := r.(type) {
	case Doc:
		out := Doc{Fields: make([]DocField, len(n.Fields))}
		for i, field := range n.Fields {
			out.Fields[i] = DocField{Name: field.Name, Value: rewriteElem(field.Value, f)}
		}
		return out
	case Arr:
		out := Arr{Elements: make([]ArrField, len(n.Elements))}
		for i, el := range n.Elements {
			out.Elements[i] = ArrField{Index: el.Index, Value: rewriteElem(el.Value, f)}
		}
		return out
	default:
		return r
	}
}

func rewriteElem(e Elem, f func(expr.DocVar) (expr.DocVar, bool)) Elem {
	switch n := e.(type) {
	case ExprElem:
		return ExprElem{Expr: expr.Substitute(n.Expr, f)}
	case ReshapeElem:
		return ReshapeElem{Reshape: RewriteRefs(n.Reshape, f)}
	default:
		return e
	}
}

// Refs collects the set of top-level field names this reshape's leaf
// expressions reference, used by the workflow layer's unused-field
// pruning pass. Only DocVars rooted at ROOT with a non-empty path
// contribute; the root itself is not "a reference to a field".
func Refs(r Reshape) map[string]bool {
	out := map[string]bool{}
	collectRefs(r, out)
	return out
}

func collectRefs(r Reshape, out map[string]bool) {
	switch n := r.(type) {
	case Doc:
		for _, f := range n.Fields {
			collectElemRefs(f.Value, out)
		}
	case Arr:
		for _, f := range n.Elements {
			collectElemRefs(f.Value, out)
		}
	}
}

func collectElemRefs(e Elem, out map[string]bool) {
	switch n := e.(type) {
	case ExprElem:
		expr.MapUp(n.Expr, func(node expr.Expr) expr.Expr {
			if v, ok := node.(expr.Var); ok && v.Path.Root == "ROOT" && len(v.Path.Path) > 0 {
				out[v.Path.Path[0]] = true
			}
			return node
		})
	case ReshapeElem:
		collectRefs(n.Reshape, out)
	}
}
