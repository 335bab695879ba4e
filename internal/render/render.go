// Package render builds the op graph's debug tree: each op becomes a
// labeled node whose type is the op's name and whose children are its
// source ops, plus a small set of human-readable details (selectors,
// reshapes, group specs, JS bodies) for the op kinds that carry them.
package render

import (
	"fmt"
	"strings"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/nysm-ir/planir/internal/workflow"
)

// Tree renders op as a plain map/slice tree — deliberately built out of
// map[string]any, []any, and string rather than a dedicated struct, so it
// feeds ir.MarshalCanonical directly for golden-file comparison.
func Tree(op workflow.Op) map[string]any {
	switch n := op.(type) {
	case workflow.Pure:
		return node("Pure", details("value", literalString(n.Value)))
	case workflow.Read:
		return node("Read", details("collection", n.Collection))
	case workflow.Match:
		return node("Match", details("selector", exprString(n.Selector)), Tree(n.Src))
	case workflow.Sort:
		return node("Sort", details("keys", sortKeysString(n.Keys)), Tree(n.Src))
	case workflow.Limit:
		return node("Limit", details("count", fmt.Sprintf("%d", n.Count)), Tree(n.Src))
	case workflow.Skip:
		return node("Skip", details("count", fmt.Sprintf("%d", n.Count)), Tree(n.Src))
	case workflow.Project:
		return node("Project", details("shape", reshapeString(n.Reshape)), Tree(n.Src))
	case workflow.Redact:
		return node("Redact", details("cond", exprString(n.Cond)), Tree(n.Src))
	case workflow.Unwind:
		return node("Unwind", details("field", n.Field.String()), Tree(n.Src))
	case workflow.Group:
		return node("Group", details("by", elemString(n.By), "grouped", groupedString(n.Grouped)), Tree(n.Src))
	case workflow.GeoNear:
		return node("GeoNear", details(
			"distanceField", n.DistanceField,
			"coordinates", fmt.Sprintf("%v", n.Coordinates),
			"spherical", fmt.Sprintf("%v", n.Spherical),
		), Tree(n.Src))
	case workflow.Map:
		return node("Map", details("fn", jsir.Print(n.Fn)), Tree(n.Src))
	case workflow.FlatMap:
		return node("FlatMap", details("fn", jsir.Print(n.Fn)), Tree(n.Src))
	case workflow.Reduce:
		return node("Reduce", details("fn", jsir.Print(n.Fn)), Tree(n.Src))
	case workflow.FoldLeft:
		children := append([]map[string]any{Tree(n.Head)}, treeAll(n.Tails)...)
		return nodeMany("FoldLeft", nil, children)
	case workflow.Join:
		return nodeMany("Join", nil, treeAll(n.Sources))
	default:
		return node("Unknown", nil)
	}
}

func node(typ string, det map[string]any, children ...map[string]any) map[string]any {
	return nodeMany(typ, det, children)
}

func nodeMany(typ string, det map[string]any, children []map[string]any) map[string]any {
	out := map[string]any{"type": typ}
	if len(det) > 0 {
		out["detail"] = det
	}
	if len(children) > 0 {
		kids := make([]any, len(children))
		for i, c := range children {
			kids[i] = c
		}
		out["children"] = kids
	}
	return out
}

// details builds a detail map from alternating key/value strings.
func details(kv ...string) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func treeAll(ops []workflow.Op) []map[string]any {
	out := make([]map[string]any, len(ops))
	for i, o := range ops {
		out[i] = Tree(o)
	}
	return out
}

func literalString(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRNull:
		return "null"
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return fmt.Sprintf("%d", val)
	case ir.IRBool:
		if val {
			return "true"
		}
		return "false"
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = literalString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.IRObject:
		keys := val.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + literalString(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}

func exprString(e expr.Expr) string {
	if e == nil {
		return ""
	}
	switch n := e.(type) {
	case expr.Literal:
		return literalString(n.Value)
	case expr.Var:
		return n.Path.String()
	case expr.BinOp:
		return "(" + exprString(n.Left) + " " + string(n.Op) + " " + exprString(n.Right) + ")"
	case expr.Not:
		return "!(" + exprString(n.Arg) + ")"
	case expr.Cond:
		return "(" + exprString(n.If) + " ? " + exprString(n.Then) + " : " + exprString(n.Else) + ")"
	case expr.JSWhere:
		return "$where(" + n.Code + ")"
	case expr.Accumulate:
		return string(n.Kind) + "(" + exprString(n.Arg) + ")"
	default:
		return "?"
	}
}

func reshapeString(r reshape.Reshape) string {
	switch n := r.(type) {
	case reshape.Doc:
		parts := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			parts[i] = f.Name + ": " + elemString(f.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case reshape.Arr:
		parts := make([]string, len(n.Elements))
		for i, e := range n.Elements {
			parts[i] = elemString(e.Value)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

func elemString(e reshape.Elem) string {
	switch n := e.(type) {
	case reshape.ExprElem:
		return exprString(n.Expr)
	case reshape.ReshapeElem:
		return reshapeString(n.Reshape)
	default:
		return "?"
	}
}

func groupedString(entries []stage.GroupedEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Name + ": " + exprString(e.Op)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortKeysString(keys []stage.SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		dir := "asc"
		if k.Descending {
			dir = "desc"
		}
		parts[i] = k.Field.String() + " " + dir
	}
	return strings.Join(parts, ", ")
}
