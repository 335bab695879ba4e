package reshape

import (
	"fmt"
	"strings"

	"github.com/nysm-ir/planir/internal/expr"
)

// Key returns a structural fingerprint of r, used for reshape-merge
// conflict detection and op-graph equality checks upstream.
func Key(r Reshape) string {
	switch n := r.(type) {
	case Doc:
		parts := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			parts[i] = f.Name + "=" + elemKey(f.Value)
		}
		return "doc{" + strings.Join(parts, ",") + "}"
	case Arr:
		parts := make([]string, len(n.Elements))
		for i, f := range n.Elements {
			parts[i] = fmt.Sprintf("%d=%s", f.Index, elemKey(f.Value))
		}
		return "arr[" + strings.Join(parts, ",") + "]"
	default:
		return "nil"
	}
}

// ElemKey returns a structural fingerprint of a single Doc/Arr entry
// value (leaf expression or nested reshape), used when an Elem appears
// outside a full Reshape — e.g. a Group's "by" key.
func ElemKey(e Elem) string {
	return elemKey(e)
}

func elemKey(e Elem) string {
	switch n := e.(type) {
	case ExprElem:
		return "e(" + expr.Key(n.Expr) + ")"
	case ReshapeElem:
		return "r(" + Key(n.Reshape) + ")"
	default:
		return "?"
	}
}
