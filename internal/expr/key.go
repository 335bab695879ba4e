package expr

import (
	"fmt"
	"strings"
)

// Key returns a structural fingerprint of e suitable for equality checks
// (e.g. reshape merge conflict detection). Two expressions with the same
// Key are guaranteed structurally identical; this is not a general
// normal form — it does not recognize semantically equivalent but
// differently-shaped expressions (commuted operands, etc).
func Key(e Expr) string {
	if e == nil {
		return "nil"
	}
	switch n := e.(type) {
	case Literal:
		return fmt.Sprintf("lit(%#v)", n.Value)
	case Var:
		return "var(" + n.Path.String() + ")"
	case BinOp:
		return fmt.Sprintf("bin(%s,%s,%s)", n.Op, Key(n.Left), Key(n.Right))
	case Not:
		return "not(" + Key(n.Arg) + ")"
	case Cond:
		return fmt.Sprintf("cond(%s,%s,%s)", Key(n.If), Key(n.Then), Key(n.Else))
	case Accumulate:
		return fmt.Sprintf("acc(%s,%s)", n.Kind, Key(n.Arg))
	case JSWhere:
		return fmt.Sprintf("where(%q)", n.Code)
	default:
		return "?"
	}
}

// Equal reports whether two expressions are structurally identical.
func Equal(a, b Expr) bool {
	return Key(a) == Key(b)
}

// JoinKeys is a small helper used by reshape/stage equality checks that
// fingerprint a slice of expressions.
func JoinKeys(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = Key(e)
	}
	return strings.Join(parts, ";")
}
