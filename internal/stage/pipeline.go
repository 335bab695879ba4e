package stage

import "github.com/nysm-ir/planir/internal/expr"

// Pipelinable reports whether a Match can lower to a native $match stage:
// true when its selector contains no JSWhere escape hatch anywhere in its
// tree. A compound selector (an And/Or of sub-predicates expressed via
// BinOp) is pipelinable only when every leaf is; one JSWhere anywhere
// makes the whole selector unpipelinable — the decision propagates by
// conjunction.
func Pipelinable(m Match) bool {
	pipelinable := true
	expr.MapUp(m.Selector, func(n expr.Expr) expr.Expr {
		if _, ok := n.(expr.JSWhere); ok {
			pipelinable = false
		}
		return n
	})
	return pipelinable
}
