package expr

// MapUp applies f to every sub-expression of e, bottom-up: children are
// rewritten first, then f is applied to the (already-rewritten) node
// itself. This is the single generic traversal every rewrite in this
// package and the stage package is built from.
func MapUp(e Expr, f func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case Literal, Var:
		return f(n)
	case BinOp:
		return f(BinOp{
			Op:    n.Op,
			Left:  MapUp(n.Left, f),
			Right: MapUp(n.Right, f),
		})
	case Not:
		return f(Not{Arg: MapUp(n.Arg, f)})
	case Cond:
		return f(Cond{
			If:   MapUp(n.If, f),
			Then: MapUp(n.Then, f),
			Else: MapUp(n.Else, f),
		})
	case Accumulate:
		return f(Accumulate{Kind: n.Kind, Arg: MapUp(n.Arg, f)})
	default:
		return f(n)
	}
}

// Substitute rewrites every Var in e whose DocVar is in f's domain,
// replacing it with the DocVar f returns. f's second return value reports
// whether the DocVar was in its domain; when false, the Var is left alone.
//
// Substitute preserves the GroupOp/plain-Expr distinction: it never
// changes an expression's concrete type, only the DocVars nested inside
// Var leaves, so invariant 2 (rewriting a GroupOp yields a GroupOp) holds
// by construction at this layer. Callers that substitute a whole
// expression for a Var (e.g. inlining a Project over Project) must check
// the invariant themselves — see the stage package's rewriteGroup.
func Substitute(e Expr, f func(DocVar) (DocVar, bool)) Expr {
	return MapUp(e, func(n Expr) Expr {
		v, ok := n.(Var)
		if !ok {
			return n
		}
		newPath, inDomain := f(v.Path)
		if !inDomain {
			return n
		}
		return Var{Path: newPath}
	})
}

// Rebase returns a substitution function that rewrites every DocVar rooted
// at ROOT to be rooted at base instead (the `base \ _` operation used by
// the merge algorithm).
func Rebase(base DocVar) func(DocVar) (DocVar, bool) {
	return func(v DocVar) (DocVar, bool) {
		if v.Root != "ROOT" {
			return v, false
		}
		return base.Concat(v), true
	}
}
