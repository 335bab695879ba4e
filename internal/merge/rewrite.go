package merge

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/workflow"
)

// rewrite implements the rebasing helper: given an op and the base its
// predecessor now lives at inside a merged graph, rebase every internal
// reference through base, and report the base the op's own output now
// lives at — ROOT if op is Group or Project (both reset the document
// shape), else base unchanged.
func rewrite(op workflow.Op, base expr.DocVar) (workflow.Op, expr.DocVar, error) {
	rewritten, err := workflow.RewriteRefs(op, expr.Rebase(base))
	if err != nil {
		return nil, expr.DocVar{}, err
	}
	switch rewritten.(type) {
	case workflow.Group, workflow.Project:
		return rewritten, expr.ROOT, nil
	default:
		return rewritten, base, nil
	}
}

// absorbOverOther recurses into distinguished's own source merged with
// other, then reparents distinguished back on top of the result,
// rewriting distinguished's own fields to account for its predecessor's
// new location. This is the shared shape behind every "recurse into
// X's source, then reparent X atop the result" dispatch rule.
func absorbOverOther(distinguished, other workflow.Op) (Result, error) {
	sub, err := Merge(workflow.Source(distinguished), other)
	if err != nil {
		return Result{}, err
	}
	rewritten, newBase, err := rewrite(distinguished, sub.BaseA)
	if err != nil {
		return Result{}, err
	}
	merged := workflow.Reparent(rewritten, sub.Merged)
	return Result{BaseA: newBase, BaseB: sub.BaseB, Merged: merged}, nil
}

func rebaseElem(e reshape.Elem, base expr.DocVar) reshape.Elem {
	switch v := e.(type) {
	case reshape.ExprElem:
		return reshape.ExprElem{Expr: expr.Substitute(v.Expr, expr.Rebase(base))}
	case reshape.ReshapeElem:
		return reshape.ReshapeElem{Reshape: reshape.RewriteRefs(v.Reshape, expr.Rebase(base))}
	default:
		return e
	}
}
