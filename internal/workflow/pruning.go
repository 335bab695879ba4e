package workflow

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
)

// fieldRefs is the set of fields a downstream consumer needs. The zero
// value is NOT meaningful; use unconstrained() or exact().
//
// A nil refs slice with all==true means "unconstrained": keep
// everything. This is the state at the very top of a Finish call (there
// is no parent to name which output fields matter) and whenever pruning
// crosses an opaque UDF boundary, since a JS body's field usage cannot
// be analyzed and conservatism requires assuming it needs everything
// upstream of it.
type fieldRefs struct {
	all  bool
	refs []expr.DocVar
}

func unconstrained() fieldRefs { return fieldRefs{all: true} }

func exact(refs []expr.DocVar) fieldRefs { return fieldRefs{refs: refs} }

// needs reports whether v is used: v is used if it contains, or is
// contained by, any field in the ref set (DocVar-prefix comparison in
// either direction).
func (r fieldRefs) needs(v expr.DocVar) bool {
	if r.all {
		return true
	}
	for _, p := range r.refs {
		if p.StartsWith(v) || v.StartsWith(p) {
			return true
		}
	}
	return false
}

func (r fieldRefs) extend(more []expr.DocVar) fieldRefs {
	if r.all {
		return r
	}
	return exact(append(append([]expr.DocVar(nil), r.refs...), more...))
}

// Finish runs the top-down unused-field pruning pass: it removes
// project/group output fields that nothing downstream of op needs, then
// recurses. Finish is idempotent: Finish(Finish(w)) == Finish(w), since
// a second pass over an already-pruned graph finds nothing further to
// remove.
func Finish(op Op) Op {
	return deleteUnusedFields(op, unconstrained())
}

func deleteUnusedFields(op Op, parentRefs fieldRefs) Op {
	switch n := op.(type) {
	case Project:
		doc, ok := n.Reshape.(reshape.Doc)
		if !ok {
			newSrc := deleteUnusedFields(n.Src, unconstrained())
			return Project{Src: newSrc, Reshape: n.Reshape}
		}
		kept := pruneDoc(doc, parentRefs)
		childRefs := exact(docVarsFromNames(reshape.Refs(kept)))
		newSrc := deleteUnusedFields(n.Src, childRefs)
		return Project{Src: newSrc, Reshape: kept}

	case Group:
		kept := pruneGroupEntries(n, parentRefs)
		childRefs := exact(groupChildRefs(kept, n.By))
		newSrc := deleteUnusedFields(n.Src, childRefs)
		return Group{Src: newSrc, Grouped: kept, By: n.By}

	case Match:
		newSrc := deleteUnusedFields(n.Src, parentRefs.extend(exprRefs(n.Selector)))
		n.Src = newSrc
		return n

	case Sort:
		var own []expr.DocVar
		for _, k := range n.Keys {
			own = append(own, k.Field)
		}
		newSrc := deleteUnusedFields(n.Src, parentRefs.extend(own))
		n.Src = newSrc
		return n

	case Limit:
		n.Src = deleteUnusedFields(n.Src, parentRefs)
		return n

	case Skip:
		n.Src = deleteUnusedFields(n.Src, parentRefs)
		return n

	case Redact:
		newSrc := deleteUnusedFields(n.Src, parentRefs.extend(exprRefs(n.Cond)))
		n.Src = newSrc
		return n

	case Unwind:
		// The unwind's own field reference alone is not a "use" for
		// pruning purposes; propagate parentRefs unchanged.
		n.Src = deleteUnusedFields(n.Src, parentRefs)
		return n

	case GeoNear:
		own := exprRefs(n.Query)
		newSrc := deleteUnusedFields(n.Src, parentRefs.extend(own))
		n.Src = newSrc
		return n

	case Map:
		n.Src = deleteUnusedFields(n.Src, unconstrained())
		return n
	case FlatMap:
		n.Src = deleteUnusedFields(n.Src, unconstrained())
		return n
	case Reduce:
		n.Src = deleteUnusedFields(n.Src, unconstrained())
		return n

	case FoldLeft:
		newHead := deleteUnusedFields(n.Head, unconstrained())
		newTails := make([]Op, len(n.Tails))
		for i, t := range n.Tails {
			newTails[i] = deleteUnusedFields(t, unconstrained())
		}
		return FoldLeft{Head: newHead, Tails: newTails}

	case Join:
		newSources := make([]Op, len(n.Sources))
		for i, s := range n.Sources {
			newSources[i] = deleteUnusedFields(s, unconstrained())
		}
		return Join{Sources: newSources}

	default:
		// Pure, Read: sources have no children to recurse into.
		return op
	}
}

func pruneDoc(doc reshape.Doc, parentRefs fieldRefs) reshape.Doc {
	kept := make([]reshape.DocField, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		if parentRefs.needs(expr.Field(f.Name)) {
			kept = append(kept, f)
		}
	}
	return reshape.Doc{Fields: kept}
}

func pruneGroupEntries(g Group, parentRefs fieldRefs) []stage.GroupedEntry {
	kept := make([]stage.GroupedEntry, 0, len(g.Grouped))
	for _, e := range g.Grouped {
		if parentRefs.needs(expr.Field(e.Name)) {
			kept = append(kept, e)
		}
	}
	return kept
}

func groupChildRefs(kept []stage.GroupedEntry, by reshape.Elem) []expr.DocVar {
	var out []expr.DocVar
	for _, e := range kept {
		out = append(out, exprRefs(e.Op)...)
	}
	out = append(out, elemRefs(by)...)
	return out
}

func elemRefs(e reshape.Elem) []expr.DocVar {
	switch v := e.(type) {
	case reshape.ExprElem:
		return exprRefs(v.Expr)
	case reshape.ReshapeElem:
		names := reshape.Refs(v.Reshape)
		return docVarsFromNames(names)
	default:
		return nil
	}
}

// exprRefs collects the DocVar of every Var referenced anywhere inside e,
// whatever its root; only ROOT-rooted ones can match an output field in
// needs.
func exprRefs(e expr.Expr) []expr.DocVar {
	if e == nil {
		return nil
	}
	var out []expr.DocVar
	expr.MapUp(e, func(n expr.Expr) expr.Expr {
		if v, ok := n.(expr.Var); ok {
			out = append(out, v.Path)
		}
		return n
	})
	return out
}

func docVarsFromNames(names map[string]bool) []expr.DocVar {
	out := make([]expr.DocVar, 0, len(names))
	for name := range names {
		out = append(out, expr.Field(name))
	}
	return out
}
