package stage

import (
	"fmt"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/reshape"
)

// TypeChangingRewriteError is returned when a DocVar substitution would
// turn a Group's accumulator from a GroupOp into a plain expression —
// invariant 2. This is a programming error in the substitution function,
// not a user error; it is fatal.
type TypeChangingRewriteError struct {
	GroupField string
}

func (e *TypeChangingRewriteError) Error() string {
	return fmt.Sprintf("rewriteRefs: substitution turned group field %q into a non-GroupOp expression", e.GroupField)
}

// RewriteRefs applies a DocVar substitution to every embedded expression,
// selector, sort key, reshape, or geo-near field of s. It preserves s's
// concrete type — a Match stays a Match — and does not descend into child
// ops, because stages have none; only the workflow layer's ops do.
func RewriteRefs(s Stage, f func(expr.DocVar) (expr.DocVar, bool)) (Stage, error) {
	switch n := s.(type) {
	case Match:
		return Match{Selector: expr.Substitute(n.Selector, f)}, nil

	case Sort:
		keys := make([]SortKey, len(n.Keys))
		for i, k := range n.Keys {
			rewritten, ok := f(k.Field)
			if !ok {
				rewritten = k.Field
			}
			keys[i] = SortKey{Field: rewritten, Descending: k.Descending}
		}
		return Sort{Keys: keys}, nil

	case Limit, Skip:
		return s, nil

	case Project:
		return Project{Reshape: reshape.RewriteRefs(n.Reshape, f)}, nil

	case Redact:
		return Redact{Cond: expr.Substitute(n.Cond, f)}, nil

	case Unwind:
		rewritten, ok := f(n.Field)
		if !ok {
			rewritten = n.Field
		}
		return Unwind{Field: rewritten}, nil

	case Group:
		return rewriteGroup(n, f)

	case GeoNear:
		query := n.Query
		if query != nil {
			query = expr.Substitute(query, f)
		}
		distanceField, includeLocs := n.DistanceField, n.IncludeLocs
		if base, ok := f(expr.ROOT); ok {
			distanceField = expr.RebaseFieldName(n.DistanceField, base)
			includeLocs = expr.RebaseFieldName(n.IncludeLocs, base)
		}
		return GeoNear{
			Coordinates:   n.Coordinates,
			DistanceField: distanceField,
			Limit:         n.Limit,
			MaxDistance:   n.MaxDistance,
			Query:         query,
			Spherical:     n.Spherical,
			Multiplier:    n.Multiplier,
			IncludeLocs:   includeLocs,
			UniqueDocs:    n.UniqueDocs,
		}, nil

	default:
		return s, nil
	}
}

func rewriteGroup(g Group, f func(expr.DocVar) (expr.DocVar, bool)) (Stage, error) {
	grouped := make([]GroupedEntry, len(g.Grouped))
	for i, e := range g.Grouped {
		rewritten := expr.Substitute(e.Op, f)
		op, ok := rewritten.(expr.GroupOp)
		if !ok {
			return nil, &TypeChangingRewriteError{GroupField: e.Name}
		}
		grouped[i] = GroupedEntry{Name: e.Name, Op: op}
	}

	by := g.By
	if by != nil {
		by = rewriteByElem(by, f)
	}

	return Group{Grouped: grouped, By: by}, nil
}

func rewriteByElem(e reshape.Elem, f func(expr.DocVar) (expr.DocVar, bool)) reshape.Elem {
	switch n := e.(type) {
	case reshape.ExprElem:
		return reshape.ExprElem{Expr: expr.Substitute(n.Expr, f)}
	case reshape.ReshapeElem:
		return reshape.ReshapeElem{Reshape: reshape.RewriteRefs(n.Reshape, f)}
	default:
		return e
	}
}
