package workflow

import (
	"fmt"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/stage"
)

// RewriteRefs rewrites every DocVar-bearing element of op's own stage
// through f. It preserves op's concrete type and does not descend into
// op's source — only the immediate node is rewritten, matching the
// stage package's contract.
//
// A substitution that turns a GroupOp-valued accumulator into a
// non-GroupOp expression is a programming error and is reported as a
// *stage.TypeChangingRewriteError, not silently dropped.
func RewriteRefs(op Op, f func(expr.DocVar) (expr.DocVar, bool)) (Op, error) {
	s, ok := toStage(op)
	if !ok {
		// Sources, UDFs, and multi-source ops have no DocVar-bearing
		// immediate stage content to rewrite.
		return op, nil
	}
	rewritten, err := stage.RewriteRefs(s, f)
	if err != nil {
		return nil, fmt.Errorf("rewrite refs: %w", err)
	}
	return fromStage(op, rewritten), nil
}

// toStage projects op's own fields into the stage package's value types
// so the generic stage.RewriteRefs traversal can be reused. It reports
// false for ops with no stage representation (sources, UDFs, multi-source).
func toStage(op Op) (stage.Stage, bool) {
	switch n := op.(type) {
	case Match:
		return stage.Match{Selector: n.Selector}, true
	case Sort:
		return stage.Sort{Keys: n.Keys}, true
	case Limit:
		return stage.Limit{Count: n.Count}, true
	case Skip:
		return stage.Skip{Count: n.Count}, true
	case Project:
		return stage.Project{Reshape: n.Reshape}, true
	case Redact:
		return stage.Redact{Cond: n.Cond}, true
	case Unwind:
		return stage.Unwind{Field: n.Field}, true
	case Group:
		return stage.Group{Grouped: n.Grouped, By: n.By}, true
	case GeoNear:
		return stage.GeoNear{
			Coordinates:   n.Coordinates,
			DistanceField: n.DistanceField,
			Limit:         n.Limit,
			MaxDistance:   n.MaxDistance,
			Query:         n.Query,
			Spherical:     n.Spherical,
			Multiplier:    n.Multiplier,
			IncludeLocs:   n.IncludeLocs,
			UniqueDocs:    n.UniqueDocs,
		}, true
	default:
		return nil, false
	}
}

// fromStage copies a rewritten stage's fields back onto op, preserving
// op's Src.
func fromStage(op Op, s stage.Stage) Op {
	switch orig := op.(type) {
	case Match:
		orig.Selector = s.(stage.Match).Selector
		return orig
	case Sort:
		orig.Keys = s.(stage.Sort).Keys
		return orig
	case Limit:
		orig.Count = s.(stage.Limit).Count
		return orig
	case Skip:
		orig.Count = s.(stage.Skip).Count
		return orig
	case Project:
		orig.Reshape = s.(stage.Project).Reshape
		return orig
	case Redact:
		orig.Cond = s.(stage.Redact).Cond
		return orig
	case Unwind:
		orig.Field = s.(stage.Unwind).Field
		return orig
	case Group:
		g := s.(stage.Group)
		orig.Grouped = g.Grouped
		orig.By = g.By
		return orig
	case GeoNear:
		g := s.(stage.GeoNear)
		orig.Coordinates = g.Coordinates
		orig.DistanceField = g.DistanceField
		orig.Limit = g.Limit
		orig.MaxDistance = g.MaxDistance
		orig.Query = g.Query
		orig.Spherical = g.Spherical
		orig.Multiplier = g.Multiplier
		orig.IncludeLocs = g.IncludeLocs
		orig.UniqueDocs = g.UniqueDocs
		return orig
	default:
		return op
	}
}
