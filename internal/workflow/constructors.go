package workflow

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
)

// MakePure builds a Pure source op. There is nothing to coalesce — a
// literal has no predecessor.
func MakePure(value ir.IRValue) Op {
	return Pure{Value: value}
}

// MakeRead builds a Read source op.
func MakeRead(collection string) Op {
	return Read{Collection: collection}
}

// MakeMatch builds a Match op, applying the match/sort swap and
// match/match AND-fusion peephole rules.
func MakeMatch(src Op, selector expr.Expr) Op {
	switch s := src.(type) {
	case Sort:
		// Match over Sort: filtering doesn't depend on order, so float
		// the match below the sort.
		return MakeSort(MakeMatch(s.Src, selector), s.Keys)
	case Match:
		return MakeMatch(s.Src, expr.BinOp{Op: expr.OpAnd, Left: selector, Right: s.Selector})
	default:
		return Match{Src: src, Selector: selector}
	}
}

// MakeSort builds a Sort op. No coalescing rule collapses sort over
// sort in this design — a later sort's key list is semantically the one
// that governs output order, so re-sorting is left explicit rather than
// silently dropping the earlier sort's cost.
func MakeSort(src Op, keys []stage.SortKey) Op {
	return Sort{Src: src, Keys: keys}
}

// MakeLimit builds a Limit op, applying limit/limit-minimum and
// limit/skip rewrite peepholes.
func MakeLimit(src Op, count int64) Op {
	switch s := src.(type) {
	case Limit:
		if count > s.Count {
			count = s.Count
		}
		return MakeLimit(s.Src, count)
	case Skip:
		// limit(n)(skip(m)(x)) -> skip(m)(limit(n+m)(x))
		return MakeSkip(MakeLimit(s.Src, count+s.Count), s.Count)
	default:
		return Limit{Src: src, Count: count}
	}
}

// MakeSkip builds a Skip op, applying skip/skip addition.
func MakeSkip(src Op, count int64) Op {
	if s, ok := src.(Skip); ok {
		return MakeSkip(s.Src, count+s.Count)
	}
	return Skip{Src: src, Count: count}
}

// MakeProject builds a Project op, attempting project/project inlining,
// project/group fusion, and the project-over-(unwind-over-group) 3-way
// fusion. Any rule that cannot prove its precondition keeps both stages
// rather than guessing.
func MakeProject(src Op, shape reshape.Reshape) Op {
	switch s := src.(type) {
	case Project:
		if inlined, ok := inlineProjectOverProject(shape, s.Reshape); ok {
			return MakeProject(s.Src, inlined)
		}
	case Unwind:
		if g, ok := s.Src.(Group); ok {
			if fused, newUnwindField, ok := fuseProjectUnwindGroup(shape, g, s.Field); ok {
				return MakeUnwind(MakeGroupRaw(g.Src, fused.Grouped, fused.By), newUnwindField)
			}
		}
	case Group:
		if fused, ok := fuseProjectOverGroup(shape, s); ok {
			return MakeGroupRaw(s.Src, fused.Grouped, fused.By)
		}
	}
	return Project{Src: src, Reshape: shape}
}

// inlineProjectOverProject attempts to push outer through inner: if
// every Var in outer resolves to a leaf expression defined by inner,
// the composite reshape is returned. Only direct (single-segment)
// top-level references are resolved; anything deeper is left unfused.
func inlineProjectOverProject(outer, inner reshape.Reshape) (reshape.Reshape, bool) {
	outerDoc, ok := outer.(reshape.Doc)
	if !ok {
		return nil, false
	}
	innerDoc, ok := inner.(reshape.Doc)
	if !ok {
		return nil, false
	}
	newFields := make([]reshape.DocField, 0, len(outerDoc.Fields))
	for _, f := range outerDoc.Fields {
		ee, ok := f.Value.(reshape.ExprElem)
		if !ok {
			return nil, false
		}
		newExpr, ok := substituteFromDoc(ee.Expr, innerDoc)
		if !ok {
			return nil, false
		}
		newFields = append(newFields, reshape.DocField{Name: f.Name, Value: reshape.ExprElem{Expr: newExpr}})
	}
	return reshape.Doc{Fields: newFields}, true
}

// substituteFromDoc rewrites every ROOT-rooted, single-segment Var in e
// by inlining the matching top-level leaf expression of inner. It
// reports false if any Var cannot be resolved this way.
func substituteFromDoc(e expr.Expr, inner reshape.Doc) (expr.Expr, bool) {
	ok := true
	rewritten := expr.MapUp(e, func(n expr.Expr) expr.Expr {
		v, isVar := n.(expr.Var)
		if !isVar || !ok {
			return n
		}
		if v.Path.Root != "ROOT" || len(v.Path.Path) != 1 {
			ok = false
			return n
		}
		elem, found := inner.Field(v.Path.Path[0])
		if !found {
			ok = false
			return n
		}
		ee, isExpr := elem.(reshape.ExprElem)
		if !isExpr {
			ok = false
			return n
		}
		return ee.Expr
	})
	return rewritten, ok
}

// fuseProjectOverGroup fuses a project atop a group when every
// projected field is a direct pass-through of a grouped name (possibly
// renamed). Returns the fused Group; the caller discards the Project.
func fuseProjectOverGroup(shape reshape.Reshape, g Group) (Group, bool) {
	doc, ok := shape.(reshape.Doc)
	if !ok {
		return Group{}, false
	}
	newGrouped := make([]stage.GroupedEntry, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		ee, ok := f.Value.(reshape.ExprElem)
		if !ok {
			return Group{}, false
		}
		v, ok := ee.Expr.(expr.Var)
		if !ok || v.Path.Root != "ROOT" || len(v.Path.Path) != 1 {
			return Group{}, false
		}
		op, found := g.Field(v.Path.Path[0])
		if !found {
			return Group{}, false
		}
		newGrouped = append(newGrouped, stage.GroupedEntry{Name: f.Name, Op: op})
	}
	return Group{Src: g.Src, Grouped: newGrouped, By: g.By}, true
}

// fuseProjectUnwindGroup performs the three-way fusion: a project atop
// an unwind atop a group. It requires the unwound field to itself be a
// pass-through of the fused grouped output, and returns the rewritten
// unwind field alongside the fused group.
func fuseProjectUnwindGroup(shape reshape.Reshape, g Group, unwindField expr.DocVar) (Group, expr.DocVar, bool) {
	fused, ok := fuseProjectOverGroup(shape, g)
	if !ok {
		return Group{}, expr.DocVar{}, false
	}
	if unwindField.Root != "ROOT" || len(unwindField.Path) != 1 {
		return Group{}, expr.DocVar{}, false
	}
	oldName := unwindField.Path[0]
	for _, f := range fused.Grouped {
		if v, ok := unwindSourceName(g, oldName); ok && f.Name == v {
			return fused, expr.Field(f.Name), true
		}
	}
	return Group{}, expr.DocVar{}, false
}

func unwindSourceName(g Group, projectedName string) (string, bool) {
	if _, ok := g.Field(projectedName); ok {
		return projectedName, true
	}
	return "", false
}

// MakeRedact builds a Redact op.
func MakeRedact(src Op, cond expr.Expr) Op {
	return Redact{Src: src, Cond: cond}
}

// MakeUnwind builds an Unwind op.
func MakeUnwind(src Op, field expr.DocVar) Op {
	return Unwind{Src: src, Field: field}
}

// MakeGroup builds a Group op.
func MakeGroup(src Op, grouped []stage.GroupedEntry, by reshape.Elem) Op {
	return MakeGroupRaw(src, grouped, by)
}

// MakeGroupRaw constructs a Group without re-running fusion against its
// own source; used internally by the project/group fusion rules, which
// have already computed the fused grouped-map.
func MakeGroupRaw(src Op, grouped []stage.GroupedEntry, by reshape.Elem) Op {
	return Group{Src: src, Grouped: grouped, By: by}
}

// MakeGeoNear builds a GeoNear op, hoisting it to sit directly atop the
// ultimate source of any WPipeline chain it is constructed over. It
// returns ErrDoubleGeoNear if src's chain already contains a GeoNear.
func MakeGeoNear(src Op, coords []float64, distanceField string, limit *int64, maxDist *float64, query expr.Expr, spherical bool, multiplier *float64, includeLocs string, uniqueDocs bool) (Op, error) {
	if _, isGeo := src.(GeoNear); isGeo {
		return nil, ErrDoubleGeoNear
	}
	if IsWPipeline(src) {
		inner := Source(src)
		hoisted, err := MakeGeoNear(inner, coords, distanceField, limit, maxDist, query, spherical, multiplier, includeLocs, uniqueDocs)
		if err != nil {
			return nil, err
		}
		return Reparent(src, hoisted), nil
	}
	return GeoNear{
		Src:           src,
		Coordinates:   coords,
		DistanceField: distanceField,
		Limit:         limit,
		MaxDistance:   maxDist,
		Query:         query,
		Spherical:     spherical,
		Multiplier:    multiplier,
		IncludeLocs:   includeLocs,
		UniqueDocs:    uniqueDocs,
	}, nil
}

// MakeMap builds a Map UDF op, composing with an immediately preceding
// Map or FlatMap per the UDF composition rule (see compose.go).
func MakeMap(src Op, fn jsir.Func) Op {
	switch s := src.(type) {
	case Map:
		return Map{Src: s.Src, Fn: composeMapMap(s.Fn, fn)}
	case FlatMap:
		return FlatMap{Src: s.Src, Fn: composeFlatMapMap(s.Fn, fn)}
	default:
		return Map{Src: src, Fn: fn}
	}
}

// MakeFlatMap builds a FlatMap UDF op, composing with an immediately
// preceding Map or FlatMap.
func MakeFlatMap(src Op, fn jsir.Func) Op {
	switch s := src.(type) {
	case Map:
		return FlatMap{Src: s.Src, Fn: composeMapFlatMap(s.Fn, fn)}
	case FlatMap:
		return FlatMap{Src: s.Src, Fn: composeFlatMapFlatMap(s.Fn, fn)}
	default:
		return FlatMap{Src: src, Fn: fn}
	}
}

// MakeReduce builds a Reduce UDF op. Reduce does not compose with its
// source the way Map/FlatMap do — a reduce's (key, values) signature
// does not line up with a preceding Map/FlatMap's (key, value) output
// in a way that inlines safely, so it is left as a separate stage.
func MakeReduce(src Op, fn jsir.Func) Op {
	return Reduce{Src: src, Fn: fn}
}

// MakeFoldLeft builds a FoldLeft op, flattening a FoldLeft head or tail
// that is itself a FoldLeft into a single wider FoldLeft.
func MakeFoldLeft(head Op, tails []Op) (Op, error) {
	if len(tails) == 0 {
		return nil, ErrEmptyFoldLeftTails
	}
	if fl, ok := head.(FoldLeft); ok {
		allTails := append(append([]Op(nil), fl.Tails...), tails...)
		return MakeFoldLeft(fl.Head, allTails)
	}
	flat := make([]Op, 0, len(tails))
	for _, t := range tails {
		if inner, ok := t.(FoldLeft); ok {
			flat = append(flat, inner.Head)
			flat = append(flat, inner.Tails...)
			continue
		}
		flat = append(flat, t)
	}
	return FoldLeft{Head: head, Tails: flat}, nil
}

// MakeJoin builds a Join op over an unordered set of sources.
func MakeJoin(sources []Op) (Op, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyJoinSources
	}
	return Join{Sources: append([]Op(nil), sources...)}, nil
}
