package merge

import (
	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/nysm-ir/planir/internal/workflow"
)

// Result is the output of Merge: a single op graph plus the two
// DocVars locating A's and B's original outputs inside it.
type Result struct {
	BaseA, BaseB expr.DocVar
	Merged       workflow.Op
}

// rule attempts to merge a against b under one named dispatch-table
// entry. matched reports whether the rule's precondition held; when
// matched is false, the caller moves on to the next rule (or retries
// this same rule with arguments swapped).
type rule func(a, b workflow.Op) (result Result, matched bool, err error)

// rules is the dispatch table in spec order. Merge tries each rule
// against (a, b); if it doesn't match, it retries against (b, a) and,
// on a match, swaps the returned bases — this is `delegate`.
var rules []rule

func init() {
	rules = []rule{
		ruleIdentity,          // 1
		rulePurePure,          // 2
		rulePureAny,           // 3
		ruleGeoNearPipeline,   // 4
		ruleShapePreserving,   // 6 (rule 5 "shared source" falls out of ruleProjectWrap's recursive Merge hitting ruleIdentity)
		ruleUnwindGroup,       // 8
		ruleGroupGroupEqualBy, // 9
		ruleGroupPipeline,     // 10
		ruleProjectProject,    // 11
		ruleRedactRedact,      // 13
		ruleUnwindUnwind,      // 14, 15
		ruleUnwindRedact,      // 16
		ruleUDFProject,        // 18 (rule 17 falls out of ruleFallback for the Read-vs-Map UDF boundary)
		ruleProjectWrap,       // 5, 7, 12
		ruleAnyWPipeline,      // 19
		ruleFallback,          // 20
	}
}

// Merge is the binary merge algorithm: given two workflow op graphs,
// return a single op graph that shares their common source, namespacing
// any divergence under lEft/rIght, plus the DocVars locating each
// input's original output inside the result.
func Merge(a, b workflow.Op) (Result, error) {
	for _, r := range rules {
		if res, ok, err := r(a, b); ok {
			if err != nil {
				return Result{}, err
			}
			return res, nil
		}
		if res, ok, err := r(b, a); ok {
			if err != nil {
				return Result{}, err
			}
			return Result{BaseA: res.BaseB, BaseB: res.BaseA, Merged: res.Merged}, nil
		}
	}
	// ruleFallback always matches, so this is unreachable; kept for an
	// exhaustive, total switch rather than relying on that invariant.
	return ruleFallbackApply(a, b)
}

// 1. A == B.
func ruleIdentity(a, b workflow.Op) (Result, bool, error) {
	if workflow.Equal(a, b) {
		return Result{BaseA: expr.ROOT, BaseB: expr.ROOT, Merged: a}, true, nil
	}
	return Result{}, false, nil
}

// 2. Pure vs Pure.
func rulePurePure(a, b workflow.Op) (Result, bool, error) {
	pa, ok := a.(workflow.Pure)
	if !ok {
		return Result{}, false, nil
	}
	pb, ok := b.(workflow.Pure)
	if !ok {
		return Result{}, false, nil
	}
	merged := workflow.MakePure(ir.NewIRObjectFromPairs(
		ir.IRPair{Key: LEft, Value: pa.Value},
		ir.IRPair{Key: RIght, Value: pb.Value},
	))
	return Result{BaseA: expr.Field(LEft), BaseB: expr.Field(RIght), Merged: merged}, true, nil
}

// 3. Pure vs any.
func rulePureAny(a, b workflow.Op) (Result, bool, error) {
	pa, ok := a.(workflow.Pure)
	if !ok {
		return Result{}, false, nil
	}
	if _, isPure := b.(workflow.Pure); isPure {
		return Result{}, false, nil
	}
	merged := workflow.MakeProject(b, reshape.Doc{Fields: []reshape.DocField{
		{Name: LEft, Value: reshape.ExprElem{Expr: expr.Literal{Value: pa.Value}}},
		{Name: RIght, Value: reshape.ExprElem{Expr: expr.Var{Path: expr.ROOT}}},
	}})
	return Result{BaseA: expr.Field(LEft), BaseB: expr.Field(RIght), Merged: merged}, true, nil
}

// 4. GeoNear vs Pipeline.
func ruleGeoNearPipeline(a, b workflow.Op) (Result, bool, error) {
	if _, ok := a.(workflow.GeoNear); !ok {
		return Result{}, false, nil
	}
	if !workflow.IsWPipeline(b) {
		return Result{}, false, nil
	}
	res, err := absorbOverOther(a, b)
	return res, true, err
}

// 6. ShapePreserving vs Pipeline.
func ruleShapePreserving(a, b workflow.Op) (Result, bool, error) {
	if !workflow.IsShapePreserving(a) {
		return Result{}, false, nil
	}
	if !workflow.IsWPipeline(b) {
		return Result{}, false, nil
	}
	res, err := absorbOverOther(a, b)
	return res, true, err
}

// 8. Unwind vs Group.
func ruleUnwindGroup(a, b workflow.Op) (Result, bool, error) {
	if _, ok := a.(workflow.Unwind); !ok {
		return Result{}, false, nil
	}
	if _, ok := b.(workflow.Group); !ok {
		return Result{}, false, nil
	}
	res, err := absorbOverOther(a, b)
	return res, true, err
}

// 9. Group vs Group with equal by.
func ruleGroupGroupEqualBy(a, b workflow.Op) (Result, bool, error) {
	ga, ok := a.(workflow.Group)
	if !ok {
		return Result{}, false, nil
	}
	gb, ok := b.(workflow.Group)
	if !ok {
		return Result{}, false, nil
	}
	if reshape.ElemKey(ga.By) != reshape.ElemKey(gb.By) {
		return Result{}, false, nil
	}

	sub, err := Merge(ga.Src, gb.Src)
	if err != nil {
		return Result{}, true, err
	}

	grouped := make([]stage.GroupedEntry, 0, len(ga.Grouped)+len(gb.Grouped))
	leftFields := make([]reshape.DocField, 0, len(ga.Grouped))
	for _, e := range ga.Grouped {
		fresh := freshName()
		rebased := expr.Substitute(e.Op, expr.Rebase(sub.BaseA))
		groupOp, ok := rebased.(expr.GroupOp)
		if !ok {
			return Result{}, true, &TypeChangingMergeError{Field: e.Name}
		}
		grouped = append(grouped, stage.GroupedEntry{Name: fresh, Op: groupOp})
		leftFields = append(leftFields, reshape.DocField{Name: e.Name, Value: reshape.ExprElem{Expr: expr.Var{Path: expr.Field(fresh)}}})
	}
	rightFields := make([]reshape.DocField, 0, len(gb.Grouped))
	for _, e := range gb.Grouped {
		fresh := freshName()
		rebased := expr.Substitute(e.Op, expr.Rebase(sub.BaseB))
		groupOp, ok := rebased.(expr.GroupOp)
		if !ok {
			return Result{}, true, &TypeChangingMergeError{Field: e.Name}
		}
		grouped = append(grouped, stage.GroupedEntry{Name: fresh, Op: groupOp})
		rightFields = append(rightFields, reshape.DocField{Name: e.Name, Value: reshape.ExprElem{Expr: expr.Var{Path: expr.Field(fresh)}}})
	}

	rebasedBy := rebaseElem(ga.By, sub.BaseA)
	mergedGroup := workflow.MakeGroupRaw(sub.Merged, grouped, rebasedBy)

	proj := workflow.MakeProject(mergedGroup, reshape.Doc{Fields: []reshape.DocField{
		{Name: LEft, Value: reshape.ReshapeElem{Reshape: reshape.Doc{Fields: leftFields}}},
		{Name: RIght, Value: reshape.ReshapeElem{Reshape: reshape.Doc{Fields: rightFields}}},
	}})
	return Result{BaseA: expr.Field(LEft), BaseB: expr.Field(RIght), Merged: proj}, true, nil
}

// 10. Group vs Pipeline (and not Group vs Group — rule 9 owns that).
func ruleGroupPipeline(a, b workflow.Op) (Result, bool, error) {
	g, ok := a.(workflow.Group)
	if !ok {
		return Result{}, false, nil
	}
	if !workflow.IsWPipeline(b) {
		return Result{}, false, nil
	}
	if _, isGroup := b.(workflow.Group); isGroup {
		return Result{}, false, nil
	}

	sub, err := Merge(g.Src, b)
	if err != nil {
		return Result{}, true, err
	}

	fresh := freshName()
	rebasedGrouped := make([]stage.GroupedEntry, len(g.Grouped))
	for i, e := range g.Grouped {
		rebased := expr.Substitute(e.Op, expr.Rebase(sub.BaseA))
		groupOp, ok := rebased.(expr.GroupOp)
		if !ok {
			return Result{}, true, &TypeChangingMergeError{Field: e.Name}
		}
		rebasedGrouped[i] = stage.GroupedEntry{Name: e.Name, Op: groupOp}
	}
	pushEntry := stage.GroupedEntry{Name: fresh, Op: expr.Accumulate{Kind: expr.GroupPush, Arg: expr.Var{Path: sub.BaseB}}}
	augmented := append(rebasedGrouped, pushEntry)
	rebasedBy := rebaseElem(g.By, sub.BaseA)
	mergedGroup := workflow.MakeGroupRaw(sub.Merged, augmented, rebasedBy)
	unwound := workflow.MakeUnwind(mergedGroup, expr.Field(fresh))
	return Result{BaseA: expr.ROOT, BaseB: expr.Field(fresh), Merged: unwound}, true, nil
}

// 11. Project vs Project.
func ruleProjectProject(a, b workflow.Op) (Result, bool, error) {
	pa, ok := a.(workflow.Project)
	if !ok {
		return Result{}, false, nil
	}
	pb, ok := b.(workflow.Project)
	if !ok {
		return Result{}, false, nil
	}
	sub, err := Merge(pa.Src, pb.Src)
	if err != nil {
		return Result{}, true, err
	}
	rebasedA := reshape.RewriteRefs(pa.Reshape, expr.Rebase(sub.BaseA))
	rebasedB := reshape.RewriteRefs(pb.Reshape, expr.Rebase(sub.BaseB))
	if combined, ok := reshape.Merge(rebasedA, rebasedB); ok {
		merged := workflow.MakeProject(sub.Merged, combined)
		return Result{BaseA: expr.ROOT, BaseB: expr.ROOT, Merged: merged}, true, nil
	}
	wrapped := workflow.MakeProject(sub.Merged, reshape.Doc{Fields: []reshape.DocField{
		{Name: LEft, Value: reshape.ReshapeElem{Reshape: rebasedA}},
		{Name: RIght, Value: reshape.ReshapeElem{Reshape: rebasedB}},
	}})
	return Result{BaseA: expr.Field(LEft), BaseB: expr.Field(RIght), Merged: wrapped}, true, nil
}

// 13. Redact vs Redact.
func ruleRedactRedact(a, b workflow.Op) (Result, bool, error) {
	ra, ok := a.(workflow.Redact)
	if !ok {
		return Result{}, false, nil
	}
	rb, ok := b.(workflow.Redact)
	if !ok {
		return Result{}, false, nil
	}
	sub, err := Merge(ra.Src, rb.Src)
	if err != nil {
		return Result{}, true, err
	}
	condA := expr.Substitute(ra.Cond, expr.Rebase(sub.BaseA))
	condB := expr.Substitute(rb.Cond, expr.Rebase(sub.BaseB))
	merged := workflow.MakeRedact(workflow.MakeRedact(sub.Merged, condA), condB)
	return Result{BaseA: sub.BaseA, BaseB: sub.BaseB, Merged: merged}, true, nil
}

// 14, 15. Unwind vs Unwind, same or different fields.
func ruleUnwindUnwind(a, b workflow.Op) (Result, bool, error) {
	ua, ok := a.(workflow.Unwind)
	if !ok {
		return Result{}, false, nil
	}
	ub, ok := b.(workflow.Unwind)
	if !ok {
		return Result{}, false, nil
	}
	sub, err := Merge(ua.Src, ub.Src)
	if err != nil {
		return Result{}, true, err
	}
	fieldA, _ := expr.Rebase(sub.BaseA)(ua.Field)
	fieldB, _ := expr.Rebase(sub.BaseB)(ub.Field)
	if fieldA.Equal(fieldB) {
		merged := workflow.MakeUnwind(sub.Merged, fieldA)
		return Result{BaseA: sub.BaseA, BaseB: sub.BaseB, Merged: merged}, true, nil
	}
	merged := workflow.MakeUnwind(workflow.MakeUnwind(sub.Merged, fieldA), fieldB)
	return Result{BaseA: sub.BaseA, BaseB: sub.BaseB, Merged: merged}, true, nil
}

// 16. Unwind vs Redact.
func ruleUnwindRedact(a, b workflow.Op) (Result, bool, error) {
	if _, ok := a.(workflow.Unwind); !ok {
		return Result{}, false, nil
	}
	if _, ok := b.(workflow.Redact); !ok {
		return Result{}, false, nil
	}
	res, err := absorbOverOther(a, b)
	return res, true, err
}

// 18. Map vs Project (any UDF vs Project).
func ruleUDFProject(a, b workflow.Op) (Result, bool, error) {
	if !workflow.IsUDF(a) {
		return Result{}, false, nil
	}
	pb, ok := b.(workflow.Project)
	if !ok {
		return Result{}, false, nil
	}
	sub, err := Merge(a, pb.Src)
	if err != nil {
		return Result{}, true, err
	}
	rebasedShape := reshape.RewriteRefs(pb.Reshape, expr.Rebase(sub.BaseB))
	merged := workflow.MakeProject(sub.Merged, reshape.Doc{Fields: []reshape.DocField{
		{Name: LEft, Value: reshape.ExprElem{Expr: expr.Var{Path: sub.BaseA}}},
		{Name: RIght, Value: reshape.ReshapeElem{Reshape: rebasedShape}},
	}})
	return Result{BaseA: expr.Field(LEft), BaseB: expr.Field(RIght), Merged: merged}, true, nil
}

// 5, 7, 12. Project vs (shared source | Source | WPipeline). The
// "shared source" shortcut of rule 5 falls out for free: recursing
// Merge(p.Src, b) when b == p.Src hits ruleIdentity and returns
// (ROOT, ROOT, p.Src), producing exactly rule 5's wrapping.
func ruleProjectWrap(a, b workflow.Op) (Result, bool, error) {
	p, ok := a.(workflow.Project)
	if !ok {
		return Result{}, false, nil
	}
	if _, isGroup := b.(workflow.Group); isGroup {
		return Result{}, false, nil
	}
	if _, isProject := b.(workflow.Project); isProject {
		return Result{}, false, nil
	}
	sub, err := Merge(p.Src, b)
	if err != nil {
		return Result{}, true, err
	}
	rebasedShape := reshape.RewriteRefs(p.Reshape, expr.Rebase(sub.BaseA))
	merged := workflow.MakeProject(sub.Merged, reshape.Doc{Fields: []reshape.DocField{
		{Name: LEft, Value: reshape.ReshapeElem{Reshape: rebasedShape}},
		{Name: RIght, Value: reshape.ExprElem{Expr: expr.Var{Path: sub.BaseB}}},
	}})
	return Result{BaseA: expr.Field(LEft), BaseB: expr.Field(RIght), Merged: merged}, true, nil
}

// 19. Any vs WPipeline (default). Group is excluded: unlike the other
// WPipeline ops, Group does not preserve a 1:1 document correspondence
// with its source, so it cannot be absorbed by reparenting alone —
// rules 9 and 10 own every legitimate Group combination, and anything
// they don't match (Group vs Group with unequal by) must fall through
// to the fallback FoldLeft rather than be mishandled here.
func ruleAnyWPipeline(a, b workflow.Op) (Result, bool, error) {
	if _, isGroup := a.(workflow.Group); isGroup {
		return Result{}, false, nil
	}
	if !workflow.IsWPipeline(b) {
		return Result{}, false, nil
	}
	if _, isGroup := b.(workflow.Group); isGroup {
		return Result{}, false, nil
	}
	if !workflow.IsSingleSource(b) {
		return Result{}, false, nil
	}
	res, err := absorbOverOther(b, a)
	if err != nil {
		return Result{}, true, err
	}
	return Result{BaseA: res.BaseB, BaseB: res.BaseA, Merged: res.Merged}, true, nil
}

// 20. Fallback: two disjoint branches become a FoldLeft, each branch
// projected under its own namespace. This also covers rule 17
// (Read vs Map at the UDF boundary), whose prescribed construction —
// wrap both sides in a FoldLeft, one projected under lEft, the other
// (after running its map) projected under rIght — is structurally
// identical to this general fallback.
func ruleFallback(a, b workflow.Op) (Result, bool, error) {
	res, err := ruleFallbackApply(a, b)
	return res, true, err
}

func ruleFallbackApply(a, b workflow.Op) (Result, error) {
	left := workflow.MakeProject(a, reshape.Doc{Fields: []reshape.DocField{
		{Name: LEft, Value: reshape.ExprElem{Expr: expr.Var{Path: expr.ROOT}}},
	}})
	right := workflow.MakeProject(b, reshape.Doc{Fields: []reshape.DocField{
		{Name: RIght, Value: reshape.ExprElem{Expr: expr.Var{Path: expr.ROOT}}},
	}})
	merged, err := workflow.MakeFoldLeft(left, []workflow.Op{right})
	if err != nil {
		return Result{}, err
	}
	return Result{BaseA: expr.Field(LEft), BaseB: expr.Field(RIght), Merged: merged}, nil
}
