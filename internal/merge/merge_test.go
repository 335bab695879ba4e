package merge

import (
	"testing"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/nysm-ir/planir/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docShape(fields ...reshape.DocField) reshape.Doc {
	return reshape.Doc{Fields: fields}
}

func exprField(name string, e expr.Expr) reshape.DocField {
	return reshape.DocField{Name: name, Value: reshape.ExprElem{Expr: e}}
}

// Scenario 4: merging two reads of the same collection collapses to identity.
func TestMergeIdenticalReadsIsIdentity(t *testing.T) {
	a := workflow.MakeRead("carts")
	b := workflow.MakeRead("carts")

	res, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, expr.ROOT, res.BaseA)
	assert.Equal(t, expr.ROOT, res.BaseB)
	assert.Equal(t, a, res.Merged)
}

// Scenario 5: Pure vs Pure namespaces both literals under lEft/rIght.
func TestMergePurePureNamespaces(t *testing.T) {
	a := workflow.MakePure(ir.IRInt(1))
	b := workflow.MakePure(ir.IRInt(2))

	res, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, expr.Field(LEft), res.BaseA)
	assert.Equal(t, expr.Field(RIght), res.BaseB)
	p, ok := res.Merged.(workflow.Pure)
	require.True(t, ok)
	obj, ok := p.Value.(ir.IRObject)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{LEft, RIght}, obj.SortedKeys())
}

func TestMergePureAnyWrapsOtherUnderRight(t *testing.T) {
	a := workflow.MakePure(ir.IRInt(1))
	b := workflow.MakeRead("carts")

	res, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, expr.Field(LEft), res.BaseA)
	assert.Equal(t, expr.Field(RIght), res.BaseB)
	proj, ok := res.Merged.(workflow.Project)
	require.True(t, ok)
	_, isRead := proj.Src.(workflow.Read)
	assert.True(t, isRead)
}

// Scenario 6: Group vs Group with equal by keys shares one Group stage.
func TestMergeGroupGroupEqualByShareOneGroup(t *testing.T) {
	src := workflow.MakeRead("orders")
	by := reshape.ExprElem{Expr: expr.Var{Path: expr.Field("customerId")}}

	ga := workflow.MakeGroup(src, []stage.GroupedEntry{
		{Name: "total", Op: expr.Accumulate{Kind: expr.GroupSum, Arg: expr.Var{Path: expr.Field("amount")}}},
	}, by)
	gb := workflow.MakeGroup(src, []stage.GroupedEntry{
		{Name: "count", Op: expr.Accumulate{Kind: expr.GroupSum, Arg: expr.Literal{Value: ir.IRInt(1)}}},
	}, by)

	res, err := Merge(ga, gb)
	require.NoError(t, err)

	proj, ok := res.Merged.(workflow.Project)
	require.True(t, ok)
	group, ok := proj.Src.(workflow.Group)
	require.True(t, ok)
	assert.Len(t, group.Grouped, 2)
	assert.Equal(t, workflow.Read{Collection: "orders"}, group.Src)

	leftElem, ok := proj.Reshape.(reshape.Doc).Field(LEft)
	require.True(t, ok)
	_, leftIsReshape := leftElem.(reshape.ReshapeElem)
	assert.True(t, leftIsReshape)
}

func TestMergeGroupGroupDifferentByFallsThroughToFoldLeft(t *testing.T) {
	src := workflow.MakeRead("orders")
	ga := workflow.MakeGroup(src, []stage.GroupedEntry{
		{Name: "total", Op: expr.Accumulate{Kind: expr.GroupSum, Arg: expr.Var{Path: expr.Field("amount")}}},
	}, reshape.ExprElem{Expr: expr.Var{Path: expr.Field("customerId")}})
	gb := workflow.MakeGroup(src, []stage.GroupedEntry{
		{Name: "count", Op: expr.Accumulate{Kind: expr.GroupSum, Arg: expr.Literal{Value: ir.IRInt(1)}}},
	}, reshape.ExprElem{Expr: expr.Var{Path: expr.Field("region")}})

	res, err := Merge(ga, gb)
	require.NoError(t, err)

	_, ok := res.Merged.(workflow.FoldLeft)
	assert.True(t, ok)
}

// Project vs Project: disjoint fields merge into a single combined shape.
func TestMergeProjectProjectDisjointFieldsCombine(t *testing.T) {
	src := workflow.MakeRead("carts")
	a := workflow.MakeProject(src, docShape(exprField("x", expr.Var{Path: expr.Field("x")})))
	b := workflow.MakeProject(src, docShape(exprField("y", expr.Var{Path: expr.Field("y")})))

	res, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, expr.ROOT, res.BaseA)
	assert.Equal(t, expr.ROOT, res.BaseB)
	proj, ok := res.Merged.(workflow.Project)
	require.True(t, ok)
	doc := proj.Reshape.(reshape.Doc)
	_, hasX := doc.Field("x")
	_, hasY := doc.Field("y")
	assert.True(t, hasX)
	assert.True(t, hasY)
}

// Project vs Project: conflicting definitions of the same field namespace
// rather than merge.
func TestMergeProjectProjectConflictingFieldsNamespace(t *testing.T) {
	src := workflow.MakeRead("carts")
	a := workflow.MakeProject(src, docShape(exprField("x", expr.Literal{Value: ir.IRInt(1)})))
	b := workflow.MakeProject(src, docShape(exprField("x", expr.Literal{Value: ir.IRInt(2)})))

	res, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, expr.Field(LEft), res.BaseA)
	assert.Equal(t, expr.Field(RIght), res.BaseB)
	proj, ok := res.Merged.(workflow.Project)
	require.True(t, ok)
	doc := proj.Reshape.(reshape.Doc)
	_, hasLeft := doc.Field(LEft)
	_, hasRight := doc.Field(RIght)
	assert.True(t, hasLeft)
	assert.True(t, hasRight)
}

func TestMergeUnwindUnwindSameFieldShares(t *testing.T) {
	src := workflow.MakeRead("carts")
	a := workflow.MakeUnwind(src, expr.Field("items"))
	b := workflow.MakeUnwind(src, expr.Field("items"))

	res, err := Merge(a, b)
	require.NoError(t, err)

	_, ok := res.Merged.(workflow.Unwind)
	require.True(t, ok)
	inner := res.Merged.(workflow.Unwind).Src
	_, isUnwind := inner.(workflow.Unwind)
	assert.False(t, isUnwind)
}

func TestMergeUnwindUnwindDifferentFieldsChain(t *testing.T) {
	src := workflow.MakeRead("carts")
	a := workflow.MakeUnwind(src, expr.Field("items"))
	b := workflow.MakeUnwind(src, expr.Field("tags"))

	res, err := Merge(a, b)
	require.NoError(t, err)

	outer, ok := res.Merged.(workflow.Unwind)
	require.True(t, ok)
	_, innerIsUnwind := outer.Src.(workflow.Unwind)
	assert.True(t, innerIsUnwind)
}

func TestMergeRedactRedactChains(t *testing.T) {
	src := workflow.MakeRead("carts")
	condA := expr.Var{Path: expr.Field("a")}
	condB := expr.Var{Path: expr.Field("b")}
	a := workflow.MakeRedact(src, condA)
	b := workflow.MakeRedact(src, condB)

	res, err := Merge(a, b)
	require.NoError(t, err)

	outer, ok := res.Merged.(workflow.Redact)
	require.True(t, ok)
	_, innerIsRedact := outer.Src.(workflow.Redact)
	assert.True(t, innerIsRedact)
}

// Disjoint branches with no shared structure fall back to a FoldLeft.
func TestMergeDisjointBranchesFallsBackToFoldLeft(t *testing.T) {
	a := workflow.MakeRead("carts")
	b := workflow.MakeRead("orders")

	res, err := Merge(a, b)
	require.NoError(t, err)

	fl, ok := res.Merged.(workflow.FoldLeft)
	require.True(t, ok)
	assert.Len(t, fl.Tails, 1)
	assert.Equal(t, expr.Field(LEft), res.BaseA)
	assert.Equal(t, expr.Field(RIght), res.BaseB)
}

func TestMergeIsCommutativeUpToBaseSwap(t *testing.T) {
	a := workflow.MakeRead("carts")
	b := workflow.MakeRead("orders")

	forward, err := Merge(a, b)
	require.NoError(t, err)
	backward, err := Merge(b, a)
	require.NoError(t, err)

	assert.Equal(t, forward.BaseA, backward.BaseB)
	assert.Equal(t, forward.BaseB, backward.BaseA)
}

// Rule 4: GeoNear vs Pipeline, where the two branches diverge (different
// source collections) deep enough that GeoNear ends up absorbed under a
// non-ROOT base (rIght) rather than ROOT. DistanceField/IncludeLocs name
// the fields $geoNear writes, not DocVars it reads, so they need their own
// rebase through that base — otherwise $geoNear would write "dist"/"locs"
// at the merged document's true top level instead of under "rIght",
// corrupting the merged document shape.
func TestMergeGeoNearPipelineRebasesOutputFieldsUnderNonROOTBase(t *testing.T) {
	a := workflow.GeoNear{
		Src:           workflow.MakeRead("places"),
		Coordinates:   []float64{1, 2},
		DistanceField: "dist",
		IncludeLocs:   "locs",
	}
	b := workflow.MakeProject(workflow.MakeRead("orders"), docShape(exprField("y", expr.Var{Path: expr.Field("y")})))

	res, err := Merge(a, b)
	require.NoError(t, err)

	geo, ok := res.Merged.(workflow.GeoNear)
	require.True(t, ok)
	assert.Equal(t, expr.Field(RIght), res.BaseA)
	assert.Equal(t, "rIght.dist", geo.DistanceField)
	assert.Equal(t, "rIght.locs", geo.IncludeLocs)
}

func TestMergeShapePreservingAbsorbsOverPipeline(t *testing.T) {
	src := workflow.MakeRead("carts")
	a := workflow.MakeMatch(src, expr.Var{Path: expr.Field("active")})
	b := workflow.MakeProject(src, docShape(exprField("y", expr.Var{Path: expr.Field("y")})))

	res, err := Merge(a, b)
	require.NoError(t, err)

	match, ok := res.Merged.(workflow.Match)
	require.True(t, ok)
	_, innerIsProject := match.Src.(workflow.Project)
	assert.True(t, innerIsProject)
}
