package workflow

import (
	"testing"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docShape(fields ...reshape.DocField) reshape.Doc {
	return reshape.Doc{Fields: fields}
}

func exprField(name string, e expr.Expr) reshape.DocField {
	return reshape.DocField{Name: name, Value: reshape.ExprElem{Expr: e}}
}

// Scenario 1: limit fusion.
func TestLimitFusionTakesMinimum(t *testing.T) {
	src := MakeRead("c")
	got := MakeLimit(MakeLimit(src, 10), 5)

	lim, ok := got.(Limit)
	require.True(t, ok)
	assert.Equal(t, int64(5), lim.Count)
	assert.Equal(t, Read{Collection: "c"}, lim.Src)
}

func TestLimitFusionOtherOrderAlsoTakesMinimum(t *testing.T) {
	got := MakeLimit(MakeLimit(MakeRead("c"), 5), 10)
	assert.Equal(t, int64(5), got.(Limit).Count)
}

// Scenario 2: match fusion.
func TestMatchFusionANDsSelectors(t *testing.T) {
	selX := expr.BinOp{Op: expr.OpEq, Left: expr.Var{Path: expr.Field("x")}, Right: expr.Literal{Value: ir.IRInt(1)}}
	selY := expr.BinOp{Op: expr.OpEq, Left: expr.Var{Path: expr.Field("y")}, Right: expr.Literal{Value: ir.IRInt(2)}}

	got := MakeMatch(MakeMatch(MakeRead("c"), selX), selY)

	m, ok := got.(Match)
	require.True(t, ok)
	bin, ok := m.Selector.(expr.BinOp)
	require.True(t, ok)
	assert.Equal(t, expr.OpAnd, bin.Op)
	assert.Equal(t, Read{Collection: "c"}, m.Src)
}

// Scenario 3: match-sort swap.
func TestMatchOverSortSwapsToSortOverMatch(t *testing.T) {
	keys := []stage.SortKey{{Field: expr.Field("k")}}
	sel := expr.Var{Path: expr.Field("p")}

	got := MakeMatch(MakeSort(MakeRead("c"), keys), sel)

	sort, ok := got.(Sort)
	require.True(t, ok)
	assert.Equal(t, keys, sort.Keys)
	match, ok := sort.Src.(Match)
	require.True(t, ok)
	assert.Equal(t, sel, match.Selector)
	assert.Equal(t, Read{Collection: "c"}, match.Src)
}

func TestSkipSkipAddsCounts(t *testing.T) {
	got := MakeSkip(MakeSkip(MakeRead("c"), 3), 4)
	assert.Equal(t, int64(7), got.(Skip).Count)
}

func TestLimitOverSkipRewrite(t *testing.T) {
	got := MakeLimit(MakeSkip(MakeRead("c"), 5), 10)

	skip, ok := got.(Skip)
	require.True(t, ok)
	assert.Equal(t, int64(5), skip.Count)
	lim, ok := skip.Src.(Limit)
	require.True(t, ok)
	assert.Equal(t, int64(15), lim.Count)
}

func TestProjectOverProjectInlinesDirectReferences(t *testing.T) {
	inner := docShape(exprField("a", expr.Literal{Value: ir.IRInt(1)}))
	outer := docShape(exprField("b", expr.Var{Path: expr.Field("a")}))

	got := MakeProject(MakeProject(MakeRead("c"), inner), outer)

	p, ok := got.(Project)
	require.True(t, ok)
	assert.Equal(t, Read{Collection: "c"}, p.Src)
}

func TestProjectOverProjectKeepsBothWhenUnresolvable(t *testing.T) {
	inner := docShape(exprField("a", expr.Literal{Value: ir.IRInt(1)}))
	outer := docShape(exprField("b", expr.Var{Path: expr.Field("missing")}))

	got := MakeProject(MakeProject(MakeRead("c"), inner), outer)

	outerP, ok := got.(Project)
	require.True(t, ok)
	_, innerIsProject := outerP.Src.(Project)
	assert.True(t, innerIsProject)
}

func TestGeoNearHoistsAboveMatch(t *testing.T) {
	got, err := MakeGeoNear(MakeMatch(MakeRead("c"), expr.Var{Path: expr.Field("p")}), nil, "dist", nil, nil, nil, false, nil, "", false)
	require.NoError(t, err)

	match, ok := got.(Match)
	require.True(t, ok)
	_, geoIsSource := match.Src.(GeoNear)
	assert.True(t, geoIsSource)
}

func TestGeoNearRejectsDoubleChaining(t *testing.T) {
	first, err := MakeGeoNear(MakeRead("c"), nil, "d1", nil, nil, nil, false, nil, "", false)
	require.NoError(t, err)

	_, err = MakeGeoNear(first, nil, "d2", nil, nil, nil, false, nil, "", false)
	assert.ErrorIs(t, err, ErrDoubleGeoNear)
}

func TestFoldLeftFlattensNestedFoldLeft(t *testing.T) {
	inner, err := MakeFoldLeft(MakeRead("a"), []Op{MakeRead("b")})
	require.NoError(t, err)

	got, err := MakeFoldLeft(inner, []Op{MakeRead("c")})
	require.NoError(t, err)

	fl, ok := got.(FoldLeft)
	require.True(t, ok)
	assert.Equal(t, Read{Collection: "a"}, fl.Head)
	assert.Len(t, fl.Tails, 2)
}

func TestMakeFoldLeftRejectsEmptyTails(t *testing.T) {
	_, err := MakeFoldLeft(MakeRead("a"), nil)
	assert.ErrorIs(t, err, ErrEmptyFoldLeftTails)
}

func TestMakeJoinRejectsEmptySources(t *testing.T) {
	_, err := MakeJoin(nil)
	assert.ErrorIs(t, err, ErrEmptyJoinSources)
}
