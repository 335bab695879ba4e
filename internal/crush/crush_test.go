package crush

import (
	"testing"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/nysm-ir/planir/internal/task"
	"github.com/nysm-ir/planir/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eqSelector(field string, v int64) expr.Expr {
	return expr.BinOp{Op: expr.OpEq, Left: expr.Var{Path: expr.Field(field)}, Right: expr.Literal{Value: ir.IRInt(v)}}
}

func TestCrushPipelinableMatchYieldsPipelineTask(t *testing.T) {
	op := workflow.MakeMatch(workflow.MakeRead("carts"), eqSelector("status", 1))

	base, tsk, err := Crush(op)
	require.NoError(t, err)
	assert.True(t, base.IsRoot())

	pt, ok := tsk.(task.PipelineTask)
	require.True(t, ok)
	require.Len(t, pt.Stages, 1)
	_, isMatch := pt.Stages[0].(stage.Match)
	assert.True(t, isMatch)
	assert.Equal(t, task.ReadTask{Collection: "carts"}, pt.Base)
}

func TestCrushNonPipelinableMatchYieldsMapReduceTask(t *testing.T) {
	selector := expr.JSWhere{Code: "this.x > this.y"}
	op := workflow.MakeMatch(workflow.MakeRead("carts"), selector)

	base, tsk, err := Crush(op)
	require.NoError(t, err)
	assert.Equal(t, "value", base.Root)
	assert.Empty(t, base.Path)

	mr, ok := tsk.(task.MapReduceTask)
	require.True(t, ok)
	assert.Equal(t, task.ReadTask{Collection: "carts"}, mr.Base)
	assert.Contains(t, jsir.Print(mr.Map), "this.x > this.y")
	assert.Nil(t, mr.Finalizer)
}

func TestCrushLimitFusesThenCrushesToSinglePipelineStage(t *testing.T) {
	op := workflow.MakeLimit(workflow.MakeLimit(workflow.MakeRead("carts"), 10), 5)

	_, tsk, err := Crush(op)
	require.NoError(t, err)

	pt := tsk.(task.PipelineTask)
	require.Len(t, pt.Stages, 1)
	lim := pt.Stages[0].(stage.Limit)
	assert.EqualValues(t, 5, lim.Count)
}

func TestCrushGroupResetsBaseToRoot(t *testing.T) {
	grouped := []stage.GroupedEntry{{Name: "total", Op: expr.Accumulate{Kind: expr.GroupSum, Arg: expr.Var{Path: expr.Field("amount")}}}}
	op := workflow.MakeGroup(workflow.MakeRead("carts"), grouped, reshape.ExprElem{Expr: expr.Var{Path: expr.Field("customerId")}})

	base, tsk, err := Crush(op)
	require.NoError(t, err)
	assert.True(t, base.IsRoot())

	pt := tsk.(task.PipelineTask)
	require.Len(t, pt.Stages, 1)
	_, isGroup := pt.Stages[0].(stage.Group)
	assert.True(t, isGroup)
}

func identityMapFn() jsir.Func {
	return jsir.Func{
		Params: []string{"key", "value"},
		Body:   []jsir.Node{jsir.Return{Value: jsir.ArrayLit{Elements: []jsir.Node{jsir.Ident{Name: "key"}, jsir.Ident{Name: "value"}}}}},
	}
}

func TestCrushMapOverMatchAbsorbsMatchIntoSelection(t *testing.T) {
	matched := workflow.MakeMatch(workflow.MakeRead("carts"), eqSelector("status", 1))
	op := workflow.Map{Src: matched, Fn: identityMapFn()}

	base, tsk, err := Crush(op)
	require.NoError(t, err)
	assert.Equal(t, "value", base.Root)

	mr := tsk.(task.MapReduceTask)
	assert.Equal(t, task.ReadTask{Collection: "carts"}, mr.Base)
	require.NotNil(t, mr.Selection)
}

func TestCrushReduceOverNonPipelinableMatchAttachesAsReduce(t *testing.T) {
	selector := expr.JSWhere{Code: "this.x > 0"}
	matched := workflow.MakeMatch(workflow.MakeRead("carts"), selector)
	reduceFn := jsir.Func{
		Params: []string{"key", "values"},
		Body:   []jsir.Node{jsir.Return{Value: jsir.Member{Object: jsir.Ident{Name: "values"}, Index: jsir.Literal{Value: ir.IRInt(0)}}}},
	}
	op := workflow.Reduce{Src: matched, Fn: reduceFn}

	_, tsk, err := Crush(op)
	require.NoError(t, err)
	mr := tsk.(task.MapReduceTask)
	assert.Equal(t, jsir.Print(reduceFn), jsir.Print(mr.Reduce))
}

func TestCrushReduceOverGroupEmitsFreshMapReduceTask(t *testing.T) {
	grouped := []stage.GroupedEntry{{Name: "total", Op: expr.Accumulate{Kind: expr.GroupSum, Arg: expr.Var{Path: expr.Field("amount")}}}}
	grp := workflow.MakeGroup(workflow.MakeRead("carts"), grouped, reshape.ExprElem{Expr: expr.Var{Path: expr.Field("customerId")}})
	reduceFn := jsir.Func{
		Params: []string{"key", "values"},
		Body:   []jsir.Node{jsir.Return{Value: jsir.Member{Object: jsir.Ident{Name: "values"}, Index: jsir.Literal{Value: ir.IRInt(0)}}}},
	}
	op := workflow.Reduce{Src: grp, Fn: reduceFn}

	base, tsk, err := Crush(op)
	require.NoError(t, err)
	assert.Equal(t, "value", base.Root)

	mr := tsk.(task.MapReduceTask)
	_, baseIsPipeline := mr.Base.(task.PipelineTask)
	assert.True(t, baseIsPipeline)
	assert.Equal(t, jsir.Print(reduceFn), jsir.Print(mr.Reduce))
}

func TestCrushFoldLeftRequiresMapReduceTails(t *testing.T) {
	head := workflow.MakeRead("carts")
	badTail := workflow.MakeRead("orders")
	fl, err := workflow.MakeFoldLeft(head, []workflow.Op{badTail})
	require.NoError(t, err)

	_, _, err = Crush(fl)
	require.Error(t, err)
	var tailErr *InvalidFoldLeftTailError
	assert.ErrorAs(t, err, &tailErr)
}

func TestCrushFoldLeftWithMapReduceTailSetsReduceOutAction(t *testing.T) {
	head := workflow.MakeRead("carts")
	selector := expr.JSWhere{Code: "this.x > 0"}
	tail := workflow.MakeMatch(workflow.MakeRead("orders"), selector)
	fl, err := workflow.MakeFoldLeft(head, []workflow.Op{tail})
	require.NoError(t, err)

	_, tsk, err := Crush(fl)
	require.NoError(t, err)
	flt := tsk.(task.FoldLeftTask)
	require.Len(t, flt.Tails, 1)
	mr := flt.Tails[0].(task.MapReduceTask)
	assert.Equal(t, task.OutReduce, mr.OutAction)
}

func TestCrushJoinWrapsEverySource(t *testing.T) {
	join, err := workflow.MakeJoin([]workflow.Op{workflow.MakeRead("carts"), workflow.MakeRead("orders")})
	require.NoError(t, err)

	_, tsk, err := Crush(join)
	require.NoError(t, err)
	jt := tsk.(task.JoinTask)
	require.Len(t, jt.Sources, 2)
}

// TestCrushGeoNearOverNonROOTBaseRebasesOutputFields covers a GeoNear
// reparented on top of something that doesn't crush to ROOT — here a
// non-pipelinable Match, which crushes to a MapReduceTask located at
// "value". GeoNear's own DistanceField/IncludeLocs are output field names,
// not DocVar references, so crushPipelineStage alone never touches them;
// without an explicit rebase they'd still read "dist"/"locs" and $geoNear
// would write them at the document's true top level instead of nested
// under "value".
func TestCrushGeoNearOverNonROOTBaseRebasesOutputFields(t *testing.T) {
	nonPipelinableMatch := workflow.MakeMatch(workflow.MakeRead("places"), expr.JSWhere{Code: "this.active"})
	op := workflow.GeoNear{
		Src:           nonPipelinableMatch,
		Coordinates:   []float64{-73.99, 40.73},
		DistanceField: "dist",
		IncludeLocs:   "locs",
	}

	base, tsk, err := Crush(op)
	require.NoError(t, err)
	assert.Equal(t, "value", base.Root)

	pt := tsk.(task.PipelineTask)
	require.Len(t, pt.Stages, 1)
	geo := pt.Stages[0].(stage.GeoNear)
	assert.Equal(t, "value.dist", geo.DistanceField)
	assert.Equal(t, "value.locs", geo.IncludeLocs)
}

// TestCrushGeoNearOverROOTBaseLeavesOutputFieldsAlone pins the common case:
// a GeoNear directly atop a plain Read crushes to a pipeline at ROOT, so
// its output fields stay exactly as written.
func TestCrushGeoNearOverROOTBaseLeavesOutputFieldsAlone(t *testing.T) {
	op := workflow.GeoNear{
		Src:           workflow.MakeRead("places"),
		Coordinates:   []float64{-73.99, 40.73},
		DistanceField: "dist",
		IncludeLocs:   "",
	}

	_, tsk, err := Crush(op)
	require.NoError(t, err)

	pt := tsk.(task.PipelineTask)
	geo := pt.Stages[0].(stage.GeoNear)
	assert.Equal(t, "dist", geo.DistanceField)
	assert.Equal(t, "", geo.IncludeLocs)
}
