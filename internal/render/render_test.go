package render

import (
	"testing"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/nysm-ir/planir/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeRead(t *testing.T) {
	tree := Tree(workflow.Read{Collection: "carts"})
	assert.Equal(t, "Read", tree["type"])
	det, ok := tree["detail"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "carts", det["collection"])
	assert.Nil(t, tree["children"])
}

func TestTreeMatchHasSelectorDetailAndOneChild(t *testing.T) {
	selector := expr.BinOp{Op: expr.OpEq, Left: expr.Var{Path: expr.Field("status")}, Right: expr.Literal{Value: ir.IRInt(1)}}
	op := workflow.MakeMatch(workflow.MakeRead("carts"), selector)

	tree := Tree(op)
	assert.Equal(t, "Match", tree["type"])
	det := tree["detail"].(map[string]any)
	assert.Contains(t, det["selector"], "eq")

	children := tree["children"].([]any)
	require.Len(t, children, 1)
	child := children[0].(map[string]any)
	assert.Equal(t, "Read", child["type"])
}

func TestTreeGroupIncludesByAndGrouped(t *testing.T) {
	grouped := []stage.GroupedEntry{{Name: "total", Op: expr.Accumulate{Kind: expr.GroupSum, Arg: expr.Var{Path: expr.Field("amount")}}}}
	op := workflow.MakeGroup(workflow.MakeRead("carts"), grouped, reshape.ExprElem{Expr: expr.Var{Path: expr.Field("customerId")}})

	tree := Tree(op)
	assert.Equal(t, "Group", tree["type"])
	det := tree["detail"].(map[string]any)
	assert.Contains(t, det["by"], "customerId")
	assert.Contains(t, det["grouped"], "total")
	assert.Contains(t, det["grouped"], "sum")
}

func TestTreeMapRendersFnAsJS(t *testing.T) {
	fn := jsir.Func{
		Params: []string{"key", "value"},
		Body:   []jsir.Node{jsir.Return{Value: jsir.ArrayLit{Elements: []jsir.Node{jsir.Ident{Name: "key"}, jsir.Ident{Name: "value"}}}}},
	}
	op := workflow.Map{Src: workflow.MakeRead("carts"), Fn: fn}

	tree := Tree(op)
	det := tree["detail"].(map[string]any)
	assert.Equal(t, jsir.Print(fn), det["fn"])
}

func TestTreeFoldLeftHasHeadThenTailsAsChildren(t *testing.T) {
	head := workflow.MakeRead("carts")
	tail := workflow.MakeRead("orders")
	fl, err := workflow.MakeFoldLeft(head, []workflow.Op{tail})
	require.NoError(t, err)

	tree := Tree(fl)
	assert.Equal(t, "FoldLeft", tree["type"])
	children := tree["children"].([]any)
	require.Len(t, children, 2)
	assert.Equal(t, "carts", children[0].(map[string]any)["detail"].(map[string]any)["collection"])
	assert.Equal(t, "orders", children[1].(map[string]any)["detail"].(map[string]any)["collection"])
}

func TestTreeJoinListsEverySourceAsChild(t *testing.T) {
	join, err := workflow.MakeJoin([]workflow.Op{workflow.MakeRead("carts"), workflow.MakeRead("orders")})
	require.NoError(t, err)

	tree := Tree(join)
	assert.Equal(t, "Join", tree["type"])
	children := tree["children"].([]any)
	require.Len(t, children, 2)
}
