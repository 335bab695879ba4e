package expr

import (
	"testing"

	"github.com/nysm-ir/planir/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteRewritesMatchingVar(t *testing.T) {
	e := Var{Path: Field("qty")}

	got := Substitute(e, Rebase(NewDocVar("lEft")))

	v, ok := got.(Var)
	require.True(t, ok)
	assert.Equal(t, NewDocVar("lEft", "qty"), v.Path)
}

func TestSubstituteLeavesNonMatchingVarAlone(t *testing.T) {
	e := Var{Path: NewDocVar("rIght", "qty")}

	f := func(v DocVar) (DocVar, bool) {
		if v.Root != "lEft" {
			return v, false
		}
		return v, true
	}

	got := Substitute(e, f)
	assert.Equal(t, e, got)
}

func TestSubstituteDescendsIntoBinOp(t *testing.T) {
	e := BinOp{Op: OpAdd, Left: Var{Path: Field("a")}, Right: Var{Path: Field("b")}}

	got := Substitute(e, Rebase(NewDocVar("lEft")))

	b := got.(BinOp)
	assert.Equal(t, NewDocVar("lEft", "a"), b.Left.(Var).Path)
	assert.Equal(t, NewDocVar("lEft", "b"), b.Right.(Var).Path)
}

func TestSubstitutePreservesGroupOpType(t *testing.T) {
	e := Accumulate{Kind: GroupSum, Arg: Var{Path: Field("qty")}}

	got := Substitute(e, Rebase(NewDocVar("lEft")))

	acc, ok := got.(Accumulate)
	require.True(t, ok, "Substitute must not change a GroupOp into a plain Expr")
	assert.True(t, IsGroupOp(acc))
	assert.Equal(t, NewDocVar("lEft", "qty"), acc.Arg.(Var).Path)
}

func TestMapUpVisitsLiteralsWithoutPanicking(t *testing.T) {
	e := Literal{Value: ir.IRInt(1)}
	got := MapUp(e, func(n Expr) Expr { return n })
	assert.Equal(t, e, got)
}

func TestIsGroupOp(t *testing.T) {
	assert.True(t, IsGroupOp(Accumulate{Kind: GroupSum, Arg: Literal{Value: ir.IRInt(1)}}))
	assert.False(t, IsGroupOp(Var{Path: Field("x")}))
}
