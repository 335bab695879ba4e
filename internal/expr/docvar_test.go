package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocVarStartsWith(t *testing.T) {
	a := Field("a", "b")
	ab := Field("a", "b", "c")

	assert.True(t, ab.StartsWith(a))
	assert.True(t, a.StartsWith(a))
	assert.False(t, a.StartsWith(ab))
}

func TestDocVarStartsWithDifferentRoot(t *testing.T) {
	a := NewDocVar("lEft", "x")
	b := NewDocVar("rIght", "x")

	assert.False(t, a.StartsWith(b))
}

func TestDocVarConcat(t *testing.T) {
	base := NewDocVar("lEft")
	rel := Field("cart_id")

	got := base.Concat(rel)
	assert.Equal(t, "lEft", got.Root)
	assert.Equal(t, []string{"cart_id"}, got.Path)
}

func TestDocVarConcatPreservesBasePath(t *testing.T) {
	base := NewDocVar("lEft", "inner")
	rel := Field("x", "y")

	got := base.Concat(rel)
	assert.Equal(t, []string{"inner", "x", "y"}, got.Path)
}

func TestDocVarEqual(t *testing.T) {
	assert.True(t, Field("a", "b").Equal(Field("a", "b")))
	assert.False(t, Field("a", "b").Equal(Field("a", "c")))
	assert.False(t, Field("a").Equal(NewDocVar("lEft", "a")))
}

func TestDocVarIsRoot(t *testing.T) {
	assert.True(t, ROOT.IsRoot())
	assert.False(t, Field("a").IsRoot())
}

func TestDocVarString(t *testing.T) {
	assert.Equal(t, "ROOT", ROOT.String())
	assert.Equal(t, "ROOT\\a.b", Field("a", "b").String())
}
