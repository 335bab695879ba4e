package expr

import "github.com/nysm-ir/planir/internal/ir"

// Expr is a sealed interface over the document expression algebra.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the stage, merge, and crush layers.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Literal wraps a constrained BSON literal value.
type Literal struct {
	Value ir.IRValue
}

func (Literal) exprNode() {}

// Var references a field path in the current document (or, mid-merge, in
// one of the lEft/rIght namespaces).
type Var struct {
	Path DocVar
}

func (Var) exprNode() {}

// Op identifies an arithmetic, comparison, or conditional operator.
type Op string

const (
	OpAdd      Op = "add"
	OpSubtract Op = "subtract"
	OpMultiply Op = "multiply"
	OpDivide   Op = "divide"
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpAnd      Op = "and"
	OpOr       Op = "or"
	OpNot      Op = "not"
)

// BinOp applies a binary arithmetic or comparison operator to two
// sub-expressions.
type BinOp struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (BinOp) exprNode() {}

// JSWhere wraps a raw JS predicate body (the `$where` escape hatch). A
// selector containing a JSWhere anywhere in its tree is not pipelinable —
// see the stage package's Pipelinable and the crush package's Match
// lowering.
type JSWhere struct {
	Code string
}

func (JSWhere) exprNode() {}

// Not negates a boolean sub-expression.
type Not struct {
	Arg Expr
}

func (Not) exprNode() {}

// Cond is the ternary conditional operator: If ? Then : Else.
type Cond struct {
	If   Expr
	Then Expr
	Else Expr
}

func (Cond) exprNode() {}

// GroupOp is the sub-family of expressions only valid as the value side of
// a Grouped entry inside a Group stage (see the stage package). It embeds
// Expr so every GroupOp is an Expr, but gives rewriteRefs a marker to
// enforce invariant 2: a substitution must not turn a GroupOp into a
// plain Expr.
type GroupOp interface {
	Expr
	groupOpNode()
}

// GroupKind identifies which accumulator a GroupOp applies.
type GroupKind string

const (
	GroupSum      GroupKind = "sum"
	GroupAvg      GroupKind = "avg"
	GroupPush     GroupKind = "push"
	GroupAddToSet GroupKind = "addToSet"
	GroupFirst    GroupKind = "first"
	GroupLast     GroupKind = "last"
	GroupMax      GroupKind = "max"
	GroupMin      GroupKind = "min"
)

// Accumulate is the single GroupOp constructor: an accumulator kind over
// one input expression, e.g. Accumulate{Kind: GroupSum, Arg: Field("qty")}.
type Accumulate struct {
	Kind GroupKind
	Arg  Expr
}

func (Accumulate) exprNode()    {}
func (Accumulate) groupOpNode() {}

// IsGroupOp reports whether e belongs to the GroupOp sub-family.
func IsGroupOp(e Expr) bool {
	_, ok := e.(GroupOp)
	return ok
}
