// Package expr defines the document-expression algebra: field references,
// literals, arithmetic/comparison/conditional operators, and the GroupOp
// family that is only valid inside a group stage.
//
// Expr is a sealed interface — only types in this package implement it —
// so backends (reshape, stage, crush) get exhaustive type switches instead
// of open dynamic dispatch.
//
// Every expression supports MapUp, a uniform bottom-up rewrite, and the
// package exposes Substitute, the DocVar-rebasing substitution used by
// rewriteRefs at the stage layer.
package expr
