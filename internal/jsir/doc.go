// Package jsir defines a closed, serializable subset of JavaScript used to
// express UDF (map/flatMap/reduce) bodies: literal, identifier, member
// access, call, anonymous function declaration, unary op, binary op, assignment, var
// declaration, for-in, if, return, and anonymous object/array literals.
//
// This is intentionally not a general-purpose interpreter — Node is a
// sealed sum type with a single Print entry point that renders source
// text for the execution layer to hand to the database driver. Nothing in
// this package evaluates JS.
package jsir
