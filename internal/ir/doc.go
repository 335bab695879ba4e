// Package ir provides the literal-value family shared by the expression,
// reshape, and task layers.
//
// This package contains value types only: no op graph, no pipeline stages.
// Every other internal package may import ir; ir imports nothing internal,
// so it stays the foundational, dependency-free layer.
//
// Key design constraints:
//   - No floating point anywhere — BSON numeric literals are represented as
//     int64 so that canonical encoding (used for the op-graph content hash
//     that backs the plan cache) stays deterministic.
//   - All JSON tags use snake_case.
//   - IRObject iterates in RFC 8785 (UTF-16 code unit) key order so that two
//     independently constructed documents with the same fields hash equal.
package ir
