// Package stage defines the per-stage pipeline value objects — Match,
// Sort, Limit, Skip, Project, Redact, Unwind, Group, GeoNear — each a pure
// description of one native aggregation stage.
//
// Every stage implements RewriteRefs, a field-substitution that rewrites
// any DocVars embedded in its selector/expression/reshape without
// descending into child ops (there are none at this layer — the workflow
// package is what attaches stages to a source).
package stage
