package merge

import "fmt"

// TypeChangingMergeError is returned when rebasing a Group's
// accumulator during merge turns a GroupOp into a plain expression —
// invariant 2 violated by construction, not reachable through correct
// use of the merge rules. Fatal; callers should abort rather than
// attempt to recover a best-effort graph.
type TypeChangingMergeError struct {
	Field string
}

func (e *TypeChangingMergeError) Error() string {
	return fmt.Sprintf("merge: rebasing grouped field %q stopped being a GroupOp", e.Field)
}
