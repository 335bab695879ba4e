package workflow

// IsSource reports whether op has no upstream input.
func IsSource(op Op) bool {
	switch op.(type) {
	case Pure, Read:
		return true
	default:
		return false
	}
}

// IsSingleSource reports whether op has exactly one predecessor and
// supports Reparent.
func IsSingleSource(op Op) bool {
	switch op.(type) {
	case Match, Sort, Limit, Skip, Project, Redact, Unwind, Group, GeoNear, Map, FlatMap, Reduce:
		return true
	default:
		return false
	}
}

// IsWPipeline reports whether op is representable as a native pipeline
// stage — every SingleSourceOp except the UDF family.
func IsWPipeline(op Op) bool {
	switch op.(type) {
	case Match, Sort, Limit, Skip, Project, Redact, Unwind, Group, GeoNear:
		return true
	default:
		return false
	}
}

// IsShapePreserving reports whether op leaves the document shape
// untouched: match, sort, limit, skip.
func IsShapePreserving(op Op) bool {
	switch op.(type) {
	case Match, Sort, Limit, Skip:
		return true
	default:
		return false
	}
}

// IsUDF reports whether op is a Map/FlatMap/Reduce user-defined function
// stage — opaque to rewriteRefs and to deleteUnusedFields.
func IsUDF(op Op) bool {
	switch op.(type) {
	case Map, FlatMap, Reduce:
		return true
	default:
		return false
	}
}

// Source returns op's immediate predecessor, or nil for a SourceOp or a
// Multi-source op (FoldLeft, Join), which expose Head/Tails or Sources
// instead.
func Source(op Op) Op {
	switch n := op.(type) {
	case Match:
		return n.Src
	case Sort:
		return n.Src
	case Limit:
		return n.Src
	case Skip:
		return n.Src
	case Project:
		return n.Src
	case Redact:
		return n.Src
	case Unwind:
		return n.Src
	case Group:
		return n.Src
	case GeoNear:
		return n.Src
	case Map:
		return n.Src
	case FlatMap:
		return n.Src
	case Reduce:
		return n.Src
	default:
		return nil
	}
}

// Reparent returns op with its single source replaced by newSrc. It
// panics if op is not a SingleSourceOp — callers must check
// IsSingleSource (or know the op family by construction) first.
func Reparent(op Op, newSrc Op) Op {
	switch n := op.(type) {
	case Match:
		n.Src = newSrc
		return n
	case Sort:
		n.Src = newSrc
		return n
	case Limit:
		n.Src = newSrc
		return n
	case Skip:
		n.Src = newSrc
		return n
	case Project:
		n.Src = newSrc
		return n
	case Redact:
		n.Src = newSrc
		return n
	case Unwind:
		n.Src = newSrc
		return n
	case Group:
		n.Src = newSrc
		return n
	case GeoNear:
		n.Src = newSrc
		return n
	case Map:
		n.Src = newSrc
		return n
	case FlatMap:
		n.Src = newSrc
		return n
	case Reduce:
		n.Src = newSrc
		return n
	default:
		panic("workflow: Reparent called on a non-SingleSourceOp")
	}
}
