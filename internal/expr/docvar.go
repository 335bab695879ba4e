package expr

import "strings"

// DocVar is a rooted field path: a root (ROOT for the current document, or
// a named root such as lEft/rIght) plus an optional sub-path of field names.
//
// DocVar is a value type; the zero value is not meaningful — use ROOT or
// NewDocVar.
type DocVar struct {
	Root string
	Path []string
}

// ROOT denotes the current document, with no sub-path.
var ROOT = DocVar{Root: "ROOT"}

// NewDocVar builds a DocVar rooted at root with the given path segments.
func NewDocVar(root string, path ...string) DocVar {
	return DocVar{Root: root, Path: append([]string(nil), path...)}
}

// Field builds a ROOT-rooted DocVar for the given path segments, the
// common case when writing an expression over the current document.
func Field(path ...string) DocVar {
	return NewDocVar("ROOT", path...)
}

// String renders the DocVar in "root\\path.to.field" form for debug output.
func (v DocVar) String() string {
	if len(v.Path) == 0 {
		return v.Root
	}
	return v.Root + "\\" + strings.Join(v.Path, ".")
}

// StartsWith reports whether v is equal to or nested under prefix: prefix's
// root matches and prefix's path is a leading segment sequence of v's path.
func (v DocVar) StartsWith(prefix DocVar) bool {
	if v.Root != prefix.Root {
		return false
	}
	if len(prefix.Path) > len(v.Path) {
		return false
	}
	for i, seg := range prefix.Path {
		if v.Path[i] != seg {
			return false
		}
	}
	return true
}

// Concat appends b's path onto a's full path, reusing a's root. Written
// `a \ b` in the spec: rebasing a sub-path under a new root.
func (a DocVar) Concat(b DocVar) DocVar {
	path := make([]string, 0, len(a.Path)+len(b.Path))
	path = append(path, a.Path...)
	path = append(path, b.Path...)
	return DocVar{Root: a.Root, Path: path}
}

// Equal reports whether two DocVars denote the same path.
func (a DocVar) Equal(b DocVar) bool {
	if a.Root != b.Root || len(a.Path) != len(b.Path) {
		return false
	}
	for i := range a.Path {
		if a.Path[i] != b.Path[i] {
			return false
		}
	}
	return true
}

// IsRoot reports whether v denotes the document root with no sub-path.
func (v DocVar) IsRoot() bool {
	return v.Root == "ROOT" && len(v.Path) == 0
}

// dottedPath renders v as the dotted field-path prefix it denotes in the
// actual output document. ROOT contributes no segment of its own; any
// other root (lEft, rIght, ...) is itself a real top-level field name.
func (v DocVar) dottedPath() string {
	segs := v.Path
	if v.Root != "ROOT" {
		segs = append([]string{v.Root}, segs...)
	}
	return strings.Join(segs, ".")
}

// RebaseFieldName rebases field — a dotted output-field-name string a stage
// writes to, such as GeoNear's DistanceField/IncludeLocs, not a DocVar it
// reads from — under base. An empty field (GeoNear's "don't include locs"
// sentinel) is left alone.
//
// This exists because DistanceField/IncludeLocs are literal field names,
// not expr.Var references, so the ordinary Substitute/Rebase machinery
// (which only ever rewrites Vars inside an Expr) never touches them; a
// GeoNear absorbed under a non-ROOT base still needs its own output field
// moved under that base, or it writes at the document's true top level
// instead of the namespace the merge actually placed it in.
func RebaseFieldName(field string, base DocVar) string {
	if field == "" {
		return field
	}
	prefix := base.dottedPath()
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}
