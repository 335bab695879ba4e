package merge

import "github.com/google/uuid"

// LEft and RIght are the two reserved namespace labels the merge
// algorithm uses exclusively to separate the two branches of a merged
// op graph. Exact casing matters — these are part of the wire contract
// downstream consumers rely on (see the render and crush packages).
const (
	LEft  = "lEft"
	RIght = "rIght"

	// Value is the reserved field name produced as the implicit carrier
	// by map-reduce stages; merge never writes it directly, but the
	// fallback FoldLeft path is the thing finalize later wraps under it.
	Value = "value"
)

// freshName returns a collision-free temporary field name for use
// inside the Group-vs-Group and Group-vs-Pipeline merge rules, which
// must invent new grouped-map entries that cannot clash with any
// existing field name, reserved or otherwise.
func freshName() string {
	return "__tmp_" + uuid.Must(uuid.NewV7()).String()
}
