package workflow

import (
	"fmt"
	"strings"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
)

// Key returns a structural fingerprint of op, used by merge's `A == B`
// identity rule and by the Group-vs-Group equal-`by` merge rule.
func Key(op Op) string {
	if op == nil {
		return "nil"
	}
	switch n := op.(type) {
	case Pure:
		return fmt.Sprintf("pure(%#v)", n.Value)
	case Read:
		return "read(" + n.Collection + ")"
	case Match:
		return "match(" + Key(n.Src) + "," + expr.Key(n.Selector) + ")"
	case Sort:
		return "sort(" + Key(n.Src) + "," + sortKeysKey(n.Keys) + ")"
	case Limit:
		return fmt.Sprintf("limit(%s,%d)", Key(n.Src), n.Count)
	case Skip:
		return fmt.Sprintf("skip(%s,%d)", Key(n.Src), n.Count)
	case Project:
		return "project(" + Key(n.Src) + "," + reshape.Key(n.Reshape) + ")"
	case Redact:
		return "redact(" + Key(n.Src) + "," + expr.Key(n.Cond) + ")"
	case Unwind:
		return "unwind(" + Key(n.Src) + "," + n.Field.String() + ")"
	case Group:
		return "group(" + Key(n.Src) + "," + groupedKey(n.Grouped) + "," + reshape.ElemKey(n.By) + ")"
	case GeoNear:
		optFloat := func(p *float64) string {
			if p == nil {
				return "-"
			}
			return fmt.Sprint(*p)
		}
		limit := "-"
		if n.Limit != nil {
			limit = fmt.Sprint(*n.Limit)
		}
		return fmt.Sprintf("geonear(%s,%v,%s,%s,%s,%s,%v,%s,%s,%v)", Key(n.Src), n.Coordinates, n.DistanceField,
			limit, optFloat(n.MaxDistance), expr.Key(n.Query), n.Spherical, optFloat(n.Multiplier), n.IncludeLocs, n.UniqueDocs)
	case Map:
		return "map(" + Key(n.Src) + "," + jsir.Print(n.Fn) + ")"
	case FlatMap:
		return "flatmap(" + Key(n.Src) + "," + jsir.Print(n.Fn) + ")"
	case Reduce:
		return "reduce(" + Key(n.Src) + "," + jsir.Print(n.Fn) + ")"
	case FoldLeft:
		tails := make([]string, len(n.Tails))
		for i, t := range n.Tails {
			tails[i] = Key(t)
		}
		return "foldleft(" + Key(n.Head) + ",[" + strings.Join(tails, ";") + "])"
	case Join:
		sources := make([]string, len(n.Sources))
		for i, s := range n.Sources {
			sources[i] = Key(s)
		}
		return "join([" + strings.Join(sources, ";") + "])"
	default:
		return "?"
	}
}

// Equal reports whether two op graphs are structurally identical.
func Equal(a, b Op) bool {
	return Key(a) == Key(b)
}

func sortKeysKey(keys []stage.SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%v", k.Field.String(), k.Descending)
	}
	return strings.Join(parts, ",")
}

func groupedKey(entries []stage.GroupedEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Name + "=" + expr.Key(e.Op)
	}
	return strings.Join(parts, ",")
}
