package render

import (
	"fmt"
	"strings"

	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/stage"
	"github.com/nysm-ir/planir/internal/task"
)

// TaskTree renders a crushed task tree the same way Tree renders an op
// graph — a labeled node per task kind, with its source task(s) as
// children. Used by the CLI's build output and as the planstore cache's
// on-disk representation.
func TaskTree(t task.Task) map[string]any {
	switch n := t.(type) {
	case task.PureTask:
		return node("PureTask", details("value", literalString(n.Value)))
	case task.ReadTask:
		return node("ReadTask", details("collection", n.Collection))
	case task.PipelineTask:
		return node("PipelineTask", details("stages", stagesString(n.Stages)), TaskTree(n.Base))
	case task.MapReduceTask:
		det := details(
			"selection", exprString(n.Selection),
			"inputSort", sortKeysString(n.InputSort),
			"map", jsir.Print(n.Map),
			"reduce", jsir.Print(n.Reduce),
			"outAction", string(n.OutAction),
		)
		if n.InputLimit != nil {
			det["inputLimit"] = fmt.Sprintf("%d", *n.InputLimit)
		}
		if n.Finalizer != nil {
			det["finalizer"] = jsir.Print(*n.Finalizer)
		}
		return node("MapReduceTask", det, TaskTree(n.Base))
	case task.FoldLeftTask:
		children := append([]map[string]any{TaskTree(n.Head)}, taskTreeAll(n.Tails)...)
		return nodeMany("FoldLeftTask", nil, children)
	case task.JoinTask:
		return nodeMany("JoinTask", nil, taskTreeAll(n.Sources))
	default:
		return node("Unknown", nil)
	}
}

func taskTreeAll(tasks []task.Task) []map[string]any {
	out := make([]map[string]any, len(tasks))
	for i, t := range tasks {
		out[i] = TaskTree(t)
	}
	return out
}

func stagesString(stages []stage.Stage) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = stageString(s)
	}
	return strings.Join(parts, "; ")
}

func stageString(s stage.Stage) string {
	switch n := s.(type) {
	case stage.Match:
		return "match(" + exprString(n.Selector) + ")"
	case stage.Sort:
		return "sort(" + sortKeysString(n.Keys) + ")"
	case stage.Limit:
		return fmt.Sprintf("limit(%d)", n.Count)
	case stage.Skip:
		return fmt.Sprintf("skip(%d)", n.Count)
	case stage.Project:
		return "project(" + reshapeString(n.Reshape) + ")"
	case stage.Redact:
		return "redact(" + exprString(n.Cond) + ")"
	case stage.Unwind:
		return "unwind(" + n.Field.String() + ")"
	case stage.Group:
		return "group(by=" + elemString(n.By) + ", " + groupedString(n.Grouped) + ")"
	case stage.GeoNear:
		return fmt.Sprintf("geoNear(%s, %v)", n.DistanceField, n.Coordinates)
	default:
		return "?"
	}
}
