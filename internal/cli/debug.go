package cli

import (
	"github.com/spf13/cobra"

	"github.com/nysm-ir/planir/internal/planspec"
	"github.com/nysm-ir/planir/internal/render"
	"github.com/nysm-ir/planir/internal/workflow"
)

// DebugOptions holds flags for the debug command.
type DebugOptions struct {
	*RootOptions
	Coalesce bool // also run workflow.Finish before rendering
}

// DebugResult holds a plan's rendered op-graph tree.
type DebugResult struct {
	Tree map[string]any `json:"tree"`
}

// NewDebugCommand creates the debug command.
func NewDebugCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DebugOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "debug <plan-dir>",
		Short: "Render a plan's op graph as a labeled tree",
		Long: `Debug parses a CUE plan and renders its op graph as a labeled
tree — one node per op, its source op(s) as children, and the op's own
interesting fields as a detail map. No coalescing, finalization, or
crushing happens unless --coalesce is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Coalesce, "coalesce", false, "run the coalescing pass before rendering")

	return cmd
}

func runDebug(opts *DebugOptions, planDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	op, err := planspec.Load(planDir)
	if err != nil {
		return outputPlanError(formatter, ErrCodePlanLoad, err)
	}
	formatter.VerboseLog("loaded plan from %s", planDir)

	var graph workflow.Op = op
	if opts.Coalesce {
		graph = workflow.Finish(op)
		formatter.VerboseLog("coalesced op graph")
	}

	return formatter.Success(DebugResult{Tree: render.Tree(graph)})
}
