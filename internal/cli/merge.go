package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nysm-ir/planir/internal/merge"
	"github.com/nysm-ir/planir/internal/planspec"
	"github.com/nysm-ir/planir/internal/render"
)

// MergeResult holds the outcome of merging two plans.
type MergeResult struct {
	BaseA string         `json:"base_a"`
	BaseB string         `json:"base_b"`
	Tree  map[string]any `json:"tree"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <plan-dir-a> <plan-dir-b>",
		Short: "Merge two plans' op graphs into one",
		Long: `Merge loads two plans and attempts to fold the second into the
first using the rewrite rules that recognize shared prefixes, pipelinable
stage runs, and other structural equivalences. If no rule applies, the
two graphs are combined in a FoldLeft, each projected under its own
lEft/rIght label — still a single merged graph, just without any shared
stages.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runMerge(opts *RootOptions, planDirA, planDirB string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	opA, err := planspec.Load(planDirA)
	if err != nil {
		return outputPlanError(formatter, ErrCodePlanLoad, err)
	}
	opB, err := planspec.Load(planDirB)
	if err != nil {
		return outputPlanError(formatter, ErrCodePlanLoad, err)
	}
	formatter.VerboseLog("loaded plans from %s and %s", planDirA, planDirB)

	result, err := merge.Merge(opA, opB)
	if err != nil {
		msg := fmt.Sprintf("merging plans: %v", err)
		_ = formatter.Error(ErrCodeMerge, msg, nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeMerge, msg), err)
	}

	return formatter.Success(MergeResult{
		BaseA: result.BaseA.String(),
		BaseB: result.BaseB.String(),
		Tree:  render.Tree(result.Merged),
	})
}
