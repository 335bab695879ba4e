package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nysm-ir/planir/internal/crush"
	"github.com/nysm-ir/planir/internal/finalize"
	"github.com/nysm-ir/planir/internal/planspec"
	"github.com/nysm-ir/planir/internal/workflow"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Full bool // also run finalize+crush, not just parse+coalesce
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Step  string `json:"step,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <plan-dir>",
		Short: "Check that a plan parses and coalesces cleanly",
		Long: `Validate parses a CUE plan into its op graph and runs the
coalescing pass, reporting the first error encountered. With --full,
finalization and crushing also run, catching anything pipelinability or
lowering would reject that coalescing alone does not.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Full, "full", false, "also finalize and crush the plan")

	return cmd
}

func runValidate(opts *ValidateOptions, planDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	op, err := planspec.Load(planDir)
	if err != nil {
		return outputValidationFailure(formatter, err)
	}
	formatter.VerboseLog("parsed plan from %s", planDir)

	var graph workflow.Op = workflow.Finish(op)
	formatter.VerboseLog("coalesced op graph")

	if opts.Full {
		graph = finalize.Finalize(graph)
		if _, _, err := crush.Crush(graph); err != nil {
			return outputValidationFailure(formatter, err)
		}
		formatter.VerboseLog("finalized and crushed op graph")
	}

	return formatter.Success(ValidationResult{Valid: true})
}

// outputValidationFailure reports a validation error. Unlike outputPlanError
// this is a validation-failure exit (1), not a command-level error (2) — the
// plan was readable, it just doesn't check out.
func outputValidationFailure(formatter *OutputFormatter, err error) error {
	var planErr *planspec.PlanError
	result := ValidationResult{Valid: false, Error: err.Error()}
	if errors.As(err, &planErr) {
		result.Step = planErr.Step
	}

	if formatter.Format == "json" {
		_ = formatter.Success(result)
	} else {
		fmt.Fprintln(formatter.Writer, "invalid plan")
		if result.Step != "" {
			fmt.Fprintf(formatter.Writer, "  step %q: %s\n", result.Step, err.Error())
		} else {
			fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("invalid plan: %v", err))
}
