package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nysm-ir/planir/internal/crush"
	"github.com/nysm-ir/planir/internal/finalize"
	"github.com/nysm-ir/planir/internal/planspec"
	"github.com/nysm-ir/planir/internal/planstore"
	"github.com/nysm-ir/planir/internal/render"
	"github.com/nysm-ir/planir/internal/workflow"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Cache string // path to a planstore SQLite cache; empty disables caching
}

// BuildResult holds the outcome of driving a plan through the full
// coalesce/finalize/crush pipeline.
type BuildResult struct {
	OpGraphHash string         `json:"op_graph_hash"`
	Cached      bool           `json:"cached"`
	Base        string         `json:"base"`
	Task        map[string]any `json:"task"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <plan-dir>",
		Short: "Coalesce, finalize, and crush a plan into a task tree",
		Long: `Build drives a CUE plan through the full pipeline: coalescing
redundant ops, finalizing materialized unwinds and late projections, and
crushing the result to the task tree the aggregation runtime would run.

When --cache points at a planstore database, a build is skipped and the
cached task tree returned if an equal coalesced op graph has already been
built.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to a planstore cache database")

	return cmd
}

func runBuild(opts *BuildOptions, planDir string, cmd *cobra.Command) error {
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

	coalesced := workflow.Finish(op)
	hash, err := planstore.Hash(coalesced)
	if err != nil {
		return outputCommandError(formatter, ErrCodeCoalesce, fmt.Sprintf("hashing coalesced graph: %v", err))
	}
	formatter.VerboseLog("coalesced op graph hash: %s", hash)

	cachePath := opts.Cache
	if cachePath == "" && opts.Config != nil {
		cachePath = opts.Config.Cache
	}

	var store *planstore.Store
	if cachePath != "" {
		store, err = planstore.Open(cachePath)
		if err != nil {
			return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("opening cache: %v", err))
		}
		defer store.Close()

		entry, found, err := store.Get(cmd.Context(), hash)
		if err != nil {
			return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("reading cache: %v", err))
		}
		if found {
			formatter.VerboseLog("cache hit for %s", hash)
			var taskTree map[string]any
			if err := decodeTaskJSON(entry.TaskJSON, &taskTree); err != nil {
				return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("decoding cached task: %v", err))
			}
			return formatter.Success(BuildResult{
				OpGraphHash: hash,
				Cached:      true,
				Base:        entry.Base.String(),
				Task:        taskTree,
			})
		}
		formatter.VerboseLog("cache miss for %s", hash)
	}

	finalized := finalize.Finalize(coalesced)
	base, crushedTask, err := crush.Crush(finalized)
	if err != nil {
		msg := fmt.Sprintf("crushing plan: %v", err)
		_ = formatter.Error(ErrCodeCrush, msg, nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeCrush, msg), err)
	}

	if store != nil {
		if err := store.Put(cmd.Context(), hash, base, crushedTask); err != nil {
			return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("writing cache: %v", err))
		}
	}

	return formatter.Success(BuildResult{
		OpGraphHash: hash,
		Cached:      false,
		Base:        base.String(),
		Task:        render.TaskTree(crushedTask),
	})
}

// outputPlanError reports a planspec.PlanError (or any other plan-loading
// failure) with its source step when available.
func outputPlanError(formatter *OutputFormatter, code string, err error) error {
	var planErr *planspec.PlanError
	var details any
	if errors.As(err, &planErr) && planErr.Step != "" {
		details = map[string]any{"step": planErr.Step}
	}
	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, err.Error()), err)
}

// outputCommandError reports a command-level failure that isn't tied to a
// specific plan step.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// decodeTaskJSON unmarshals a planstore cache entry's stored task tree back
// into the plain map shape render.TaskTree produces.
func decodeTaskJSON(data []byte, out *map[string]any) error {
	return json.Unmarshal(data, out)
}
