package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nysm-ir/planir/internal/planstore"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	Database string
}

// CacheShowResult holds a single cache entry for display.
type CacheShowResult struct {
	Hash     string         `json:"hash"`
	Base     string         `json:"base"`
	CachedAt string         `json:"cached_at"`
	Task     map[string]any `json:"task"`
}

// CacheStatsResult holds summary statistics about the cache.
type CacheStatsResult struct {
	Entries int64 `json:"entries"`
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the build cache",
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to a planstore cache database")

	cmd.AddCommand(newCacheShowCommand(opts))
	cmd.AddCommand(newCacheClearCommand(opts))
	cmd.AddCommand(newCacheStatsCommand(opts))

	return cmd
}

// resolveCacheDB opens the cache database named by --db, falling back to
// the "cache" key of a --config file if --db was left empty.
func resolveCacheDB(opts *CacheOptions) (*planstore.Store, error) {
	path := opts.Database
	if path == "" && opts.RootOptions.Config != nil {
		path = opts.RootOptions.Config.Cache
	}
	if path == "" {
		return nil, fmt.Errorf("--db is required (or set \"cache\" in a --config file)")
	}
	return planstore.Open(path)
}

func newCacheShowCommand(opts *CacheOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <op-graph-hash>",
		Short:         "Print the cached build for an op-graph hash",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheShow(opts, args[0], cmd)
		},
	}
}

func runCacheShow(opts *CacheOptions, hash string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	store, err := resolveCacheDB(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("opening cache: %v", err))
	}
	defer store.Close()

	entry, found, err := store.Get(cmd.Context(), hash)
	if err != nil {
		return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("reading cache: %v", err))
	}
	if !found {
		return NewExitError(ExitFailure, fmt.Sprintf("no cached build for %s", hash))
	}

	var taskTree map[string]any
	if err := decodeTaskJSON(entry.TaskJSON, &taskTree); err != nil {
		return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("decoding cached task: %v", err))
	}

	return formatter.Success(CacheShowResult{
		Hash:     hash,
		Base:     entry.Base.String(),
		CachedAt: entry.CachedAt.Format("2006-01-02T15:04:05Z07:00"),
		Task:     taskTree,
	})
}

func newCacheClearCommand(opts *CacheOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Remove every cached build",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(opts, cmd)
		},
	}
}

func runCacheClear(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	store, err := resolveCacheDB(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("opening cache: %v", err))
	}
	defer store.Close()

	removed, err := store.Clear(cmd.Context())
	if err != nil {
		return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("clearing cache: %v", err))
	}

	return formatter.Success(fmt.Sprintf("removed %d cached build(s)", removed))
}

func newCacheStatsCommand(opts *CacheOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Print the number of cached builds",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(opts, cmd)
		},
	}
}

func runCacheStats(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	store, err := resolveCacheDB(opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("opening cache: %v", err))
	}
	defer store.Close()

	n, err := store.Count(cmd.Context())
	if err != nil {
		return outputCommandError(formatter, ErrCodeCache, fmt.Sprintf("counting cache: %v", err))
	}

	return formatter.Success(CacheStatsResult{Entries: n})
}
