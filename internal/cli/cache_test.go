package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStatsAndShowAfterBuild(t *testing.T) {
	dir := writePlanFixture(t, readOnlyPlan)
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	build := NewRootCommand()
	build.SetOut(&bytes.Buffer{})
	build.SetArgs([]string{"--format", "json", "build", "--cache", dbPath, dir})
	require.NoError(t, build.Execute())

	stats := NewRootCommand()
	statsOut := &bytes.Buffer{}
	stats.SetOut(statsOut)
	stats.SetArgs([]string{"--format", "json", "cache", "--db", dbPath, "stats"})
	require.NoError(t, stats.Execute())
	assert.Contains(t, statsOut.String(), "\"entries\":1")

	clear := NewRootCommand()
	clearOut := &bytes.Buffer{}
	clear.SetOut(clearOut)
	clear.SetArgs([]string{"--format", "json", "cache", "--db", dbPath, "clear"})
	require.NoError(t, clear.Execute())

	statsAfter := NewRootCommand()
	statsAfterOut := &bytes.Buffer{}
	statsAfter.SetOut(statsAfterOut)
	statsAfter.SetArgs([]string{"--format", "json", "cache", "--db", dbPath, "stats"})
	require.NoError(t, statsAfter.Execute())
	assert.Contains(t, statsAfterOut.String(), "\"entries\":0")
}

func TestCacheShowOnMissingHashFails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "json", "cache", "--db", dbPath, "show", "deadbeef"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
