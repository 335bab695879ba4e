package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlanFixture(t *testing.T, cue string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.cue"), []byte(cue), 0644))
	return dir
}

const readOnlyPlan = `
step: src: { kind: "read", collection: "carts" }
result: "src"
`

func TestBuildCommandOnSimplePlan(t *testing.T) {
	dir := writePlanFixture(t, readOnlyPlan)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "build", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "\"op_graph_hash\"")
	assert.Contains(t, out.String(), "ReadTask")
}

func TestBuildCommandCachesAcrossRuns(t *testing.T) {
	dir := writePlanFixture(t, readOnlyPlan)
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	first := NewRootCommand()
	out1 := &bytes.Buffer{}
	first.SetOut(out1)
	first.SetArgs([]string{"--format", "json", "build", "--cache", dbPath, dir})
	require.NoError(t, first.Execute())
	assert.Contains(t, out1.String(), "\"cached\":false")

	second := NewRootCommand()
	out2 := &bytes.Buffer{}
	second.SetOut(out2)
	second.SetArgs([]string{"--format", "json", "build", "--cache", dbPath, dir})
	require.NoError(t, second.Execute())
	assert.Contains(t, out2.String(), "\"cached\":true")
}

func TestBuildCommandOnMissingPlanFails(t *testing.T) {
	dir := writePlanFixture(t, `step: src: { kind: "read" }
result: "src"
`)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "build", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
