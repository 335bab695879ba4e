package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandOnValidPlan(t *testing.T) {
	dir := writePlanFixture(t, readOnlyPlan)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "validate", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "\"valid\":true")
}

func TestValidateCommandFullRunsCrush(t *testing.T) {
	dir := writePlanFixture(t, readOnlyPlan)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "validate", "--full", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "\"valid\":true")
}

func TestValidateCommandOnMissingResultFails(t *testing.T) {
	dir := writePlanFixture(t, `step: src: { kind: "read", collection: "carts" }`)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "validate", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "\"valid\":false")
}
