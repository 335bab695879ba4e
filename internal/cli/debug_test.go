package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugCommandRendersUncoalescedTree(t *testing.T) {
	dir := writePlanFixture(t, `
		step: src: { kind: "read", collection: "carts" }
		step: m: { kind: "match", src: "src", selector: { op: "eq", left: { var: "status" }, right: { lit: 1 } } }
		result: "m"
	`)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "debug", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "\"Match\"")
	assert.Contains(t, out.String(), "\"Read\"")
}

func TestDebugCommandWithCoalesceFlag(t *testing.T) {
	dir := writePlanFixture(t, readOnlyPlan)

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--format", "json", "debug", "--coalesce", dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "\"Read\"")
}
