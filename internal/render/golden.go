package render

import (
	"testing"

	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/workflow"
	"github.com/sebdah/goldie/v2"
)

// AssertGolden renders op's debug tree and compares it against the
// checked-in fixture testdata/golden/<name>.golden, canonicalized with
// ir.MarshalCanonical.
func AssertGolden(t *testing.T, name string, op workflow.Op) {
	t.Helper()
	treeJSON, err := ir.MarshalCanonical(Tree(op))
	if err != nil {
		t.Fatalf("render: marshal canonical: %v", err)
	}
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, name, treeJSON)
}
