// Copyright 2020, Square, Inc.

package dot_test

import (
	"strings"
	"testing"

	"github.com/square/dagfile/dag"
	"github.com/square/dagfile/dot"
)

func TestRender(t *testing.T) {
	d := dag.New()
	a, err := d.DeclareLayer("extract", dag.LayerSpec{Vars: []dag.Vars{nil, nil, nil}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.DeclareChildLayer(a, dag.OneToOne{}, "transform", dag.LayerSpec{Vars: []dag.Vars{nil, nil, nil}}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.DeclareSubdag("inner", "inner/inner.dag", dag.NodeMeta{}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.DeclareFinal("cleanup", dag.FinalSpec{}); err != nil {
		t.Fatal(err)
	}

	out, err := dot.Render(d, "etl")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`digraph "etl"`,
		`"extract"`,
		"extract\\n(3 instances)", // multi-instance layers are labeled with their count
		`"transform"`,
		`"inner"`,
		"rounded,dashed", // subdag style
		`"cleanup"`,
		"one-to-one", // edge label names the policy
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered DOT missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDefaultName(t *testing.T) {
	out, err := dot.Render(dag.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `digraph "dag"`) {
		t.Errorf("empty name did not default to dag:\n%s", out)
	}
}
