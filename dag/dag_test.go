// Copyright 2020, Square, Inc.

package dag

import (
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func names(nodes []Node) []string {
	ns := make([]string, len(nodes))
	for i, n := range nodes {
		ns[i] = n.Name()
	}
	return ns
}

// a -> b, a -> c, b -> d, c -> d
func diamond(t *testing.T) (*DAG, *NodeLayer, *NodeLayer, *NodeLayer, *NodeLayer) {
	d := New()
	a, err := d.DeclareLayer("a", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.DeclareChildLayer(a, nil, "b", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := d.DeclareChildLayer(a, nil, "c", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	e, err := d.DeclareLayer("d", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Connect(b, e, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Connect(c, e, nil); err != nil {
		t.Fatal(err)
	}
	return d, a, b, c, e
}

func TestDeclareLayerDefaults(t *testing.T) {
	d := New()
	layer, err := d.DeclareLayer("solo", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if len(layer.Vars) != 1 {
		t.Errorf("got %d vars entries, expected 1 (implicit instance)", len(layer.Vars))
	}
	if layer.PostfixFormat != DefaultPostfixFormat {
		t.Errorf("got postfix format %q, expected %q", layer.PostfixFormat, DefaultPostfixFormat)
	}
	if InstanceCount(layer) != 1 {
		t.Errorf("got instance count %d, expected 1", InstanceCount(layer))
	}
}

func TestDuplicateNames(t *testing.T) {
	d := New()
	if _, err := d.DeclareLayer("x", LayerSpec{}); err != nil {
		t.Fatal(err)
	}

	if _, err := d.DeclareLayer("x", LayerSpec{}); err == nil {
		t.Error("redeclaring layer x did not error")
	} else if _, ok := err.(DuplicateName); !ok {
		t.Errorf("got error %T, expected DuplicateName", err)
	}

	if _, err := d.DeclareSubdag("x", "x.dag", NodeMeta{}); err == nil {
		t.Error("declaring subdag x over layer x did not error")
	} else if _, ok := err.(DuplicateName); !ok {
		t.Errorf("got error %T, expected DuplicateName", err)
	}

	if _, err := d.DeclareFinal("x", FinalSpec{}); err == nil {
		t.Error("declaring final x over layer x did not error")
	} else if _, ok := err.(DuplicateName); !ok {
		t.Errorf("got error %T, expected DuplicateName", err)
	}
}

func TestDuplicateNameAgainstFinal(t *testing.T) {
	d := New()
	if _, err := d.DeclareFinal("cleanup", FinalSpec{}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.DeclareLayer("cleanup", LayerSpec{}); err == nil {
		t.Error("declaring layer with final node's name did not error")
	} else if _, ok := err.(DuplicateName); !ok {
		t.Errorf("got error %T, expected DuplicateName", err)
	}
}

func TestSecondFinalFails(t *testing.T) {
	d := New()
	if _, err := d.DeclareFinal("cleanup", FinalSpec{}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.DeclareFinal("cleanup2", FinalSpec{}); err == nil {
		t.Error("declaring a second final node did not error")
	} else if _, ok := err.(DuplicateName); !ok {
		t.Errorf("got error %T, expected DuplicateName", err)
	}
}

func TestRemoveNodeFreesName(t *testing.T) {
	d, _, b, _, _ := diamond(t)

	d.RemoveNode("b")
	if _, ok := d.Node("b"); ok {
		t.Fatal("node b still present after removal")
	}
	// Incident edges go too.
	if len(d.ParentsOf(b)) != 0 || len(d.ChildrenOf(b)) != 0 {
		t.Error("edges incident to b survived its removal")
	}

	if _, err := d.DeclareLayer("b", LayerSpec{}); err != nil {
		t.Errorf("redeclaring removed name b: %s", err)
	}
}

func TestRemoveFinal(t *testing.T) {
	d := New()
	if _, err := d.DeclareFinal("cleanup", FinalSpec{}); err != nil {
		t.Fatal(err)
	}
	d.RemoveNode("cleanup")
	if d.Final() != nil {
		t.Fatal("final node still present after removal")
	}
	if _, err := d.DeclareFinal("cleanup", FinalSpec{}); err != nil {
		t.Errorf("redeclaring removed final: %s", err)
	}
}

func TestInvalidNames(t *testing.T) {
	d := New()
	if _, err := d.DeclareLayer("", LayerSpec{}); err == nil {
		t.Error("empty name did not error")
	}
	if _, err := d.DeclareLayer("a"+Separator+"b", LayerSpec{}); err == nil {
		t.Error("name containing separator did not error")
	} else if _, ok := err.(InvalidName); !ok {
		t.Errorf("got error %T, expected InvalidName", err)
	}
}

func TestConnectRejectsFinal(t *testing.T) {
	d := New()
	layer, err := d.DeclareLayer("work", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	final, err := d.DeclareFinal("cleanup", FinalSpec{})
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Connect(layer, final, nil); err == nil {
		t.Error("connecting layer -> final did not error")
	} else if _, ok := err.(InvalidEdge); !ok {
		t.Errorf("got error %T, expected InvalidEdge", err)
	}
	if err := d.Connect(final, layer, nil); err == nil {
		t.Error("connecting final -> layer did not error")
	} else if _, ok := err.(InvalidEdge); !ok {
		t.Errorf("got error %T, expected InvalidEdge", err)
	}
}

func TestConnectRejectsForeignNode(t *testing.T) {
	d1 := New()
	d2 := New()
	a, err := d1.DeclareLayer("a", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := d2.DeclareLayer("b", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d1.Connect(a, b, nil); err == nil {
		t.Error("connecting to a node from another DAG did not error")
	} else if _, ok := err.(InvalidEdge); !ok {
		t.Errorf("got error %T, expected InvalidEdge", err)
	}
}

func TestConnectReplacesEdge(t *testing.T) {
	d := New()
	a, _ := d.DeclareLayer("a", LayerSpec{Vars: []Vars{nil, nil}})
	b, _ := d.DeclareLayer("b", LayerSpec{Vars: []Vars{nil, nil}})

	if err := d.Connect(a, b, nil); err != nil {
		t.Fatal(err)
	}
	e, ok := d.EdgeBetween(a, b)
	if !ok {
		t.Fatal("no edge registered")
	}
	if _, ok := e.(ManyToMany); !ok {
		t.Errorf("got edge %T, expected default ManyToMany", e)
	}

	if err := d.Connect(a, b, OneToOne{}); err != nil {
		t.Fatal(err)
	}
	e, _ = d.EdgeBetween(a, b)
	if _, ok := e.(OneToOne); !ok {
		t.Errorf("got edge %T, expected replacement OneToOne", e)
	}
}

func TestDisconnect(t *testing.T) {
	d, a, b, _, _ := diamond(t)

	d.Disconnect(a, b)
	if _, ok := d.EdgeBetween(a, b); ok {
		t.Error("edge a -> b still present after disconnect")
	}
	// Disconnecting again is a no-op.
	d.Disconnect(a, b)
}

func TestParentsChildrenRootsLeaves(t *testing.T) {
	d, a, b, c, e := diamond(t)

	if diff := deep.Equal(names(d.ParentsOf(e)), []string{"b", "c"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(names(d.ChildrenOf(a)), []string{"b", "c"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(names(d.Roots()), []string{"a"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(names(d.Leaves()), []string{"d"}); diff != nil {
		t.Error(diff)
	}
	if len(d.ParentsOf(a)) != 0 {
		t.Errorf("root a has parents: %v", names(d.ParentsOf(a)))
	}
	if len(d.ChildrenOf(b)) != 1 || d.ChildrenOf(b)[0].Name() != "d" {
		t.Errorf("got children of b %v, expected [d]", names(d.ChildrenOf(b)))
	}
	_ = c
}

func TestWalkDepthFirst(t *testing.T) {
	d, _, _, _, _ := diamond(t)

	nodes, err := d.Walk(DepthFirst)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Join(names(nodes), " ")
	// Sibling order is unspecified.
	if got != "a b d c" && got != "a c d b" {
		t.Errorf("depth-first walk %q not an acceptable order", got)
	}
}

func TestWalkBreadthFirst(t *testing.T) {
	d, _, _, _, _ := diamond(t)

	nodes, err := d.Walk(BreadthFirst)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Join(names(nodes), " ")
	if got != "a b c d" && got != "a c b d" {
		t.Errorf("breadth-first walk %q not an acceptable order", got)
	}
}

func TestWalkVisitsEachNodeOnce(t *testing.T) {
	d, _, _, _, _ := diamond(t)
	for _, order := range []WalkOrder{DepthFirst, BreadthFirst} {
		nodes, err := d.Walk(order)
		if err != nil {
			t.Fatal(err)
		}
		if len(nodes) != 4 {
			t.Errorf("order %d visited %d nodes, expected 4", order, len(nodes))
		}
		seen := map[string]bool{}
		for _, n := range nodes {
			if seen[n.Name()] {
				t.Errorf("order %d visited %s twice", order, n.Name())
			}
			seen[n.Name()] = true
		}
	}
}

func TestWalkBadOrder(t *testing.T) {
	d, _, _, _, _ := diamond(t)
	if _, err := d.Walk(WalkOrder(42)); err == nil {
		t.Error("walking with an undefined order did not error")
	} else if _, ok := err.(UnrecognizedWalkOrder); !ok {
		t.Errorf("got error %T, expected UnrecognizedWalkOrder", err)
	}
}

func TestWalkDescendantsAndAncestors(t *testing.T) {
	d, a, b, _, e := diamond(t)

	down, err := d.WalkDescendants(b, BreadthFirst)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(names(down), []string{"d"}); diff != nil {
		t.Error(diff)
	}

	up, err := d.WalkAncestors(e, BreadthFirst)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Join(names(up), " ")
	if got != "b c a" && got != "c b a" {
		t.Errorf("ancestor walk %q not an acceptable order", got)
	}
	_ = a
}

func TestSelectAndGlob(t *testing.T) {
	d := New()
	d.DeclareLayer("split-words", LayerSpec{})
	d.DeclareLayer("split-lines", LayerSpec{})
	d.DeclareLayer("merge", LayerSpec{})

	matched, err := d.Glob("split-*")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(names(matched), []string{"split-lines", "split-words"}); diff != nil {
		t.Error(diff)
	}

	none, err := d.Glob("nope*")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("glob nope* matched %v", names(none))
	}

	if _, err := d.Glob("[bad"); err == nil {
		t.Error("malformed glob pattern did not error")
	}

	big := d.Select(func(n Node) bool { return len(n.Name()) > 5 })
	if diff := deep.Equal(names(big), []string{"split-lines", "split-words"}); diff != nil {
		t.Error(diff)
	}
}

func TestDeclareParentSugar(t *testing.T) {
	d := New()
	b, err := d.DeclareLayer("b", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	a, err := d.DeclareParentLayer(b, nil, "a", LayerSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.EdgeBetween(a, b); !ok {
		t.Error("DeclareParentLayer did not connect a -> b")
	}

	sub, err := d.DeclareChildSubdag(b, nil, "sub", "sub.dag", NodeMeta{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.EdgeBetween(b, sub); !ok {
		t.Error("DeclareChildSubdag did not connect b -> sub")
	}
}

func TestDescribe(t *testing.T) {
	d, _, _, _, _ := diamond(t)
	out := d.Describe()
	for _, name := range []string{"a", "b", "c", "d"} {
		if !strings.Contains(out, name) {
			t.Errorf("describe output missing node %s:\n%s", name, out)
		}
	}
}

func TestPerInstance(t *testing.T) {
	all := AllInstances(true)
	if !all.Get(0) || !all.Get(7) {
		t.Error("AllInstances(true) not true for every index")
	}

	some := Instances(map[int]bool{1: true})
	if some.Get(0) || !some.Get(1) {
		t.Error("Instances map not honored")
	}

	var zero PerInstance
	if zero.Get(0) {
		t.Error("zero PerInstance should be false")
	}
}

func TestCompare(t *testing.T) {
	d := New()
	a, _ := d.DeclareLayer("a", LayerSpec{})
	b, _ := d.DeclareLayer("b", LayerSpec{})
	sub, _ := d.DeclareSubdag("a2", "a.dag", NodeMeta{})

	if Compare(a, b) >= 0 || Compare(b, a) <= 0 || Compare(a, a) != 0 {
		t.Error("Compare does not order by name within a type")
	}
	// Layers sort before subdags regardless of name.
	if Compare(a, sub) >= 0 {
		t.Error("Compare does not order by type first")
	}
}
