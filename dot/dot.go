// Copyright 2020, Square, Inc.

// Package dot renders a dag.DAG as a Graphviz digraph for visualization.
// One DOT node represents one layer or sub-DAG reference (not each task
// instance); edge labels name the edge policy.
package dot

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/square/dagfile/dag"
)

// Render returns DOT text describing d's layer-level topology. name labels
// the digraph; an empty name renders as "dag".
func Render(d *dag.DAG, name string) (string, error) {
	if name == "" {
		name = "dag"
	}
	graphName := strconv.Quote(name)

	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if err := g.AddAttr(graphName, "rankdir", "TB"); err != nil {
		return "", err
	}

	for _, n := range d.Nodes() {
		attrs := map[string]string{
			"shape": "box",
			"label": strconv.Quote(nodeLabel(n)),
		}
		if _, ok := n.(*dag.SubDAG); ok {
			attrs["style"] = strconv.Quote("rounded,dashed")
		}
		if err := g.AddNode(graphName, strconv.Quote(n.Name()), attrs); err != nil {
			return "", err
		}
	}

	if final := d.Final(); final != nil {
		attrs := map[string]string{
			"shape": "box",
			"style": strconv.Quote("filled"),
			"label": strconv.Quote(final.Name() + "\\n(final)"),
		}
		if err := g.AddNode(graphName, strconv.Quote(final.Name()), attrs); err != nil {
			return "", err
		}
	}

	for _, pair := range d.Edges() {
		attrs := map[string]string{
			"label": strconv.Quote(edgeLabel(pair.Edge)),
		}
		if err := g.AddEdge(strconv.Quote(pair.Parent.Name()), strconv.Quote(pair.Child.Name()), true, attrs); err != nil {
			return "", err
		}
	}

	return g.String(), nil
}

func nodeLabel(n dag.Node) string {
	count := dag.InstanceCount(n)
	if count == 1 {
		return n.Name()
	}
	return fmt.Sprintf("%s\\n(%d instances)", n.Name(), count)
}

func edgeLabel(e dag.Edge) string {
	switch e := e.(type) {
	case dag.ManyToMany:
		return "many-to-many"
	case dag.OneToOne:
		return "one-to-one"
	case dag.Grouper:
		return fmt.Sprintf("grouper %d:%d", e.ParentGroupSize, e.ChildGroupSize)
	case dag.Slicer:
		return "slicer"
	case dag.Custom:
		return "custom"
	default:
		return ""
	}
}
