// Copyright 2020, Square, Inc.

// Package dag models a directed acyclic graph of task layers and sub-DAG
// references for an external batch-workflow scheduler. A DAG owns all of
// its nodes and edges; callers declare nodes through the DAG, connect them
// with edge policies, and hand the result to the writer package to produce
// the scheduler's description files.
package dag

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/tabwriter"
)

// WalkOrder selects the traversal discipline for Walk and friends.
type WalkOrder int

const (
	DepthFirst WalkOrder = iota
	BreadthFirst
)

// DotConfig tells the scheduler how to maintain a DOT rendering of the
// running DAG.
type DotConfig struct {
	Path        string
	Update      bool
	Overwrite   bool
	IncludeFile string
}

// NewDotConfig returns a DotConfig with the default overwrite behavior.
func NewDotConfig(path string) *DotConfig {
	return &DotConfig{
		Path:      path,
		Overwrite: true,
	}
}

// NodeStatusFile tells the scheduler to maintain a machine-readable node
// status file.
type NodeStatusFile struct {
	Path         string
	UpdateTime   *int // minimum seconds between rewrites
	AlwaysUpdate bool // rewrite even if nothing changed
}

// A DAG is a graph of declared nodes plus the scheduler-level settings
// emitted in the description file's meta block. DAGs are not safe for
// concurrent use; callers must serialize access externally.
type DAG struct {
	JobstateLog         string
	DagmanConfig        map[string]interface{}
	DagmanJobAttributes map[string]interface{}
	MaxJobsByCategory   map[string]int
	Dot                 *DotConfig
	NodeStatusFile      *NodeStatusFile

	nodes *NodeStore
	edges *EdgeStore
	final *FinalNode
}

func New() *DAG {
	return &DAG{
		DagmanConfig:        map[string]interface{}{},
		DagmanJobAttributes: map[string]interface{}{},
		MaxJobsByCategory:   map[string]int{},
		nodes:               newNodeStore(),
		edges:               newEdgeStore(),
	}
}

func (d *DAG) checkNewName(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if d.nodes.has(name) {
		return DuplicateName{Name: name}
	}
	if d.final != nil && d.final.name == name {
		return DuplicateName{Name: name}
	}
	return nil
}

// DeclareLayer adds a new NodeLayer with no parents or children. A layer
// declared with no vars gets a single instance with an empty variable
// mapping; a layer never has zero instances.
func (d *DAG) DeclareLayer(name string, spec LayerSpec) (*NodeLayer, error) {
	if err := d.checkNewName(name); err != nil {
		return nil, err
	}
	vars := spec.Vars
	if len(vars) == 0 {
		vars = []Vars{nil}
	}
	postfix := spec.PostfixFormat
	if postfix == "" {
		postfix = DefaultPostfixFormat
	}
	layer := &NodeLayer{
		NodeMeta:      spec.NodeMeta,
		PostfixFormat: postfix,
		Submit:        spec.Submit,
		SubmitFile:    spec.SubmitFile,
		Vars:          vars,
		name:          name,
	}
	d.nodes.add(layer)
	return layer, nil
}

// DeclareSubdag adds a new SubDAG reference with no parents or children.
func (d *DAG) DeclareSubdag(name, dagFile string, meta NodeMeta) (*SubDAG, error) {
	if err := d.checkNewName(name); err != nil {
		return nil, err
	}
	sub := &SubDAG{
		NodeMeta: meta,
		DAGFile:  dagFile,
		name:     name,
	}
	d.nodes.add(sub)
	return sub, nil
}

// DeclareFinal sets the DAG's final cleanup node. At most one final node
// may exist; declaring a second fails with DuplicateName, as does reusing
// any normal node's name.
func (d *DAG) DeclareFinal(name string, spec FinalSpec) (*FinalNode, error) {
	if d.final != nil {
		return nil, DuplicateName{Name: d.final.name}
	}
	if err := d.checkNewName(name); err != nil {
		return nil, err
	}
	final := &FinalNode{
		NodeMeta:   spec.NodeMeta,
		Submit:     spec.Submit,
		SubmitFile: spec.SubmitFile,
		name:       name,
	}
	d.final = final
	return final, nil
}

// Final returns the DAG's final node, or nil if none was declared.
func (d *DAG) Final() *FinalNode {
	return d.final
}

// Node returns the normal node with the given name.
func (d *DAG) Node(name string) (Node, bool) {
	return d.nodes.GetByName(name)
}

// Nodes returns all normal nodes ordered by Compare. The final node is not
// included.
func (d *DAG) Nodes() []Node {
	return d.nodes.Nodes()
}

// RemoveNode removes the named node (normal or final) and all of its
// incident edges. The name becomes immediately reusable. Removing an
// unknown name is a no-op.
func (d *DAG) RemoveNode(name string) {
	if d.final != nil && d.final.name == name {
		d.final = nil
		return
	}
	d.nodes.remove(name)
	d.edges.removeIncident(name)
}

// Connect registers edge as the policy for the ordered (parent, child)
// pair, replacing any existing policy. A nil edge means ManyToMany. The
// final node may not be either endpoint.
func (d *DAG) Connect(parent, child Node, edge Edge) error {
	if _, ok := parent.(*FinalNode); ok {
		return InvalidEdge{Parent: parent.Name(), Child: child.Name(),
			Reason: "the final node cannot be a graph parent"}
	}
	if _, ok := child.(*FinalNode); ok {
		return InvalidEdge{Parent: parent.Name(), Child: child.Name(),
			Reason: "the final node cannot be a graph child"}
	}
	if _, ok := d.nodes.GetByReference(parent); !ok {
		return InvalidEdge{Parent: parent.Name(), Child: child.Name(),
			Reason: fmt.Sprintf("parent %s does not belong to this DAG", parent.Name())}
	}
	if _, ok := d.nodes.GetByReference(child); !ok {
		return InvalidEdge{Parent: parent.Name(), Child: child.Name(),
			Reason: fmt.Sprintf("child %s does not belong to this DAG", child.Name())}
	}
	if edge == nil {
		edge = ManyToMany{}
	}
	d.edges.add(parent, child, edge)
	return nil
}

// Disconnect removes the edge policy for the ordered (parent, child) pair
// if one exists.
func (d *DAG) Disconnect(parent, child Node) {
	d.edges.remove(parent, child)
}

// EdgeBetween returns the edge policy registered for the ordered
// (parent, child) pair.
func (d *DAG) EdgeBetween(parent, child Node) (Edge, bool) {
	return d.edges.get(parent, child)
}

// EdgePair is one registered edge with its resolved endpoints.
type EdgePair struct {
	Parent Node
	Child  Node
	Edge   Edge
}

// Edges returns all registered edges ordered by (parent name, child name).
func (d *DAG) Edges() []EdgePair {
	pairs := make([]EdgePair, 0, d.edges.Len())
	for _, k := range d.edges.keys() {
		parent, _ := d.nodes.GetByName(k.parent)
		child, _ := d.nodes.GetByName(k.child)
		pairs = append(pairs, EdgePair{Parent: parent, Child: child, Edge: d.edges.edges[k]})
	}
	return pairs
}

// ParentsOf returns the nodes with an edge into n, ordered by Compare.
// Derived from the edge store by one full scan.
func (d *DAG) ParentsOf(n Node) []Node {
	parents := []Node{}
	for k := range d.edges.edges {
		if k.child == n.Name() {
			if p, ok := d.nodes.GetByName(k.parent); ok {
				parents = append(parents, p)
			}
		}
	}
	sort.Slice(parents, func(i, j int) bool { return Compare(parents[i], parents[j]) < 0 })
	return parents
}

// ChildrenOf returns the nodes with an edge out of n, ordered by Compare.
func (d *DAG) ChildrenOf(n Node) []Node {
	children := []Node{}
	for k := range d.edges.edges {
		if k.parent == n.Name() {
			if c, ok := d.nodes.GetByName(k.child); ok {
				children = append(children, c)
			}
		}
	}
	sort.Slice(children, func(i, j int) bool { return Compare(children[i], children[j]) < 0 })
	return children
}

// Roots returns the nodes with no parents, ordered by Compare.
func (d *DAG) Roots() []Node {
	hasParent := map[string]bool{}
	for k := range d.edges.edges {
		hasParent[k.child] = true
	}
	roots := []Node{}
	for _, n := range d.nodes.Nodes() {
		if !hasParent[n.Name()] {
			roots = append(roots, n)
		}
	}
	return roots
}

// Leaves returns the nodes with no children, ordered by Compare.
func (d *DAG) Leaves() []Node {
	hasChild := map[string]bool{}
	for k := range d.edges.edges {
		hasChild[k.parent] = true
	}
	leaves := []Node{}
	for _, n := range d.nodes.Nodes() {
		if !hasChild[n.Name()] {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Walk visits every node reachable from the roots exactly once, depth
// first (children before siblings) or breadth first (siblings before
// children). Sibling order is unspecified.
func (d *DAG) Walk(order WalkOrder) ([]Node, error) {
	return d.walkFrom(d.Roots(), order, d.ChildrenOf)
}

// WalkDescendants visits every node reachable from n's children, in walk
// order. n itself is not visited.
func (d *DAG) WalkDescendants(n Node, order WalkOrder) ([]Node, error) {
	return d.walkFrom(d.ChildrenOf(n), order, d.ChildrenOf)
}

// WalkAncestors visits every node reachable from n's parents following
// edges backwards, in walk order. n itself is not visited.
func (d *DAG) WalkAncestors(n Node, order WalkOrder) ([]Node, error) {
	return d.walkFrom(d.ParentsOf(n), order, d.ParentsOf)
}

func (d *DAG) walkFrom(seed []Node, order WalkOrder, next func(Node) []Node) ([]Node, error) {
	if order != DepthFirst && order != BreadthFirst {
		return nil, UnrecognizedWalkOrder{Order: order}
	}

	seen := map[string]bool{}
	visited := []Node{}
	frontier := append([]Node{}, seed...)

	for len(frontier) > 0 {
		var n Node
		if order == DepthFirst {
			n = frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
		} else {
			n = frontier[0]
			frontier = frontier[1:]
		}

		if seen[n.Name()] {
			continue
		}
		seen[n.Name()] = true

		visited = append(visited, n)
		frontier = append(frontier, next(n)...)
	}
	return visited, nil
}

// Select returns the normal nodes satisfying the predicate, ordered by
// Compare.
func (d *DAG) Select(predicate func(Node) bool) []Node {
	selected := []Node{}
	for _, n := range d.nodes.Nodes() {
		if predicate(n) {
			selected = append(selected, n)
		}
	}
	return selected
}

// Glob returns the normal nodes whose names match the shell-glob pattern.
func (d *DAG) Glob(pattern string) ([]Node, error) {
	// Validate the pattern once up front; path.Match only reports bad
	// patterns when they fail mid-match.
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	return d.Select(func(n Node) bool {
		matched, _ := path.Match(pattern, n.Name())
		return matched
	}), nil
}

// Describe returns a tabular summary of the DAG in breadth-first order.
func (d *DAG) Describe() string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tINSTANCES\tCHILDREN\tPARENTS")

	nodes, _ := d.Walk(BreadthFirst)
	for _, n := range nodes {
		var typ string
		switch n.(type) {
		case *NodeLayer:
			typ = "layer"
		case *SubDAG:
			typ = "subdag"
		}

		parents := []string{}
		for _, p := range d.ParentsOf(n) {
			parents = append(parents, p.Name())
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			typ, n.Name(), InstanceCount(n), len(d.ChildrenOf(n)), strings.Join(parents, ", "))
	}
	w.Flush()
	return buf.String()
}

// --------------------------------------------------------------------------

// DeclareChildLayer declares a new layer and connects it as a child of
// parent in one call.
func (d *DAG) DeclareChildLayer(parent Node, edge Edge, name string, spec LayerSpec) (*NodeLayer, error) {
	layer, err := d.DeclareLayer(name, spec)
	if err != nil {
		return nil, err
	}
	if err := d.Connect(parent, layer, edge); err != nil {
		d.RemoveNode(name)
		return nil, err
	}
	return layer, nil
}

// DeclareParentLayer declares a new layer and connects it as a parent of
// child in one call.
func (d *DAG) DeclareParentLayer(child Node, edge Edge, name string, spec LayerSpec) (*NodeLayer, error) {
	layer, err := d.DeclareLayer(name, spec)
	if err != nil {
		return nil, err
	}
	if err := d.Connect(layer, child, edge); err != nil {
		d.RemoveNode(name)
		return nil, err
	}
	return layer, nil
}

// DeclareChildSubdag declares a new sub-DAG reference and connects it as a
// child of parent in one call.
func (d *DAG) DeclareChildSubdag(parent Node, edge Edge, name, dagFile string, meta NodeMeta) (*SubDAG, error) {
	sub, err := d.DeclareSubdag(name, dagFile, meta)
	if err != nil {
		return nil, err
	}
	if err := d.Connect(parent, sub, edge); err != nil {
		d.RemoveNode(name)
		return nil, err
	}
	return sub, nil
}

// DeclareParentSubdag declares a new sub-DAG reference and connects it as
// a parent of child in one call.
func (d *DAG) DeclareParentSubdag(child Node, edge Edge, name, dagFile string, meta NodeMeta) (*SubDAG, error) {
	sub, err := d.DeclareSubdag(name, dagFile, meta)
	if err != nil {
		return nil, err
	}
	if err := d.Connect(sub, child, edge); err != nil {
		d.RemoveNode(name)
		return nil, err
	}
	return sub, nil
}
