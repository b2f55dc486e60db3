// Copyright 2020, Square, Inc.

package dag

import (
	"sort"
)

// NodeStore maps node names to nodes, enforcing name uniqueness at
// insertion. It holds only the DAG's normal nodes; the final node is
// tracked separately by the DAG.
type NodeStore struct {
	nodes map[string]Node
}

func newNodeStore() *NodeStore {
	return &NodeStore{
		nodes: map[string]Node{},
	}
}

func (s *NodeStore) add(n Node) {
	s.nodes[n.Name()] = n
}

func (s *NodeStore) remove(name string) {
	delete(s.nodes, name)
}

// GetByName returns the node with the given name.
func (s *NodeStore) GetByName(name string) (Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// GetByReference returns the stored node matching the given node's
// identity (type and name). It reports false if the store holds no node
// with that identity, e.g. the node came from another DAG and was never
// added here, or a node of a different type owns the name.
func (s *NodeStore) GetByReference(n Node) (Node, bool) {
	stored, ok := s.nodes[n.Name()]
	if !ok || Compare(stored, n) != 0 {
		return nil, false
	}
	return stored, true
}

func (s *NodeStore) has(name string) bool {
	_, ok := s.nodes[name]
	return ok
}

// Len returns the number of nodes in the store.
func (s *NodeStore) Len() int {
	return len(s.nodes)
}

// Nodes returns all nodes ordered by Compare.
func (s *NodeStore) Nodes() []Node {
	all := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool { return Compare(all[i], all[j]) < 0 })
	return all
}

// --------------------------------------------------------------------------

type edgeKey struct {
	parent string
	child  string
}

// EdgeStore maps ordered (parent, child) node pairs to edge policies. At
// most one policy exists per pair; adding a new one replaces any existing.
type EdgeStore struct {
	edges map[edgeKey]Edge
}

func newEdgeStore() *EdgeStore {
	return &EdgeStore{
		edges: map[edgeKey]Edge{},
	}
}

func (s *EdgeStore) add(parent, child Node, e Edge) {
	s.edges[edgeKey{parent.Name(), child.Name()}] = e
}

func (s *EdgeStore) remove(parent, child Node) {
	delete(s.edges, edgeKey{parent.Name(), child.Name()})
}

func (s *EdgeStore) get(parent, child Node) (Edge, bool) {
	e, ok := s.edges[edgeKey{parent.Name(), child.Name()}]
	return e, ok
}

func (s *EdgeStore) removeIncident(name string) {
	for k := range s.edges {
		if k.parent == name || k.child == name {
			delete(s.edges, k)
		}
	}
}

// Len returns the number of edges in the store.
func (s *EdgeStore) Len() int {
	return len(s.edges)
}

func (s *EdgeStore) keys() []edgeKey {
	keys := make([]edgeKey, 0, len(s.edges))
	for k := range s.edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].parent != keys[j].parent {
			return keys[i].parent < keys[j].parent
		}
		return keys[i].child < keys[j].child
	})
	return keys
}
