// Copyright 2020, Square, Inc.

package dag

import (
	"fmt"
	"sort"
	"strings"
)

// A JoinNode is a writer-synthesized no-op task inserted between a group
// of parent instances and a group of child instances so that an implicit
// N x M relationship costs O(N+M) concrete links instead of N*M. Join ids
// are scoped to a single write.
type JoinNode struct {
	ID int
}

// JoinAllocator hands out fresh JoinNodes with monotonically increasing
// ids, starting from 0. One allocator serves one write.
type JoinAllocator struct {
	next int
}

func NewJoinAllocator() *JoinAllocator {
	return &JoinAllocator{}
}

// Allocate returns a fresh JoinNode.
func (a *JoinAllocator) Allocate() *JoinNode {
	j := &JoinNode{ID: a.next}
	a.next++
	return j
}

// Endpoint is one side of an expanded link: either a group of concrete
// instance indices or a synthesized join node, never both.
type Endpoint struct {
	Indices []int
	Join    *JoinNode
}

func indexEndpoint(indices ...int) Endpoint {
	return Endpoint{Indices: indices}
}

func joinEndpoint(j *JoinNode) Endpoint {
	return Endpoint{Join: j}
}

// Link is one concrete parent/child relationship produced by edge
// expansion.
type Link struct {
	Parent Endpoint
	Child  Endpoint
}

// An Edge is the policy governing how a parent node's instances connect to
// a child node's instances. The set of implementations is closed: the
// Custom type is the escape hatch for arbitrary connection rules.
type Edge interface {
	// Expand yields the minimal set of links realizing this policy between
	// parentCount parent instances and childCount child instances,
	// synthesizing join nodes from the allocator as needed.
	Expand(parentCount, childCount int, joins *JoinAllocator) ([]Link, error)

	edgeType()
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// --------------------------------------------------------------------------

// ManyToMany connects two layers densely: every instance of the child
// layer is a child of every instance of the parent layer. This is the
// default edge policy.
type ManyToMany struct{}

func (ManyToMany) edgeType() {}

func (ManyToMany) Expand(parentCount, childCount int, joins *JoinAllocator) ([]Link, error) {
	if parentCount == 1 || childCount == 1 {
		// 1xN or Nx1 is already linear, no join needed.
		return []Link{
			{Parent: indexEndpoint(allIndices(parentCount)...), Child: indexEndpoint(allIndices(childCount)...)},
		}, nil
	}
	join := joins.Allocate()
	return []Link{
		{Parent: indexEndpoint(allIndices(parentCount)...), Child: joinEndpoint(join)},
		{Parent: joinEndpoint(join), Child: indexEndpoint(allIndices(childCount)...)},
	}, nil
}

// --------------------------------------------------------------------------

// OneToOne connects two layers linearly: instance i of the child layer is
// a child of instance i of the parent layer. The layers must have the same
// instance count.
type OneToOne struct{}

func (OneToOne) edgeType() {}

func (OneToOne) Expand(parentCount, childCount int, joins *JoinAllocator) ([]Link, error) {
	if parentCount != childCount {
		return nil, SizeMismatch{ParentCount: parentCount, ChildCount: childCount}
	}
	links := make([]Link, parentCount)
	for i := 0; i < parentCount; i++ {
		links[i] = Link{Parent: indexEndpoint(i), Child: indexEndpoint(i)}
	}
	return links, nil
}

// --------------------------------------------------------------------------

// Grouper partitions parent instances into consecutive groups of
// ParentGroupSize and child instances into consecutive groups of
// ChildGroupSize, then connects aligned groups through one join each.
// Both counts must divide evenly and produce the same number of groups.
type Grouper struct {
	ParentGroupSize int
	ChildGroupSize  int
}

func (Grouper) edgeType() {}

func (e Grouper) Expand(parentCount, childCount int, joins *JoinAllocator) ([]Link, error) {
	if e.ParentGroupSize < 1 || e.ChildGroupSize < 1 {
		return nil, IncompatibleGrouping{
			ParentCount: parentCount, ChildCount: childCount,
			ParentGroupSize: e.ParentGroupSize, ChildGroupSize: e.ChildGroupSize,
			Reason: "group sizes must be at least 1",
		}
	}
	if parentCount%e.ParentGroupSize != 0 || childCount%e.ChildGroupSize != 0 {
		return nil, IncompatibleGrouping{
			ParentCount: parentCount, ChildCount: childCount,
			ParentGroupSize: e.ParentGroupSize, ChildGroupSize: e.ChildGroupSize,
			Reason: "instance counts must divide evenly into groups",
		}
	}
	numGroups := parentCount / e.ParentGroupSize
	if numGroups != childCount/e.ChildGroupSize {
		return nil, IncompatibleGrouping{
			ParentCount: parentCount, ChildCount: childCount,
			ParentGroupSize: e.ParentGroupSize, ChildGroupSize: e.ChildGroupSize,
			Reason: fmt.Sprintf("parent group count %d != child group count %d", numGroups, childCount/e.ChildGroupSize),
		}
	}

	links := make([]Link, 0, 2*numGroups)
	for g := 0; g < numGroups; g++ {
		parents := make([]int, e.ParentGroupSize)
		for i := range parents {
			parents[i] = g*e.ParentGroupSize + i
		}
		children := make([]int, e.ChildGroupSize)
		for i := range children {
			children[i] = g*e.ChildGroupSize + i
		}
		join := joins.Allocate()
		links = append(links,
			Link{Parent: indexEndpoint(parents...), Child: joinEndpoint(join)},
			Link{Parent: joinEndpoint(join), Child: indexEndpoint(children...)},
		)
	}
	return links, nil
}

// --------------------------------------------------------------------------

// Slice selects every Step-th index from Start up to but not including
// Stop. Stop < 1 selects through the end of the range; Step < 1 is treated
// as 1.
type Slice struct {
	Start int
	Stop  int
	Step  int
}

func (s Slice) indices(n int) []int {
	stop := s.Stop
	if stop < 1 || stop > n {
		stop = n
	}
	step := s.Step
	if step < 1 {
		step = 1
	}
	indices := []int{}
	for i := s.Start; i < stop; i += step {
		if i >= 0 {
			indices = append(indices, i)
		}
	}
	return indices
}

// Slicer applies a slice to each side's index range independently, then
// pairs the selected parent and child indices positionally one-to-one.
//
// Pairing stops silently at the shorter of the two sliced sequences:
// unlike OneToOne, a length mismatch is NOT an error, and the extra
// indices on the longer side are simply never connected.
type Slicer struct {
	ParentSlice Slice
	ChildSlice  Slice
}

func (Slicer) edgeType() {}

func (e Slicer) Expand(parentCount, childCount int, joins *JoinAllocator) ([]Link, error) {
	parents := e.ParentSlice.indices(parentCount)
	children := e.ChildSlice.indices(childCount)

	n := len(parents)
	if len(children) < n {
		n = len(children)
	}
	links := make([]Link, n)
	for i := 0; i < n; i++ {
		links[i] = Link{Parent: indexEndpoint(parents[i]), Child: indexEndpoint(children[i])}
	}
	return links, nil
}

// --------------------------------------------------------------------------

// Custom connects exactly the (parent, child) instance pairs for which
// Connect returns true. Parents with identical child sets are coalesced
// into one group; a group routes through a single join unless either side
// of the group has only one member, in which case it links directly. Join
// count is therefore bounded by the number of distinct child sets.
type Custom struct {
	Connect func(parentIndex, childIndex int) bool
}

func (Custom) edgeType() {}

func (e Custom) Expand(parentCount, childCount int, joins *JoinAllocator) ([]Link, error) {
	// Children of each parent, in index order.
	childSets := make([][]int, parentCount)
	for p := 0; p < parentCount; p++ {
		for c := 0; c < childCount; c++ {
			if e.Connect(p, c) {
				childSets[p] = append(childSets[p], c)
			}
		}
	}

	// Coalesce parents sharing an identical child set, keeping groups in
	// order of their smallest parent index. Parents with no children drop
	// out entirely.
	type group struct {
		parents  []int
		children []int
	}
	groups := []*group{}
	groupByKey := map[string]*group{}
	for p, children := range childSets {
		if len(children) == 0 {
			continue
		}
		key := childSetKey(children)
		if g, ok := groupByKey[key]; ok {
			g.parents = append(g.parents, p)
			continue
		}
		g := &group{parents: []int{p}, children: children}
		groupByKey[key] = g
		groups = append(groups, g)
	}

	links := []Link{}
	for _, g := range groups {
		sort.Ints(g.parents)
		if len(g.parents) == 1 || len(g.children) == 1 {
			links = append(links, Link{
				Parent: indexEndpoint(g.parents...),
				Child:  indexEndpoint(g.children...),
			})
			continue
		}
		join := joins.Allocate()
		links = append(links,
			Link{Parent: indexEndpoint(g.parents...), Child: joinEndpoint(join)},
			Link{Parent: joinEndpoint(join), Child: indexEndpoint(g.children...)},
		)
	}
	return links, nil
}

func childSetKey(children []int) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return strings.Join(parts, ",")
}
