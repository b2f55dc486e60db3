// Copyright 2020, Square, Inc.

package dag

import (
	"github.com/square/dagfile/submit"
)

// A Node is one declared unit of work in a DAG: a layer of parameterized
// task instances, a reference to an external sub-DAG, or the DAG's final
// cleanup node. Nodes are created only through DAG declare methods and are
// owned by the DAG that created them. Identity is (node type, name);
// relationship queries (parents, children) go through the owning DAG.
type Node interface {
	// Name returns the node's unique name within its DAG.
	Name() string

	// Meta returns the node's scheduling metadata. The returned pointer
	// refers to the node's own state and may be used to update it.
	Meta() *NodeMeta

	// typeLabel distinguishes node types for identity and ordering. It also
	// closes the set of Node implementations to this package.
	typeLabel() string
}

// NodeMeta is the scheduling metadata shared by every node type. The zero
// value is a node with no overrides: no retries, default priority, no
// scripts, not a no-op, not done.
type NodeMeta struct {
	Dir             string          // working directory override
	Noop            PerInstance     // instances submitted as no-ops
	Done            PerInstance     // instances marked already complete
	Retries         *int            // max retries, nil = no RETRY line
	RetryUnlessExit *int            // exit code that disables further retries
	Priority        int             // 0 = default, omitted from output
	Category        string          // concurrency-limit bucket, "" = none
	Abort           *AbortCondition // abort the whole DAG on this node's exit value
	Pre             *Script
	Post            *Script
	PreSkipExitCode *int // PRE script exit code that skips the node
}

// PerInstance is a boolean node attribute that applies either to every
// instance of the node or to specific instance indices. The zero value is
// false for all instances.
type PerInstance struct {
	all     bool
	byIndex map[int]bool
}

// AllInstances returns a PerInstance that is v for every instance.
func AllInstances(v bool) PerInstance {
	return PerInstance{all: v}
}

// Instances returns a PerInstance that is true exactly for the indices
// mapped to true. Indices not present are false.
func Instances(byIndex map[int]bool) PerInstance {
	if byIndex == nil {
		byIndex = map[int]bool{}
	}
	return PerInstance{byIndex: byIndex}
}

// Get reports the flag value for instance index i.
func (p PerInstance) Get(i int) bool {
	if p.byIndex != nil {
		return p.byIndex[i]
	}
	return p.all
}

// Script is a PRE or POST script attached to a node. Arguments are captured
// at construction time and never re-evaluated.
type Script struct {
	Executable  string
	Arguments   []string
	Retry       bool // emit a DEFER clause so the scheduler retries the script
	RetryStatus int  // exit code considered a failure for retry purposes
	RetryDelay  int  // seconds to wait before retrying
}

// NewScript returns a Script with the default retry status (1) and no retry.
func NewScript(executable string, arguments ...string) *Script {
	return &Script{
		Executable:  executable,
		Arguments:   arguments,
		RetryStatus: 1,
	}
}

// AbortCondition aborts the whole DAG when the node exits with
// NodeExitValue. If DAGReturnValue is set it overrides the DAG's own exit
// code on abort.
type AbortCondition struct {
	NodeExitValue  int
	DAGReturnValue *int
}

// Var is a single per-instance variable assignment.
type Var struct {
	Key   string
	Value string
}

// Vars is one instance's variable assignments, in emission order.
type Vars []Var

// LayerSpec configures a new NodeLayer. The zero value declares a layer
// with a single instance, an empty variable mapping, and an empty submit
// description.
type LayerSpec struct {
	NodeMeta

	// PostfixFormat renders an instance index into the name suffix for
	// layers with more than one instance. Defaults to "%d".
	PostfixFormat string

	// Submit is the in-memory submit description written to
	// <layer-name>.sub. Ignored if SubmitFile is set.
	Submit *submit.Description

	// SubmitFile, if set, is an external submit description path emitted
	// verbatim instead of generating a .sub file.
	SubmitFile string

	// Vars defines the concrete instances: one entry per instance. An
	// empty or nil list declares a single instance with no variables.
	Vars []Vars
}

// A NodeLayer is a group of task instances sharing one submit description
// and differing only by per-instance variables.
type NodeLayer struct {
	NodeMeta

	PostfixFormat string
	Submit        *submit.Description
	SubmitFile    string
	Vars          []Vars

	name string
}

func (n *NodeLayer) Name() string      { return n.name }
func (n *NodeLayer) Meta() *NodeMeta   { return &n.NodeMeta }
func (n *NodeLayer) typeLabel() string { return "layer" }

// A SubDAG is a reference to an externally defined DAG file, run as a
// single node from the perspective of this DAG. It always has exactly one
// instance.
type SubDAG struct {
	NodeMeta

	DAGFile string

	name string
}

func (n *SubDAG) Name() string      { return n.name }
func (n *SubDAG) Meta() *NodeMeta   { return &n.NodeMeta }
func (n *SubDAG) typeLabel() string { return "subdag" }

// FinalSpec configures the DAG's final node.
type FinalSpec struct {
	NodeMeta

	Submit     *submit.Description
	SubmitFile string
}

// A FinalNode is the DAG's designated cleanup step. It is not part of the
// normal graph topology: it may not have parents or children, and the
// scheduler runs it last no matter what.
type FinalNode struct {
	NodeMeta

	Submit     *submit.Description
	SubmitFile string

	name string
}

func (n *FinalNode) Name() string      { return n.name }
func (n *FinalNode) Meta() *NodeMeta   { return &n.NodeMeta }
func (n *FinalNode) typeLabel() string { return "final" }

// InstanceCount returns the number of concrete task instances a node
// expands to: len(Vars) for a layer, 1 for everything else.
func InstanceCount(n Node) int {
	if layer, ok := n.(*NodeLayer); ok {
		return len(layer.Vars)
	}
	return 1
}

// Compare orders nodes by (type label, name). It is used only for
// deterministic output formatting, never for correctness.
func Compare(a, b Node) int {
	at, bt := a.typeLabel(), b.typeLabel()
	if at != bt {
		if at < bt {
			return -1
		}
		return 1
	}
	if a.Name() != b.Name() {
		if a.Name() < b.Name() {
			return -1
		}
		return 1
	}
	return 0
}
