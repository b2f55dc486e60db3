// Copyright 2020, Square, Inc.

// Package spec parses declarative workflow spec files (YAML) and builds
// the equivalent dag.DAG. A spec file declares the DAG's meta settings,
// its layers, sub-DAG references, an optional final node, and the edges
// between them.
package spec

import (
	"gopkg.in/yaml.v2"
)

// Spec is the top-level structure expected from a workflow spec file.
type Spec struct {
	Name string `yaml:"name"` // workflow name, used for logging and DOT labels

	Config         map[string]interface{} `yaml:"config"`          // scheduler config entries
	JobAttributes  map[string]interface{} `yaml:"job-attributes"`  // SET_JOB_ATTR entries
	CategoryLimits map[string]int         `yaml:"category-limits"` // max jobs per category
	JobstateLog    string                 `yaml:"jobstate-log"`
	NodeStatusFile *NodeStatusFileSpec    `yaml:"node-status-file"`
	Dot            *DotSpec               `yaml:"dot"`

	Layers  []*LayerSpec  `yaml:"layers"`
	Subdags []*SubdagSpec `yaml:"subdags"`
	Final   *FinalSpec    `yaml:"final"`
	Edges   []*EdgeSpec   `yaml:"edges"`
}

// NodeMetaSpec holds the scheduling metadata fields shared by layers,
// subdags, and the final node.
type NodeMetaSpec struct {
	Dir             string      `yaml:"dir"`
	Noop            bool        `yaml:"noop"`
	Done            bool        `yaml:"done"`
	Retries         *int        `yaml:"retries"`
	RetryUnlessExit *int        `yaml:"retry-unless-exit"`
	Priority        int         `yaml:"priority"`
	Category        string      `yaml:"category"`
	Pre             *ScriptSpec `yaml:"pre"`
	Post            *ScriptSpec `yaml:"post"`
	PreSkipExitCode *int        `yaml:"pre-skip-exit-code"`
	Abort           *AbortSpec  `yaml:"abort"`
}

// LayerSpec declares one node layer. Submit is an ordered mapping so the
// generated submit description preserves the spec file's command order;
// the same goes for each vars entry.
type LayerSpec struct {
	Name         string `yaml:"name"`
	NodeMetaSpec `yaml:",inline"`

	PostfixFormat string          `yaml:"postfix-format"`
	Submit        yaml.MapSlice   `yaml:"submit"`
	SubmitFile    string          `yaml:"submit-file"`
	Vars          []yaml.MapSlice `yaml:"vars"`
}

// SubdagSpec declares one reference to an external DAG file.
type SubdagSpec struct {
	Name         string `yaml:"name"`
	File         string `yaml:"file"`
	NodeMetaSpec `yaml:",inline"`
}

// FinalSpec declares the DAG's final cleanup node.
type FinalSpec struct {
	Name         string `yaml:"name"`
	NodeMetaSpec `yaml:",inline"`

	Submit     yaml.MapSlice `yaml:"submit"`
	SubmitFile string        `yaml:"submit-file"`
}

// ScriptSpec declares a PRE or POST script.
type ScriptSpec struct {
	Executable  string   `yaml:"executable"`
	Args        []string `yaml:"args"`
	Retry       bool     `yaml:"retry"`
	RetryStatus *int     `yaml:"retry-status"` // default 1
	RetryDelay  int      `yaml:"retry-delay"`
}

// AbortSpec declares an abort-the-DAG condition.
type AbortSpec struct {
	ExitValue   int  `yaml:"exit-value"`
	ReturnValue *int `yaml:"return-value"`
}

// EdgeSpec declares one edge between two named nodes. Type selects the
// edge policy: "many-to-many" (the default), "one-to-one", "grouper", or
// "slicer".
type EdgeSpec struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
	Type   string `yaml:"type"`

	// grouper only
	ParentGroupSize int `yaml:"parent-group-size"`
	ChildGroupSize  int `yaml:"child-group-size"`

	// slicer only; a missing slice selects every index
	ParentSlice *SliceSpec `yaml:"parent-slice"`
	ChildSlice  *SliceSpec `yaml:"child-slice"`
}

// SliceSpec declares an index slice. Stop < 1 selects through the end;
// Step < 1 means 1.
type SliceSpec struct {
	Start int `yaml:"start"`
	Stop  int `yaml:"stop"`
	Step  int `yaml:"step"`
}

// NodeStatusFileSpec declares the scheduler's node status file.
type NodeStatusFileSpec struct {
	Path         string `yaml:"path"`
	UpdateTime   *int   `yaml:"update-time"`
	AlwaysUpdate bool   `yaml:"always-update"`
}

// DotSpec declares the scheduler's DOT file maintenance. Overwrite
// defaults to true when omitted.
type DotSpec struct {
	Path      string `yaml:"path"`
	Update    bool   `yaml:"update"`
	Overwrite *bool  `yaml:"overwrite"`
	Include   string `yaml:"include"`
}
