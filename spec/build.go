// Copyright 2020, Square, Inc.

package spec

import (
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/square/dagfile/dag"
	"github.com/square/dagfile/submit"
)

// Build constructs the DAG the spec declares. Node declarations are
// validated by the dag package (name uniqueness and format); edges are
// validated here (both endpoints must be declared nodes).
func (s Spec) Build() (*dag.DAG, error) {
	d := dag.New()

	for k, v := range s.Config {
		d.DagmanConfig[k] = v
	}
	for k, v := range s.JobAttributes {
		d.DagmanJobAttributes[k] = v
	}
	for k, v := range s.CategoryLimits {
		d.MaxJobsByCategory[k] = v
	}
	d.JobstateLog = s.JobstateLog

	if s.NodeStatusFile != nil {
		d.NodeStatusFile = &dag.NodeStatusFile{
			Path:         s.NodeStatusFile.Path,
			UpdateTime:   s.NodeStatusFile.UpdateTime,
			AlwaysUpdate: s.NodeStatusFile.AlwaysUpdate,
		}
	}

	if s.Dot != nil {
		dot := dag.NewDotConfig(s.Dot.Path)
		dot.Update = s.Dot.Update
		if s.Dot.Overwrite != nil {
			dot.Overwrite = *s.Dot.Overwrite
		}
		dot.IncludeFile = s.Dot.Include
		d.Dot = dot
	}

	for _, layer := range s.Layers {
		if _, err := d.DeclareLayer(layer.Name, dag.LayerSpec{
			NodeMeta:      layer.NodeMetaSpec.nodeMeta(),
			PostfixFormat: layer.PostfixFormat,
			Submit:        descriptionFromMapSlice(layer.Submit),
			SubmitFile:    layer.SubmitFile,
			Vars:          varsFromMapSlices(layer.Vars),
		}); err != nil {
			return nil, err
		}
	}

	for _, sub := range s.Subdags {
		if sub.File == "" {
			return nil, MissingValueError{Field: "file",
				Explanation: fmt.Sprintf("subdag %s needs an external DAG file", sub.Name)}
		}
		if _, err := d.DeclareSubdag(sub.Name, sub.File, sub.NodeMetaSpec.nodeMeta()); err != nil {
			return nil, err
		}
	}

	if s.Final != nil {
		if _, err := d.DeclareFinal(s.Final.Name, dag.FinalSpec{
			NodeMeta:   s.Final.NodeMetaSpec.nodeMeta(),
			Submit:     descriptionFromMapSlice(s.Final.Submit),
			SubmitFile: s.Final.SubmitFile,
		}); err != nil {
			return nil, err
		}
	}

	for _, e := range s.Edges {
		parent, ok := d.Node(e.Parent)
		if !ok {
			return nil, UnknownNodeError{Field: "parent", Name: e.Parent}
		}
		child, ok := d.Node(e.Child)
		if !ok {
			return nil, UnknownNodeError{Field: "child", Name: e.Child}
		}
		edge, err := e.edge()
		if err != nil {
			return nil, err
		}
		if err := d.Connect(parent, child, edge); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (m NodeMetaSpec) nodeMeta() dag.NodeMeta {
	meta := dag.NodeMeta{
		Dir:             m.Dir,
		Noop:            dag.AllInstances(m.Noop),
		Done:            dag.AllInstances(m.Done),
		Retries:         m.Retries,
		RetryUnlessExit: m.RetryUnlessExit,
		Priority:        m.Priority,
		Category:        m.Category,
		PreSkipExitCode: m.PreSkipExitCode,
	}
	if m.Pre != nil {
		meta.Pre = m.Pre.script()
	}
	if m.Post != nil {
		meta.Post = m.Post.script()
	}
	if m.Abort != nil {
		meta.Abort = &dag.AbortCondition{
			NodeExitValue:  m.Abort.ExitValue,
			DAGReturnValue: m.Abort.ReturnValue,
		}
	}
	return meta
}

func (s ScriptSpec) script() *dag.Script {
	script := dag.NewScript(s.Executable, s.Args...)
	script.Retry = s.Retry
	if s.RetryStatus != nil {
		script.RetryStatus = *s.RetryStatus
	}
	script.RetryDelay = s.RetryDelay
	return script
}

func (e EdgeSpec) edge() (dag.Edge, error) {
	switch e.Type {
	case "", "many-to-many":
		return dag.ManyToMany{}, nil
	case "one-to-one":
		return dag.OneToOne{}, nil
	case "grouper":
		if e.ParentGroupSize < 1 {
			return nil, MissingValueError{Field: "parent-group-size",
				Explanation: "grouper edges need a positive parent group size"}
		}
		if e.ChildGroupSize < 1 {
			return nil, MissingValueError{Field: "child-group-size",
				Explanation: "grouper edges need a positive child group size"}
		}
		return dag.Grouper{
			ParentGroupSize: e.ParentGroupSize,
			ChildGroupSize:  e.ChildGroupSize,
		}, nil
	case "slicer":
		return dag.Slicer{
			ParentSlice: e.ParentSlice.slice(),
			ChildSlice:  e.ChildSlice.slice(),
		}, nil
	default:
		return nil, InvalidValueError{Field: "type", Value: e.Type,
			Expected: "many-to-many, one-to-one, grouper, or slicer"}
	}
}

func (s *SliceSpec) slice() dag.Slice {
	if s == nil {
		return dag.Slice{} // every index
	}
	return dag.Slice{Start: s.Start, Stop: s.Stop, Step: s.Step}
}

func descriptionFromMapSlice(m yaml.MapSlice) *submit.Description {
	if len(m) == 0 {
		return nil
	}
	desc := submit.New()
	for _, item := range m {
		desc.Set(fmt.Sprintf("%v", item.Key), fmt.Sprintf("%v", item.Value))
	}
	return desc
}

func varsFromMapSlices(entries []yaml.MapSlice) []dag.Vars {
	if len(entries) == 0 {
		return nil
	}
	vars := make([]dag.Vars, len(entries))
	for i, entry := range entries {
		v := dag.Vars{}
		for _, item := range entry {
			v = append(v, dag.Var{
				Key:   fmt.Sprintf("%v", item.Key),
				Value: fmt.Sprintf("%v", item.Value),
			})
		}
		vars[i] = v
	}
	return vars
}
