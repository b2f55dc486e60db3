// Copyright 2020, Square, Inc.

// Package writer serializes a dag.DAG into the scheduler's line-oriented
// description format: one main DAG file, one submit-description file per
// layer, an optional generated config file, and a shared no-op submit file
// for synthesized join nodes.
package writer

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/square/dagfile/dag"
)

const (
	// DefaultDAGFileName names the main description file when the caller
	// does not pick one.
	DefaultDAGFileName = "dagfile.dag"

	// ConfigFileName names the generated scheduler config file referenced
	// by the CONFIG directive.
	ConfigFileName = "dagman.config"

	noopSubFileName = "__JOIN__.sub"
)

// A Writer serializes one DAG into one directory. A Writer is single-use:
// it tracks join ids and lazily-created files for exactly one write, and
// a second call to Write fails.
type Writer struct {
	d        *dag.DAG
	dir      string
	fileName string
	// --
	joins        *dag.JoinAllocator
	emittedJoins map[int]bool
	sawJoin      bool
	used         bool
}

// New returns a Writer that will serialize d into dir. An empty fileName
// means DefaultDAGFileName.
func New(d *dag.DAG, dir, fileName string) *Writer {
	if fileName == "" {
		fileName = DefaultDAGFileName
	}
	return &Writer{
		d:            d,
		dir:          dir,
		fileName:     fileName,
		joins:        dag.NewJoinAllocator(),
		emittedJoins: map[int]bool{},
	}
}

// Write is a convenience wrapper: it writes d into dir with the default
// file name using a fresh Writer.
func Write(d *dag.DAG, dir string) (string, error) {
	return New(d, dir, "").Write()
}

// Write creates dir (and parents) if missing and writes all of the DAG's
// files. It returns the path of the main description file. There is no
// partial-failure recovery: an error may leave a subset of files written.
func (w *Writer) Write() (string, error) {
	if w.used {
		return "", fmt.Errorf("writer already used: a Writer must be reconstructed per write")
	}
	w.used = true

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", err
	}

	lines, err := w.lines()
	if err != nil {
		return "", err
	}

	if len(w.d.DagmanConfig) > 0 {
		if err := w.writeConfigFile(); err != nil {
			return "", err
		}
	}

	dagFile := filepath.Join(w.dir, w.fileName)
	content := strings.Join(lines, "\n") + "\n"
	if err := ioutil.WriteFile(dagFile, []byte(content), 0644); err != nil {
		return "", err
	}
	log.Debugf("wrote %s", dagFile)

	for _, n := range w.d.Nodes() {
		layer, ok := n.(*dag.NodeLayer)
		if !ok {
			continue
		}
		if err := w.writeSubmitFile(layer.Name(), layer.Submit, layer.SubmitFile); err != nil {
			return "", err
		}
	}
	if final := w.d.Final(); final != nil {
		if err := w.writeSubmitFile(final.Name(), final.Submit, final.SubmitFile); err != nil {
			return "", err
		}
	}

	// The shared no-op submit file exists only if this write synthesized
	// at least one join.
	if w.sawJoin {
		noopFile := filepath.Join(w.dir, noopSubFileName)
		if err := ioutil.WriteFile(noopFile, []byte{}, 0644); err != nil {
			return "", err
		}
		log.Debugf("wrote %s", noopFile)
	}

	return dagFile, nil
}

func (w *Writer) writeSubmitFile(name string, desc interface{ String() string }, submitFile string) error {
	if submitFile != "" {
		// External submit description, referenced verbatim in the DAG file.
		return nil
	}
	content := "queue\n"
	if desc != nil {
		if s := desc.String(); s != "" {
			content = s + "\nqueue\n"
		}
	}
	path := filepath.Join(w.dir, name+".sub")
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		return err
	}
	log.Debugf("wrote %s", path)
	return nil
}

func (w *Writer) writeConfigFile() error {
	keys := make([]string, 0, len(w.d.DagmanConfig))
	for k := range w.d.DagmanConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s = %v", k, w.d.DagmanConfig[k])
	}
	path := filepath.Join(w.dir, ConfigFileName)
	if err := ioutil.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return err
	}
	log.Debugf("wrote %s", path)
	return nil
}

func (w *Writer) lines() ([]string, error) {
	lines := []string{"# BEGIN META"}
	lines = append(lines, w.metaLines()...)
	lines = append(lines, "# END META")

	lines = append(lines, "# BEGIN NODES AND EDGES")
	nodes, err := w.d.Walk(dag.BreadthFirst)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		lines = append(lines, w.nodeLines(n)...)
		edgeLines, err := w.edgeLines(n)
		if err != nil {
			return nil, err
		}
		lines = append(lines, edgeLines...)
	}
	if final := w.d.Final(); final != nil {
		lines = append(lines, w.finalLines(final)...)
	}
	lines = append(lines, "# END NODES AND EDGES")

	return lines, nil
}

func (w *Writer) metaLines() []string {
	lines := []string{}

	if len(w.d.DagmanConfig) > 0 {
		lines = append(lines, "CONFIG "+ConfigFileName)
	}

	if w.d.JobstateLog != "" {
		lines = append(lines, "JOBSTATE_LOG "+filepath.ToSlash(w.d.JobstateLog))
	}

	if nsf := w.d.NodeStatusFile; nsf != nil {
		parts := []string{"NODE_STATUS_FILE", filepath.ToSlash(nsf.Path)}
		if nsf.UpdateTime != nil {
			parts = append(parts, fmt.Sprintf("%d", *nsf.UpdateTime))
		}
		if nsf.AlwaysUpdate {
			parts = append(parts, "ALWAYS-UPDATE")
		}
		lines = append(lines, strings.Join(parts, " "))
	}

	if dot := w.d.Dot; dot != nil {
		parts := []string{"DOT", filepath.ToSlash(dot.Path)}
		if dot.Update {
			parts = append(parts, "UPDATE")
		} else {
			parts = append(parts, "DONT-UPDATE")
		}
		if dot.Overwrite {
			parts = append(parts, "OVERWRITE")
		} else {
			parts = append(parts, "DONT-OVERWRITE")
		}
		if dot.IncludeFile != "" {
			parts = append(parts, "INCLUDE", filepath.ToSlash(dot.IncludeFile))
		}
		lines = append(lines, strings.Join(parts, " "))
	}

	attrKeys := make([]string, 0, len(w.d.DagmanJobAttributes))
	for k := range w.d.DagmanJobAttributes {
		attrKeys = append(attrKeys, k)
	}
	sort.Strings(attrKeys)
	for _, k := range attrKeys {
		lines = append(lines, fmt.Sprintf("SET_JOB_ATTR %s = %v", k, w.d.DagmanJobAttributes[k]))
	}

	categories := make([]string, 0, len(w.d.MaxJobsByCategory))
	for c := range w.d.MaxJobsByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		lines = append(lines, fmt.Sprintf("CATEGORY %s %d", c, w.d.MaxJobsByCategory[c]))
	}

	return lines
}

func (w *Writer) submitRef(n dag.Node) string {
	switch n := n.(type) {
	case *dag.NodeLayer:
		if n.SubmitFile != "" {
			return filepath.ToSlash(n.SubmitFile)
		}
	case *dag.FinalNode:
		if n.SubmitFile != "" {
			return filepath.ToSlash(n.SubmitFile)
		}
	}
	return n.Name() + ".sub"
}

func (w *Writer) nodeLines(n dag.Node) []string {
	lines := []string{}
	count := dag.InstanceCount(n)
	meta := n.Meta()

	for idx := 0; idx < count; idx++ {
		name := dag.NodeInstanceName(n, idx)

		var parts []string
		switch n := n.(type) {
		case *dag.SubDAG:
			parts = []string{"SUBDAG", "EXTERNAL", name, filepath.ToSlash(n.DAGFile)}
		default:
			parts = []string{"JOB", name, w.submitRef(n)}
		}
		if meta.Dir != "" {
			parts = append(parts, "DIR", meta.Dir)
		}
		if meta.Noop.Get(idx) {
			parts = append(parts, "NOOP")
		}
		if meta.Done.Get(idx) {
			parts = append(parts, "DONE")
		}
		lines = append(lines, strings.Join(parts, " "))

		if layer, ok := n.(*dag.NodeLayer); ok {
			if vars := layer.Vars[idx]; len(vars) > 0 {
				lines = append(lines, varsLine(name, vars))
			}
		}

		lines = append(lines, metaLines(name, meta)...)
	}
	return lines
}

func (w *Writer) finalLines(final *dag.FinalNode) []string {
	lines := []string{}
	name := final.Name()
	meta := final.Meta()

	parts := []string{"FINAL", name, w.submitRef(final)}
	if meta.Dir != "" {
		parts = append(parts, "DIR", meta.Dir)
	}
	if meta.Noop.Get(0) {
		parts = append(parts, "NOOP")
	}
	if meta.Done.Get(0) {
		parts = append(parts, "DONE")
	}
	lines = append(lines, strings.Join(parts, " "))

	lines = append(lines, metaLines(name, meta)...)
	return lines
}

// metaLines renders the per-instance metadata lines in declaration order:
// RETRY, SCRIPT PRE, SCRIPT POST, PRE_SKIP, PRIORITY, CATEGORY,
// ABORT-DAG-ON. Lines are emitted only when the corresponding attribute is
// set.
func metaLines(name string, meta *dag.NodeMeta) []string {
	lines := []string{}

	if meta.Retries != nil {
		line := fmt.Sprintf("RETRY %s %d", name, *meta.Retries)
		if meta.RetryUnlessExit != nil {
			line += fmt.Sprintf(" UNLESS-EXIT %d", *meta.RetryUnlessExit)
		}
		lines = append(lines, line)
	}

	if meta.Pre != nil {
		lines = append(lines, scriptLine(name, meta.Pre, "PRE"))
	}
	if meta.Post != nil {
		lines = append(lines, scriptLine(name, meta.Post, "POST"))
	}

	if meta.PreSkipExitCode != nil {
		lines = append(lines, fmt.Sprintf("PRE_SKIP %s %d", name, *meta.PreSkipExitCode))
	}

	if meta.Priority != 0 {
		lines = append(lines, fmt.Sprintf("PRIORITY %s %d", name, meta.Priority))
	}

	if meta.Category != "" {
		lines = append(lines, fmt.Sprintf("CATEGORY %s %s", name, meta.Category))
	}

	if meta.Abort != nil {
		line := fmt.Sprintf("ABORT-DAG-ON %s %d", name, meta.Abort.NodeExitValue)
		if meta.Abort.DAGReturnValue != nil {
			line += fmt.Sprintf(" RETURN %d", *meta.Abort.DAGReturnValue)
		}
		lines = append(lines, line)
	}

	return lines
}

func scriptLine(name string, script *dag.Script, which string) string {
	parts := []string{"SCRIPT"}
	if script.Retry {
		parts = append(parts, "DEFER",
			fmt.Sprintf("%d", script.RetryStatus), fmt.Sprintf("%d", script.RetryDelay))
	}
	parts = append(parts, which, name, script.Executable)
	parts = append(parts, script.Arguments...)
	return strings.Join(parts, " ")
}

func varsLine(name string, vars dag.Vars) string {
	parts := []string{"VARS", name}
	for _, v := range vars {
		value := strings.Replace(v.Value, `\`, `\\`, -1)
		value = strings.Replace(value, `"`, `\"`, -1)
		parts = append(parts, fmt.Sprintf(`%s="%s"`, v.Key, value))
	}
	return strings.Join(parts, " ")
}

func (w *Writer) edgeLines(n dag.Node) ([]string, error) {
	lines := []string{}
	for _, child := range w.d.ChildrenOf(n) {
		edge, ok := w.d.EdgeBetween(n, child)
		if !ok {
			continue
		}
		links, err := edge.Expand(dag.InstanceCount(n), dag.InstanceCount(child), w.joins)
		if err != nil {
			// Edge-expansion failures surface unmodified.
			return nil, err
		}
		for _, link := range links {
			parentNames := w.endpointNames(n, link.Parent, &lines)
			childNames := w.endpointNames(child, link.Child, &lines)
			lines = append(lines, "PARENT "+strings.Join(parentNames, " ")+" CHILD "+strings.Join(childNames, " "))
		}
	}
	return lines, nil
}

// endpointNames resolves one side of a link to concrete task names. The
// first time a join id appears, its no-op JOB declaration is appended to
// lines ahead of the PARENT/CHILD line that uses it.
func (w *Writer) endpointNames(n dag.Node, ep dag.Endpoint, lines *[]string) []string {
	if ep.Join != nil {
		name := dag.JoinName(ep.Join.ID)
		if !w.emittedJoins[ep.Join.ID] {
			w.emittedJoins[ep.Join.ID] = true
			w.sawJoin = true
			*lines = append(*lines, fmt.Sprintf("JOB %s %s NOOP", name, noopSubFileName))
		}
		return []string{name}
	}
	names := make([]string, len(ep.Indices))
	for i, idx := range ep.Indices {
		names[i] = dag.NodeInstanceName(n, idx)
	}
	return names
}
