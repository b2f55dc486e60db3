// Copyright 2020, Square, Inc.

// Package rescue replays a scheduler rescue file onto a DAG. A rescue file
// records which task instances finished in a previous run, one
// "DONE <instance-name>" line each; applying it marks those instances done
// so a re-written DAG skips completed work. Instance names are decoded
// with the same naming convention the writer emits, so writer output and
// rescue input round-trip exactly.
package rescue

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/square/dagfile/dag"
)

var _ error = NoRescueFileFound{}

// NoRescueFileFound is returned by FindLatest when a directory holds no
// rescue file for the given DAG file.
type NoRescueFileFound struct {
	Dir         string
	DAGFileName string
}

func (e NoRescueFileFound) Error() string {
	return fmt.Sprintf("no rescue file for %s found in %s", e.DAGFileName, e.Dir)
}

// Rescue reads the rescue file at path and applies it to d.
func Rescue(d *dag.DAG, path string) error {
	text, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	finished, err := ParseText(string(text))
	if err != nil {
		return err
	}
	Apply(d, finished)
	return nil
}

// ParseText parses rescue file text into a map of node name to the set of
// finished instance indices. Blank lines and #-comments are ignored.
func ParseText(text string) (map[string]map[int]bool, error) {
	finished := map[string]map[int]bool{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "DONE ") {
			return nil, fmt.Errorf("unparseable rescue line: %q", line)
		}
		instanceName := strings.TrimSpace(strings.TrimPrefix(line, "DONE "))
		name, idx, err := dag.ParseInstanceName(instanceName)
		if err != nil {
			return nil, err
		}
		if finished[name] == nil {
			finished[name] = map[int]bool{}
		}
		finished[name][idx] = true
	}
	return finished, nil
}

// Apply marks the finished instances done on d's nodes. Every normal
// node's done state is replaced: instances listed in finished become done,
// all others revert to not done. Unknown node names in finished are
// ignored.
func Apply(d *dag.DAG, finished map[string]map[int]bool) {
	for _, n := range d.Nodes() {
		done := map[int]bool{}
		for idx := range finished[n.Name()] {
			done[idx] = true
		}
		n.Meta().Done = dag.Instances(done)
	}
}

// rescue files are named <dag-file>.rescue<NNN> with a three-digit,
// zero-padded sequence number
var rescueSuffix = regexp.MustCompile(`\.rescue(\d{3})$`)

// FindLatest returns the path of the highest-numbered rescue file for
// dagFileName in dir, or NoRescueFileFound if there is none.
func FindLatest(dir, dagFileName string) (string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return "", err
	}

	matches := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, dagFileName+".rescue") {
			continue
		}
		m := rescueSuffix.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if _, err := strconv.Atoi(m[1]); err != nil {
			continue
		}
		matches = append(matches, name)
	}
	if len(matches) == 0 {
		return "", NoRescueFileFound{Dir: dir, DAGFileName: dagFileName}
	}

	// Zero-padded fixed-width numbers sort lexically.
	sort.Strings(matches)
	return filepath.Join(dir, matches[len(matches)-1]), nil
}
