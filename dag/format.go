// Copyright 2020, Square, Inc.

package dag

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Separator joins a layer name and a formatted instance index into an
	// instance name. Node names may not contain it, which is what makes
	// ParseInstanceName a true inverse of InstanceName.
	Separator = ":"

	// DefaultPostfixFormat renders instance indices in instance names.
	DefaultPostfixFormat = "%d"
)

// InstanceName returns the concrete task name for instance idx of a node
// that expands to count instances. A node with a single instance keeps its
// bare name; otherwise the index is rendered with postfixFormat and joined
// to the name with Separator.
func InstanceName(name, postfixFormat string, count, idx int) string {
	if count == 1 {
		return name
	}
	if postfixFormat == "" {
		postfixFormat = DefaultPostfixFormat
	}
	return name + Separator + fmt.Sprintf(postfixFormat, idx)
}

// NodeInstanceName returns the concrete task name for instance idx of n.
func NodeInstanceName(n Node, idx int) string {
	postfix := DefaultPostfixFormat
	if layer, ok := n.(*NodeLayer); ok {
		postfix = layer.PostfixFormat
	}
	return InstanceName(n.Name(), postfix, InstanceCount(n), idx)
}

// ParseInstanceName decodes an instance name produced by InstanceName back
// into its (node name, instance index) pair. A name with no separator is
// a single-instance name at index 0.
func ParseInstanceName(instanceName string) (string, int, error) {
	i := strings.LastIndex(instanceName, Separator)
	if i < 0 {
		return instanceName, 0, nil
	}
	idx, err := strconv.Atoi(instanceName[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("instance name %q has a non-numeric index: %s", instanceName, err)
	}
	return instanceName[:i], idx, nil
}

// JoinName returns the task name for a synthesized join node.
func JoinName(id int) string {
	return "__JOIN__" + Separator + strconv.Itoa(id)
}

func checkName(name string) error {
	if name == "" {
		return InvalidName{Name: name, Reason: "name is empty"}
	}
	if strings.Contains(name, Separator) {
		return InvalidName{Name: name, Reason: "name contains the instance separator " + Separator}
	}
	return nil
}
