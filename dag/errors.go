// Copyright 2020, Square, Inc.

package dag

import (
	"fmt"
)

var _ error = DuplicateName{}

// DuplicateName is returned when a node is declared with a name already
// used by another node (normal or final) in the same DAG.
type DuplicateName struct {
	Name string
}

func (e DuplicateName) Error() string {
	return fmt.Sprintf("the DAG already has a node named %s", e.Name)
}

// --------------------------------------------------------------------------

var _ error = InvalidName{}

// InvalidName is returned when a node is declared with a name the writer
// could not round-trip, e.g. an empty name or one containing the instance
// name separator.
type InvalidName struct {
	Name   string
	Reason string
}

func (e InvalidName) Error() string {
	return fmt.Sprintf("invalid node name %q: %s", e.Name, e.Reason)
}

// --------------------------------------------------------------------------

var _ error = InvalidEdge{}

// InvalidEdge is returned by Connect when an edge cannot be registered,
// e.g. one endpoint is the final node or does not belong to the DAG.
type InvalidEdge struct {
	Parent string
	Child  string
	Reason string
}

func (e InvalidEdge) Error() string {
	return fmt.Sprintf("cannot connect %s -> %s: %s", e.Parent, e.Child, e.Reason)
}

// --------------------------------------------------------------------------

var _ error = SizeMismatch{}

// SizeMismatch is returned by OneToOne edge expansion when the parent and
// child instance counts differ.
type SizeMismatch struct {
	ParentCount int
	ChildCount  int
}

func (e SizeMismatch) Error() string {
	return fmt.Sprintf("one-to-one edge requires equal instance counts, got parent %d and child %d",
		e.ParentCount, e.ChildCount)
}

// --------------------------------------------------------------------------

var _ error = IncompatibleGrouping{}

// IncompatibleGrouping is returned by Grouper edge expansion when the
// instance counts cannot be partitioned into aligned groups.
type IncompatibleGrouping struct {
	ParentCount     int
	ChildCount      int
	ParentGroupSize int
	ChildGroupSize  int
	Reason          string
}

func (e IncompatibleGrouping) Error() string {
	return fmt.Sprintf("cannot group parent count %d by %d against child count %d by %d: %s",
		e.ParentCount, e.ParentGroupSize, e.ChildCount, e.ChildGroupSize, e.Reason)
}

// --------------------------------------------------------------------------

var _ error = UnrecognizedWalkOrder{}

// UnrecognizedWalkOrder is returned when a walk is requested with an order
// outside the defined WalkOrder values.
type UnrecognizedWalkOrder struct {
	Order WalkOrder
}

func (e UnrecognizedWalkOrder) Error() string {
	return fmt.Sprintf("unrecognized walk order %d", e.Order)
}
