// Copyright 2020, Square, Inc.

package spec

import (
	"fmt"
)

var _ error = UnknownNodeError{}

// UnknownNodeError reports an edge referencing a node name the spec never
// declares.
type UnknownNodeError struct {
	Field string // "parent" or "child"
	Name  string
}

func (e UnknownNodeError) Error() string {
	return fmt.Sprintf("edge %s %q does not name a declared layer or subdag", e.Field, e.Name)
}

// --------------------------------------------------------------------------

var _ error = InvalidValueError{}

// InvalidValueError reports a field holding a value outside its allowed
// set.
type InvalidValueError struct {
	Field    string
	Value    string
	Expected string
}

func (e InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q in field `%s`, expected %s", e.Value, e.Field, e.Expected)
}

// --------------------------------------------------------------------------

var _ error = MissingValueError{}

// MissingValueError reports a required field that was omitted.
type MissingValueError struct {
	Field       string
	Explanation string
}

func (e MissingValueError) Error() string {
	msg := fmt.Sprintf("field `%s` missing", e.Field)
	if e.Explanation != "" {
		msg += ": " + e.Explanation
	}
	return msg
}
