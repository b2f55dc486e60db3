// Copyright 2020, Square, Inc.

// Package submit models the scheduler's per-task submit description: an
// ordered block of key/value commands with a plain-text serialization.
// The graph and writer treat descriptions as opaque; only the key order
// and the rendered text matter.
package submit

import (
	"strings"
)

type command struct {
	key   string
	value string
}

// A Description is an ordered set of submit commands. The zero value from
// New is an empty description that renders to an empty string.
type Description struct {
	commands []command
}

func New() *Description {
	return &Description{}
}

// Set adds the command, or replaces the value of an existing key in place.
// It returns the description for chaining.
func (d *Description) Set(key, value string) *Description {
	for i := range d.commands {
		if d.commands[i].key == key {
			d.commands[i].value = value
			return d
		}
	}
	d.commands = append(d.commands, command{key: key, value: value})
	return d
}

// Get returns the value for key.
func (d *Description) Get(key string) (string, bool) {
	for _, c := range d.commands {
		if c.key == key {
			return c.value, true
		}
	}
	return "", false
}

// Len returns the number of commands.
func (d *Description) Len() int {
	if d == nil {
		return 0
	}
	return len(d.commands)
}

// String renders the description as "key = value" lines in insertion
// order, without a trailing newline.
func (d *Description) String() string {
	if d == nil {
		return ""
	}
	lines := make([]string, len(d.commands))
	for i, c := range d.commands {
		lines[i] = c.key + " = " + c.value
	}
	return strings.Join(lines, "\n")
}
