// Copyright 2020, Square, Inc.

// Package app provides app-wide data structs and functions for dagc.
package app

import (
	"github.com/square/dagfile/spec"
)

// Context represents how to run dagc. A context is passed to dagc.Run().
// A default context is created in bin/main.go. Wrapper code can integrate
// with dagc by passing a custom context with its own hooks.
type Context struct {
	Hooks Hooks
}

type Hooks struct {
	// LoadSpec loads the workflow spec file. Defaults to spec.ParseFile.
	LoadSpec func(specFile string, logFunc func(string, ...interface{})) (spec.Spec, error)
}

func Defaults() Context {
	return Context{
		Hooks: Hooks{
			LoadSpec: spec.ParseFile,
		},
	}
}
