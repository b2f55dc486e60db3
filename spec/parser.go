// Copyright 2020, Square, Inc.

package spec

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// ParseFile parses a single workflow spec (YAML) file. `logFunc` is a
// Printf-like function used to log warning(s) should they occur. Errors
// are returned, not logged.
func ParseFile(specFile string, logFunc func(string, ...interface{})) (Spec, error) {
	var s Spec

	data, err := ioutil.ReadFile(specFile)
	if err != nil {
		return s, err
	}

	return Parse(data, logFunc)
}

// Parse parses workflow spec YAML. Unexpected or duplicate fields produce
// a warning via logFunc; incorrectly typed fields are an error.
func Parse(data []byte, logFunc func(string, ...interface{})) (Spec, error) {
	var s Spec

	err := yaml.UnmarshalStrict(data, &s)
	if err != nil {
		logFunc("Warning: %s\n", err)
		err = yaml.Unmarshal(data, &s)
		if err != nil {
			return s, err
		}
	}

	return s, nil
}
