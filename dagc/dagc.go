// Copyright 2020, Square, Inc.

// Package dagc implements the dagc command: build a DAG from a workflow
// spec file and write the scheduler's description files.
package dagc

import (
	"fmt"
	"io/ioutil"

	"github.com/alexflint/go-arg"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/square/dagfile/dagc/app"
	"github.com/square/dagfile/dot"
	"github.com/square/dagfile/rescue"
	"github.com/square/dagfile/version"
	"github.com/square/dagfile/writer"
)

type arguments struct {
	SpecFile string `arg:"positional,required" help:"path to the workflow spec YAML file"`
	Dir      string `arg:"-d,--dir" help:"directory to write the DAG files to"`
	DAGFile  string `arg:"--dagfile" help:"name of the main DAG description file"`
	Rescue   bool   `arg:"--rescue" help:"replay the latest rescue file in the output directory before writing"`
	Check    bool   `arg:"--check" help:"parse and build only, write nothing"`
	Dot      string `arg:"--dot" help:"also write a Graphviz DOT rendering to this file"`
	Debug    bool   `arg:"--debug" help:"enable debug logging"`
}

// Version makes go-arg handle --version.
func (arguments) Version() string {
	return "dagc " + version.Version()
}

var cmd arguments

func Run(ctx app.Context) error {
	/* Setup. */
	arg.MustParse(&cmd)
	if cmd.Dir == "" {
		cmd.Dir = "."
	}
	if cmd.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.WithFields(log.Fields{"build": xid.New().String(), "spec": cmd.SpecFile})
	printf := func(s string, args ...interface{}) { fmt.Printf(s+"\n", args...) }

	/* Load and build. */
	s, err := ctx.Hooks.LoadSpec(cmd.SpecFile, printf)
	if err != nil {
		return err
	}
	d, err := s.Build()
	if err != nil {
		return err
	}
	logger.Infof("built DAG %s: %d nodes", s.Name, len(d.Nodes()))

	if cmd.Check {
		printf("%s", d.Describe())
		return nil
	}

	/* Replay previous run state, if asked. */
	if cmd.Rescue {
		dagFileName := cmd.DAGFile
		if dagFileName == "" {
			dagFileName = writer.DefaultDAGFileName
		}
		rescueFile, err := rescue.FindLatest(cmd.Dir, dagFileName)
		if err != nil {
			return err
		}
		if err := rescue.Rescue(d, rescueFile); err != nil {
			return err
		}
		logger.Infof("replayed rescue file %s", rescueFile)
	}

	/* Write. */
	dagFile, err := writer.New(d, cmd.Dir, cmd.DAGFile).Write()
	if err != nil {
		return err
	}
	logger.Infof("wrote %s", dagFile)

	if cmd.Dot != "" {
		text, err := dot.Render(d, s.Name)
		if err != nil {
			return err
		}
		if err := ioutil.WriteFile(cmd.Dot, []byte(text), 0644); err != nil {
			return err
		}
		logger.Infof("wrote %s", cmd.Dot)
	}

	return nil
}
