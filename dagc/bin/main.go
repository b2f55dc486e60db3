// Copyright 2020, Square, Inc.

package main

import (
	"fmt"
	"os"

	"github.com/square/dagfile/dagc"
	"github.com/square/dagfile/dagc/app"
)

func main() {
	if err := dagc.Run(app.Defaults()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
