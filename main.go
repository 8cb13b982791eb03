package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/compozy/docsweep/cli"
	"github.com/compozy/docsweep/cli/helpers"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		if !errors.Is(err, helpers.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
