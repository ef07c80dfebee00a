package main

import (
	"os"

	"github.com/runnerr0/dreamlog/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
