package main

import (
	"os"

	"github.com/kimhsiao/driftwood/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
