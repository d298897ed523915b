// Package main is the entry point for the leapmodel CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapmodel/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
