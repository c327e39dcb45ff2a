// Package main is the entry point for the parlor CLI.
package main

import (
	"os"

	"github.com/parlor/parlor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
