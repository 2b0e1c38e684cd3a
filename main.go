// Package main is the entry point for the renthub server and tools.
package main

import (
	"fmt"
	"os"

	"renthub/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
